package repository

import (
	"context"
	"errors"

	"carbid/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrNotEnoughPoints = errors.New("not enough points")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) GetOrCreate(ctx context.Context, tx *gorm.DB, userID int64) (*model.Account, error) {
	if tx == nil {
		tx = r.db
	}

	var account model.Account
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err == nil {
		return &account, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	newAccount := &model.Account{UserID: userID}
	err = tx.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(newAccount).Error
	if err != nil {
		return nil, err
	}

	err = tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Adjust applies point and experience deltas in a single guarded UPDATE, then
// reads back the row. The points guard is in the WHERE clause instead of a
// read-check-write sequence, so two racing debits cannot overdraw the account.
// Missing accounts are created lazily with zero balances.
func (r *AccountRepository) Adjust(ctx context.Context, tx *gorm.DB, userID, pointsDelta, experienceDelta int64) (*model.Account, error) {
	if tx == nil {
		tx = r.db
	}

	if _, err := r.GetOrCreate(ctx, tx, userID); err != nil {
		return nil, err
	}

	result := tx.WithContext(ctx).
		Model(&model.Account{}).
		Where("user_id = ? AND points + ? >= 0", userID, pointsDelta).
		Updates(map[string]interface{}{
			"points":     gorm.Expr("points + ?", pointsDelta),
			"experience": gorm.Expr("experience + ?", experienceDelta),
			"version":    gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotEnoughPoints
	}

	var account model.Account
	err := tx.WithContext(ctx).Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}
