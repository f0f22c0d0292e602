package repository

import (
	"context"

	"carbid/internal/model"

	"gorm.io/gorm"
)

// BalanceChangeRepository is the append-only ledger. No update or delete
// methods exist on purpose.
type BalanceChangeRepository struct {
	db *gorm.DB
}

func NewBalanceChangeRepository(db *gorm.DB) *BalanceChangeRepository {
	return &BalanceChangeRepository{db: db}
}

func (r *BalanceChangeRepository) Create(ctx context.Context, tx *gorm.DB, change *model.BalanceChange) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(change).Error
}

func (r *BalanceChangeRepository) ListByUserID(ctx context.Context, userID int64, page, pageSize int) ([]*model.BalanceChange, int64, error) {
	var changes []*model.BalanceChange
	var total int64

	query := r.db.WithContext(ctx).Model(&model.BalanceChange{}).Where("user_id = ?", userID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&changes).Error

	return changes, total, err
}

func (r *BalanceChangeRepository) ListByMockBidID(ctx context.Context, mockBidID int64) ([]*model.BalanceChange, error) {
	var changes []*model.BalanceChange
	err := r.db.WithContext(ctx).
		Where("mock_bid_id = ?", mockBidID).
		Order("created_at ASC").
		Find(&changes).Error
	return changes, err
}
