package service

import (
	"context"
	"errors"
	"fmt"

	"carbid/internal/model"
	"carbid/internal/repository"
	"carbid/pkg/idgen"

	"gorm.io/gorm"
)

// AccountService is the balance ledger. Every point or experience mutation in
// the system goes through AdjustBalance so no balance ever changes without an
// audit row.
type AccountService struct {
	db          *gorm.DB
	accountRepo *repository.AccountRepository
	changeRepo  *repository.BalanceChangeRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		db:          db,
		accountRepo: repository.NewAccountRepository(db),
		changeRepo:  repository.NewBalanceChangeRepository(db),
	}
}

func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*model.Account, error) {
	return s.accountRepo.GetOrCreate(ctx, nil, userID)
}

// AdjustBalance applies the deltas and appends the ledger row inside the
// caller's transaction. Settlement and bid submission must pass their ambient
// tx: a bid may never be marked settled in a transaction that did not also pay
// its reward.
func (s *AccountService) AdjustBalance(ctx context.Context, tx *gorm.DB, userID, pointsDelta, experienceDelta int64, changeType, description string, mockBidID *int64) (*model.Account, error) {
	account, err := s.accountRepo.Adjust(ctx, tx, userID, pointsDelta, experienceDelta)
	if err != nil {
		return nil, err
	}

	change := &model.BalanceChange{
		ChangeNo:        idgen.GenerateChangeNo(),
		UserID:          userID,
		PointsDelta:     pointsDelta,
		ExperienceDelta: experienceDelta,
		PointsAfter:     account.Points,
		ExperienceAfter: account.Experience,
		Type:            changeType,
		Description:     description,
		MockBidID:       mockBidID,
	}
	if err := s.changeRepo.Create(ctx, tx, change); err != nil {
		return nil, fmt.Errorf("write balance change: %w", err)
	}

	return account, nil
}

// Recharge credits points outside of settlement (ops tooling, purchases).
func (s *AccountService) Recharge(ctx context.Context, userID, amount int64) error {
	if amount <= 0 {
		return errors.New("recharge amount must be positive")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		_, err := s.AdjustBalance(ctx, tx, userID, amount, 0, model.ChangeTypeRecharge, "point recharge", nil)
		return err
	})
}

func (s *AccountService) ListChanges(ctx context.Context, userID int64, page, pageSize int) ([]*model.BalanceChange, int64, error) {
	return s.changeRepo.ListByUserID(ctx, userID, page, pageSize)
}
