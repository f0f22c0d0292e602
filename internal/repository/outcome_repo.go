package repository

import (
	"context"
	"errors"
	"time"

	"carbid/internal/model"

	"gorm.io/gorm"
)

var ErrOutcomeNotFound = errors.New("auction outcome not found")

type OutcomeRepository struct {
	db *gorm.DB
}

func NewOutcomeRepository(db *gorm.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

func (r *OutcomeRepository) GetByAuctionNo(ctx context.Context, auctionNo string) (*model.AuctionOutcome, error) {
	var outcome model.AuctionOutcome
	err := r.db.WithContext(ctx).Where("auction_no = ?", auctionNo).First(&outcome).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &outcome, nil
}

// Upsert stores the outcome for an auction, replacing any previous row for the
// same auction_no. Callers are responsible for the never-regress sale-date
// check before calling.
func (r *OutcomeRepository) Upsert(ctx context.Context, outcome *model.AuctionOutcome) error {
	existing, err := r.GetByAuctionNo(ctx, outcome.AuctionNo)
	if err != nil {
		return err
	}
	if existing == nil {
		return r.db.WithContext(ctx).Create(outcome).Error
	}
	outcome.ID = existing.ID
	outcome.CreatedAt = existing.CreatedAt
	return r.db.WithContext(ctx).
		Model(&model.AuctionOutcome{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"sale_date":     outcome.SaleDate,
			"outcome":       outcome.Outcome,
			"sale_price":    outcome.SalePrice,
			"settle_status": outcome.SettleStatus,
			"retry_count":   0,
		}).Error
}

func (r *OutcomeRepository) UpdateSettleStatus(ctx context.Context, id int64, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.AuctionOutcome{}).
		Where("id = ?", id).
		Update("settle_status", status).Error
}

func (r *OutcomeRepository) IncrementRetryCount(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).
		Model(&model.AuctionOutcome{}).
		Where("id = ?", id).
		UpdateColumn("retry_count", gorm.Expr("retry_count + 1")).Error
}

// GetUnsettled returns outcomes still awaiting settlement that have not been
// touched since before, oldest first. The time guard keeps the retry job from
// racing the fire-and-forget settlement goroutine on a fresh submission.
func (r *OutcomeRepository) GetUnsettled(ctx context.Context, before time.Time, maxRetries, limit int) ([]*model.AuctionOutcome, error) {
	var outcomes []*model.AuctionOutcome
	err := r.db.WithContext(ctx).
		Where("settle_status IN ? AND updated_at < ? AND retry_count < ?",
			[]string{model.SettlePending, model.SettleFailed}, before, maxRetries).
		Order("updated_at ASC").
		Limit(limit).
		Find(&outcomes).Error
	return outcomes, err
}
