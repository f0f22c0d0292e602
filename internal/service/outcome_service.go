package service

import (
	"context"
	"time"

	"carbid/internal/model"
	"carbid/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OutcomeService receives auction result notifications from the crawling
// pipeline and triggers settlement.
//
// Settlement is fire-and-forget from the caller's point of view: once the
// outcome row is stored the caller gets an ack, and a settlement failure only
// leaves the row PENDING/FAILED for the retry job. Replaying the same outcome
// submission is always safe.
type OutcomeService struct {
	db            *gorm.DB
	auctionRepo   *repository.AuctionRepository
	outcomeRepo   *repository.OutcomeRepository
	settlementSvc *SettlementService
}

func NewOutcomeService(db *gorm.DB, settlementSvc *SettlementService) *OutcomeService {
	return &OutcomeService{
		db:            db,
		auctionRepo:   repository.NewAuctionRepository(db),
		outcomeRepo:   repository.NewOutcomeRepository(db),
		settlementSvc: settlementSvc,
	}
}

// SubmitOutcome records the real-world result for (auctionNo, saleDate).
//
// Outcomes arrive repeatedly as an auction gets rescheduled or corrected. A
// stored outcome with a strictly later sale date wins: the incoming call is a
// no-op and the stored outcome is returned unchanged, so a late correction for
// an old sale date can never roll the state backwards. Same-or-later sale
// dates replace the stored row and re-trigger settlement.
func (s *OutcomeService) SubmitOutcome(ctx context.Context, auctionNo string, saleDate time.Time, rawOutcome string, salePrice *int64) (*model.AuctionOutcome, error) {
	if _, err := s.auctionRepo.GetByAuctionNo(ctx, auctionNo); err != nil {
		return nil, err
	}

	saleDate = model.SaleDateKey(saleDate)
	category := model.NormalizeOutcome(rawOutcome)
	if category != model.OutcomeSold {
		// a price on a non-sale label is upstream noise, drop it
		salePrice = nil
	}

	stored, err := s.outcomeRepo.GetByAuctionNo(ctx, auctionNo)
	if err != nil {
		return nil, err
	}
	if stored != nil && model.SaleDateKey(stored.SaleDate).After(saleDate) {
		log.WithFields(log.Fields{
			"auction_no":  auctionNo,
			"stored_date": stored.SaleDate.Format("2006-01-02"),
			"given_date":  saleDate.Format("2006-01-02"),
		}).Info("stale outcome submission ignored")
		return stored, nil
	}

	outcome := &model.AuctionOutcome{
		AuctionNo:    auctionNo,
		SaleDate:     saleDate,
		Outcome:      category,
		SalePrice:    salePrice,
		SettleStatus: model.SettlePending,
	}
	if err := s.outcomeRepo.Upsert(ctx, outcome); err != nil {
		return nil, err
	}

	go s.settleAsync(outcome)

	return outcome, nil
}

// settleAsync runs the settlement batch off the caller's request path. Errors
// are logged inside SettleAndRecord, never surfaced: the outcome write already
// succeeded and the retry job owns recovery.
func (s *OutcomeService) settleAsync(outcome *model.AuctionOutcome) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_ = s.settlementSvc.SettleAndRecord(ctx, outcome)
}

// GetOutcome returns the stored outcome for an auction, nil when none exists.
func (s *OutcomeService) GetOutcome(ctx context.Context, auctionNo string) (*model.AuctionOutcome, error) {
	return s.outcomeRepo.GetByAuctionNo(ctx, auctionNo)
}
