package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carbid/internal/config"
	"carbid/internal/infrastructure/lock"
	"carbid/internal/model"
	"carbid/internal/repository"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrBiddingClosed    = errors.New("bidding window is closed")
	ErrBelowMinimum     = errors.New("bid amount is below the minimum bid price")
	ErrSaleDateMismatch = errors.New("sale date does not match the auction schedule")
	ErrBidSettled       = errors.New("bid has already been settled")
)

// BidService handles mock-bid submission and the bid read projections.
type BidService struct {
	db          *gorm.DB
	business    config.BusinessConfig
	locker      lock.Locker
	auctionRepo *repository.AuctionRepository
	bidRepo     *repository.MockBidRepository
	accountSvc  *AccountService
}

func NewBidService(db *gorm.DB, locker lock.Locker, business config.BusinessConfig) *BidService {
	return &BidService{
		db:          db,
		business:    business,
		locker:      locker,
		auctionRepo: repository.NewAuctionRepository(db),
		bidRepo:     repository.NewMockBidRepository(db),
		accountSvc:  NewAccountService(db),
	}
}

// SubmitBid creates or overwrites a user's prediction for one auction instance.
//
// The entry fee is charged exactly once, on first submission, in the same
// transaction that creates the bid row. Resubmissions before settlement only
// rewrite the amount. Resubmitting after the bid was settled is rejected: a
// settled instance is final and reopening it would allow double payouts.
func (s *BidService) SubmitBid(ctx context.Context, userID int64, auctionNo string, saleDate time.Time, bidAmount int64) (*model.MockBid, error) {
	auction, err := s.auctionRepo.GetByAuctionNo(ctx, auctionNo)
	if err != nil {
		return nil, err
	}

	saleDate = model.SaleDateKey(saleDate)
	if !model.SaleDateKey(auction.SaleDate).Equal(saleDate) {
		// stale client state: the auction has been rescheduled since the
		// caller loaded it
		return nil, ErrSaleDateMismatch
	}
	if saleDate.Before(model.SaleDateKey(time.Now())) {
		return nil, ErrBiddingClosed
	}
	if !auction.IsBiddable() {
		return nil, ErrBiddingClosed
	}
	if bidAmount < auction.MinBidPrice {
		return nil, ErrBelowMinimum
	}

	// Per-user lock so two concurrent first submissions cannot both pass the
	// "no existing bid" check and charge the fee twice.
	release, err := s.locker.Acquire(ctx, lock.UserBidKey(userID))
	if err != nil {
		return nil, fmt.Errorf("acquire bid lock: %w", err)
	}
	defer release()

	existing, err := s.bidRepo.GetByKey(ctx, userID, auctionNo, saleDate)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if existing != nil {
		if existing.IsProcessed {
			return nil, ErrBidSettled
		}
		if err := s.bidRepo.UpdateAmount(ctx, existing.ID, bidAmount, now); err != nil {
			return nil, err
		}
		existing.BidAmount = bidAmount
		existing.BidTime = now
		existing.Rank = nil
		existing.EarnedXP = nil
		return existing, nil
	}

	bid := &model.MockBid{
		UserID:    userID,
		AuctionNo: auctionNo,
		SaleDate:  saleDate,
		BidAmount: bidAmount,
		BidTime:   now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.bidRepo.Create(ctx, tx, bid); err != nil {
			return fmt.Errorf("create mock bid: %w", err)
		}
		_, err := s.accountSvc.AdjustBalance(ctx, tx, userID,
			-s.business.MockBidCost, 0,
			model.ChangeTypeEntryFee,
			fmt.Sprintf("mock bid entry fee (%s)", auctionNo),
			&bid.ID)
		if err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id":    userID,
		"auction_no": auctionNo,
		"sale_date":  saleDate.Format("2006-01-02"),
		"bid_amount": bidAmount,
	}).Info("mock bid created")

	return bid, nil
}

// ListUserBids returns a user's bids newest-first with the auction summary.
func (s *BidService) ListUserBids(ctx context.Context, userID int64) ([]*model.MockBidWithAuction, error) {
	return s.bidRepo.ListByUser(ctx, userID)
}

// ListAuctionBids returns all bids for one auction instance, highest amount first.
func (s *BidService) ListAuctionBids(ctx context.Context, auctionNo string, saleDate time.Time) ([]*model.MockBid, error) {
	if _, err := s.auctionRepo.GetByAuctionNo(ctx, auctionNo); err != nil {
		return nil, err
	}
	return s.bidRepo.ListByAuctionAndDate(ctx, auctionNo, saleDate)
}
