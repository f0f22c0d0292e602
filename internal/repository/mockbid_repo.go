package repository

import (
	"context"
	"errors"
	"time"

	"carbid/internal/model"

	"gorm.io/gorm"
)

var ErrBidNotFound = errors.New("mock bid not found")

type MockBidRepository struct {
	db *gorm.DB
}

func NewMockBidRepository(db *gorm.DB) *MockBidRepository {
	return &MockBidRepository{db: db}
}

func (r *MockBidRepository) Create(ctx context.Context, tx *gorm.DB, bid *model.MockBid) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(bid).Error
}

// GetByKey fetches a user's bid for one auction instance, nil when absent.
func (r *MockBidRepository) GetByKey(ctx context.Context, userID int64, auctionNo string, saleDate time.Time) (*model.MockBid, error) {
	var bid model.MockBid
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND auction_no = ? AND sale_date = ?", userID, auctionNo, model.SaleDateKey(saleDate)).
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

// UpdateAmount rewrites an unprocessed bid in place. Rank and earned xp stay
// NULL until settlement, no matter how often the user changes their mind.
func (r *MockBidRepository) UpdateAmount(ctx context.Context, id int64, amount int64, bidTime time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.MockBid{}).
		Where("id = ? AND is_processed = ?", id, false).
		Updates(map[string]interface{}{
			"bid_amount": amount,
			"bid_time":   bidTime,
			"bid_rank":   nil,
			"earned_xp":  nil,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBidNotFound
	}
	return nil
}

// GetUnprocessedByAuction returns every unsettled bid for an auction across
// all of its sale dates. The ranking policy deliberately settles the whole
// cumulative history once a sale completes, so this query must not filter by
// sale_date.
func (r *MockBidRepository) GetUnprocessedByAuction(ctx context.Context, tx *gorm.DB, auctionNo string) ([]*model.MockBid, error) {
	if tx == nil {
		tx = r.db
	}
	var bids []*model.MockBid
	err := tx.WithContext(ctx).
		Where("auction_no = ? AND is_processed = ?", auctionNo, false).
		Find(&bids).Error
	return bids, err
}

// GetUnprocessedByAuctionAndDate scopes to one sale-date instance; used by the
// cancel/suspend and pass-through policies.
func (r *MockBidRepository) GetUnprocessedByAuctionAndDate(ctx context.Context, tx *gorm.DB, auctionNo string, saleDate time.Time) ([]*model.MockBid, error) {
	if tx == nil {
		tx = r.db
	}
	var bids []*model.MockBid
	err := tx.WithContext(ctx).
		Where("auction_no = ? AND sale_date = ? AND is_processed = ?", auctionNo, model.SaleDateKey(saleDate), false).
		Find(&bids).Error
	return bids, err
}

// MarkSettled finalizes one bid. The is_processed guard makes settlement
// replays no-ops at the row level even if two batches raced past the query.
func (r *MockBidRepository) MarkSettled(ctx context.Context, tx *gorm.DB, id int64, rank int, earnedXP int64) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.MockBid{}).
		Where("id = ? AND is_processed = ?", id, false).
		Updates(map[string]interface{}{
			"is_processed": true,
			"bid_rank":     rank,
			"earned_xp":    earnedXP,
		}).Error
}

// SettleAllNoReward closes every unprocessed bid on one auction instance with
// no rank and no reward, in a single guarded UPDATE. Returns the number of
// bids affected.
func (r *MockBidRepository) SettleAllNoReward(ctx context.Context, auctionNo string, saleDate time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.MockBid{}).
		Where("auction_no = ? AND sale_date = ? AND is_processed = ?", auctionNo, model.SaleDateKey(saleDate), false).
		Updates(map[string]interface{}{
			"is_processed": true,
			"bid_rank":     model.RankIneligible,
			"earned_xp":    0,
		})
	return result.RowsAffected, result.Error
}

// ListByUser returns a user's bids newest-first, joined with the auction summary.
func (r *MockBidRepository) ListByUser(ctx context.Context, userID int64) ([]*model.MockBidWithAuction, error) {
	var rows []*model.MockBidWithAuction
	err := r.db.WithContext(ctx).
		Model(&model.MockBid{}).
		Select("mock_bid.*, auction.court_name, auction.car_name, auction.min_bid_price, auction.status").
		Joins("LEFT JOIN auction ON auction.auction_no = mock_bid.auction_no").
		Where("mock_bid.user_id = ?", userID).
		Order("mock_bid.bid_time DESC").
		Find(&rows).Error
	return rows, err
}

// ListByAuctionAndDate returns all bids on one auction instance, highest first.
func (r *MockBidRepository) ListByAuctionAndDate(ctx context.Context, auctionNo string, saleDate time.Time) ([]*model.MockBid, error) {
	var bids []*model.MockBid
	err := r.db.WithContext(ctx).
		Where("auction_no = ? AND sale_date = ?", auctionNo, model.SaleDateKey(saleDate)).
		Order("bid_amount DESC").
		Find(&bids).Error
	return bids, err
}
