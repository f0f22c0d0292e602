package repository

import (
	"context"
	"testing"
	"time"

	"carbid/internal/model"

	"github.com/stretchr/testify/require"
)

func TestMockBidSettleAllNoReward_ScopesToSaleDate(t *testing.T) {
	db := newTestDB(t)
	repo := NewMockBidRepository(db)
	ctx := context.Background()

	first := day(t, "2024-07-01")
	second := day(t, "2024-08-01")
	a := seedBid(t, db, 1, "2024-30", first, 100)
	b := seedBid(t, db, 2, "2024-30", first, 120)
	other := seedBid(t, db, 1, "2024-30", second, 150)

	affected, err := repo.SettleAllNoReward(ctx, "2024-30", first)
	require.NoError(t, err)
	require.Equal(t, int64(2), affected)

	for _, id := range []int64{a.ID, b.ID} {
		var bid model.MockBid
		require.NoError(t, db.First(&bid, id).Error)
		require.True(t, bid.IsProcessed)
		require.Equal(t, model.RankIneligible, *bid.Rank)
		require.Equal(t, int64(0), *bid.EarnedXP)
	}

	var untouched model.MockBid
	require.NoError(t, db.First(&untouched, other.ID).Error)
	require.False(t, untouched.IsProcessed)

	// replay affects nothing
	affected, err = repo.SettleAllNoReward(ctx, "2024-30", first)
	require.NoError(t, err)
	require.Zero(t, affected)
}

func TestMockBidUpdateAmount_GuardedBySettlement(t *testing.T) {
	db := newTestDB(t)
	repo := NewMockBidRepository(db)
	ctx := context.Background()

	saleDate := day(t, "2024-08-01")
	bid := seedBid(t, db, 1, "2024-31", saleDate, 100)

	require.NoError(t, repo.UpdateAmount(ctx, bid.ID, 250, time.Now()))

	require.NoError(t, repo.MarkSettled(ctx, nil, bid.ID, 1, 10))
	err := repo.UpdateAmount(ctx, bid.ID, 300, time.Now())
	require.ErrorIs(t, err, ErrBidNotFound)

	var after model.MockBid
	require.NoError(t, db.First(&after, bid.ID).Error)
	require.Equal(t, int64(250), after.BidAmount)
}

func TestMockBidGetUnprocessedByAuction_SpansSaleDates(t *testing.T) {
	db := newTestDB(t)
	repo := NewMockBidRepository(db)
	ctx := context.Background()

	seedBid(t, db, 1, "2024-32", day(t, "2024-07-01"), 100)
	seedBid(t, db, 2, "2024-32", day(t, "2024-08-01"), 120)
	settled := seedBid(t, db, 3, "2024-32", day(t, "2024-08-01"), 130)
	require.NoError(t, repo.MarkSettled(ctx, nil, settled.ID, 1, 5))

	bids, err := repo.GetUnprocessedByAuction(ctx, nil, "2024-32")
	require.NoError(t, err)
	require.Len(t, bids, 2)

	dated, err := repo.GetUnprocessedByAuctionAndDate(ctx, nil, "2024-32", day(t, "2024-08-01"))
	require.NoError(t, err)
	require.Len(t, dated, 1)
	require.Equal(t, int64(2), dated[0].UserID)
}

func TestOutcomeGetUnsettled_FiltersStatusAgeAndRetries(t *testing.T) {
	db := newTestDB(t)
	repo := NewOutcomeRepository(db)
	ctx := context.Background()

	saleDate := day(t, "2024-08-01")
	mk := func(auctionNo, status string, retries int) *model.AuctionOutcome {
		o := &model.AuctionOutcome{
			AuctionNo:    auctionNo,
			SaleDate:     saleDate,
			Outcome:      model.OutcomeUnsold,
			SettleStatus: status,
			RetryCount:   retries,
		}
		require.NoError(t, db.Create(o).Error)
		return o
	}

	pending := mk("2024-40", model.SettlePending, 0)
	failed := mk("2024-41", model.SettleFailed, 2)
	mk("2024-42", model.SettleDone, 0)
	mk("2024-43", model.SettleFailed, 5)

	got, err := repo.GetUnsettled(ctx, time.Now().Add(time.Second), 5, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	nos := []string{got[0].AuctionNo, got[1].AuctionNo}
	require.Contains(t, nos, pending.AuctionNo)
	require.Contains(t, nos, failed.AuctionNo)

	// nothing is recent enough once the cutoff moves into the past
	got, err = repo.GetUnsettled(ctx, time.Now().Add(-time.Hour), 5, 50)
	require.NoError(t, err)
	require.Empty(t, got)
}
