package service

import (
	"context"
	"testing"
	"time"

	"carbid/internal/model"
	"carbid/internal/repository"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestOutcomeService(t *testing.T, db *gorm.DB) *OutcomeService {
	t.Helper()
	return NewOutcomeService(db, newTestSettlement(t, db))
}

func TestSubmitOutcome_UnknownAuction(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOutcomeService(t, db)

	_, err := svc.SubmitOutcome(context.Background(), "no-such-auction", mustDate(t, "2024-08-15"), "매각", int64Ptr(100))
	require.ErrorIs(t, err, repository.ErrAuctionNotFound)
}

func TestSubmitOutcome_StaleSaleDateIsIgnored(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOutcomeService(t, db)
	ctx := context.Background()

	newerDate := mustDate(t, "2024-08-15")
	olderDate := mustDate(t, "2024-08-01")
	seedAuction(t, db, "2024-20", newerDate, 50, model.AuctionStatusSold)
	stored := seedOutcome(t, db, "2024-20", newerDate, model.OutcomeSold, int64Ptr(100))
	require.NoError(t, db.Model(stored).Update("settle_status", model.SettleDone).Error)

	// a late correction for an older sale date never rolls the state back
	got, err := svc.SubmitOutcome(ctx, "2024-20", olderDate, "유찰", nil)
	require.NoError(t, err)
	require.Equal(t, stored.ID, got.ID)
	require.Equal(t, model.OutcomeSold, got.Outcome)

	var after model.AuctionOutcome
	require.NoError(t, db.First(&after, stored.ID).Error)
	require.Equal(t, model.OutcomeSold, after.Outcome)
	require.Equal(t, model.SettleDone, after.SettleStatus)
	require.True(t, model.SaleDateKey(after.SaleDate).Equal(newerDate))
}

func TestSubmitOutcome_NormalizesLabelAndSettles(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOutcomeService(t, db)
	ctx := context.Background()

	saleDate := mustDate(t, "2024-08-15")
	seedAuction(t, db, "2024-21", saleDate, 50, model.AuctionStatusUnsold)
	bid := seedBid(t, db, 1, "2024-21", saleDate, 100)

	got, err := svc.SubmitOutcome(ctx, "2024-21", saleDate, "유찰", nil)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeUnsold, got.Outcome)
	require.Nil(t, got.SalePrice)

	// settlement runs off the request path
	require.Eventually(t, func() bool {
		return getBid(t, db, bid.ID).IsProcessed
	}, 3*time.Second, 20*time.Millisecond)

	settled := getBid(t, db, bid.ID)
	require.Equal(t, model.RankIneligible, *settled.Rank)
	require.Equal(t, int64(0), *settled.EarnedXP)
}

func TestSubmitOutcome_DropsPriceOnNonSaleLabel(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOutcomeService(t, db)
	ctx := context.Background()

	saleDate := mustDate(t, "2024-08-15")
	seedAuction(t, db, "2024-22", saleDate, 50, model.AuctionStatusUnsold)

	got, err := svc.SubmitOutcome(ctx, "2024-22", saleDate, "유찰", int64Ptr(999))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeUnsold, got.Outcome)
	require.Nil(t, got.SalePrice)
}

func TestSubmitOutcome_SameDateOverwrites(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOutcomeService(t, db)
	ctx := context.Background()

	saleDate := mustDate(t, "2024-08-15")
	seedAuction(t, db, "2024-23", saleDate, 50, model.AuctionStatusSold)
	seedOutcome(t, db, "2024-23", saleDate, model.OutcomeUnsold, nil)

	// the crawler's corrected rescan for the same date replaces the outcome
	got, err := svc.SubmitOutcome(ctx, "2024-23", saleDate, "매각", int64Ptr(5000000))
	require.NoError(t, err)
	require.Equal(t, model.OutcomeSold, got.Outcome)
	require.NotNil(t, got.SalePrice)
	require.Equal(t, int64(5000000), *got.SalePrice)

	var count int64
	require.NoError(t, db.Model(&model.AuctionOutcome{}).Where("auction_no = ?", "2024-23").Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestSubmitOutcome_UnknownLabelFailsOpen(t *testing.T) {
	db := newTestDB(t)
	svc := newTestOutcomeService(t, db)
	ctx := context.Background()

	saleDate := mustDate(t, "2024-08-15")
	seedAuction(t, db, "2024-24", saleDate, 50, model.AuctionStatusOngoing)
	bid := seedBid(t, db, 1, "2024-24", saleDate, 100)

	// an unmapped label must settle as pass-through, not error
	got, err := svc.SubmitOutcome(ctx, "2024-24", saleDate, "변경", nil)
	require.NoError(t, err)
	require.Equal(t, model.OutcomeUnknown, got.Outcome)

	require.Eventually(t, func() bool {
		return getBid(t, db, bid.ID).IsProcessed
	}, 3*time.Second, 20*time.Millisecond)
}
