package job

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"carbid/internal/config"
	"carbid/internal/infrastructure/database"
	"carbid/internal/infrastructure/lock"
	"carbid/internal/model"
	"carbid/internal/service"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func TestProcessUnsettled_ReplaysStuckBatch(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{Business: config.DefaultBusiness()}
	settlementSvc := service.NewSettlementService(db, lock.NewLocalLocker(), cfg.Business, "settlement-result")
	j := NewSettlementRetryJob(db, settlementSvc, cfg)

	saleDate, err := model.ParseSaleDate("2024-08-15")
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Auction{
		AuctionNo:   "2024-50",
		CourtName:   "서울중앙지방법원",
		CarName:     "기아 쏘렌토",
		MinBidPrice: 50,
		SaleDate:    saleDate,
		Status:      model.AuctionStatusUnsold,
	}).Error)
	bid := &model.MockBid{
		UserID:    1,
		AuctionNo: "2024-50",
		SaleDate:  saleDate,
		BidAmount: 100,
		BidTime:   time.Now(),
	}
	require.NoError(t, db.Create(bid).Error)

	// a batch the process died on: outcome stored, settlement never ran
	outcome := &model.AuctionOutcome{
		AuctionNo:    "2024-50",
		SaleDate:     saleDate,
		Outcome:      model.OutcomeUnsold,
		SettleStatus: model.SettlePending,
	}
	require.NoError(t, db.Create(outcome).Error)
	require.NoError(t, db.Model(outcome).
		UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)

	j.ProcessUnsettled(ctx)

	var settledBid model.MockBid
	require.NoError(t, db.First(&settledBid, bid.ID).Error)
	require.True(t, settledBid.IsProcessed)

	var after model.AuctionOutcome
	require.NoError(t, db.First(&after, outcome.ID).Error)
	require.Equal(t, model.SettleDone, after.SettleStatus)
}

func TestProcessUnsettled_RespectsGracePeriod(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cfg := &config.Config{Business: config.DefaultBusiness()}
	settlementSvc := service.NewSettlementService(db, lock.NewLocalLocker(), cfg.Business, "settlement-result")
	j := NewSettlementRetryJob(db, settlementSvc, cfg)

	saleDate, err := model.ParseSaleDate("2024-08-15")
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.Auction{
		AuctionNo:   "2024-51",
		CourtName:   "서울중앙지방법원",
		CarName:     "기아 쏘렌토",
		MinBidPrice: 50,
		SaleDate:    saleDate,
		Status:      model.AuctionStatusUnsold,
	}).Error)

	// just submitted: the in-flight goroutine owns this one, not the retry job
	outcome := &model.AuctionOutcome{
		AuctionNo:    "2024-51",
		SaleDate:     saleDate,
		Outcome:      model.OutcomeUnsold,
		SettleStatus: model.SettlePending,
	}
	require.NoError(t, db.Create(outcome).Error)

	j.ProcessUnsettled(ctx)

	var after model.AuctionOutcome
	require.NoError(t, db.First(&after, outcome.ID).Error)
	require.Equal(t, model.SettlePending, after.SettleStatus)
}
