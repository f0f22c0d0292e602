package service

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

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a fresh named in-memory sqlite database per test and runs
// the production migrations against it.
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

func testBusiness() config.BusinessConfig {
	return config.DefaultBusiness()
}

func newTestSettlement(t *testing.T, db *gorm.DB) *SettlementService {
	t.Helper()
	return NewSettlementService(db, lock.NewLocalLocker(), testBusiness(), "settlement-result")
}

func seedAuction(t *testing.T, db *gorm.DB, auctionNo string, saleDate time.Time, minBid int64, status string) *model.Auction {
	t.Helper()
	auction := &model.Auction{
		AuctionNo:   auctionNo,
		CourtName:   "서울중앙지방법원",
		CarName:     "현대 그랜저",
		MinBidPrice: minBid,
		SaleDate:    model.SaleDateKey(saleDate),
		Status:      status,
	}
	require.NoError(t, db.Create(auction).Error)
	return auction
}

func seedBid(t *testing.T, db *gorm.DB, userID int64, auctionNo string, saleDate time.Time, amount int64) *model.MockBid {
	t.Helper()
	bid := &model.MockBid{
		UserID:    userID,
		AuctionNo: auctionNo,
		SaleDate:  model.SaleDateKey(saleDate),
		BidAmount: amount,
		BidTime:   time.Now(),
	}
	require.NoError(t, db.Create(bid).Error)
	return bid
}

func seedOutcome(t *testing.T, db *gorm.DB, auctionNo string, saleDate time.Time, category string, salePrice *int64) *model.AuctionOutcome {
	t.Helper()
	outcome := &model.AuctionOutcome{
		AuctionNo:    auctionNo,
		SaleDate:     model.SaleDateKey(saleDate),
		Outcome:      category,
		SalePrice:    salePrice,
		SettleStatus: model.SettlePending,
	}
	require.NoError(t, db.Create(outcome).Error)
	return outcome
}

func rechargeUser(t *testing.T, db *gorm.DB, userID, amount int64) {
	t.Helper()
	require.NoError(t, NewAccountService(db).Recharge(context.Background(), userID, amount))
}

func getAccount(t *testing.T, db *gorm.DB, userID int64) *model.Account {
	t.Helper()
	var account model.Account
	require.NoError(t, db.Where("user_id = ?", userID).First(&account).Error)
	return &account
}

func getBid(t *testing.T, db *gorm.DB, id int64) *model.MockBid {
	t.Helper()
	var bid model.MockBid
	require.NoError(t, db.First(&bid, id).Error)
	return &bid
}

func int64Ptr(v int64) *int64 {
	return &v
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseSaleDate(s)
	require.NoError(t, err)
	return d
}
