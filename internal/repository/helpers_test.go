package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"carbid/internal/infrastructure/database"
	"carbid/internal/model"

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

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseSaleDate(s)
	require.NoError(t, err)
	return d
}
