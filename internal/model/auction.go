package model

import (
	"time"
)

// Auction is one court-auction listing for a vehicle.
// Written by the crawling pipeline; this service only reads it.
type Auction struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionNo      string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"auction_no"` // 사건번호, e.g. "2024타경1234"
	CourtName      string    `gorm:"type:varchar(64)" json:"court_name"`
	CarName        string    `gorm:"type:varchar(128)" json:"car_name"`
	AppraisalPrice int64     `gorm:"not null;default:0" json:"appraisal_price"`
	MinBidPrice    int64     `gorm:"not null;default:0" json:"min_bid_price"` // 최저매각가격
	SaleDate       time.Time `gorm:"not null;index" json:"sale_date"`         // 매각기일 (date only)
	Status         string    `gorm:"type:varchar(32);index" json:"status"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Auction) TableName() string {
	return "auction"
}

// Auction catalog statuses as normalized by the ingestion side.
const (
	AuctionStatusOngoing   = "ONGOING"
	AuctionStatusSold      = "SOLD"
	AuctionStatusUnsold    = "UNSOLD"
	AuctionStatusCancelled = "CANCELLED"
	AuctionStatusSuspended = "SUSPENDED"
)

// terminalStatuses are statuses under which no further mock bids are accepted.
var terminalStatuses = map[string]bool{
	AuctionStatusSold:      true,
	AuctionStatusCancelled: true,
	AuctionStatusSuspended: true,
}

// IsBiddable reports whether the auction still accepts mock bids by status.
// Unknown statuses are treated as biddable; the sale-date check is the hard gate.
func (a *Auction) IsBiddable() bool {
	return !terminalStatuses[a.Status]
}

// SaleDateKey returns the auction's sale date truncated to a calendar day in UTC.
// All (auction_no, sale_date) keys in this service go through this normalization
// so that equality comparisons behave the same in MySQL and in tests.
func SaleDateKey(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseSaleDate parses a YYYY-MM-DD sale date string.
func ParseSaleDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return SaleDateKey(t), nil
}
