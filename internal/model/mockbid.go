package model

import (
	"time"
)

// Rank values assigned at settlement. A nil rank means the bid is unsettled.
const (
	RankWinner     = 1
	RankIneligible = -1 // outside the price band, or settled by a non-sale outcome
)

// MockBid is one user's price prediction for one auction instance at one sale date.
// A user has at most one live row per (user_id, auction_no, sale_date); resubmitting
// before settlement overwrites bid_amount in place.
//
// Invariant: is_processed=false implies bid_rank and earned_xp are NULL. Once
// is_processed=true the row is final; the settlement engine never touches it again.
type MockBid struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64     `gorm:"not null;uniqueIndex:uniq_user_auction_date,priority:1;index" json:"user_id"`
	AuctionNo   string    `gorm:"type:varchar(64);not null;uniqueIndex:uniq_user_auction_date,priority:2;index" json:"auction_no"`
	SaleDate    time.Time `gorm:"not null;uniqueIndex:uniq_user_auction_date,priority:3" json:"sale_date"`
	BidAmount   int64     `gorm:"not null" json:"bid_amount"`
	BidTime     time.Time `gorm:"not null" json:"bid_time"`
	IsProcessed bool      `gorm:"not null;default:false;index" json:"is_processed"`
	Rank        *int      `gorm:"column:bid_rank" json:"rank"` // 1 winner, >1 ranked loser, -1 no rank
	EarnedXP    *int64    `gorm:"column:earned_xp" json:"earned_xp"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (MockBid) TableName() string {
	return "mock_bid"
}

// MockBidWithAuction is the read projection for a user's bid history.
type MockBidWithAuction struct {
	MockBid
	CourtName   string `json:"court_name"`
	CarName     string `json:"car_name"`
	MinBidPrice int64  `json:"min_bid_price"`
	Status      string `json:"status"`
}
