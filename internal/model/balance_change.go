package model

import (
	"time"
)

// Balance change reasons.
const (
	ChangeTypeEntryFee     = "ENTRY_FEE"     // mock-bid entry fee debit
	ChangeTypeWinReward    = "WIN_REWARD"    // settlement payout to a winner
	ChangeTypeCancelRefund = "CANCEL_REFUND" // refund when an auction is cancelled/suspended
	ChangeTypeRecharge     = "RECHARGE"      // ops/purchase top-up
)

// BalanceChange is the account audit log.
//
// Ledger rules:
//  1. Append only: rows are never updated or deleted.
//  2. Every row records the resulting balances, so the ledger can be replayed
//     against the account table during reconciliation.
//  3. Settlement-driven rows reference the mock bid that caused them.
type BalanceChange struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ChangeNo        string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"change_no"`
	UserID          int64     `gorm:"index;not null" json:"user_id"`
	PointsDelta     int64     `gorm:"not null" json:"points_delta"`
	ExperienceDelta int64     `gorm:"not null" json:"experience_delta"`
	PointsAfter     int64     `gorm:"not null" json:"points_after"`
	ExperienceAfter int64     `gorm:"not null" json:"experience_after"`
	Type            string    `gorm:"type:varchar(20);not null" json:"type"`
	Description     string    `gorm:"type:varchar(256)" json:"description"`
	MockBidID       *int64    `gorm:"index" json:"mock_bid_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (BalanceChange) TableName() string {
	return "balance_change"
}
