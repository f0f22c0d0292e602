package model

import (
	"strings"
	"time"
)

// Normalized outcome categories. The court site reports results as free-text
// Korean labels; the ingestion boundary maps them onto this closed set and
// anything unrecognized becomes OutcomeUnknown. Unknown settles as a
// pass-through rather than an error, so malformed upstream data can never
// block settlement of other auctions.
const (
	OutcomeSold      = "SOLD"      // 매각 / 낙찰
	OutcomeUnsold    = "UNSOLD"    // 유찰
	OutcomeCancelled = "CANCELLED" // 취소
	OutcomeSuspended = "SUSPENDED" // 정지
	OutcomeUnknown   = "UNKNOWN"
)

var outcomeLabels = map[string]string{
	"매각":        OutcomeSold,
	"낙찰":        OutcomeSold,
	"sold":      OutcomeSold,
	"awarded":   OutcomeSold,
	"유찰":        OutcomeUnsold,
	"unsold":    OutcomeUnsold,
	"취소":        OutcomeCancelled,
	"cancelled": OutcomeCancelled,
	"canceled":  OutcomeCancelled,
	"정지":        OutcomeSuspended,
	"suspended": OutcomeSuspended,
}

// NormalizeOutcome maps a raw result label onto the closed outcome set.
// Already-normalized categories pass through unchanged.
func NormalizeOutcome(raw string) string {
	label := strings.ToLower(strings.TrimSpace(raw))
	if c, ok := outcomeLabels[label]; ok {
		return c
	}
	switch strings.ToUpper(label) {
	case OutcomeSold, OutcomeUnsold, OutcomeCancelled, OutcomeSuspended:
		return strings.ToUpper(label)
	}
	return OutcomeUnknown
}

// Settlement states of a stored outcome. An outcome is written first and
// settled asynchronously; rows stuck in PENDING or FAILED are picked up by
// the retry job.
const (
	SettlePending = "PENDING"
	SettleDone    = "SETTLED"
	SettleFailed  = "FAILED"
)

// AuctionOutcome is the resolved real-world result of one auction instance.
// Keyed by auction_no: a rescheduled auction overwrites its previous outcome,
// but only with a same-or-later sale_date; the stored result never regresses
// to an older sale date.
type AuctionOutcome struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	AuctionNo    string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"auction_no"`
	SaleDate     time.Time `gorm:"not null" json:"sale_date"`
	Outcome      string    `gorm:"type:varchar(20);not null" json:"outcome"`
	SalePrice    *int64    `json:"sale_price"` // present only when Outcome=SOLD and the price was reported
	SettleStatus string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"settle_status"`
	RetryCount   int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (AuctionOutcome) TableName() string {
	return "auction_outcome"
}
