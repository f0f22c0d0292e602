package model

import (
	"time"
)

// Account holds a user's point and experience balances.
// Points pay for mock-bid entry fees and are paid back out as rewards;
// experience only ever goes up.
type Account struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"uniqueIndex;not null" json:"user_id"`
	Points     int64     `gorm:"not null;default:0" json:"points"`
	Experience int64     `gorm:"not null;default:0" json:"experience"`
	Version    int       `gorm:"not null;default:0" json:"version"` // optimistic lock counter
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "account"
}
