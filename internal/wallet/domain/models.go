package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Source types recorded on wallet entries.
const (
	SourceTopUp       = "top_up"
	SourceVipPurchase = "vip_purchase"
)

// Wallet is a user's prepaid balance.
type Wallet struct {
	UserID    string          `json:"user_id" gorm:"column:user_id;primaryKey;type:text"`
	Balance   decimal.Decimal `json:"balance" gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	Currency  string          `json:"currency" gorm:"column:currency;type:text;not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (Wallet) TableName() string { return "wallets" }

// Entry records one balance movement. (user_id, direction, source_type,
// source_id) is unique, so replaying a movement is a no-op.
type Entry struct {
	ID         snowflake.ID    `json:"id" gorm:"column:id;primaryKey"`
	UserID     string          `json:"user_id" gorm:"column:user_id;type:text;not null;uniqueIndex:ux_wallet_entries_source"`
	Direction  Direction       `json:"direction" gorm:"column:direction;type:text;not null;uniqueIndex:ux_wallet_entries_source"`
	Amount     decimal.Decimal `json:"amount" gorm:"column:amount;type:numeric(14,2);not null"`
	SourceType string          `json:"source_type" gorm:"column:source_type;type:text;not null;uniqueIndex:ux_wallet_entries_source"`
	SourceID   string          `json:"source_id" gorm:"column:source_id;type:text;not null;uniqueIndex:ux_wallet_entries_source"`
	CreatedAt  time.Time       `json:"created_at" gorm:"column:created_at;not null"`
}

func (Entry) TableName() string { return "wallet_entries" }

type ListEntriesResponse struct {
	Entries       []Entry `json:"entries"`
	NextPageToken string  `json:"next_page_token,omitempty"`
	HasMore       bool    `json:"has_more"`
}
