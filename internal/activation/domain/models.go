package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"gorm.io/datatypes"
)

// Purchase records one charged activation. It is written in the same
// transaction as the wallet debit and the listing state update.
type Purchase struct {
	ID             snowflake.ID                            `json:"id" gorm:"primaryKey"`
	UserID         string                                  `json:"user_id" gorm:"type:text;not null;uniqueIndex:ux_vip_purchases_user_idempotency,priority:1"`
	CarID          string                                  `json:"car_id" gorm:"type:text;not null;index:ix_vip_purchases_car"`
	IdempotencyKey *string                                 `json:"idempotency_key,omitempty" gorm:"type:text;uniqueIndex:ux_vip_purchases_user_idempotency,priority:2"`
	Selection      datatypes.JSONType[vipdomain.Selection] `json:"selection" gorm:"not null"`
	Total          decimal.Decimal                         `json:"total" gorm:"type:numeric(14,2);not null"`
	BalanceAfter   decimal.Decimal                         `json:"balance_after" gorm:"type:numeric(14,2);not null"`
	CreatedAt      time.Time                               `json:"created_at" gorm:"not null"`
}

func (Purchase) TableName() string { return "vip_purchases" }

type ListPurchasesResponse struct {
	Purchases     []Purchase `json:"purchases"`
	NextPageToken string     `json:"next_page_token,omitempty"`
	HasMore       bool       `json:"has_more"`
}

// PurchaseCursor positions keyset paging over purchases, newest first.
type PurchaseCursor struct {
	CreatedAt time.Time
	ID        int64
}
