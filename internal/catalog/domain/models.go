package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

// PricingEntryRow is one persisted price. Role is empty for generic pricing.
type PricingEntryRow struct {
	ID           snowflake.ID    `gorm:"column:id;primaryKey"`
	ServiceType  string          `gorm:"column:service_type;type:text;not null;uniqueIndex:ux_vip_pricing_service_role"`
	Role         string          `gorm:"column:role;type:text;not null;default:'';uniqueIndex:ux_vip_pricing_service_role"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	IsDailyPrice bool            `gorm:"column:is_daily_price;not null"`
	DurationDays int             `gorm:"column:duration_days;not null;default:0"`
	Active       bool            `gorm:"column:active;not null;default:true"`
	CreatedAt    time.Time       `gorm:"column:created_at;not null"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;not null"`
}

func (PricingEntryRow) TableName() string { return "vip_pricing_entries" }

func (r PricingEntryRow) Entry() vipdomain.PricingEntry {
	return vipdomain.PricingEntry{
		ServiceType:  vipdomain.ServiceType(r.ServiceType),
		Price:        r.Price,
		IsDailyPrice: r.IsDailyPrice,
		DurationDays: r.DurationDays,
	}
}
