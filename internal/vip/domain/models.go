// Package domain holds the VIP monetization data model shared by the catalog,
// pricing, expiry, purchase and listing packages.
package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ServiceType identifies one priced offering in the catalog.
type ServiceType string

const (
	ServiceVip               ServiceType = "vip"
	ServiceVipPlus           ServiceType = "vip_plus"
	ServiceSuperVip          ServiceType = "super_vip"
	ServiceColorHighlighting ServiceType = "color_highlighting"
	ServiceAutoRenewal       ServiceType = "auto_renewal"
	ServiceFree              ServiceType = "free"
)

// AllServiceTypes lists every service type a complete catalog carries.
var AllServiceTypes = []ServiceType{
	ServiceVip,
	ServiceVipPlus,
	ServiceSuperVip,
	ServiceColorHighlighting,
	ServiceAutoRenewal,
	ServiceFree,
}

func ParseServiceType(raw string) (ServiceType, error) {
	st := ServiceType(strings.ToLower(strings.TrimSpace(raw)))
	if !st.Valid() {
		return "", ErrUnknownServiceType
	}
	return st, nil
}

func (s ServiceType) Valid() bool {
	switch s {
	case ServiceVip, ServiceVipPlus, ServiceSuperVip, ServiceColorHighlighting, ServiceAutoRenewal, ServiceFree:
		return true
	default:
		return false
	}
}

func (s ServiceType) IsTier() bool {
	switch s {
	case ServiceVip, ServiceVipPlus, ServiceSuperVip:
		return true
	default:
		return false
	}
}

func (s ServiceType) IsAddOn() bool {
	return s == ServiceColorHighlighting || s == ServiceAutoRenewal
}

// Tier is the visibility level of a listing.
type Tier string

const (
	TierNone     Tier = "none"
	TierVip      Tier = "vip"
	TierVipPlus  Tier = "vip_plus"
	TierSuperVip Tier = "super_vip"
)

// ParseTier accepts the empty string as TierNone.
func ParseTier(raw string) (Tier, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return TierNone, nil
	}
	t := Tier(value)
	if !t.Valid() {
		return "", ErrUnknownTier
	}
	return t, nil
}

func (t Tier) Valid() bool {
	switch t {
	case TierNone, TierVip, TierVipPlus, TierSuperVip:
		return true
	default:
		return false
	}
}

// ServiceType returns the catalog entry backing the tier. TierNone has none.
func (t Tier) ServiceType() (ServiceType, bool) {
	switch t {
	case TierVip:
		return ServiceVip, true
	case TierVipPlus:
		return ServiceVipPlus, true
	case TierSuperVip:
		return ServiceSuperVip, true
	default:
		return "", false
	}
}

// PricingEntry is one priced offering.
//
// A daily entry charges Price per day. A package entry charges Price for every
// started block of DurationDays.
type PricingEntry struct {
	ServiceType  ServiceType     `json:"service_type"`
	Price        decimal.Decimal `json:"price"`
	IsDailyPrice bool            `json:"is_daily_price"`
	DurationDays int             `json:"duration_days,omitempty"`
	// Fallback marks a built-in price standing in for a missing live entry.
	Fallback bool `json:"fallback,omitempty"`
}

func (e PricingEntry) Validate() error {
	if !e.ServiceType.Valid() {
		return ErrUnknownServiceType
	}
	if e.Price.IsNegative() {
		return ErrInvalidPricingEntry
	}
	if !e.IsDailyPrice && e.DurationDays <= 0 {
		return ErrInvalidPricingEntry
	}
	return nil
}

// PriceLookup resolves the pricing entry for a service type.
type PriceLookup interface {
	Lookup(serviceType ServiceType) (PricingEntry, bool)
}

// PriceTable is a plain map-backed PriceLookup.
type PriceTable map[ServiceType]PricingEntry

func (t PriceTable) Lookup(serviceType ServiceType) (PricingEntry, bool) {
	entry, ok := t[serviceType]
	return entry, ok
}
