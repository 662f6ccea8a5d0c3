package domain

import (
	"strings"
	"time"
)

// State is the persisted VIP bookkeeping of one listing.
//
// Every enabled flag is paired with its own expiry. A missing expiry counts as
// expired, so raw flags must never be read without resolving them against the
// clock first.
type State struct {
	CarID                      string     `json:"car_id" gorm:"column:car_id;primaryKey;type:text"`
	VipStatus                  Tier       `json:"vip_status" gorm:"column:vip_status;type:text;not null;default:'none'"`
	VipExpiresAt               *time.Time `json:"vip_expires_at,omitempty" gorm:"column:vip_expires_at"`
	ColorHighlightingEnabled   bool       `json:"color_highlighting_enabled" gorm:"column:color_highlighting_enabled;not null;default:false"`
	ColorHighlightingExpiresAt *time.Time `json:"color_highlighting_expires_at,omitempty" gorm:"column:color_highlighting_expires_at"`
	AutoRenewalEnabled         bool       `json:"auto_renewal_enabled" gorm:"column:auto_renewal_enabled;not null;default:false"`
	AutoRenewalExpiresAt       *time.Time `json:"auto_renewal_expires_at,omitempty" gorm:"column:auto_renewal_expires_at"`
	AutoRenewalDays            int        `json:"auto_renewal_days" gorm:"column:auto_renewal_days;not null;default:0"`
	UpdatedAt                  time.Time  `json:"updated_at" gorm:"column:updated_at;not null"`
}

func (State) TableName() string { return "listing_vip_states" }

// Feature names one independently disable-able part of the state.
type Feature string

const (
	FeatureVip               Feature = "vip"
	FeatureColorHighlighting Feature = "color_highlighting"
	FeatureAutoRenewal       Feature = "auto_renewal"
)

func ParseFeature(raw string) (Feature, error) {
	f := Feature(strings.ToLower(strings.TrimSpace(raw)))
	switch f {
	case FeatureVip, FeatureColorHighlighting, FeatureAutoRenewal:
		return f, nil
	default:
		return "", ErrInvalidFeature
	}
}
