// Package vipstate builds the display model of a listing's VIP state. A model
// is only valid for the instant it was described at; callers describe again on
// every render or poll.
package vipstate

import (
	"time"

	"github.com/smallbiznis/autobazaar/internal/expiry"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

// Feature is the resolved view of one timed part of the state.
type Feature struct {
	Active    bool                    `json:"active"`
	Remaining expiry.Remaining        `json:"remaining"`
	Countdown string                  `json:"countdown,omitempty"`
	ExpiresAt *time.Time              `json:"expires_at,omitempty"`
	Price     *vipdomain.PricingEntry `json:"price,omitempty"`
}

type TierView struct {
	Feature
	// Label is the effective tier; StoredLabel is what the listing row says.
	Label       vipdomain.Tier `json:"label"`
	StoredLabel vipdomain.Tier `json:"stored_label"`
}

type AutoRenewalView struct {
	Feature
	Days int `json:"days,omitempty"`
}

type DisplayModel struct {
	CarID             string          `json:"car_id"`
	Tier              TierView        `json:"tier"`
	ColorHighlighting Feature         `json:"color_highlighting"`
	AutoRenewal       AutoRenewalView `json:"auto_renewal"`
	AnyActive         bool            `json:"any_active"`
	DescribedAt       time.Time       `json:"described_at"`
}

// Describe resolves state at now. lookup may be nil; when present, each
// feature carries the catalog entry it would be renewed at.
func Describe(state vipdomain.State, now time.Time, lookup vipdomain.PriceLookup) DisplayModel {
	effective := expiry.Effective(state, now)

	stored := state.VipStatus
	if stored == "" {
		stored = vipdomain.TierNone
	}

	model := DisplayModel{
		CarID: state.CarID,
		Tier: TierView{
			Feature:     feature(effective.Tier != vipdomain.TierNone, state.VipExpiresAt, now),
			Label:       effective.Tier,
			StoredLabel: stored,
		},
		ColorHighlighting: feature(effective.ColorHighlightingEnabled, state.ColorHighlightingExpiresAt, now),
		AutoRenewal: AutoRenewalView{
			Feature: feature(effective.AutoRenewalEnabled, state.AutoRenewalExpiresAt, now),
		},
		AnyActive:   effective.AnyActive(),
		DescribedAt: now,
	}
	if effective.AutoRenewalEnabled {
		model.AutoRenewal.Days = state.AutoRenewalDays
	}

	if lookup != nil {
		if st, ok := stored.ServiceType(); ok {
			model.Tier.Price = price(lookup, st)
		}
		model.ColorHighlighting.Price = price(lookup, vipdomain.ServiceColorHighlighting)
		model.AutoRenewal.Price = price(lookup, vipdomain.ServiceAutoRenewal)
	}
	return model
}

func feature(active bool, expiresAt *time.Time, now time.Time) Feature {
	f := Feature{Active: active}
	if !active {
		return f
	}
	f.Remaining = expiry.RemainingUntil(expiresAt, now)
	f.Countdown = f.Remaining.String()
	at := *expiresAt
	f.ExpiresAt = &at
	return f
}

func price(lookup vipdomain.PriceLookup, st vipdomain.ServiceType) *vipdomain.PricingEntry {
	entry, ok := lookup.Lookup(st)
	if !ok {
		return nil
	}
	return &entry
}
