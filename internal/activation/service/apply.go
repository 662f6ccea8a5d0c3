package service

import (
	"time"

	"github.com/smallbiznis/autobazaar/internal/expiry"
	"github.com/smallbiznis/autobazaar/internal/pricing"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

// Apply writes a paid selection onto state at now.
//
// Buying the tier that is currently in effect stacks the new days onto its
// expiry; any other tier replaces it starting today. Each add-on is extended
// on its own timeline the same way.
func Apply(state vipdomain.State, selection vipdomain.Selection, now time.Time) vipdomain.State {
	if selection.HasTier() {
		current := state.VipExpiresAt
		if expiry.EffectiveStatus(state, now) != selection.Tier {
			current = nil
		}
		expires := expiry.ExtendFrom(current, selection.TierDays, now)
		state.VipStatus = selection.Tier
		state.VipExpiresAt = &expires
	}

	if addOn, ok := selection.AddOn(vipdomain.ServiceColorHighlighting); ok {
		var current *time.Time
		if expiry.ColorHighlightingActive(state, now) {
			current = state.ColorHighlightingExpiresAt
		}
		expires := expiry.ExtendFrom(current, addOn.Days, now)
		state.ColorHighlightingEnabled = true
		state.ColorHighlightingExpiresAt = &expires
	}

	if addOn, ok := selection.AddOn(vipdomain.ServiceAutoRenewal); ok {
		var current *time.Time
		if expiry.AutoRenewalActive(state, now) {
			current = state.AutoRenewalExpiresAt
		}
		expires := expiry.ExtendFrom(current, addOn.Days, now)
		state.AutoRenewalEnabled = true
		state.AutoRenewalExpiresAt = &expires
		state.AutoRenewalDays = pricing.NormalizeDays(selection.AutoRenewalDays)
	}

	return state
}
