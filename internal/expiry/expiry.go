// Package expiry converts day counts into expiry instants and resolves stored
// expiries against the current time.
//
// All day arithmetic happens in the location of the supplied now, so callers
// control the calendar by the clock they inject.
package expiry

import (
	"fmt"
	"time"

	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// FromDays returns the end of today plus max(1, days) whole days.
//
// A one day purchase always grants the rest of today and one full day after it.
func FromDays(days int, now time.Time) time.Time {
	return addDays(EndOfDay(now), normalize(days))
}

// ExtendFrom stacks days onto an expiry that is still active at now. An absent
// or lapsed expiry starts over from now.
func ExtendFrom(current *time.Time, days int, now time.Time) time.Time {
	if !IsActive(current, now) {
		return FromDays(days, now)
	}
	return addDays(EndOfDay(current.In(now.Location())), normalize(days))
}

func IsActive(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.After(now)
}

// Remaining is a countdown broken into whole units. Seconds are dropped.
type Remaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// IsZero reports a countdown below one minute. That includes the last seconds
// of a live feature; IsActive decides whether the feature is still on.
func (r Remaining) IsZero() bool {
	return r.Days == 0 && r.Hours == 0 && r.Minutes == 0
}

func (r Remaining) String() string {
	switch {
	case r.Days > 0:
		return fmt.Sprintf("%dd %dh %dm", r.Days, r.Hours, r.Minutes)
	case r.Hours > 0:
		return fmt.Sprintf("%dh %dm", r.Hours, r.Minutes)
	default:
		return fmt.Sprintf("%dm", r.Minutes)
	}
}

// RemainingUntil returns the time left until expiresAt, or the zero Remaining
// when it is absent or not after now.
func RemainingUntil(expiresAt *time.Time, now time.Time) Remaining {
	if !IsActive(expiresAt, now) {
		return Remaining{}
	}
	left := expiresAt.Sub(now)
	days := int(left / (24 * time.Hour))
	left -= time.Duration(days) * 24 * time.Hour
	hours := int(left / time.Hour)
	left -= time.Duration(hours) * time.Hour
	return Remaining{Days: days, Hours: hours, Minutes: int(left / time.Minute)}
}

// EffectiveStatus is the tier a listing actually holds at now. A stored tier
// whose expiry is absent or past resolves to TierNone.
func EffectiveStatus(state vipdomain.State, now time.Time) vipdomain.Tier {
	if state.VipStatus == "" || state.VipStatus == vipdomain.TierNone {
		return vipdomain.TierNone
	}
	if !IsActive(state.VipExpiresAt, now) {
		return vipdomain.TierNone
	}
	return state.VipStatus
}

func ColorHighlightingActive(state vipdomain.State, now time.Time) bool {
	return state.ColorHighlightingEnabled && IsActive(state.ColorHighlightingExpiresAt, now)
}

func AutoRenewalActive(state vipdomain.State, now time.Time) bool {
	return state.AutoRenewalEnabled && IsActive(state.AutoRenewalExpiresAt, now)
}

// EffectiveState is State with every flag resolved against one instant.
type EffectiveState struct {
	Tier                     vipdomain.Tier
	ColorHighlightingEnabled bool
	AutoRenewalEnabled       bool
}

func (e EffectiveState) AnyActive() bool {
	return e.Tier != vipdomain.TierNone || e.ColorHighlightingEnabled || e.AutoRenewalEnabled
}

func Effective(state vipdomain.State, now time.Time) EffectiveState {
	return EffectiveState{
		Tier:                     EffectiveStatus(state, now),
		ColorHighlightingEnabled: ColorHighlightingActive(state, now),
		AutoRenewalEnabled:       AutoRenewalActive(state, now),
	}
}

func normalize(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

// addDays moves by calendar days so DST transitions keep the 23:59:59.999 wall time.
func addDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
