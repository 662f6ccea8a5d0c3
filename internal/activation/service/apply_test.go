package service

import (
	"testing"
	"time"

	"github.com/smallbiznis/autobazaar/internal/expiry"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_AddOnsRunOnTheirOwnTimelines(t *testing.T) {
	now := time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC)
	lapsed := now.Add(-time.Hour)
	state := vipdomain.State{
		CarID:                      "car-1",
		VipStatus:                  vipdomain.TierVipPlus,
		VipExpiresAt:               &lapsed,
		ColorHighlightingEnabled:   true,
		ColorHighlightingExpiresAt: ptr(now.Add(48 * time.Hour)),
	}

	out := Apply(state, vipdomain.Selection{
		AddOns: []vipdomain.AddOn{
			{ServiceType: vipdomain.ServiceColorHighlighting, Days: 2},
			{ServiceType: vipdomain.ServiceAutoRenewal, Days: 7},
		},
	}, now)

	// Tier untouched when none is bought.
	assert.Equal(t, vipdomain.TierVipPlus, out.VipStatus)
	assert.Equal(t, &lapsed, out.VipExpiresAt)

	require.NotNil(t, out.ColorHighlightingExpiresAt)
	assert.Equal(t, expiry.ExtendFrom(state.ColorHighlightingExpiresAt, 2, now), *out.ColorHighlightingExpiresAt)

	assert.True(t, out.AutoRenewalEnabled)
	assert.Equal(t, expiry.FromDays(7, now), *out.AutoRenewalExpiresAt)
	assert.Equal(t, 1, out.AutoRenewalDays)
}

func TestApply_ExpiredSameTierStartsOver(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	lapsed := now.Add(-time.Minute)
	out := Apply(vipdomain.State{VipStatus: vipdomain.TierVip, VipExpiresAt: &lapsed},
		vipdomain.Selection{Tier: vipdomain.TierVip, TierDays: 1}, now)
	assert.Equal(t, expiry.FromDays(1, now), *out.VipExpiresAt)
}

func TestNormalizeSelection(t *testing.T) {
	sel := normalizeSelection(vipdomain.Selection{
		TierDays: 9,
		AddOns: []vipdomain.AddOn{
			{ServiceType: vipdomain.ServiceAutoRenewal, Days: -2},
		},
	})
	assert.Equal(t, vipdomain.TierNone, sel.Tier)
	assert.Zero(t, sel.TierDays)
	assert.Equal(t, 1, sel.AddOns[0].Days)
	assert.Equal(t, 1, sel.AutoRenewalDays)

	assert.True(t, sameSelection(
		vipdomain.Selection{Tier: vipdomain.TierVip, TierDays: 0},
		vipdomain.Selection{Tier: vipdomain.TierVip, TierDays: 1},
	))
}

func ptr(t time.Time) *time.Time { return &t }
