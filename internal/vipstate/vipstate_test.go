package vipstate

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/expiry"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(t time.Time) *time.Time { return &t }

func TestDescribe_ExpiredTierIsNotVip(t *testing.T) {
	now := time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)
	model := Describe(vipdomain.State{
		CarID:        "car-1",
		VipStatus:    vipdomain.TierVipPlus,
		VipExpiresAt: at(now.Add(-time.Second)),
	}, now, nil)

	assert.Equal(t, vipdomain.TierNone, model.Tier.Label)
	assert.Equal(t, vipdomain.TierVipPlus, model.Tier.StoredLabel)
	assert.False(t, model.Tier.Active)
	assert.True(t, model.Tier.Remaining.IsZero())
	assert.Empty(t, model.Tier.Countdown)
	assert.Nil(t, model.Tier.ExpiresAt)
	assert.False(t, model.AnyActive)
}

func TestDescribe_LastSecondsAreStillActive(t *testing.T) {
	now := time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)
	model := Describe(vipdomain.State{
		CarID:        "car-1",
		VipStatus:    vipdomain.TierVip,
		VipExpiresAt: at(now.Add(30 * time.Second)),
	}, now, nil)

	assert.True(t, model.Tier.Active)
	assert.Equal(t, vipdomain.TierVip, model.Tier.Label)
	assert.True(t, model.Tier.Remaining.IsZero())
	assert.Equal(t, "0m", model.Tier.Countdown)
	assert.True(t, model.AnyActive)
}

func TestDescribe_ActiveFeaturesCountDown(t *testing.T) {
	now := time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)
	state := vipdomain.State{
		CarID:                      "car-1",
		VipStatus:                  vipdomain.TierSuperVip,
		VipExpiresAt:               at(now.Add(26*time.Hour + 15*time.Minute)),
		ColorHighlightingEnabled:   true,
		ColorHighlightingExpiresAt: at(now.Add(90 * time.Minute)),
		AutoRenewalEnabled:         true,
		AutoRenewalExpiresAt:       at(now.Add(-time.Hour)),
		AutoRenewalDays:            3,
	}

	model := Describe(state, now, nil)

	assert.Equal(t, vipdomain.TierSuperVip, model.Tier.Label)
	assert.True(t, model.Tier.Active)
	assert.Equal(t, expiry.Remaining{Days: 1, Hours: 2, Minutes: 15}, model.Tier.Remaining)
	assert.Equal(t, "1d 2h 15m", model.Tier.Countdown)

	assert.True(t, model.ColorHighlighting.Active)
	assert.Equal(t, expiry.Remaining{Hours: 1, Minutes: 30}, model.ColorHighlighting.Remaining)

	assert.False(t, model.AutoRenewal.Active)
	assert.Zero(t, model.AutoRenewal.Days)
	assert.True(t, model.AnyActive)

	// The same state described later resolves differently.
	later := Describe(state, now.Add(2*time.Hour), nil)
	assert.False(t, later.ColorHighlighting.Active)
	assert.True(t, later.Tier.Active)
}

func TestDescribe_EnabledFlagWithoutExpiryIsInactive(t *testing.T) {
	now := time.Now()
	model := Describe(vipdomain.State{ColorHighlightingEnabled: true, AutoRenewalEnabled: true, AutoRenewalDays: 2}, now, nil)
	assert.False(t, model.ColorHighlighting.Active)
	assert.False(t, model.AutoRenewal.Active)
	assert.Equal(t, vipdomain.TierNone, model.Tier.StoredLabel)
}

func TestDescribe_AttachesCatalogPrices(t *testing.T) {
	now := time.Date(2026, 5, 4, 15, 0, 0, 0, time.UTC)
	lookup := vipdomain.PriceTable{
		vipdomain.ServiceVip:               {ServiceType: vipdomain.ServiceVip, Price: decimal.RequireFromString("2.00"), IsDailyPrice: true},
		vipdomain.ServiceColorHighlighting: {ServiceType: vipdomain.ServiceColorHighlighting, Price: decimal.RequireFromString("0.50"), IsDailyPrice: true},
	}

	model := Describe(vipdomain.State{
		VipStatus:          vipdomain.TierVip,
		VipExpiresAt:       at(now.Add(time.Hour)),
		AutoRenewalEnabled: true,
	}, now, lookup)

	require.NotNil(t, model.Tier.Price)
	assert.Equal(t, "2", model.Tier.Price.Price.String())
	require.NotNil(t, model.ColorHighlighting.Price)
	assert.Nil(t, model.AutoRenewal.Price)
}
