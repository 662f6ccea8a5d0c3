package expiry

import (
	"testing"
	"time"

	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tbilisi(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Tbilisi")
	if err != nil {
		return time.FixedZone("GET", 4*60*60)
	}
	return loc
}

func ptr(t time.Time) *time.Time { return &t }

func TestEndOfDay(t *testing.T) {
	loc := tbilisi(t)
	now := time.Date(2026, 3, 10, 8, 15, 0, 0, loc)
	eod := EndOfDay(now)
	assert.Equal(t, time.Date(2026, 3, 10, 23, 59, 59, 999_000_000, loc), eod)
	assert.Equal(t, loc, eod.Location())
}

func TestFromDays_OneDayGrantsRestOfTodayPlusOneDay(t *testing.T) {
	loc := tbilisi(t)
	cases := []time.Time{
		time.Date(2026, 3, 10, 0, 0, 0, 0, loc),
		time.Date(2026, 3, 10, 12, 30, 0, 0, loc),
		time.Date(2026, 3, 10, 23, 59, 59, 0, loc),
	}
	for _, now := range cases {
		got := FromDays(1, now)
		assert.Equal(t, time.Date(2026, 3, 11, 23, 59, 59, 999_000_000, loc), got, "now=%s", now)
		assert.True(t, got.Sub(now) > 24*time.Hour, "now=%s", now)
		assert.True(t, got.Sub(now) < 48*time.Hour, "now=%s", now)
	}
}

func TestFromDays_NonPositiveIsOneDay(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	one := FromDays(1, now)
	assert.Equal(t, one, FromDays(0, now))
	assert.Equal(t, one, FromDays(-3, now))
	assert.Equal(t, time.Date(2026, 3, 17, 23, 59, 59, 999_000_000, time.UTC), FromDays(7, now))
}

func TestExtendFrom(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	t.Run("absent starts from now", func(t *testing.T) {
		assert.Equal(t, FromDays(3, now), ExtendFrom(nil, 3, now))
	})

	t.Run("lapsed starts from now", func(t *testing.T) {
		past := now.Add(-time.Hour)
		assert.Equal(t, FromDays(3, now), ExtendFrom(&past, 3, now))
	})

	t.Run("active stacks on existing expiry", func(t *testing.T) {
		current := time.Date(2026, 3, 12, 23, 59, 59, 999_000_000, time.UTC)
		got := ExtendFrom(&current, 2, now)
		assert.Equal(t, time.Date(2026, 3, 14, 23, 59, 59, 999_000_000, time.UTC), got)
	})
}

func TestRemainingUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	r := RemainingUntil(ptr(now.Add(90*time.Minute)), now)
	assert.Equal(t, Remaining{Days: 0, Hours: 1, Minutes: 30}, r)
	assert.False(t, r.IsZero())
	assert.Equal(t, "1h 30m", r.String())

	r = RemainingUntil(ptr(now.Add(51*time.Hour+15*time.Minute+40*time.Second)), now)
	assert.Equal(t, Remaining{Days: 2, Hours: 3, Minutes: 15}, r)
	assert.Equal(t, "2d 3h 15m", r.String())

	assert.True(t, RemainingUntil(nil, now).IsZero())
	assert.True(t, RemainingUntil(ptr(now), now).IsZero())
	assert.True(t, RemainingUntil(ptr(now.Add(-time.Minute)), now).IsZero())
	assert.Equal(t, "0m", Remaining{}.String())
}

func TestRemainingUntil_LastMinuteIsStillActive(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	expiresAt := ptr(now.Add(30 * time.Second))

	r := RemainingUntil(expiresAt, now)
	assert.True(t, r.IsZero())
	assert.True(t, IsActive(expiresAt, now))
	assert.Equal(t, "0m", r.String())
}

func TestIsActive(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	assert.False(t, IsActive(nil, now))
	assert.False(t, IsActive(ptr(now), now))
	assert.True(t, IsActive(ptr(now.Add(time.Second)), now))
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	expired := vipdomain.State{VipStatus: vipdomain.TierSuperVip, VipExpiresAt: ptr(now.Add(-time.Hour))}
	assert.Equal(t, vipdomain.TierNone, EffectiveStatus(expired, now))

	missing := vipdomain.State{VipStatus: vipdomain.TierVip}
	assert.Equal(t, vipdomain.TierNone, EffectiveStatus(missing, now))

	active := vipdomain.State{VipStatus: vipdomain.TierVipPlus, VipExpiresAt: ptr(now.Add(time.Hour))}
	assert.Equal(t, vipdomain.TierVipPlus, EffectiveStatus(active, now))

	assert.Equal(t, vipdomain.TierNone, EffectiveStatus(vipdomain.State{}, now))
}

func TestEffective_ResolvesFlagsIndependently(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	state := vipdomain.State{
		VipStatus:                  vipdomain.TierVip,
		VipExpiresAt:               ptr(now.Add(-time.Minute)),
		ColorHighlightingEnabled:   true,
		ColorHighlightingExpiresAt: ptr(now.Add(time.Hour)),
		AutoRenewalEnabled:         true,
	}

	got := Effective(state, now)
	require.Equal(t, vipdomain.TierNone, got.Tier)
	assert.True(t, got.ColorHighlightingEnabled)
	assert.False(t, got.AutoRenewalEnabled)
	assert.True(t, got.AnyActive())

	assert.False(t, Effective(vipdomain.State{}, now).AnyActive())
}
