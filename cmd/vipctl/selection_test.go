package main

import (
	"testing"

	"github.com/shopspring/decimal"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseSelection(t *testing.T, args ...string) (vipdomain.Selection, error) {
	t.Helper()
	flags := &selectionFlags{}
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return flags.selection()
}

func TestSelection_TierWithAddOns(t *testing.T) {
	sel, err := parseSelection(t, "--tier", "VIP_PLUS", "--days", "2.6", "--color", "3", "--auto-renewal", "4", "--renew-every", "2")
	require.NoError(t, err)

	assert.Equal(t, vipdomain.TierVipPlus, sel.Tier)
	assert.Equal(t, 3, sel.TierDays)
	assert.Equal(t, []vipdomain.AddOn{
		{ServiceType: vipdomain.ServiceColorHighlighting, Days: 3},
		{ServiceType: vipdomain.ServiceAutoRenewal, Days: 4},
	}, sel.AddOns)
	assert.Equal(t, 2, sel.AutoRenewalDays)
}

func TestSelection_AddOnOnlyIgnoresTierDays(t *testing.T) {
	sel, err := parseSelection(t, "--color", "5", "--days", "9")
	require.NoError(t, err)

	assert.False(t, sel.HasTier())
	assert.Zero(t, sel.TierDays)
	require.Len(t, sel.AddOns, 1)
	assert.Zero(t, sel.AutoRenewalDays)
}

func TestSelection_Rejects(t *testing.T) {
	_, err := parseSelection(t)
	assert.ErrorIs(t, err, vipdomain.ErrNothingSelected)

	_, err = parseSelection(t, "--tier", "platinum")
	assert.ErrorIs(t, err, vipdomain.ErrUnknownTier)
}

func TestFormatEntry_MarksFallbackAndPackages(t *testing.T) {
	daily := formatEntry(vipdomain.PricingEntry{
		ServiceType:  vipdomain.ServiceVip,
		Price:        decimal.RequireFromString("2"),
		IsDailyPrice: true,
		Fallback:     true,
	}, "GEL")
	assert.Contains(t, daily, "2.00 GEL per day")
	assert.Contains(t, daily, "(fallback)")

	pkg := formatEntry(vipdomain.PricingEntry{
		ServiceType:  vipdomain.ServiceAutoRenewal,
		Price:        decimal.RequireFromString("5.5"),
		DurationDays: 7,
	}, "GEL")
	assert.Contains(t, pkg, "5.50 GEL per 7 days")
	assert.NotContains(t, pkg, "fallback")
}
