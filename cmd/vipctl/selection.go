package main

import (
	"github.com/smallbiznis/autobazaar/internal/pricing"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/spf13/cobra"
)

type selectionFlags struct {
	tier            string
	tierDays        float64
	colorDays       float64
	autoRenewalDays float64
	renewEvery      float64
}

func (f *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.tier, "tier", "", "tier to buy: vip, vip_plus or super_vip")
	cmd.Flags().Float64Var(&f.tierDays, "days", 1, "days of the tier")
	cmd.Flags().Float64Var(&f.colorDays, "color", 0, "days of color highlighting (0 skips it)")
	cmd.Flags().Float64Var(&f.autoRenewalDays, "auto-renewal", 0, "days of auto renewal (0 skips it)")
	cmd.Flags().Float64Var(&f.renewEvery, "renew-every", 1, "auto renewal cadence in days")
}

// selection turns the flags into a validated Selection. Zero add-on days
// leave the add-on out; the tier's days are only used when a tier is named.
func (f *selectionFlags) selection() (vipdomain.Selection, error) {
	tier, err := vipdomain.ParseTier(f.tier)
	if err != nil {
		return vipdomain.Selection{}, err
	}

	sel := vipdomain.Selection{Tier: tier}
	if sel.HasTier() {
		sel.TierDays = pricing.RoundDays(f.tierDays)
	}
	if f.colorDays > 0 {
		sel.AddOns = append(sel.AddOns, vipdomain.AddOn{
			ServiceType: vipdomain.ServiceColorHighlighting,
			Days:        pricing.RoundDays(f.colorDays),
		})
	}
	if f.autoRenewalDays > 0 {
		sel.AddOns = append(sel.AddOns, vipdomain.AddOn{
			ServiceType: vipdomain.ServiceAutoRenewal,
			Days:        pricing.RoundDays(f.autoRenewalDays),
		})
		sel.AutoRenewalDays = pricing.RoundDays(f.renewEvery)
	}
	if err := sel.Validate(); err != nil {
		return vipdomain.Selection{}, err
	}
	return sel, nil
}
