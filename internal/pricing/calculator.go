// Package pricing turns a VIP selection into money and decides whether a
// balance covers it. Everything here is pure; callers supply the catalog.
package pricing

import (
	"math"

	"github.com/shopspring/decimal"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

// Line is the priced breakdown of one tier or add-on.
type Line struct {
	ServiceType   vipdomain.ServiceType `json:"service_type"`
	RequestedDays int                   `json:"requested_days"`
	BilledDays    int                   `json:"billed_days"`
	Packages      int                   `json:"packages,omitempty"`
	UnitPrice     decimal.Decimal       `json:"unit_price"`
	IsDailyPrice  bool                  `json:"is_daily_price"`
	DurationDays  int                   `json:"duration_days,omitempty"`
	Amount        decimal.Decimal       `json:"amount"`
	Fallback      bool                  `json:"fallback,omitempty"`
}

// Quote is the itemised cost of a selection.
type Quote struct {
	Tier   *Line           `json:"tier,omitempty"`
	AddOns []Line          `json:"add_ons"`
	Total  decimal.Decimal `json:"total"`
}

// NormalizeDays coerces a day count to at least one day.
func NormalizeDays(days int) int {
	if days < 1 {
		return 1
	}
	return days
}

// RoundDays converts a user-entered day count to whole days.
func RoundDays(days float64) int {
	if math.IsNaN(days) || days < 0 {
		return 0
	}
	if days > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(math.Round(days))
}

// ComputeTierCost prices a tier for the given number of days. TierNone is free.
func ComputeTierCost(tier vipdomain.Tier, days int, lookup vipdomain.PriceLookup) (decimal.Decimal, error) {
	line, err := tierLine(tier, days, lookup)
	if err != nil || line == nil {
		return decimal.Zero, err
	}
	return line.Amount, nil
}

// ComputeAddOnCost prices one add-on with the same daily/package rule as tiers.
func ComputeAddOnCost(serviceType vipdomain.ServiceType, days int, lookup vipdomain.PriceLookup) (decimal.Decimal, error) {
	line, err := priceLine(serviceType, days, lookup)
	if err != nil {
		return decimal.Zero, err
	}
	return line.Amount, nil
}

// ComputeTotal is the tier cost plus every add-on cost.
func ComputeTotal(selection vipdomain.Selection, lookup vipdomain.PriceLookup) (decimal.Decimal, error) {
	q, err := QuoteSelection(selection, lookup)
	if err != nil {
		return decimal.Zero, err
	}
	return q.Total, nil
}

// QuoteSelection prices a selection line by line.
func QuoteSelection(selection vipdomain.Selection, lookup vipdomain.PriceLookup) (Quote, error) {
	q := Quote{AddOns: make([]Line, 0, len(selection.AddOns)), Total: decimal.Zero}

	tier, err := tierLine(selection.Tier, selection.TierDays, lookup)
	if err != nil {
		return Quote{}, err
	}
	if tier != nil {
		q.Tier = tier
		q.Total = q.Total.Add(tier.Amount)
	}

	for _, addOn := range selection.AddOns {
		line, err := priceLine(addOn.ServiceType, addOn.Days, lookup)
		if err != nil {
			return Quote{}, err
		}
		q.AddOns = append(q.AddOns, line)
		q.Total = q.Total.Add(line.Amount)
	}
	return q, nil
}

func tierLine(tier vipdomain.Tier, days int, lookup vipdomain.PriceLookup) (*Line, error) {
	if tier == "" || tier == vipdomain.TierNone {
		return nil, nil
	}
	serviceType, ok := tier.ServiceType()
	if !ok {
		return nil, vipdomain.ErrUnknownTier
	}
	line, err := priceLine(serviceType, days, lookup)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func priceLine(serviceType vipdomain.ServiceType, days int, lookup vipdomain.PriceLookup) (Line, error) {
	if lookup == nil {
		return Line{}, vipdomain.ErrCatalogUnavailable
	}
	if !serviceType.Valid() {
		return Line{}, vipdomain.ErrUnknownServiceType
	}
	entry, ok := lookup.Lookup(serviceType)
	if !ok {
		return Line{}, vipdomain.ErrUnknownServiceType
	}
	if err := entry.Validate(); err != nil {
		return Line{}, err
	}

	billed := NormalizeDays(days)
	line := Line{
		ServiceType:   serviceType,
		RequestedDays: days,
		BilledDays:    billed,
		UnitPrice:     entry.Price,
		IsDailyPrice:  entry.IsDailyPrice,
		Fallback:      entry.Fallback,
	}

	if entry.IsDailyPrice {
		line.Amount = entry.Price.Mul(decimal.NewFromInt(int64(billed)))
		return line, nil
	}

	// Partial packages are not prorated: 10 days of a 7-day package is 2 packages.
	packages := (billed + entry.DurationDays - 1) / entry.DurationDays
	line.Packages = packages
	line.DurationDays = entry.DurationDays
	line.Amount = entry.Price.Mul(decimal.NewFromInt(int64(packages)))
	return line, nil
}
