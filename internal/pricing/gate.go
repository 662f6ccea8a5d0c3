package pricing

import "github.com/shopspring/decimal"

// Epsilon absorbs rounding noise from currency arithmetic. It must stay at one
// minor currency unit; anything larger lets underpaid purchases through.
var Epsilon = decimal.New(1, -2)

// Shortfall describes an unaffordable selection for user-facing messaging.
type Shortfall struct {
	RequiredAmount decimal.Decimal `json:"required_amount"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	Missing        decimal.Decimal `json:"missing"`
}

// CanAfford reports whether balance covers total within Epsilon. It is an
// optimistic pre-check; the activation sink performs the authoritative one.
func CanAfford(total, balance decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(total.Sub(Epsilon))
}

func DescribeShortfall(total, balance decimal.Decimal) Shortfall {
	missing := total.Sub(balance)
	if missing.IsNegative() {
		missing = decimal.Zero
	}
	return Shortfall{
		RequiredAmount: total,
		CurrentBalance: balance,
		Missing:        missing,
	}
}
