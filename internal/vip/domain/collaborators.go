package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// UserContext scopes catalog fetches and balances to a caller.
type UserContext struct {
	UserID string
	Role   string
}

// PricingSource returns the full current catalog, optionally role-scoped.
type PricingSource interface {
	Fetch(ctx context.Context, user UserContext) ([]PricingEntry, error)
}

// BalanceSource reports the caller's current balance.
type BalanceSource interface {
	Current(ctx context.Context) (decimal.Decimal, error)
}

type ActivationRequest struct {
	CarID     string
	Selection Selection
	// IdempotencyKey is forwarded untouched; empty means no replay protection.
	IdempotencyKey string
	// ExpectedTotal, when set, is the total the caller was quoted. The sink
	// refuses to charge more than that.
	ExpectedTotal *decimal.Decimal
}

type ActivationResult struct {
	PurchaseID string          `json:"purchase_id"`
	Charged    decimal.Decimal `json:"charged"`
	NewBalance decimal.Decimal `json:"new_balance"`
	State      State           `json:"state"`
	Replayed   bool            `json:"replayed"`
}

// ActivationSink atomically debits the balance and writes the listing's VIP
// fields. The check-and-debit it performs is the authoritative one.
type ActivationSink interface {
	Activate(ctx context.Context, req ActivationRequest) (ActivationResult, error)
}

// ListingStore reads and clears persisted VIP state.
type ListingStore interface {
	ReadVipState(ctx context.Context, carID string) (State, error)
	Disable(ctx context.Context, carID string, features ...Feature) (State, error)
}
