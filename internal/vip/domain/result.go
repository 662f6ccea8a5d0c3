package domain

import "github.com/shopspring/decimal"

// Failure reasons reported in PurchaseResult.Reason.
const (
	ReasonNothingSelected     = "nothing_selected"
	ReasonInvalidSelection    = "invalid_selection"
	ReasonInsufficientBalance = "insufficient_balance"
	ReasonBalanceUnavailable  = "balance_unavailable"
	ReasonActivationFailed    = "activation_failed"
	ReasonCatalogUnavailable  = "catalog_unavailable"
)

// PurchaseResult is the outcome of one purchase attempt.
type PurchaseResult struct {
	Success        bool             `json:"success"`
	NewBalance     decimal.Decimal  `json:"new_balance"`
	Total          decimal.Decimal  `json:"total"`
	Reason         string           `json:"reason,omitempty"`
	Detail         string           `json:"detail,omitempty"`
	RequiredAmount *decimal.Decimal `json:"required_amount,omitempty"`
	CurrentBalance *decimal.Decimal `json:"current_balance,omitempty"`
}
