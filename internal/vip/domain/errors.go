package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrCatalogUnavailable  = errors.New("catalog_unavailable")
	ErrInsufficientBalance = errors.New("insufficient_balance")
	ErrInvalidSelection    = errors.New("invalid_selection")
	ErrActivationFailed    = errors.New("activation_failed")
	ErrBalanceUnavailable  = errors.New("balance_unavailable")
	ErrInvalidCarID        = errors.New("invalid_car_id")
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidFeature      = errors.New("invalid_feature")
)

// Selection problems all wrap ErrInvalidSelection.
var (
	ErrNothingSelected     = fmt.Errorf("%w: nothing_selected", ErrInvalidSelection)
	ErrUnknownServiceType  = fmt.Errorf("%w: unknown_service_type", ErrInvalidSelection)
	ErrUnknownTier         = fmt.Errorf("%w: unknown_tier", ErrInvalidSelection)
	ErrNotAnAddOn          = fmt.Errorf("%w: not_an_add_on", ErrInvalidSelection)
	ErrDuplicateAddOn      = fmt.Errorf("%w: duplicate_add_on", ErrInvalidSelection)
	ErrTooManyDays         = fmt.Errorf("%w: too_many_days", ErrInvalidSelection)
	ErrInvalidPricingEntry = fmt.Errorf("%w: invalid_pricing_entry", ErrInvalidSelection)
)

// ShortfallError reports a balance that does not cover the total at the
// moment of the authoritative debit.
type ShortfallError struct {
	Required decimal.Decimal
	Current  decimal.Decimal
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("%s: required %s, current %s",
		ErrInsufficientBalance, e.Required.StringFixed(2), e.Current.StringFixed(2))
}

func (e *ShortfallError) Unwrap() []error {
	return []error{ErrActivationFailed, ErrInsufficientBalance}
}
