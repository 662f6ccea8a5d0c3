package storefront

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	activationdomain "github.com/smallbiznis/autobazaar/internal/activation/domain"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorBody struct {
	Type           string           `json:"type"`
	Message        string           `json:"message"`
	Errors         []FieldError     `json:"errors"`
	RequiredAmount *decimal.Decimal `json:"required_amount"`
	CurrentBalance *decimal.Decimal `json:"current_balance"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status         int
	Type           string
	Message        string
	Errors         []FieldError
	RequiredAmount *decimal.Decimal
	CurrentBalance *decimal.Decimal
}

func (e *APIError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Type, e.Errors[0].Code)
	}
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Type, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Type)
}

// Unwrap exposes the domain sentinel matching the API error type.
func (e *APIError) Unwrap() error {
	switch e.Type {
	case "unauthorized":
		return vipdomain.ErrInvalidUser
	case "insufficient_balance":
		return vipdomain.ErrInsufficientBalance
	case "catalog_unavailable":
		return vipdomain.ErrCatalogUnavailable
	case "balance_unavailable":
		return vipdomain.ErrBalanceUnavailable
	case "activation_failed":
		return vipdomain.ErrActivationFailed
	case "price_changed":
		return activationdomain.ErrPriceChanged
	case "activation_in_progress":
		return activationdomain.ErrActivationInProgress
	}
	if e.Type == "conflict" && e.Status == http.StatusConflict {
		return activationdomain.ErrIdempotencyKeyReused
	}
	if e.Status == http.StatusBadRequest {
		return vipdomain.ErrInvalidSelection
	}
	return nil
}

// activationError folds an API failure into the activation taxonomy. A 402
// with amounts becomes a ShortfallError so callers can report both numbers.
func activationError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) &&
		apiErr.Type == "insufficient_balance" &&
		apiErr.RequiredAmount != nil && apiErr.CurrentBalance != nil {
		return &vipdomain.ShortfallError{
			Required: *apiErr.RequiredAmount,
			Current:  *apiErr.CurrentBalance,
		}
	}
	if errors.Is(err, vipdomain.ErrActivationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", vipdomain.ErrActivationFailed, err)
}
