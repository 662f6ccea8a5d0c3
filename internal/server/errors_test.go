package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	activationdomain "github.com/smallbiznis/autobazaar/internal/activation/domain"
	"github.com/smallbiznis/autobazaar/internal/authorization"
	"github.com/smallbiznis/autobazaar/internal/catalog"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
		code   string
	}{
		{"nil", nil, http.StatusInternalServerError, "internal_error", ""},
		{"validation", newValidationError("amount", "invalid_amount", "bad"), http.StatusBadRequest, "validation_error", "invalid_amount"},
		{"nothing selected", vipdomain.ErrNothingSelected, http.StatusBadRequest, "validation_error", "nothing_selected"},
		{"wrapped duplicate add-on", fmt.Errorf("quote: %w", vipdomain.ErrDuplicateAddOn), http.StatusBadRequest, "validation_error", "duplicate_add_on"},
		{"too many days", vipdomain.ErrTooManyDays, http.StatusBadRequest, "validation_error", "too_many_days"},
		{"pricing role", catalog.ErrInvalidRole, http.StatusBadRequest, "validation_error", "invalid_role"},
		{"wallet amount", walletdomain.ErrInvalidAmount, http.StatusBadRequest, "validation_error", "invalid_amount"},
		{"invalid user", vipdomain.ErrInvalidUser, http.StatusUnauthorized, "unauthorized", ""},
		{"forbidden", authorization.ErrForbidden, http.StatusForbidden, "forbidden", ""},
		{"bare shortfall", vipdomain.ErrInsufficientBalance, http.StatusPaymentRequired, "insufficient_balance", ""},
		{"price changed", activationdomain.ErrPriceChanged, http.StatusConflict, "price_changed", ""},
		{"in progress", activationdomain.ErrActivationInProgress, http.StatusConflict, "activation_in_progress", ""},
		{"key reused", activationdomain.ErrIdempotencyKeyReused, http.StatusConflict, "conflict", ""},
		{"pricing row", catalog.ErrPricingEntryNotFound, http.StatusNotFound, "not_found", ""},
		{"record", gorm.ErrRecordNotFound, http.StatusNotFound, "not_found", ""},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests, "rate_limited", ""},
		{"catalog", fmt.Errorf("load: %w", vipdomain.ErrCatalogUnavailable), http.StatusServiceUnavailable, "catalog_unavailable", ""},
		{"balance", vipdomain.ErrBalanceUnavailable, http.StatusServiceUnavailable, "balance_unavailable", ""},
		{"activation", vipdomain.ErrActivationFailed, http.StatusBadGateway, "activation_failed", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.typ, payload.Type)
			if tt.code != "" {
				require.Len(t, payload.Errors, 1)
				assert.Equal(t, tt.code, payload.Errors[0].Code)
			}
		})
	}
}

func TestMapError_ShortfallCarriesAmounts(t *testing.T) {
	err := fmt.Errorf("activate: %w", &vipdomain.ShortfallError{
		Required: dec("11.50"),
		Current:  dec("10.00"),
	})

	status, payload := mapError(err)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "insufficient_balance", payload.Type)
	require.NotNil(t, payload.RequiredAmount)
	require.NotNil(t, payload.CurrentBalance)
	assert.True(t, payload.RequiredAmount.Equal(dec("11.50")))
	assert.True(t, payload.CurrentBalance.Equal(dec("10")))
}

func TestClassifyErrorForLog(t *testing.T) {
	typ, code := classifyErrorForLog(vipdomain.ErrUnknownTier)
	assert.Equal(t, "validation_error", typ)
	assert.Equal(t, "unknown_tier", code)

	typ, code = classifyErrorForLog(activationdomain.ErrPriceChanged)
	assert.Equal(t, "price_changed", typ)
	assert.Equal(t, "price_changed", code)
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, "1", retryAfterSeconds(0))
	assert.Equal(t, "1", retryAfterSeconds(200*time.Millisecond))
	assert.Equal(t, "3", retryAfterSeconds(2100*time.Millisecond))
}
