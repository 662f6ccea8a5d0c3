package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	activationdomain "github.com/smallbiznis/autobazaar/internal/activation/domain"
	"github.com/smallbiznis/autobazaar/internal/authorization"
	"github.com/smallbiznis/autobazaar/internal/catalog"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type           string            `json:"type"`
	Message        string            `json:"message"`
	Errors         []ValidationError `json:"errors,omitempty"`
	RequiredAmount *decimal.Decimal  `json:"required_amount,omitempty"`
	CurrentBalance *decimal.Decimal  `json:"current_balance,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrInternal           = errors.New("internal_error")
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err, code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	var shortfall *vipdomain.ShortfallError
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, vipdomain.ErrInvalidUser):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case errors.As(err, &shortfall):
		required := shortfall.Required
		current := shortfall.Current
		return http.StatusPaymentRequired, errorPayload{
			Type:           "insufficient_balance",
			Message:        "balance does not cover the selection",
			RequiredAmount: &required,
			CurrentBalance: &current,
		}
	case errors.Is(err, vipdomain.ErrInsufficientBalance):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "insufficient_balance",
			Message: "balance does not cover the selection",
		}
	case errors.Is(err, activationdomain.ErrPriceChanged):
		return http.StatusConflict, errorPayload{
			Type:    "price_changed",
			Message: "price changed since the quote",
		}
	case errors.Is(err, activationdomain.ErrActivationInProgress):
		return http.StatusConflict, errorPayload{
			Type:    "activation_in_progress",
			Message: "another activation of this listing is in progress",
		}
	case errors.Is(err, ErrConflict),
		errors.Is(err, activationdomain.ErrIdempotencyKeyReused):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "conflict",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, vipdomain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "catalog_unavailable",
			Message: "pricing is not available",
		}
	case errors.Is(err, vipdomain.ErrBalanceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "balance_unavailable",
			Message: "balance is not available",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.Is(err, vipdomain.ErrActivationFailed):
		return http.StatusBadGateway, errorPayload{
			Type:    "activation_failed",
			Message: "activation failed",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger the same type the client sees.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	if len(payload.Errors) > 0 {
		return payload.Type, payload.Errors[0].Code
	}
	return payload.Type, payload.Type
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, vipdomain.ErrInvalidSelection),
		errors.Is(err, vipdomain.ErrInvalidCarID),
		errors.Is(err, vipdomain.ErrInvalidFeature),
		errors.Is(err, catalog.ErrInvalidRole),
		errors.Is(err, activationdomain.ErrInvalidIdempotencyKey),
		errors.Is(err, activationdomain.ErrInvalidPageToken),
		errors.Is(err, walletdomain.ErrInvalidAmount),
		errors.Is(err, walletdomain.ErrInvalidSourceType),
		errors.Is(err, walletdomain.ErrInvalidSourceID),
		errors.Is(err, walletdomain.ErrInvalidPageToken):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, catalog.ErrPricingEntryNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// validationErrorCode picks the most specific code of a wrapped sentinel,
// "invalid_selection: nothing_selected" becoming "nothing_selected".
func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	msg := err.Error()
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

func validationErrorField(err error, code string) string {
	switch {
	case errors.Is(err, vipdomain.ErrInvalidSelection):
		return "selection"
	case errors.Is(err, activationdomain.ErrInvalidIdempotencyKey):
		return "Idempotency-Key"
	case code == "invalid_request":
		return "request"
	case strings.HasPrefix(code, "invalid_"):
		return strings.TrimPrefix(code, "invalid_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "nothing_selected":
		return "select a tier or at least one add-on"
	default:
		return "invalid value"
	}
}
