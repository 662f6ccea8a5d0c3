package domain

import (
	"errors"
	"fmt"

	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
)

var (
	ErrActivationInProgress  = fmt.Errorf("%w: activation_in_progress", vipdomain.ErrActivationFailed)
	ErrPriceChanged          = fmt.Errorf("%w: price_changed", vipdomain.ErrActivationFailed)
	ErrPricingNotConfirmed   = fmt.Errorf("%w: %w", vipdomain.ErrActivationFailed, vipdomain.ErrCatalogUnavailable)
	ErrIdempotencyKeyReused  = errors.New("idempotency_key_reused")
	ErrInvalidIdempotencyKey = errors.New("invalid_idempotency_key")
	ErrInvalidPageToken      = errors.New("invalid_page_token")
)
