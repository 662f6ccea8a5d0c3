package domain

import (
	"context"

	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/smallbiznis/autobazaar/pkg/db/pagination"
)

type Service interface {
	// Activate charges the caller and writes the listing's VIP fields in one
	// transaction, pricing the selection against the server's own catalog.
	Activate(ctx context.Context, user vipdomain.UserContext, req vipdomain.ActivationRequest) (vipdomain.ActivationResult, error)
	// HasPurchased reports whether the caller ever bought VIP for carID.
	HasPurchased(ctx context.Context, user vipdomain.UserContext, carID string) (bool, error)
	ListPurchases(ctx context.Context, user vipdomain.UserContext, carID string, page pagination.Pagination) (ListPurchasesResponse, error)
	// Sink binds the service to one caller.
	Sink(user vipdomain.UserContext) vipdomain.ActivationSink
}
