package domain

import (
	"context"

	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"gorm.io/gorm"
)

// Service is the persisted side of listing VIP state.
type Service interface {
	vipdomain.ListingStore
	// ReadForUpdateTx loads the state inside tx with a row lock where supported.
	ReadForUpdateTx(ctx context.Context, tx *gorm.DB, carID string) (vipdomain.State, error)
	// SaveTx upserts the full state inside tx.
	SaveTx(ctx context.Context, tx *gorm.DB, state vipdomain.State) (vipdomain.State, error)
}
