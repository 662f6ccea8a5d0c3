package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, purchase *Purchase) error
	// FindByIdempotencyKey returns nil when the user never used key.
	FindByIdempotencyKey(ctx context.Context, db *gorm.DB, userID, key string) (*Purchase, error)
	// ExistsForCar reports whether userID ever bought for carID.
	ExistsForCar(ctx context.Context, db *gorm.DB, userID, carID string) (bool, error)
	ListByCar(ctx context.Context, db *gorm.DB, userID, carID string, after *PurchaseCursor, limit int) ([]Purchase, error)
}
