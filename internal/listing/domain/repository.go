package domain

import (
	"context"

	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Find(ctx context.Context, db *gorm.DB, carID string) (*vipdomain.State, error)
	FindForUpdate(ctx context.Context, db *gorm.DB, carID string) (*vipdomain.State, error)
	Upsert(ctx context.Context, db *gorm.DB, state *vipdomain.State) error
}
