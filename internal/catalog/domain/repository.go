package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	// ListActive returns active rows for the given roles, generic ("") included
	// only when asked for.
	ListActive(ctx context.Context, db *gorm.DB, roles ...string) ([]PricingEntryRow, error)
	Upsert(ctx context.Context, db *gorm.DB, row *PricingEntryRow) error
	// Deactivate reports whether an active row was switched off.
	Deactivate(ctx context.Context, db *gorm.DB, serviceType, role string, now time.Time) (bool, error)
}
