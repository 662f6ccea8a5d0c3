package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	// Ensure creates an empty wallet for userID if none exists.
	Ensure(ctx context.Context, db *gorm.DB, userID, currency string, now time.Time) error
	Find(ctx context.Context, db *gorm.DB, userID string) (*Wallet, error)
	// FindForUpdate row-locks the wallet where the dialect supports it.
	FindForUpdate(ctx context.Context, db *gorm.DB, userID string) (*Wallet, error)
	UpdateBalance(ctx context.Context, db *gorm.DB, userID string, balance decimal.Decimal, now time.Time) error
	// InsertEntry reports false when the same movement was already recorded.
	InsertEntry(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	ListEntries(ctx context.Context, db *gorm.DB, userID string, after *EntryCursor, limit int) ([]Entry, error)
}

// EntryCursor resumes a newest-first listing after the given entry.
type EntryCursor struct {
	CreatedAt time.Time
	ID        int64
}
