package domain

import (
	"context"

	"github.com/shopspring/decimal"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/smallbiznis/autobazaar/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	// Balance returns the wallet, or an empty one for users without a wallet yet.
	Balance(ctx context.Context, userID string) (Wallet, error)
	// Credit adds funds once per (sourceType, sourceID).
	Credit(ctx context.Context, userID string, amount decimal.Decimal, sourceType, sourceID string) (Wallet, error)
	// LockTx loads the wallet inside tx, creating it if needed, and row-locks it.
	LockTx(ctx context.Context, tx *gorm.DB, userID string) (Wallet, error)
	// DebitTx removes amount inside tx. The balance must cover amount exactly.
	DebitTx(ctx context.Context, tx *gorm.DB, userID string, amount decimal.Decimal, sourceType, sourceID string) (Wallet, error)
	ListEntries(ctx context.Context, userID string, page pagination.Pagination) (ListEntriesResponse, error)
	// Source adapts the wallet of userID to a BalanceSource.
	Source(userID string) vipdomain.BalanceSource
}
