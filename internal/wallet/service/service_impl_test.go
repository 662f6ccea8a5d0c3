package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/autobazaar/internal/clock"
	"github.com/smallbiznis/autobazaar/internal/config"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"github.com/smallbiznis/autobazaar/internal/wallet/repository"
	walletservice "github.com/smallbiznis/autobazaar/internal/wallet/service"
	"github.com/smallbiznis/autobazaar/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&walletdomain.Wallet{}, &walletdomain.Entry{}))
	return db
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) walletdomain.Service {
	t.Helper()
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)
	return walletservice.New(walletservice.Params{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clk,
		Config: config.Config{Currency: "GEL"},
		Repo:   repository.Provide(),
	})
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestBalance_UnknownUserIsEmpty(t *testing.T) {
	svc := newService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))

	w, err := svc.Balance(context.Background(), "u-1")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
	assert.Equal(t, "GEL", w.Currency)

	_, err = svc.Balance(context.Background(), "  ")
	assert.ErrorIs(t, err, vipdomain.ErrInvalidUser)
}

func TestCredit_IsIdempotentPerSource(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))

	w, err := svc.Credit(ctx, "u-1", dec("25.00"), walletdomain.SourceTopUp, "topup-1")
	require.NoError(t, err)
	assert.Equal(t, "25", w.Balance.String())

	w, err = svc.Credit(ctx, "u-1", dec("25.00"), walletdomain.SourceTopUp, "topup-1")
	require.NoError(t, err)
	assert.Equal(t, "25", w.Balance.String())

	w, err = svc.Credit(ctx, "u-1", dec("5.50"), walletdomain.SourceTopUp, "topup-2")
	require.NoError(t, err)
	assert.Equal(t, "30.5", w.Balance.String())

	current, err := svc.Source("u-1").Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "30.5", current.String())
}

func TestCredit_RejectsInvalidMovement(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, setupTestDB(t), clock.NewFakeClock(time.Now()))

	_, err := svc.Credit(ctx, "u-1", dec("0"), walletdomain.SourceTopUp, "x")
	assert.ErrorIs(t, err, walletdomain.ErrInvalidAmount)
	_, err = svc.Credit(ctx, "u-1", dec("1"), "", "x")
	assert.ErrorIs(t, err, walletdomain.ErrInvalidSourceType)
	_, err = svc.Credit(ctx, "u-1", dec("1"), walletdomain.SourceTopUp, "")
	assert.ErrorIs(t, err, walletdomain.ErrInvalidSourceID)
}

func TestDebitTx_RequiresFullBalance(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()))

	_, err := svc.Credit(ctx, "u-1", dec("9.99"), walletdomain.SourceTopUp, "t1")
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DebitTx(ctx, tx, "u-1", dec("10.00"), walletdomain.SourceVipPurchase, "p1")
		return err
	})
	assert.ErrorIs(t, err, walletdomain.ErrInsufficientFunds)
	assert.ErrorIs(t, err, vipdomain.ErrInsufficientBalance)

	var after walletdomain.Wallet
	err = db.Transaction(func(tx *gorm.DB) error {
		after, err = svc.DebitTx(ctx, tx, "u-1", dec("9.99"), walletdomain.SourceVipPurchase, "p2")
		return err
	})
	require.NoError(t, err)
	assert.True(t, after.Balance.IsZero())

	w, err := svc.Balance(ctx, "u-1")
	require.NoError(t, err)
	assert.True(t, w.Balance.IsZero())
}

func TestDebitTx_RolledBackWithTransaction(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	svc := newService(t, db, clock.NewFakeClock(time.Now()))

	_, err := svc.Credit(ctx, "u-1", dec("20"), walletdomain.SourceTopUp, "t1")
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := svc.DebitTx(ctx, tx, "u-1", dec("5"), walletdomain.SourceVipPurchase, "p1"); err != nil {
			return err
		}
		return fmt.Errorf("listing write failed")
	})
	require.Error(t, err)

	w, err := svc.Balance(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "20", w.Balance.String())
}

func TestListEntries_PagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC))
	svc := newService(t, setupTestDB(t), clk)

	for i := 1; i <= 5; i++ {
		_, err := svc.Credit(ctx, "u-1", dec("1"), walletdomain.SourceTopUp, fmt.Sprintf("t%d", i))
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	first, err := svc.ListEntries(ctx, "u-1", pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Entries, 2)
	assert.True(t, first.HasMore)
	assert.Equal(t, "t5", first.Entries[0].SourceID)
	assert.Equal(t, "t4", first.Entries[1].SourceID)

	second, err := svc.ListEntries(ctx, "u-1", pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Entries, 2)
	assert.Equal(t, "t3", second.Entries[0].SourceID)

	_, err = svc.ListEntries(ctx, "u-1", pagination.Pagination{PageToken: "garbage"})
	assert.ErrorIs(t, err, walletdomain.ErrInvalidPageToken)
}
