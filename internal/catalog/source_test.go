package catalog

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/autobazaar/internal/catalog/domain"
	"github.com/smallbiznis/autobazaar/internal/catalog/repository"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalogdomain.PricingEntryRow{}))
	return db
}

func seedRow(t *testing.T, db *gorm.DB, node *snowflake.Node, st, role, price string, daily bool, duration int) {
	t.Helper()
	now := time.Now().UTC()
	row := &catalogdomain.PricingEntryRow{
		ID:           node.Generate(),
		ServiceType:  st,
		Role:         role,
		Price:        decimal.RequireFromString(price),
		IsDailyPrice: daily,
		DurationDays: duration,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, repository.Provide().Upsert(context.Background(), db, row))
}

func TestDBSource_RoleRowsReplaceGenericRows(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	seedRow(t, db, node, "vip", "", "2.00", true, 0)
	seedRow(t, db, node, "vip_plus", "", "30.00", false, 7)
	seedRow(t, db, node, "color_highlighting", "", "0.50", true, 0)
	// Dealers buy vip_plus as a daily product.
	seedRow(t, db, node, "vip_plus", "dealer", "3.00", true, 0)

	src := NewDBSource(SourceParams{DB: db, Repo: repository.Provide()})

	generic, err := src.Fetch(context.Background(), vipdomain.UserContext{})
	require.NoError(t, err)
	assert.Len(t, generic, 3)

	dealer, err := src.Fetch(context.Background(), vipdomain.UserContext{UserID: "u1", Role: "Dealer"})
	require.NoError(t, err)
	require.Len(t, dealer, 3)

	byType := vipdomain.PriceTable{}
	for _, e := range dealer {
		byType[e.ServiceType] = e
	}
	plus := byType[vipdomain.ServiceVipPlus]
	assert.True(t, plus.IsDailyPrice)
	assert.Equal(t, 0, plus.DurationDays)
	assert.Equal(t, "3", plus.Price.String())
	assert.Equal(t, "2", byType[vipdomain.ServiceVip].Price.String())
}

func TestDBSource_InactiveRowsIgnored(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	repo := repository.Provide()

	seedRow(t, db, node, "vip", "", "2.00", true, 0)
	seedRow(t, db, node, "vip", "dealer", "1.00", true, 0)
	deactivated, err := repo.Deactivate(context.Background(), db, "vip", "dealer", time.Now())
	require.NoError(t, err)
	assert.True(t, deactivated)

	src := NewDBSource(SourceParams{DB: db, Repo: repo})
	entries, err := src.Fetch(context.Background(), vipdomain.UserContext{Role: "dealer"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "2", entries[0].Price.String())
}

func TestRepository_UpsertUpdatesExistingRow(t *testing.T) {
	db := setupTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	seedRow(t, db, node, "vip", "", "2.00", true, 0)
	seedRow(t, db, node, "vip", "", "2.50", true, 0)

	rows, err := repository.Provide().ListActive(context.Background(), db, "")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2.5", rows[0].Price.String())
}
