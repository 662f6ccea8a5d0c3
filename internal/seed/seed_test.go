package seed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/smallbiznis/autobazaar/internal/catalog/domain"
	"github.com/smallbiznis/autobazaar/internal/catalog/repository"
	"github.com/smallbiznis/autobazaar/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestEnsurePricingCatalog_SeedsOnce(t *testing.T) {
	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&catalogdomain.PricingEntryRow{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	cfg := config.DefaultCatalogConfig()

	n, err := EnsurePricingCatalog(db, node, cfg)
	require.NoError(t, err)
	assert.Equal(t, len(cfg.Defaults), n)

	n, err = EnsurePricingCatalog(db, node, cfg)
	require.NoError(t, err)
	assert.Zero(t, n)

	rows, err := repository.Provide().ListActive(context.Background(), db, "")
	require.NoError(t, err)
	assert.Len(t, rows, len(cfg.Defaults))
}

func TestEnsurePricingCatalog_RequiresHandles(t *testing.T) {
	_, err := EnsurePricingCatalog(nil, nil, config.DefaultCatalogConfig())
	assert.Error(t, err)
}
