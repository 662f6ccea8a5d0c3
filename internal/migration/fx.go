package migration

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/autobazaar/internal/config"
	"github.com/smallbiznis/autobazaar/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, catalogCfg *config.CatalogConfigHolder, node *snowflake.Node, log *zap.Logger) error {
		if err := Apply(conn); err != nil {
			return err
		}
		if !cfg.SeedCatalog {
			return nil
		}
		seeded, err := seed.EnsurePricingCatalog(conn, node, catalogCfg.Get())
		if err != nil {
			return err
		}
		if seeded > 0 {
			log.Info("seeded pricing catalog", zap.Int("entries", seeded))
		}
		return nil
	}),
)
