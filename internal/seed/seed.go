package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/autobazaar/internal/catalog/domain"
	"github.com/smallbiznis/autobazaar/internal/catalog/repository"
	"github.com/smallbiznis/autobazaar/internal/config"
	"gorm.io/gorm"
)

// EnsurePricingCatalog writes the configured default prices as generic rows
// when the pricing table is empty. It returns the number of rows written.
func EnsurePricingCatalog(db *gorm.DB, node *snowflake.Node, cfg config.CatalogConfig) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}
	if node == nil {
		return 0, errors.New("seed id generator is required")
	}

	ctx := context.Background()
	repo := repository.Provide()
	seeded := 0

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&catalogdomain.PricingEntryRow{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		for _, d := range cfg.Defaults {
			row := &catalogdomain.PricingEntryRow{
				ID:           node.Generate(),
				ServiceType:  d.ServiceType,
				Price:        decimal.NewFromFloat(d.Price).Round(2),
				IsDailyPrice: d.IsDailyPrice,
				DurationDays: d.DurationDays,
				Active:       true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := repo.Upsert(ctx, tx, row); err != nil {
				return err
			}
			seeded++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return seeded, nil
}
