package repository

import (
	"context"
	"time"

	catalogdomain "github.com/smallbiznis/autobazaar/internal/catalog/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, roles ...string) ([]catalogdomain.PricingEntryRow, error) {
	if len(roles) == 0 {
		return nil, nil
	}
	var rows []catalogdomain.PricingEntryRow
	err := db.WithContext(ctx).Raw(
		`SELECT id, service_type, role, price, is_daily_price, duration_days, active, created_at, updated_at
		 FROM vip_pricing_entries
		 WHERE active = ? AND role IN ?
		 ORDER BY service_type ASC, role ASC`,
		true,
		roles,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, row *catalogdomain.PricingEntryRow) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "service_type"}, {Name: "role"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "is_daily_price", "duration_days", "active", "updated_at",
		}),
	}).Create(row).Error
}

func (r *repo) Deactivate(ctx context.Context, db *gorm.DB, serviceType, role string, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE vip_pricing_entries SET active = ?, updated_at = ?
		 WHERE service_type = ? AND role = ? AND active = ?`,
		false,
		now,
		serviceType,
		role,
		true,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
