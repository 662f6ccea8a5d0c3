package repository

import (
	"context"

	listingdomain "github.com/smallbiznis/autobazaar/internal/listing/domain"
	vipdomain "github.com/smallbiznis/autobazaar/internal/vip/domain"
	"github.com/smallbiznis/autobazaar/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() listingdomain.Repository {
	return &repo{}
}

const selectState = `SELECT car_id, vip_status, vip_expires_at,
	color_highlighting_enabled, color_highlighting_expires_at,
	auto_renewal_enabled, auto_renewal_expires_at, auto_renewal_days, updated_at
	FROM listing_vip_states WHERE car_id = ?`

func (r *repo) Find(ctx context.Context, conn *gorm.DB, carID string) (*vipdomain.State, error) {
	return r.find(ctx, conn, carID, "")
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, carID string) (*vipdomain.State, error) {
	return r.find(ctx, conn, carID, db.ForUpdate(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, carID, lock string) (*vipdomain.State, error) {
	var state vipdomain.State
	err := conn.WithContext(ctx).Raw(selectState+lock, carID).Scan(&state).Error
	if err != nil {
		return nil, err
	}
	if state.CarID == "" {
		return nil, nil
	}
	return &state, nil
}

func (r *repo) Upsert(ctx context.Context, conn *gorm.DB, state *vipdomain.State) error {
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "car_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"vip_status", "vip_expires_at",
				"color_highlighting_enabled", "color_highlighting_expires_at",
				"auto_renewal_enabled", "auto_renewal_expires_at", "auto_renewal_days",
				"updated_at",
			}),
		}).
		Select("*").
		Create(state).Error
}
