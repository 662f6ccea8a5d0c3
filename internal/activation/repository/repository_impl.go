package repository

import (
	"context"

	activationdomain "github.com/smallbiznis/autobazaar/internal/activation/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() activationdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, purchase *activationdomain.Purchase) error {
	return db.WithContext(ctx).Create(purchase).Error
}

func (r *repo) FindByIdempotencyKey(ctx context.Context, db *gorm.DB, userID, key string) (*activationdomain.Purchase, error) {
	var rows []activationdomain.Purchase
	err := db.WithContext(ctx).
		Where("user_id = ? AND idempotency_key = ?", userID, key).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ExistsForCar(ctx context.Context, db *gorm.DB, userID, carID string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&activationdomain.Purchase{}).
		Where("user_id = ? AND car_id = ?", userID, carID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) ListByCar(ctx context.Context, db *gorm.DB, userID, carID string, after *activationdomain.PurchaseCursor, limit int) ([]activationdomain.Purchase, error) {
	stmt := db.WithContext(ctx).
		Model(&activationdomain.Purchase{}).
		Where("user_id = ? AND car_id = ?", userID, carID)
	if after != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var rows []activationdomain.Purchase
	if err := stmt.Order("created_at desc, id desc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
