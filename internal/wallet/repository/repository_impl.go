package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	walletdomain "github.com/smallbiznis/autobazaar/internal/wallet/domain"
	"github.com/smallbiznis/autobazaar/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() walletdomain.Repository {
	return &repo{}
}

func (r *repo) Ensure(ctx context.Context, conn *gorm.DB, userID, currency string, now time.Time) error {
	w := walletdomain.Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		Currency:  currency,
		UpdatedAt: now,
	}
	return conn.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&w).Error
}

func (r *repo) Find(ctx context.Context, conn *gorm.DB, userID string) (*walletdomain.Wallet, error) {
	return r.find(ctx, conn, userID, "")
}

func (r *repo) FindForUpdate(ctx context.Context, conn *gorm.DB, userID string) (*walletdomain.Wallet, error) {
	return r.find(ctx, conn, userID, db.ForUpdate(conn))
}

func (r *repo) find(ctx context.Context, conn *gorm.DB, userID, lock string) (*walletdomain.Wallet, error) {
	var w walletdomain.Wallet
	err := conn.WithContext(ctx).Raw(
		`SELECT user_id, balance, currency, updated_at
		 FROM wallets WHERE user_id = ?`+lock,
		userID,
	).Scan(&w).Error
	if err != nil {
		return nil, err
	}
	if w.UserID == "" {
		return nil, nil
	}
	return &w, nil
}

func (r *repo) UpdateBalance(ctx context.Context, conn *gorm.DB, userID string, balance decimal.Decimal, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE wallets SET balance = ?, updated_at = ? WHERE user_id = ?`,
		balance,
		now,
		userID,
	).Error
}

func (r *repo) InsertEntry(ctx context.Context, conn *gorm.DB, entry *walletdomain.Entry) (bool, error) {
	result := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"}, {Name: "direction"}, {Name: "source_type"}, {Name: "source_id"},
			},
			DoNothing: true,
		}).
		Create(entry)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repo) ListEntries(ctx context.Context, conn *gorm.DB, userID string, after *walletdomain.EntryCursor, limit int) ([]walletdomain.Entry, error) {
	stmt := conn.WithContext(ctx).
		Model(&walletdomain.Entry{}).
		Where("user_id = ?", userID)
	if after != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}

	var entries []walletdomain.Entry
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
