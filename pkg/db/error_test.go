package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestErrorClassification(t *testing.T) {
	wrapped := func(code string) error {
		return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code})
	}

	assert.True(t, IsDuplicateKeyErr(gorm.ErrDuplicatedKey))
	assert.True(t, IsDuplicateKeyErr(wrapped("23505")))
	assert.True(t, IsDuplicateKeyErr(errors.New("UNIQUE constraint failed: vip_purchases.user_id")))
	assert.False(t, IsDuplicateKeyErr(nil))
	assert.False(t, IsDuplicateKeyErr(errors.New("boom")))

	assert.True(t, IsLockTimeoutErr(wrapped("55P03")))
	assert.False(t, IsLockTimeoutErr(wrapped("23505")))

	assert.True(t, IsRetryableTxErr(wrapped("40001")))
	assert.True(t, IsRetryableTxErr(wrapped("40P01")))
	assert.False(t, IsRetryableTxErr(errors.New("boom")))

	assert.True(t, IsDBErr(wrapped("XX000")))
	assert.False(t, IsDBErr(errors.New("boom")))
}
