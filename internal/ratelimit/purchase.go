package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/autobazaar/internal/config"
)

const (
	keyPurchaseUser      = "vip:purchase:user:%s"
	keyActivationListing = "vip:activation:%s"
)

// ErrListingBusy means another activation of the same listing holds the lock.
var ErrListingBusy = errors.New("listing_busy")

// PurchaseLimiter throttles purchase attempts per user and serialises
// activations per listing across instances. A nil limiter allows everything.
type PurchaseLimiter struct {
	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewPurchaseLimiter(cfg config.Config, client *redis.Client) (*PurchaseLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limit needs REDIS_ADDR")
	}
	if limitCfg.PurchaseRate <= 0 || limitCfg.PurchaseBurst <= 0 {
		return nil, errors.New("purchase rate limit must be positive")
	}
	lockTTL := time.Duration(limitCfg.ActivationLockSeconds) * time.Second
	if lockTTL <= 0 {
		return nil, errors.New("activation lock ttl must be positive")
	}

	return &PurchaseLimiter{
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.PurchaseRate,
		burst:   limitCfg.PurchaseBurst,
		lockTTL: lockTTL,
	}, nil
}

func (l *PurchaseLimiter) Enabled() bool {
	return l != nil
}

func (l *PurchaseLimiter) AllowUser(ctx context.Context, userID string) (Decision, error) {
	if !l.Enabled() {
		return Decision{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyPurchaseUser, strings.TrimSpace(userID)), l.rate, l.burst)
}

// LockListing returns ErrListingBusy when the listing is already locked. The
// returned lease is nil when the limiter is disabled.
func (l *PurchaseLimiter) LockListing(ctx context.Context, carID string) (*Lease, error) {
	if !l.Enabled() {
		return nil, nil
	}
	lease, err := l.locker.TryAcquire(ctx, ActivationLockKey(carID), l.lockTTL)
	if err != nil {
		return nil, err
	}
	if lease == nil {
		return nil, ErrListingBusy
	}
	return lease, nil
}

func ActivationLockKey(carID string) string {
	return fmt.Sprintf(keyActivationListing, strings.TrimSpace(carID))
}
