package ratelimit

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides a redis client and the purchase limiter. Both are nil when
// redis or rate limiting is not configured.
var Module = fx.Module("ratelimit",
	fx.Provide(NewRedisClient, NewPurchaseLimiter),
	fx.Invoke(func(log *zap.Logger, limiter *PurchaseLimiter) {
		if !limiter.Enabled() {
			log.Info("purchase rate limiting disabled")
			return
		}
		log.Info("purchase rate limiting enabled",
			zap.Float64("rate", limiter.rate),
			zap.Int("burst", limiter.burst),
			zap.Duration("activation_lock_ttl", limiter.lockTTL),
		)
	}),
)
