package httpapi

import (
	"context"
	"fmt"
	"time"

	"judgecore/pkg/apperr"

	"github.com/redis/go-redis/v9"
)

// RateLimiter enforces fixed-window limits using Redis, grounded on
// internal/gateway/service/rate_limit_service.go's SetNX-then-Incr window.
type RateLimiter struct {
	client *redis.Client
}

// NewRateLimiter wraps an existing Redis client.
func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow increments key's fixed-window counter and rejects once it exceeds
// max within window.
func (r *RateLimiter) Allow(ctx context.Context, key string, max int, window time.Duration) error {
	if max <= 0 {
		return nil
	}

	acquired, err := r.client.SetNX(ctx, key, 1, window).Result()
	if err != nil {
		return apperr.Wrapf(err, apperr.CacheError, "rate limit check failed")
	}

	var count int64
	if acquired {
		count = 1
	} else {
		count, err = r.client.Incr(ctx, key).Result()
		if err != nil {
			return apperr.Wrapf(err, apperr.CacheError, "rate limit check failed")
		}
		if ttl, ttlErr := r.client.TTL(ctx, key).Result(); ttlErr == nil && ttl <= 0 {
			_ = r.client.Expire(ctx, key, window).Err()
		}
	}

	if int(count) > max {
		return apperr.New(apperr.TooManyRequests).WithMessage(fmt.Sprintf("rate limit exceeded for %s", key))
	}
	return nil
}
