package auth

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
)

const DefaultFaceLoginLimit = 10

// RateLimiter is a fixed-window counter per key. Without Redis every call is allowed.
type RateLimiter struct {
	counters *cache.CacheHelper
	limit    int64
	window   time.Duration
}

func NewRateLimiter(counters *cache.CacheHelper, limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultFaceLoginLimit
	}
	if window <= 0 {
		window = cache.RateLimitCacheConfig.TTL
	}
	return &RateLimiter{
		counters: counters,
		limit:    int64(limit),
		window:   window,
	}
}

// Allow counts one attempt for key and reports whether it is within the limit
func (r *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := r.counters.Incr(ctx, key, r.window)
	if err != nil {
		if errors.Is(err, cache.ErrCacheNotAvailable) {
			return true, nil
		}
		return false, err
	}
	return count <= r.limit, nil
}
