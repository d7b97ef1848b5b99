package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateIdentityCache drops every cached view of one identity
func InvalidateIdentityCache(ctx context.Context, helper *CacheHelper, externalID, email string) {
	keys := []string{fmt.Sprintf("id:%s", externalID)}
	if email != "" {
		keys = append(keys, fmt.Sprintf("email:%s", email))
	}
	SafeDelete(ctx, helper, keys...)
}

// StatsKey is the cache key for one user's statistics over a period
func StatsKey(userID, period string) string {
	return fmt.Sprintf("%s:%s", userID, period)
}

// InvalidateUserStats drops a user's cached statistics for every period
func InvalidateUserStats(ctx context.Context, helper *CacheHelper, userID string) {
	SafeInvalidatePattern(ctx, helper, fmt.Sprintf("%s:*", userID))
}
