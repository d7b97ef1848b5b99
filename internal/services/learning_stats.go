package services

import (
	"context"
	"fmt"
	"time"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

func (s *learningService) Stats(ctx context.Context, userID, period string) (*StatsResponse, error) {
	if period == "" {
		period = PeriodWeek
	}

	buckets, err := activityBuckets(period, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	key := cache.StatsKey(userID, period)
	var cached StatsResponse
	if err := s.statsCache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	totals, err := s.repo.Stats().GetUserTotals(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get study totals: %w", err)
	}

	trends, err := s.repo.Stats().GetActivityTrends(ctx, nil, userID, buckets)
	if err != nil {
		return nil, fmt.Errorf("failed to get activity trends: %w", err)
	}

	stats := &StatsResponse{
		Period: period,
		Totals: totals,
		Trends: trends,
	}
	if err := s.statsCache.Set(ctx, key, stats, cache.StatsCacheConfig.TTL); err != nil {
		s.logger.Warn("Failed to cache study statistics", "user_id", userID, "error", err)
	}

	return stats, nil
}

// activityBuckets splits the period ending at now into consecutive buckets:
// 7 days for a week, 4 weeks for a month and 12 calendar months for a year.
func activityBuckets(period string, now time.Time) ([]repositories.TimeBucket, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var buckets []repositories.TimeBucket
	switch period {
	case PeriodWeek:
		for i := 6; i >= 0; i-- {
			start := today.AddDate(0, 0, -i)
			buckets = append(buckets, repositories.TimeBucket{
				Label: start.Format("Mon"),
				Start: start,
				End:   start.AddDate(0, 0, 1),
			})
		}

	case PeriodMonth:
		end := today.AddDate(0, 0, 1)
		for i := 3; i >= 0; i-- {
			bucketEnd := end.AddDate(0, 0, -i*7)
			buckets = append(buckets, repositories.TimeBucket{
				Label: fmt.Sprintf("W%d", 4-i),
				Start: bucketEnd.AddDate(0, 0, -7),
				End:   bucketEnd,
			})
		}

	case PeriodYear:
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		for i := 11; i >= 0; i-- {
			start := month.AddDate(0, -i, 0)
			buckets = append(buckets, repositories.TimeBucket{
				Label: start.Format("Jan 2006"),
				Start: start,
				End:   start.AddDate(0, 1, 0),
			})
		}

	default:
		return nil, fmt.Errorf("%w: unsupported period %q", ErrValidationFailed, period)
	}

	return buckets, nil
}
