package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// StatsRepository aggregates a user's study activity
type StatsRepository interface {
	GetUserTotals(ctx context.Context, tx *gorm.DB, userID string) (*UserTotals, error)

	// GetActivityTrends returns one row per bucket, in bucket order
	GetActivityTrends(ctx context.Context, tx *gorm.DB, userID string, buckets []TimeBucket) ([]ActivityTrendData, error)
}

type UserTotals struct {
	TotalPlans   int64 `json:"total_plans"`
	TotalQuizzes int64 `json:"total_quizzes"`
	TotalNotes   int64 `json:"total_notes"`
	// AverageQuizScore is the mean quiz percentage, 0 without quizzes
	AverageQuizScore float64    `json:"average_quiz_score"`
	LastActiveAt     *time.Time `json:"last_active_at,omitempty"`
}

// TimeBucket is the half-open interval [Start, End)
type TimeBucket struct {
	Label string
	Start time.Time
	End   time.Time
}

type ActivityTrendData struct {
	Period       string    `json:"period"`
	Plans        int64     `json:"plans"`
	Quizzes      int64     `json:"quizzes"`
	NotesEdited  int64     `json:"notes_edited"`
	AverageScore float64   `json:"average_score"`
	Date         time.Time `json:"date"`
}
