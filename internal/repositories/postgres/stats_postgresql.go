package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

// quizPercentage is a quiz score as a share of its question count
const quizPercentage = "score * 100.0 / NULLIF(jsonb_array_length(questions), 0)"

type statsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) repositories.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) GetUserTotals(ctx context.Context, tx *gorm.DB, userID string) (*repositories.UserTotals, error) {
	db := resolveDB(r.db, tx).WithContext(ctx)
	totals := &repositories.UserTotals{}

	if err := db.Model(&models.LearningPlan{}).
		Where("user_id = ?", userID).
		Count(&totals.TotalPlans).Error; err != nil {
		return nil, handleDBError(err, "count learning plans")
	}

	if err := db.Model(&models.QuizResult{}).
		Where("user_id = ?", userID).
		Count(&totals.TotalQuizzes).Error; err != nil {
		return nil, handleDBError(err, "count quiz results")
	}

	if err := db.Model(&models.Note{}).
		Where("user_id = ?", userID).
		Count(&totals.TotalNotes).Error; err != nil {
		return nil, handleDBError(err, "count notes")
	}

	var score struct {
		AvgScore float64
	}
	if err := db.Model(&models.QuizResult{}).
		Where("user_id = ?", userID).
		Select("COALESCE(AVG(" + quizPercentage + "), 0) AS avg_score").
		Scan(&score).Error; err != nil {
		return nil, handleDBError(err, "average quiz score")
	}
	totals.AverageQuizScore = score.AvgScore

	lastActive, err := r.lastActivity(db, userID)
	if err != nil {
		return nil, err
	}
	totals.LastActiveAt = lastActive

	return totals, nil
}

// lastActivity is the newest plan, quiz or note edit
func (r *statsRepository) lastActivity(db *gorm.DB, userID string) (*time.Time, error) {
	sources := []struct {
		model  interface{}
		column string
	}{
		{&models.LearningPlan{}, "created_at"},
		{&models.QuizResult{}, "created_at"},
		{&models.Note{}, "updated_at"},
	}

	var latest *time.Time
	for _, source := range sources {
		var result struct {
			Last *time.Time
		}
		if err := db.Model(source.model).
			Where("user_id = ?", userID).
			Select("MAX(" + source.column + ") AS last").
			Scan(&result).Error; err != nil {
			return nil, handleDBError(err, "last activity")
		}
		if result.Last != nil && (latest == nil || result.Last.After(*latest)) {
			latest = result.Last
		}
	}

	return latest, nil
}

func (r *statsRepository) GetActivityTrends(ctx context.Context, tx *gorm.DB, userID string, buckets []repositories.TimeBucket) ([]repositories.ActivityTrendData, error) {
	db := resolveDB(r.db, tx).WithContext(ctx)
	results := make([]repositories.ActivityTrendData, 0, len(buckets))

	for _, bucket := range buckets {
		row := repositories.ActivityTrendData{
			Period: bucket.Label,
			Date:   bucket.Start,
		}

		if err := db.Model(&models.LearningPlan{}).
			Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, bucket.Start, bucket.End).
			Count(&row.Plans).Error; err != nil {
			return nil, handleDBError(err, "count plans in period")
		}

		if err := db.Model(&models.QuizResult{}).
			Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, bucket.Start, bucket.End).
			Count(&row.Quizzes).Error; err != nil {
			return nil, handleDBError(err, "count quizzes in period")
		}

		if err := db.Model(&models.Note{}).
			Where("user_id = ? AND updated_at >= ? AND updated_at < ?", userID, bucket.Start, bucket.End).
			Count(&row.NotesEdited).Error; err != nil {
			return nil, handleDBError(err, "count notes in period")
		}

		var score struct {
			AvgScore float64
		}
		if err := db.Model(&models.QuizResult{}).
			Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, bucket.Start, bucket.End).
			Select("COALESCE(AVG(" + quizPercentage + "), 0) AS avg_score").
			Scan(&score).Error; err != nil {
			return nil, handleDBError(err, "average score in period")
		}
		row.AverageScore = score.AvgScore

		results = append(results, row)
	}

	return results, nil
}
