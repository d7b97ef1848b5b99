package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

var historySortColumns = map[string]string{
	"created_at": "created_at",
}

type learningPlanRepository struct {
	db *gorm.DB
}

func NewLearningPlanRepository(db *gorm.DB) repositories.LearningPlanRepository {
	return &learningPlanRepository{db: db}
}

func (r *learningPlanRepository) Create(ctx context.Context, tx *gorm.DB, plan *models.LearningPlan) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).Create(plan).Error; err != nil {
		return handleDBError(err, "create learning plan")
	}
	return nil
}

func (r *learningPlanRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.HistoryFilters) ([]*models.LearningPlan, error) {
	db := resolveDB(r.db, tx)
	var plans []*models.LearningPlan

	query := db.WithContext(ctx).Model(&models.LearningPlan{}).Where("user_id = ?", userID)
	query = applyPaginationAndSorting(query, historySortColumns, "created_at", filters.Limit, filters.Offset, "created_at", "desc")

	if err := query.Find(&plans).Error; err != nil {
		return nil, handleDBError(err, "list learning plans")
	}

	return plans, nil
}

type quizResultRepository struct {
	db *gorm.DB
}

func NewQuizResultRepository(db *gorm.DB) repositories.QuizResultRepository {
	return &quizResultRepository{db: db}
}

func (r *quizResultRepository) Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).Create(result).Error; err != nil {
		return handleDBError(err, "create quiz result")
	}
	return nil
}

func (r *quizResultRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.HistoryFilters) ([]*models.QuizResult, error) {
	db := resolveDB(r.db, tx)
	var results []*models.QuizResult

	query := db.WithContext(ctx).Model(&models.QuizResult{}).Where("user_id = ?", userID)
	query = applyPaginationAndSorting(query, historySortColumns, "created_at", filters.Limit, filters.Offset, "created_at", "desc")

	if err := query.Find(&results).Error; err != nil {
		return nil, handleDBError(err, "list quiz results")
	}

	return results, nil
}
