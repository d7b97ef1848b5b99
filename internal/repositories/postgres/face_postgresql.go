package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

type faceEmbeddingRepository struct {
	db *gorm.DB
}

func NewFaceEmbeddingRepository(db *gorm.DB) repositories.FaceEmbeddingRepository {
	return &faceEmbeddingRepository{db: db}
}

// Upsert inserts the descriptor or replaces the user's existing one.
func (r *faceEmbeddingRepository) Upsert(ctx context.Context, tx *gorm.DB, face *models.FaceEmbedding) error {
	db := resolveDB(r.db, tx)
	face.UpdatedAt = time.Now()

	if err := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "updated_at"}),
		}).
		Create(face).Error; err != nil {
		return handleDBError(err, "upsert face embedding")
	}
	return nil
}

func (r *faceEmbeddingRepository) GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.FaceEmbedding, error) {
	db := resolveDB(r.db, tx)
	var face models.FaceEmbedding

	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&face).Error; err != nil {
		return nil, handleDBError(err, "get face embedding")
	}

	return &face, nil
}

func (r *faceEmbeddingRepository) ListAll(ctx context.Context, tx *gorm.DB) ([]*models.FaceEmbedding, error) {
	db := resolveDB(r.db, tx)
	var faces []*models.FaceEmbedding

	if err := db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&faces).Error; err != nil {
		return nil, handleDBError(err, "list face embeddings")
	}

	return faces, nil
}

func (r *faceEmbeddingRepository) DeleteByUserID(ctx context.Context, tx *gorm.DB, userID string) error {
	db := resolveDB(r.db, tx)
	result := db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.FaceEmbedding{})
	if result.Error != nil {
		return handleDBError(result.Error, "delete face embedding")
	}
	if result.RowsAffected == 0 {
		return handleDBError(gorm.ErrRecordNotFound, "delete face embedding")
	}
	return nil
}
