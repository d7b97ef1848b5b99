package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
)

// ===== SHARED ERRORS =====

var (
	ErrNotFound           = errors.New("record not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrIdentityProvider   = errors.New("identity provider failure")
)

// IsNotFoundError reports whether err is a lookup miss from any store.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, gorm.ErrRecordNotFound) ||
		errors.Is(err, ErrIdentityNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type NoteFilters struct {
	Pinned    *bool   `json:"pinned"`
	Starred   *bool   `json:"starred"`
	Tag       *string `json:"tag"`
	Query     string  `json:"query"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`    // "updated_at", "created_at", "title"
	SortOrder string  `json:"sort_order"` // "asc", "desc"
}

type HistoryFilters struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ===== LOCAL STORES =====

// FaceEmbeddingRepository stores at most one descriptor per user.
type FaceEmbeddingRepository interface {
	Upsert(ctx context.Context, tx *gorm.DB, face *models.FaceEmbedding) error
	GetByUserID(ctx context.Context, tx *gorm.DB, userID string) (*models.FaceEmbedding, error)
	// ListAll returns every enrolled descriptor in enrollment order.
	ListAll(ctx context.Context, tx *gorm.DB) ([]*models.FaceEmbedding, error)
	DeleteByUserID(ctx context.Context, tx *gorm.DB, userID string) error
}

type LearningPlanRepository interface {
	Create(ctx context.Context, tx *gorm.DB, plan *models.LearningPlan) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters HistoryFilters) ([]*models.LearningPlan, error)
}

type QuizResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.QuizResult) error
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters HistoryFilters) ([]*models.QuizResult, error)
}

type NoteRepository interface {
	Create(ctx context.Context, tx *gorm.DB, note *models.Note) error
	// GetByIDForUser returns ErrNotFound when the note belongs to someone else.
	GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID string) (*models.Note, error)
	ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters NoteFilters) ([]*models.Note, int64, error)
	Update(ctx context.Context, tx *gorm.DB, note *models.Note) error
	Delete(ctx context.Context, tx *gorm.DB, id string) error
}

type NoteVersionRepository interface {
	Create(ctx context.Context, tx *gorm.DB, version *models.NoteVersion) error
	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.NoteVersion, error)
	ListByNote(ctx context.Context, tx *gorm.DB, noteID string) ([]*models.NoteVersion, error)
}
