package postgres

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

var noteSortColumns = map[string]string{
	"updated_at": "updated_at",
	"created_at": "created_at",
	"title":      "title",
}

type noteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) repositories.NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Create(ctx context.Context, tx *gorm.DB, note *models.Note) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).Create(note).Error; err != nil {
		return handleDBError(err, "create note")
	}
	return nil
}

func (r *noteRepository) GetByIDForUser(ctx context.Context, tx *gorm.DB, id, userID string) (*models.Note, error) {
	db := resolveDB(r.db, tx)
	var note models.Note

	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&note).Error; err != nil {
		return nil, handleDBError(err, "get note")
	}

	return &note, nil
}

func (r *noteRepository) ListByUser(ctx context.Context, tx *gorm.DB, userID string, filters repositories.NoteFilters) ([]*models.Note, int64, error) {
	db := resolveDB(r.db, tx)
	var notes []*models.Note
	var total int64

	query := db.WithContext(ctx).Model(&models.Note{}).Where("user_id = ?", userID)
	query = r.applyNoteFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, handleDBError(err, "count notes")
	}

	query = applyPaginationAndSorting(query, noteSortColumns, "updated_at", filters.Limit, filters.Offset, filters.SortBy, filters.SortOrder)

	if err := query.Find(&notes).Error; err != nil {
		return nil, 0, handleDBError(err, "list notes")
	}

	return notes, total, nil
}

func (r *noteRepository) Update(ctx context.Context, tx *gorm.DB, note *models.Note) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).Save(note).Error; err != nil {
		return handleDBError(err, "update note")
	}
	return nil
}

func (r *noteRepository) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).Delete(&models.Note{}, "id = ?", id).Error; err != nil {
		return handleDBError(err, "delete note")
	}
	return nil
}

func (r *noteRepository) applyNoteFilters(query *gorm.DB, filters repositories.NoteFilters) *gorm.DB {
	if filters.Pinned != nil {
		query = query.Where("is_pinned = ?", *filters.Pinned)
	}
	if filters.Starred != nil {
		query = query.Where("is_starred = ?", *filters.Starred)
	}
	if filters.Tag != nil {
		tag, _ := json.Marshal([]string{*filters.Tag})
		query = query.Where("tags @> ?", string(tag))
	}
	if filters.Query != "" {
		like := "%" + escapeLike(filters.Query) + "%"
		query = query.Where(`title ILIKE ? ESCAPE '\' OR content ILIKE ? ESCAPE '\'`, like, like)
	}
	return query
}

type noteVersionRepository struct {
	db *gorm.DB
}

func NewNoteVersionRepository(db *gorm.DB) repositories.NoteVersionRepository {
	return &noteVersionRepository{db: db}
}

func (r *noteVersionRepository) Create(ctx context.Context, tx *gorm.DB, version *models.NoteVersion) error {
	db := resolveDB(r.db, tx)
	if err := db.WithContext(ctx).Create(version).Error; err != nil {
		return handleDBError(err, "create note version")
	}
	return nil
}

func (r *noteVersionRepository) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.NoteVersion, error) {
	db := resolveDB(r.db, tx)
	var version models.NoteVersion

	if err := db.WithContext(ctx).Where("id = ?", id).First(&version).Error; err != nil {
		return nil, handleDBError(err, "get note version")
	}

	return &version, nil
}

func (r *noteVersionRepository) ListByNote(ctx context.Context, tx *gorm.DB, noteID string) ([]*models.NoteVersion, error) {
	db := resolveDB(r.db, tx)
	var versions []*models.NoteVersion

	if err := db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&versions).Error; err != nil {
		return nil, handleDBError(err, "list note versions")
	}

	return versions, nil
}
