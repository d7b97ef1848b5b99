package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

const maxNoteListLimit = 100

type noteService struct {
	repo       repositories.Repository
	publisher  events.EventPublisher
	statsCache *cache.CacheHelper
	logger     *slog.Logger
	validator  *validator.Validator
}

func NewNoteService(repo repositories.Repository, publisher events.EventPublisher, statsCache *cache.CacheHelper, logger *slog.Logger, validator *validator.Validator) NoteService {
	return &noteService{
		repo:       repo,
		publisher:  publisher,
		statsCache: statsCache,
		logger:     logger,
		validator:  validator,
	}
}

// ===== READS =====

func (s *noteService) List(ctx context.Context, userID string, filters repositories.NoteFilters) (*NoteListResponse, error) {
	if filters.Limit <= 0 || filters.Limit > maxNoteListLimit {
		filters.Limit = maxNoteListLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}

	notes, total, err := s.repo.Note().ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	if notes == nil {
		notes = []*models.Note{}
	}

	return &NoteListResponse{Notes: notes, Total: total}, nil
}

func (s *noteService) Get(ctx context.Context, userID, noteID string) (*models.Note, error) {
	return s.getOwned(ctx, s.repo, userID, noteID)
}

func (s *noteService) ListVersions(ctx context.Context, userID, noteID string) ([]*models.NoteVersion, error) {
	if _, err := s.getOwned(ctx, s.repo, userID, noteID); err != nil {
		return nil, err
	}

	versions, err := s.repo.NoteVersion().ListByNote(ctx, nil, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list note versions: %w", err)
	}
	if versions == nil {
		versions = []*models.NoteVersion{}
	}

	return versions, nil
}

// ===== WRITES =====

func (s *noteService) Create(ctx context.Context, userID string, req *validator.CreateNoteRequest) (*models.Note, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	note := &models.Note{
		UserID: userID,
		Title:  models.DefaultNoteTitle,
		Tags:   datatypes.JSONSlice[string]{},
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) != "" {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.Tags != nil {
		note.Tags = cleanTags(req.Tags)
	}

	if err := s.repo.Note().Create(ctx, nil, note); err != nil {
		return nil, fmt.Errorf("failed to create note: %w", err)
	}

	s.publishNoteEvent(ctx, events.TypeNoteCreated, note, "")
	s.logger.Info("Note created", "user_id", userID, "note_id", note.ID)

	return note, nil
}

// Update snapshots the current state before any title or content change.
// Pin, star and tag only updates are not versioned.
func (s *noteService) Update(ctx context.Context, userID, noteID string, req *validator.UpdateNoteRequest) (*models.Note, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var note *models.Note
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		current, err := s.getOwned(ctx, tx, userID, noteID)
		if err != nil {
			return err
		}

		if req.ChangesContent() {
			if err := tx.NoteVersion().Create(ctx, nil, current.Snapshot()); err != nil {
				return fmt.Errorf("failed to snapshot note: %w", err)
			}
		}

		applyNoteUpdate(current, req)

		if err := tx.Note().Update(ctx, nil, current); err != nil {
			return fmt.Errorf("failed to update note: %w", err)
		}

		note = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishNoteEvent(ctx, events.TypeNoteUpdated, note, "")

	return note, nil
}

func (s *noteService) Delete(ctx context.Context, userID, noteID string) error {
	note, err := s.getOwned(ctx, s.repo, userID, noteID)
	if err != nil {
		return err
	}

	if err := s.repo.Note().Delete(ctx, nil, note.ID); err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	s.publishNoteEvent(ctx, events.TypeNoteDeleted, note, "")
	s.logger.Info("Note deleted", "user_id", userID, "note_id", noteID)

	return nil
}

// RestoreVersion snapshots the current state, then copies the version's
// title, content and tags onto the note.
func (s *noteService) RestoreVersion(ctx context.Context, userID, versionID string) (*models.Note, error) {
	var note *models.Note
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		version, err := tx.NoteVersion().GetByID(ctx, nil, versionID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrVersionNotFound
			}
			return fmt.Errorf("failed to get note version: %w", err)
		}

		current, err := tx.Note().GetByIDForUser(ctx, nil, version.NoteID, userID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrVersionNotFound
			}
			return fmt.Errorf("failed to get note: %w", err)
		}

		if err := tx.NoteVersion().Create(ctx, nil, current.Snapshot()); err != nil {
			return fmt.Errorf("failed to snapshot note: %w", err)
		}

		current.Title = version.Title
		current.Content = version.Content
		current.Tags = append(datatypes.JSONSlice[string]{}, version.Tags...)

		if err := tx.Note().Update(ctx, nil, current); err != nil {
			return fmt.Errorf("failed to restore note: %w", err)
		}

		note = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishNoteEvent(ctx, events.TypeNoteRestored, note, versionID)
	s.logger.Info("Note version restored", "user_id", userID, "note_id", note.ID, "version_id", versionID)

	return note, nil
}

// ===== HELPERS =====

func (s *noteService) getOwned(ctx context.Context, repo repositories.Repository, userID, noteID string) (*models.Note, error) {
	note, err := repo.Note().GetByIDForUser(ctx, nil, noteID, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrNoteNotFound
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// publishNoteEvent runs after every note write
func (s *noteService) publishNoteEvent(ctx context.Context, eventType string, note *models.Note, versionID string) {
	cache.InvalidateUserStats(ctx, s.statsCache, note.UserID)

	payload := map[string]string{
		"user_id": note.UserID,
		"note_id": note.ID,
	}
	if versionID != "" {
		payload["version_id"] = versionID
	}
	publishEvent(ctx, s.publisher, s.logger, events.TopicStudy, eventType, payload)
}

func applyNoteUpdate(note *models.Note, req *validator.UpdateNoteRequest) {
	// The default title only applies at creation; an explicit blank title is kept
	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.Tags != nil {
		note.Tags = cleanTags(*req.Tags)
	}
	if req.IsPinned != nil {
		note.IsPinned = *req.IsPinned
	}
	if req.IsStarred != nil {
		note.IsStarred = *req.IsStarred
	}
}

func cleanTags(tags []string) datatypes.JSONSlice[string] {
	cleaned := make(datatypes.JSONSlice[string], 0, len(tags))
	for _, tag := range tags {
		cleaned = append(cleaned, strings.TrimSpace(tag))
	}
	return cleaned
}
