package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"

	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

type faceService struct {
	repo      repositories.Repository
	index     facematch.Index
	matcher   *facematch.Matcher
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewFaceService(repo repositories.Repository, matcher *facematch.Matcher, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) FaceService {
	return &faceService{
		repo:      repo,
		index:     matcher,
		matcher:   matcher,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

func (s *faceService) Enroll(ctx context.Context, userID string, req *validator.FaceEmbeddingRequest) (*FaceStatusResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.repo.User().GetByID(ctx, nil, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	face := &models.FaceEmbedding{
		UserID:    userID,
		Embedding: pgvector.NewVector(req.Embedding.Float32()),
	}
	if err := s.repo.FaceEmbedding().Upsert(ctx, nil, face); err != nil {
		return nil, fmt.Errorf("failed to store face embedding: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.TopicStudy, events.TypeFaceEnrolled, map[string]string{
		"user_id": userID,
	})
	s.logger.Info("Face enrolled", "user_id", userID)

	updatedAt := face.UpdatedAt
	return &FaceStatusResponse{Enrolled: true, UpdatedAt: &updatedAt}, nil
}

func (s *faceService) Status(ctx context.Context, userID string) (*FaceStatusResponse, error) {
	face, err := s.repo.FaceEmbedding().GetByUserID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return &FaceStatusResponse{Enrolled: false}, nil
		}
		return nil, fmt.Errorf("failed to get face embedding: %w", err)
	}

	updatedAt := face.UpdatedAt
	return &FaceStatusResponse{Enrolled: true, UpdatedAt: &updatedAt}, nil
}

func (s *faceService) Remove(ctx context.Context, userID string) error {
	if err := s.repo.FaceEmbedding().DeleteByUserID(ctx, nil, userID); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrFaceNotEnrolled
		}
		return fmt.Errorf("failed to delete face embedding: %w", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.TopicStudy, events.TypeFaceRemoved, map[string]string{
		"user_id": userID,
	})
	s.logger.Info("Face removed", "user_id", userID)

	return nil
}

// Verify compares the query against the caller's own enrolled descriptor
func (s *faceService) Verify(ctx context.Context, userID string, req *validator.FaceEmbeddingRequest) (*facematch.Result, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	face, err := s.repo.FaceEmbedding().GetByUserID(ctx, nil, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrFaceNotEnrolled
		}
		return nil, fmt.Errorf("failed to get face embedding: %w", err)
	}

	result := s.matcher.Compare(userID, req.Embedding, facematch.FromFloat32(face.Embedding.Slice()))
	return &result, nil
}

// Identify matches the query against every enrolled descriptor
func (s *faceService) Identify(ctx context.Context, query facematch.Embedding) (*facematch.Result, error) {
	faces, err := s.repo.FaceEmbedding().ListAll(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list face embeddings: %w", err)
	}

	candidates := make([]facematch.Candidate, 0, len(faces))
	for _, face := range faces {
		candidates = append(candidates, facematch.Candidate{
			UserID:    face.UserID,
			Embedding: facematch.FromFloat32(face.Embedding.Slice()),
		})
	}

	result := s.index.Match(query, candidates)
	return &result, nil
}
