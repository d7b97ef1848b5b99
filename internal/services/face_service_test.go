package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

func TestFaceService_EnrollLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signUp(t, "ada@example.com").User
	faces := env.services.Face()

	status, err := faces.Status(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, status.Enrolled)
	assert.Nil(t, status.UpdatedAt)

	enrolled, err := faces.Enroll(ctx, user.ID, &validator.FaceEmbeddingRequest{Embedding: facematch.Embedding{1, 0, 0, 0}})
	require.NoError(t, err)
	assert.True(t, enrolled.Enrolled)
	require.NotNil(t, enrolled.UpdatedAt)

	// Re-enrolling replaces the single descriptor
	env.enroll(t, user.ID, facematch.Embedding{0, 1, 0, 0})
	assert.Len(t, env.store.faces, 1)

	status, err = faces.Status(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, status.Enrolled)

	result, err := faces.Verify(ctx, user.ID, &validator.FaceEmbeddingRequest{Embedding: facematch.Embedding{0, 1, 0, 0}})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, user.ID, result.UserID)
	assert.InDelta(t, 1.0, result.Score, 1e-6)

	result, err = faces.Verify(ctx, user.ID, &validator.FaceEmbeddingRequest{Embedding: facematch.Embedding{1, 0, 0, 0}})
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Empty(t, result.UserID)

	require.NoError(t, faces.Remove(ctx, user.ID))
	assert.ErrorIs(t, faces.Remove(ctx, user.ID), ErrFaceNotEnrolled)

	_, err = faces.Verify(ctx, user.ID, &validator.FaceEmbeddingRequest{Embedding: facematch.Embedding{1, 0, 0, 0}})
	assert.ErrorIs(t, err, ErrFaceNotEnrolled)

	assert.Len(t, env.publisher.EventsOfType(events.TypeFaceEnrolled), 2)
	assert.Len(t, env.publisher.EventsOfType(events.TypeFaceRemoved), 1)
}

func TestFaceService_EnrollRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.signUp(t, "ada@example.com").User

	_, err := env.services.Face().Enroll(ctx, user.ID, &validator.FaceEmbeddingRequest{Embedding: facematch.Embedding{1, 0, 0}})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "embedding", verrs[0].Field)

	_, err = env.services.Face().Enroll(ctx, "unknown-user", &validator.FaceEmbeddingRequest{Embedding: facematch.Embedding{1, 0, 0, 0}})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, env.store.faces)
}

func TestFaceService_IdentifyPicksBestCandidate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.signUp(t, "first@example.com").User
	second := env.signUp(t, "second@example.com").User
	env.enroll(t, first.ID, facematch.Embedding{1, 1, 0, 0})
	env.enroll(t, second.ID, facematch.Embedding{1, 0, 0, 0})

	result, err := env.services.Face().Identify(ctx, facematch.Embedding{1, 0.1, 0, 0})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, second.ID, result.UserID)
}

func TestFaceService_IdentifyTieGoesToFirstEnrolled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.signUp(t, "first@example.com").User
	second := env.signUp(t, "second@example.com").User
	env.enroll(t, first.ID, facematch.Embedding{0, 0, 1, 0})
	env.enroll(t, second.ID, facematch.Embedding{0, 0, 2, 0})

	result, err := env.services.Face().Identify(ctx, facematch.Embedding{0, 0, 3, 0})
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, first.ID, result.UserID)
}
