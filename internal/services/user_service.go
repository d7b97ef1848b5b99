package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/webhooks"
)

type userService struct {
	repo      repositories.Repository
	publisher events.EventPublisher
	logger    *slog.Logger
}

func NewUserService(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger) UserService {
	return &userService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// ===== LOOKUPS =====

func (s *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, nil, id)
	return s.lookupResult(user, err)
}

func (s *userService) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	user, err := s.repo.User().GetByExternalID(ctx, nil, externalID)
	return s.lookupResult(user, err)
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.repo.User().GetByEmail(ctx, nil, normalizeEmail(email))
	return s.lookupResult(user, err)
}

func (s *userService) lookupResult(user *models.User, err error) (*models.User, error) {
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// ===== IDENTITY SYNC =====

func (s *userService) SyncFromIdentity(ctx context.Context, externalID string) (*models.User, error) {
	identity, err := s.repo.Identity().GetIdentity(ctx, externalID)
	if err != nil {
		return nil, identityError("get identity", err)
	}

	return s.UpsertFromIdentity(ctx, identity)
}

// UpsertFromIdentity creates the local user when missing, otherwise copies
// email and names from the identity.
func (s *userService) UpsertFromIdentity(ctx context.Context, identity *repositories.Identity) (*models.User, error) {
	user, err := s.repo.User().GetByExternalID(ctx, nil, identity.ExternalID)
	if err != nil && !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	email := normalizeEmail(identity.Email)

	if user == nil {
		if email == "" {
			return nil, fmt.Errorf("%w: identity %s has no email", ErrValidationFailed, identity.ExternalID)
		}

		user = &models.User{
			ExternalID: identity.ExternalID,
			Email:      email,
			FirstName:  identity.FirstName,
			LastName:   identity.LastName,
		}
		if err := s.repo.User().Create(ctx, nil, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		s.logger.Info("Local user created from identity", "user_id", user.ID, "external_id", user.ExternalID)
		return user, nil
	}

	changed := false
	if email != "" && email != user.Email {
		user.Email = email
		changed = true
	}
	if identity.FirstName != user.FirstName {
		user.FirstName = identity.FirstName
		changed = true
	}
	if identity.LastName != user.LastName {
		user.LastName = identity.LastName
		changed = true
	}

	if changed {
		if err := s.repo.User().Update(ctx, nil, user); err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		s.logger.Info("Local user updated from identity", "user_id", user.ID, "external_id", user.ExternalID)
	}

	return user, nil
}

// ===== WEBHOOK EVENTS =====

// EnqueueIdentityEvent routes the event through the bus. Without a publisher
// it is handled inline.
func (s *userService) EnqueueIdentityEvent(ctx context.Context, event *webhooks.IdentityEvent) error {
	if s.publisher == nil {
		return s.HandleIdentityEvent(ctx, event)
	}

	envelope, err := events.NewEvent(event.Type, event)
	if err != nil {
		return err
	}
	if err := s.publisher.Publish(ctx, events.TopicIdentity, envelope); err != nil {
		return fmt.Errorf("failed to enqueue identity event: %w", err)
	}

	s.logger.Info("Identity event enqueued", "event_type", event.Type, "source", event.Source, "external_id", event.Data.ID)
	return nil
}

func (s *userService) HandleIdentityEvent(ctx context.Context, event *webhooks.IdentityEvent) error {
	if event.Source == webhooks.SourceCasdoor {
		return s.reconcileIdentity(ctx, event)
	}

	data := event.Data

	switch event.Type {
	case webhooks.EventUserCreated:
		return s.handleUserCreated(ctx, data)

	case webhooks.EventUserUpdated:
		return s.applyIdentity(ctx, event.Type, identityFromWebhook(data))

	case webhooks.EventUserDeleted:
		return s.deleteLocalUser(ctx, data.ID)

	default:
		s.logger.Debug("Ignoring identity event", "event_type", event.Type)
		return nil
	}
}

// reconcileIdentity treats an unsigned callback as a hint and applies the
// state Casdoor reports for the user instead of the callback body.
func (s *userService) reconcileIdentity(ctx context.Context, event *webhooks.IdentityEvent) error {
	identity, err := s.repo.Identity().RefreshIdentity(ctx, event.Data.ID)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return s.deleteLocalUser(ctx, event.Data.ID)
		}
		return fmt.Errorf("failed to refresh identity %s: %w", event.Data.ID, err)
	}

	if event.Type == webhooks.EventUserDeleted {
		s.logger.Warn("Ignoring delete for identity that still exists", "external_id", event.Data.ID)
		return nil
	}

	return s.applyIdentity(ctx, event.Type, identity)
}

func (s *userService) applyIdentity(ctx context.Context, eventType string, identity *repositories.Identity) error {
	if _, err := s.UpsertFromIdentity(ctx, identity); err != nil {
		if errors.Is(err, ErrValidationFailed) {
			s.logger.Warn("Skipping identity without email", "event_type", eventType, "external_id", identity.ExternalID)
			return nil
		}
		return fmt.Errorf("failed to apply %s: %w", eventType, err)
	}
	return nil
}

func (s *userService) deleteLocalUser(ctx context.Context, externalID string) error {
	if err := s.repo.User().DeleteByExternalID(ctx, nil, externalID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.logger.Info("Local user deleted", "external_id", externalID)
	return nil
}

func (s *userService) handleUserCreated(ctx context.Context, data webhooks.UserData) error {
	if data.Email == "" {
		s.logger.Warn("Skipping user.created without email", "external_id", data.ID)
		return nil
	}

	if _, err := s.repo.User().GetByExternalID(ctx, nil, data.ID); err == nil {
		return nil
	} else if !repositories.IsNotFoundError(err) {
		return fmt.Errorf("failed to get user: %w", err)
	}

	if _, err := s.UpsertFromIdentity(ctx, identityFromWebhook(data)); err != nil {
		return fmt.Errorf("failed to apply user.created: %w", err)
	}
	return nil
}

func identityFromWebhook(data webhooks.UserData) *repositories.Identity {
	return &repositories.Identity{
		ExternalID: data.ID,
		Email:      data.Email,
		FirstName:  data.FirstName,
		LastName:   data.LastName,
	}
}

// IdentityEventHandler consumes identity events from the bus
func IdentityEventHandler(users UserService) func(ctx context.Context, event *events.Event) error {
	return func(ctx context.Context, event *events.Event) error {
		var identityEvent webhooks.IdentityEvent
		if err := event.Decode(&identityEvent); err != nil {
			// Not retryable
			return nil
		}
		return users.HandleIdentityEvent(ctx, &identityEvent)
	}
}
