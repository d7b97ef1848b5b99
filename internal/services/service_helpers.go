package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

// publishEvent is fire-and-log: a failed publish never fails the request
func publishEvent(ctx context.Context, publisher events.EventPublisher, logger *slog.Logger, topic, eventType string, payload interface{}) {
	if publisher == nil {
		return
	}

	event, err := events.NewEvent(eventType, payload)
	if err != nil {
		logger.Error("Failed to build event", "event_type", eventType, "error", err)
		return
	}

	if err := publisher.Publish(ctx, topic, event); err != nil {
		logger.Warn("Failed to publish event", "event_type", eventType, "topic", topic, "error", err)
	}
}

// upstreamError tags a collaborator failure so handlers answer 502
func upstreamError(operation string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUpstream, operation, err)
}

// identityError maps identity provider failures to service errors
func identityError(operation string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrInvalidCredentials):
		return ErrInvalidCredentials
	case errors.Is(err, repositories.ErrIdentityNotFound):
		return fmt.Errorf("%s: %w", operation, ErrUserNotFound)
	default:
		return upstreamError(operation, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
