package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Topics
const (
	TopicIdentity   = "identity.events"
	TopicStudy      = "study.events"
	TopicDivergence = "identity.divergence"
	TopicPoison     = "events.poison"
)

// Study event types
const (
	TypeUserSignedUp     = "user.signed_up"
	TypeIdentityDiverged = "identity.diverged"
	TypePasswordChanged  = "user.password_changed"
	TypeFaceEnrolled     = "face.enrolled"
	TypeFaceRemoved      = "face.removed"
	TypeNoteCreated      = "note.created"
	TypeNoteUpdated      = "note.updated"
	TypeNoteDeleted      = "note.deleted"
	TypeNoteRestored     = "note.restored"
	TypePlanSaved        = "learning_plan.saved"
	TypeQuizResultSaved  = "quiz_result.saved"
)

// Event is the envelope carried on every topic
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into a new envelope
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}

	return &Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	}, nil
}

// Decode unmarshals the payload into v
func (e *Event) Decode(v interface{}) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// EventPublisher publishes envelopes to a topic
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}
