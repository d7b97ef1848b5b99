package webhooks

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Identity lifecycle event types
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Sources of identity events
const (
	SourceSigned  = "signed"
	SourceCasdoor = "casdoor"
)

var ErrMalformedEvent = errors.New("malformed identity event")

// UserData is the provider-neutral user payload. Deleted events may only carry the id.
type UserData struct {
	ID        string `json:"id"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// IdentityEvent travels over the message bus once a callback has been accepted.
// Casdoor events are hints: the consumer re-reads the identity before applying them.
type IdentityEvent struct {
	Type   string   `json:"type"`
	Source string   `json:"source,omitempty"`
	Data   UserData `json:"data"`
}

type signedEmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

// signedPayload is the Standard Webhooks user event body
type signedPayload struct {
	Type string `json:"type"`
	Data struct {
		ID                    string               `json:"id"`
		EmailAddresses        []signedEmailAddress `json:"email_addresses"`
		PrimaryEmailAddressID string               `json:"primary_email_address_id"`
		FirstName             *string              `json:"first_name"`
		LastName              *string              `json:"last_name"`
	} `json:"data"`
}

// ParseIdentityEvent decodes a verified Standard Webhooks body
func ParseIdentityEvent(body []byte) (*IdentityEvent, error) {
	var payload signedPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if payload.Type == "" || payload.Data.ID == "" {
		return nil, fmt.Errorf("%w: missing type or user id", ErrMalformedEvent)
	}

	event := &IdentityEvent{
		Type:   payload.Type,
		Source: SourceSigned,
		Data: UserData{
			ID:        payload.Data.ID,
			FirstName: deref(payload.Data.FirstName),
			LastName:  deref(payload.Data.LastName),
		},
	}
	for _, email := range payload.Data.EmailAddresses {
		if email.ID == payload.Data.PrimaryEmailAddressID {
			event.Data.Email = email.EmailAddress
			break
		}
	}

	return event, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
