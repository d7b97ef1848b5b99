package webhooks

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
)

// ErrIgnoredAction marks a Casdoor record that does not concern a user lifecycle
var ErrIgnoredAction = errors.New("casdoor action not handled")

var casdoorActions = map[string]string{
	"signup":      EventUserCreated,
	"add-user":    EventUserCreated,
	"update-user": EventUserUpdated,
	"delete-user": EventUserDeleted,
}

// ParseCasdoorRecord maps a Casdoor webhook record onto an identity event.
// The affected user comes from extendedUser when the webhook is configured
// to send it, otherwise from the JSON encoded object.
func ParseCasdoorRecord(body []byte) (*IdentityEvent, error) {
	var record casdoorsdk.Record
	if err := json.Unmarshal(body, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	eventType, ok := casdoorActions[record.Action]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrIgnoredAction, record.Action)
	}

	user := record.ExtendedUser
	if user == nil || user.Id == "" {
		user = &casdoorsdk.User{}
		if record.Object != "" {
			if err := json.Unmarshal([]byte(record.Object), user); err != nil {
				return nil, fmt.Errorf("%w: object: %v", ErrMalformedEvent, err)
			}
		}
	}
	if user.Id == "" {
		return nil, fmt.Errorf("%w: missing user id for %s", ErrMalformedEvent, record.Action)
	}

	return &IdentityEvent{
		Type:   eventType,
		Source: SourceCasdoor,
		Data: UserData{
			ID:        user.Id,
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
		},
	}, nil
}
