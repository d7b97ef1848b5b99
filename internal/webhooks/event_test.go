package webhooks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityEvent(t *testing.T) {
	body := []byte(`{
		"type": "user.created",
		"data": {
			"id": "user_1",
			"email_addresses": [
				{"id": "e1", "email_address": "other@example.com"},
				{"id": "e2", "email_address": "ada@example.com"}
			],
			"primary_email_address_id": "e2",
			"first_name": "Ada",
			"last_name": null
		}
	}`)

	event, err := ParseIdentityEvent(body)
	require.NoError(t, err)
	assert.Equal(t, &IdentityEvent{
		Type:   EventUserCreated,
		Source: SourceSigned,
		Data:   UserData{ID: "user_1", Email: "ada@example.com", FirstName: "Ada"},
	}, event)

	_, err = ParseIdentityEvent([]byte(`{"type":"user.created","data":{}}`))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	_, err = ParseIdentityEvent([]byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedEvent)
}

func TestParseCasdoorRecord(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *IdentityEvent
	}{
		{
			name: "update from object",
			body: `{"id":12,"owner":"built-in","organization":"study","user":"alice","method":"POST","requestUri":"/api/update-user","action":"update-user","object":"{\"id\":\"6c1f\",\"owner\":\"study\",\"name\":\"alice\",\"email\":\"alice@example.com\",\"firstName\":\"Alice\",\"lastName\":\"Liddell\"}","isTriggered":false}`,
			want: &IdentityEvent{
				Type:   EventUserUpdated,
				Source: SourceCasdoor,
				Data:   UserData{ID: "6c1f", Email: "alice@example.com", FirstName: "Alice", LastName: "Liddell"},
			},
		},
		{
			name: "signup from extended user",
			body: `{"action":"signup","user":"bob","object":"","extendedUser":{"id":"7a2e","name":"bob","email":"bob@example.com"}}`,
			want: &IdentityEvent{
				Type:   EventUserCreated,
				Source: SourceCasdoor,
				Data:   UserData{ID: "7a2e", Email: "bob@example.com"},
			},
		},
		{
			name: "admin add user",
			body: `{"action":"add-user","object":"{\"id\":\"8b3f\",\"email\":\"carol@example.com\"}"}`,
			want: &IdentityEvent{
				Type:   EventUserCreated,
				Source: SourceCasdoor,
				Data:   UserData{ID: "8b3f", Email: "carol@example.com"},
			},
		},
		{
			name: "delete",
			body: `{"action":"delete-user","object":"{\"id\":\"6c1f\",\"name\":\"alice\"}"}`,
			want: &IdentityEvent{
				Type:   EventUserDeleted,
				Source: SourceCasdoor,
				Data:   UserData{ID: "6c1f"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := ParseCasdoorRecord([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, event)
		})
	}
}

func TestParseCasdoorRecordRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{name: "other action", body: `{"action":"login","object":"{}"}`, wantErr: ErrIgnoredAction},
		{name: "no action", body: `{"user":"alice"}`, wantErr: ErrIgnoredAction},
		{name: "object without id", body: `{"action":"update-user","object":"{\"name\":\"alice\"}"}`, wantErr: ErrMalformedEvent},
		{name: "object not json", body: `{"action":"update-user","object":"alice"}`, wantErr: ErrMalformedEvent},
		{name: "body not json", body: `[`, wantErr: ErrMalformedEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCasdoorRecord([]byte(tt.body))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
