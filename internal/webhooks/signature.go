package webhooks

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"

	secretPrefix = "whsec_"
)

var (
	ErrMissingHeaders   = errors.New("missing webhook signature headers")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrInvalidSecret    = errors.New("invalid webhook secret")
)

// Verifier checks Standard Webhooks signatures as sent by the identity provider.
// Timestamps older or newer than five minutes are rejected.
type Verifier struct {
	wh *svix.Webhook
}

// NewVerifier decodes a "whsec_" prefixed base64 secret. A secret without the
// prefix is used as raw key bytes.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, ErrInvalidSecret
	}

	var (
		wh  *svix.Webhook
		err error
	)
	if strings.HasPrefix(secret, secretPrefix) {
		wh, err = svix.NewWebhook(secret)
	} else {
		wh, err = svix.NewWebhookRaw([]byte(secret))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSecret, err)
	}

	return &Verifier{wh: wh}, nil
}

// Verify checks the signature headers against the raw request body.
func (v *Verifier) Verify(headers http.Header, body []byte) error {
	if headers.Get(HeaderID) == "" || headers.Get(HeaderTimestamp) == "" || headers.Get(HeaderSignature) == "" {
		return ErrMissingHeaders
	}

	if err := v.wh.Verify(body, headers); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// Sign returns the signature header value for a message.
func (v *Verifier) Sign(msgID string, sentAt time.Time, body []byte) (string, error) {
	return v.wh.Sign(msgID, sentAt, body)
}
