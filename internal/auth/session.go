package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
)

// Method records how a session was authenticated.
type Method string

const (
	MethodPassword Method = "password"
	MethodFace     Method = "face"
)

const (
	CookieName = "session"
	DefaultTTL = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrRevokedToken = errors.New("session token revoked")
)

// Claims carries the local user id in "sub" and the identity provider id in "ext".
type Claims struct {
	jwt.RegisteredClaims
	ExternalID string `json:"ext"`
	AuthMethod Method `json:"amr"`
}

// Session is an issued token and its claims
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Method    Method    `json:"auth_method"`
	Claims    *Claims   `json:"-"`
}

// SessionManager issues and checks HS256 session tokens. Revoked token ids are
// kept in Redis until the token would expire on its own.
type SessionManager struct {
	secret      []byte
	ttl         time.Duration
	revocations *cache.CacheHelper
	now         func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration, revocations *cache.CacheHelper) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &SessionManager{
		secret:      []byte(secret),
		ttl:         ttl,
		revocations: revocations,
		now:         time.Now,
	}
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a new session token
func (m *SessionManager) Issue(userID, externalID string, method Method) (*Session, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		ExternalID: externalID,
		AuthMethod: method,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}

	return &Session{
		Token:     token,
		ExpiresAt: expiresAt,
		Method:    method,
		Claims:    claims,
	}, nil
}

// Parse validates the token and rejects revoked ones
func (m *SessionManager) Parse(ctx context.Context, tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	switch claims.AuthMethod {
	case MethodPassword, MethodFace:
	default:
		return nil, fmt.Errorf("%w: unknown auth method %q", ErrInvalidToken, claims.AuthMethod)
	}

	revoked, err := m.revocations.Exists(ctx, claims.ID)
	if err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// Revoke blocks the token id for the rest of its lifetime
func (m *SessionManager) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ID == "" {
		return ErrInvalidToken
	}

	remaining := time.Minute
	if claims.ExpiresAt != nil {
		remaining = claims.ExpiresAt.Sub(m.now())
	}
	if remaining <= 0 {
		return nil
	}

	if !m.revocations.Available() {
		return cache.ErrCacheNotAvailable
	}

	return m.revocations.SetString(ctx, claims.ID, string(claims.AuthMethod), remaining)
}
