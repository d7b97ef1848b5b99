package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

// CasdoorConfig holds the configuration for Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// casdoorClient is the subset of the Casdoor SDK client used here.
type casdoorClient interface {
	GetUserByUserId(userId string) (*casdoorsdk.User, error)
	GetUserByEmail(email string) (*casdoorsdk.User, error)
	CheckUserPassword(user *casdoorsdk.User) (bool, error)
	AddUser(user *casdoorsdk.User) (bool, error)
	DeleteUser(user *casdoorsdk.User) (bool, error)
	SetPassword(owner, name, oldPassword, newPassword string) (bool, error)
}

type IdentityCasdoor struct {
	client casdoorClient
	cache  *cache.CacheHelper
	config CasdoorConfig
}

func NewIdentityCasdoor(config CasdoorConfig, identityCache *cache.CacheHelper) repositories.IdentityRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return newIdentityCasdoor(client, identityCache, config)
}

func newIdentityCasdoor(client casdoorClient, identityCache *cache.CacheHelper, config CasdoorConfig) *IdentityCasdoor {
	return &IdentityCasdoor{
		client: client,
		cache:  identityCache,
		config: config,
	}
}

// ===== CONVERSION METHODS =====

// convertCasdoorUser converts a Casdoor user to the identity view
func convertCasdoorUser(casdoorUser *casdoorsdk.User) *repositories.Identity {
	if casdoorUser == nil {
		return nil
	}

	identity := &repositories.Identity{
		ExternalID:  casdoorUser.Id,
		Email:       casdoorUser.Email,
		FirstName:   casdoorUser.FirstName,
		LastName:    casdoorUser.LastName,
		DisplayName: casdoorUser.DisplayName,
	}

	// Older Casdoor accounts only carry a display name
	if identity.FirstName == "" && identity.LastName == "" && identity.DisplayName != "" {
		parts := strings.SplitN(identity.DisplayName, " ", 2)
		identity.FirstName = parts[0]
		if len(parts) > 1 {
			identity.LastName = parts[1]
		}
	}

	return identity
}

func displayName(attrs repositories.IdentityAttributes, email string) string {
	name := strings.TrimSpace(attrs.FirstName + " " + attrs.LastName)
	if name == "" {
		return email
	}
	return name
}

// ===== READ OPERATIONS =====

// GetIdentity retrieves an identity by its Casdoor user id
func (i *IdentityCasdoor) GetIdentity(ctx context.Context, externalID string) (*repositories.Identity, error) {
	var identity repositories.Identity
	err := i.cache.CacheOrExecute(ctx, fmt.Sprintf("id:%s", externalID), &identity, cache.IdentityCacheConfig.TTL, func() (interface{}, error) {
		casdoorUser, err := i.client.GetUserByUserId(externalID)
		if err != nil {
			return nil, fmt.Errorf("%w: get user: %v", repositories.ErrIdentityProvider, err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("%w: id %s", repositories.ErrIdentityNotFound, externalID)
		}
		return convertCasdoorUser(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}

	return &identity, nil
}

// GetIdentityByEmail retrieves an identity by email
func (i *IdentityCasdoor) GetIdentityByEmail(ctx context.Context, email string) (*repositories.Identity, error) {
	var identity repositories.Identity
	err := i.cache.CacheOrExecute(ctx, fmt.Sprintf("email:%s", strings.ToLower(email)), &identity, cache.IdentityCacheConfig.TTL, func() (interface{}, error) {
		casdoorUser, err := i.client.GetUserByEmail(email)
		if err != nil {
			return nil, fmt.Errorf("%w: get user by email: %v", repositories.ErrIdentityProvider, err)
		}
		if casdoorUser == nil {
			return nil, fmt.Errorf("%w: email %s", repositories.ErrIdentityNotFound, email)
		}
		return convertCasdoorUser(casdoorUser), nil
	})
	if err != nil {
		return nil, err
	}

	return &identity, nil
}

// RefreshIdentity drops the cached entries of an identity and reads it from
// Casdoor again. Used when a callback says the upstream record changed.
func (i *IdentityCasdoor) RefreshIdentity(ctx context.Context, externalID string) (*repositories.Identity, error) {
	var cached repositories.Identity
	previousEmail := ""
	if err := i.cache.Get(ctx, fmt.Sprintf("id:%s", externalID), &cached); err == nil {
		previousEmail = strings.ToLower(cached.Email)
	}
	cache.InvalidateIdentityCache(ctx, i.cache, externalID, previousEmail)

	identity, err := i.GetIdentity(ctx, externalID)
	if err != nil {
		return nil, err
	}

	if email := strings.ToLower(identity.Email); email != "" && email != previousEmail {
		cache.SafeDelete(ctx, i.cache, fmt.Sprintf("email:%s", email))
	}

	return identity, nil
}

// ===== CREDENTIAL OPERATIONS =====

// VerifyPassword checks an email/password pair against Casdoor
func (i *IdentityCasdoor) VerifyPassword(ctx context.Context, email, password string) (*repositories.Identity, error) {
	casdoorUser, err := i.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("%w: get user by email: %v", repositories.ErrIdentityProvider, err)
	}
	if casdoorUser == nil {
		return nil, repositories.ErrInvalidCredentials
	}

	ok, err := i.client.CheckUserPassword(&casdoorsdk.User{
		Owner:    i.config.OrganizationName,
		Name:     casdoorUser.Name,
		Password: password,
	})
	if err != nil {
		if isTransportError(err) {
			return nil, fmt.Errorf("%w: check password: %v", repositories.ErrIdentityProvider, err)
		}
		// Casdoor reports a wrong password as an error response
		return nil, repositories.ErrInvalidCredentials
	}
	if !ok {
		return nil, repositories.ErrInvalidCredentials
	}

	return convertCasdoorUser(casdoorUser), nil
}

// isTransportError tells a failed round trip or unreadable response apart
// from a rejection message returned by Casdoor.
func isTransportError(err error) bool {
	var (
		urlErr       *url.Error
		netErr       net.Error
		syntaxErr    *json.SyntaxError
		unmarshalErr *json.UnmarshalTypeError
	)
	return errors.As(err, &urlErr) ||
		errors.As(err, &netErr) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &unmarshalErr) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// CreateIdentity registers a new Casdoor user and returns its id
func (i *IdentityCasdoor) CreateIdentity(ctx context.Context, email string, attrs repositories.IdentityAttributes) (string, error) {
	externalID := uuid.NewString()

	ok, err := i.client.AddUser(&casdoorsdk.User{
		Owner:       i.config.OrganizationName,
		Name:        externalID,
		Id:          externalID,
		Email:       email,
		FirstName:   attrs.FirstName,
		LastName:    attrs.LastName,
		DisplayName: displayName(attrs, email),
		Password:    attrs.Password,
	})
	if err != nil {
		return "", fmt.Errorf("%w: add user: %v", repositories.ErrIdentityProvider, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: add user rejected", repositories.ErrIdentityProvider)
	}

	cache.InvalidateIdentityCache(ctx, i.cache, externalID, strings.ToLower(email))

	return externalID, nil
}

// UpdateCredential replaces the password of an identity
func (i *IdentityCasdoor) UpdateCredential(ctx context.Context, externalID, newPassword string) error {
	casdoorUser, err := i.client.GetUserByUserId(externalID)
	if err != nil {
		return fmt.Errorf("%w: get user: %v", repositories.ErrIdentityProvider, err)
	}
	if casdoorUser == nil {
		return fmt.Errorf("%w: id %s", repositories.ErrIdentityNotFound, externalID)
	}

	ok, err := i.client.SetPassword(i.config.OrganizationName, casdoorUser.Name, "", newPassword)
	if err != nil {
		return fmt.Errorf("%w: set password: %v", repositories.ErrIdentityProvider, err)
	}
	if !ok {
		return fmt.Errorf("%w: set password rejected", repositories.ErrIdentityProvider)
	}

	return nil
}

// DeleteIdentity removes the Casdoor user
func (i *IdentityCasdoor) DeleteIdentity(ctx context.Context, externalID string) error {
	casdoorUser, err := i.client.GetUserByUserId(externalID)
	if err != nil {
		return fmt.Errorf("%w: get user: %v", repositories.ErrIdentityProvider, err)
	}
	if casdoorUser == nil {
		return fmt.Errorf("%w: id %s", repositories.ErrIdentityNotFound, externalID)
	}

	if _, err := i.client.DeleteUser(casdoorUser); err != nil {
		return fmt.Errorf("%w: delete user: %v", repositories.ErrIdentityProvider, err)
	}

	cache.InvalidateIdentityCache(ctx, i.cache, externalID, strings.ToLower(casdoorUser.Email))

	return nil
}
