package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
)

type fakeCasdoorClient struct {
	users         map[string]*casdoorsdk.User
	passwords     map[string]string
	lookups       int
	failLookups   bool
	rejectAddUser bool
	passwordErr   error
}

func newFakeCasdoorClient() *fakeCasdoorClient {
	return &fakeCasdoorClient{
		users:     map[string]*casdoorsdk.User{},
		passwords: map[string]string{},
	}
}

func (f *fakeCasdoorClient) GetUserByUserId(userId string) (*casdoorsdk.User, error) {
	f.lookups++
	if f.failLookups {
		return nil, errors.New("connection refused")
	}
	return f.users[userId], nil
}

func (f *fakeCasdoorClient) GetUserByEmail(email string) (*casdoorsdk.User, error) {
	f.lookups++
	if f.failLookups {
		return nil, errors.New("connection refused")
	}
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeCasdoorClient) CheckUserPassword(user *casdoorsdk.User) (bool, error) {
	if f.passwordErr != nil {
		return false, f.passwordErr
	}
	if f.passwords[user.Name] != user.Password {
		return false, errors.New("password is wrong")
	}
	return true, nil
}

func (f *fakeCasdoorClient) AddUser(user *casdoorsdk.User) (bool, error) {
	if f.rejectAddUser {
		return false, nil
	}
	f.users[user.Id] = user
	f.passwords[user.Name] = user.Password
	return true, nil
}

func (f *fakeCasdoorClient) DeleteUser(user *casdoorsdk.User) (bool, error) {
	delete(f.users, user.Id)
	return true, nil
}

func (f *fakeCasdoorClient) SetPassword(owner, name, oldPassword, newPassword string) (bool, error) {
	f.passwords[name] = newPassword
	return true, nil
}

func newTestIdentity(t *testing.T) (*IdentityCasdoor, *fakeCasdoorClient) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	fake := newFakeCasdoorClient()
	helper := cache.NewCacheHelper(client, cache.IdentityCacheConfig.Prefix)
	return newIdentityCasdoor(fake, helper, CasdoorConfig{OrganizationName: "study"}), fake
}

func TestIdentityCasdoor_CreateAndVerify(t *testing.T) {
	identity, _ := newTestIdentity(t)
	ctx := context.Background()

	externalID, err := identity.CreateIdentity(ctx, "ada@example.com", repositories.IdentityAttributes{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Password:  "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, externalID)

	got, err := identity.VerifyPassword(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, externalID, got.ExternalID)
	assert.Equal(t, "Ada", got.FirstName)

	_, err = identity.VerifyPassword(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, repositories.ErrInvalidCredentials)

	_, err = identity.VerifyPassword(ctx, "nobody@example.com", "x")
	assert.ErrorIs(t, err, repositories.ErrInvalidCredentials)
}

func TestIdentityCasdoor_GetIdentityIsCached(t *testing.T) {
	identity, fake := newTestIdentity(t)
	ctx := context.Background()

	fake.users["ext-1"] = &casdoorsdk.User{Id: "ext-1", Name: "ext-1", Email: "g@example.com", DisplayName: "Grace Hopper"}

	first, err := identity.GetIdentity(ctx, "ext-1")
	require.NoError(t, err)
	second, err := identity.GetIdentity(ctx, "ext-1")
	require.NoError(t, err)

	assert.Equal(t, 1, fake.lookups)
	assert.Equal(t, first, second)
	assert.Equal(t, "Grace", first.FirstName)
	assert.Equal(t, "Hopper", first.LastName)
}

func TestIdentityCasdoor_Errors(t *testing.T) {
	identity, fake := newTestIdentity(t)
	ctx := context.Background()

	_, err := identity.GetIdentity(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrIdentityNotFound)
	assert.True(t, repositories.IsNotFoundError(err))

	fake.failLookups = true
	_, err = identity.GetIdentityByEmail(ctx, "x@example.com")
	assert.ErrorIs(t, err, repositories.ErrIdentityProvider)

	fake.failLookups = false
	fake.rejectAddUser = true
	_, err = identity.CreateIdentity(ctx, "x@example.com", repositories.IdentityAttributes{Password: "password1"})
	assert.ErrorIs(t, err, repositories.ErrIdentityProvider)
}

func TestIdentityCasdoor_UpdateCredentialAndDelete(t *testing.T) {
	identity, fake := newTestIdentity(t)
	ctx := context.Background()

	externalID, err := identity.CreateIdentity(ctx, "h@example.com", repositories.IdentityAttributes{Password: "old-password"})
	require.NoError(t, err)

	require.NoError(t, identity.UpdateCredential(ctx, externalID, "new-password"))
	_, err = identity.VerifyPassword(ctx, "h@example.com", "new-password")
	require.NoError(t, err)

	require.NoError(t, identity.DeleteIdentity(ctx, externalID))
	assert.Empty(t, fake.users)
	assert.ErrorIs(t, identity.DeleteIdentity(ctx, externalID), repositories.ErrIdentityNotFound)
}

func TestIdentityCasdoor_VerifyPasswordErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "rejection message", err: errors.New("password is wrong"), wantErr: repositories.ErrInvalidCredentials},
		{name: "connection refused", err: &url.Error{Op: "Post", URL: "http://casdoor/api/check-user-password", Err: errors.New("connection refused")}, wantErr: repositories.ErrIdentityProvider},
		{name: "unreadable response", err: &json.SyntaxError{Offset: 1}, wantErr: repositories.ErrIdentityProvider},
		{name: "deadline", err: context.DeadlineExceeded, wantErr: repositories.ErrIdentityProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, fake := newTestIdentity(t)
			fake.users["ext-1"] = &casdoorsdk.User{Id: "ext-1", Name: "ext-1", Email: "g@example.com"}
			fake.passwordErr = tt.err

			_, err := identity.VerifyPassword(context.Background(), "g@example.com", "anything")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIdentityCasdoor_RefreshIdentity(t *testing.T) {
	identity, fake := newTestIdentity(t)
	ctx := context.Background()

	fake.users["ext-1"] = &casdoorsdk.User{Id: "ext-1", Name: "ext-1", Email: "old@example.com", FirstName: "Grace"}
	_, err := identity.GetIdentity(ctx, "ext-1")
	require.NoError(t, err)
	_, err = identity.GetIdentityByEmail(ctx, "old@example.com")
	require.NoError(t, err)

	fake.users["ext-1"] = &casdoorsdk.User{Id: "ext-1", Name: "ext-1", Email: "new@example.com", FirstName: "Grace"}

	// Cached copy is still served until refreshed
	stale, err := identity.GetIdentity(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "old@example.com", stale.Email)

	fresh, err := identity.RefreshIdentity(ctx, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", fresh.Email)

	_, err = identity.GetIdentityByEmail(ctx, "old@example.com")
	assert.ErrorIs(t, err, repositories.ErrIdentityNotFound)

	delete(fake.users, "ext-1")
	_, err = identity.RefreshIdentity(ctx, "ext-1")
	assert.ErrorIs(t, err, repositories.ErrIdentityNotFound)
}
