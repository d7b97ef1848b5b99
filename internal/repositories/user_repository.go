package repositories

import (
	"context"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/models"
)

// UserRepository is the local user store, keyed by id, email and external identity id.
type UserRepository interface {
	Create(ctx context.Context, tx *gorm.DB, user *models.User) error
	Update(ctx context.Context, tx *gorm.DB, user *models.User) error

	GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error)
	GetByExternalID(ctx context.Context, tx *gorm.DB, externalID string) (*models.User, error)

	ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error)

	// DeleteByExternalID removes the user and, through foreign keys, everything it owns.
	DeleteByExternalID(ctx context.Context, tx *gorm.DB, externalID string) error
}

// Identity is the identity provider's view of a user.
type Identity struct {
	ExternalID  string `json:"external_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DisplayName string `json:"display_name"`
}

// IdentityAttributes are optional profile fields sent when creating an identity.
type IdentityAttributes struct {
	FirstName string
	LastName  string
	Password  string
}

// IdentityRepository is the external identity provider. It owns credentials.
type IdentityRepository interface {
	VerifyPassword(ctx context.Context, email, password string) (*Identity, error)
	CreateIdentity(ctx context.Context, email string, attrs IdentityAttributes) (string, error)
	UpdateCredential(ctx context.Context, externalID, newPassword string) error
	GetIdentity(ctx context.Context, externalID string) (*Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*Identity, error)
	// RefreshIdentity bypasses any cached copy of the identity
	RefreshIdentity(ctx context.Context, externalID string) (*Identity, error)
	DeleteIdentity(ctx context.Context, externalID string) error
}
