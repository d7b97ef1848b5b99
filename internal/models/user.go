package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the local mirror of an identity owned by the identity provider.
// Credentials are never stored here.
type User struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	ExternalID string `json:"external_id" gorm:"uniqueIndex;not null;size:255"`
	Email      string `json:"email" gorm:"uniqueIndex;not null;size:255"`
	FirstName  string `json:"first_name" gorm:"size:100"`
	LastName   string `json:"last_name" gorm:"size:100"`

	FaceEmbedding *FaceEmbedding `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Notes         []Note         `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	LearningPlans []LearningPlan `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	QuizResults   []QuizResult   `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// FullName joins first and last name, falling back to the email.
func (u *User) FullName() string {
	name := strings.TrimSpace(strings.Join([]string{u.FirstName, u.LastName}, " "))
	if name == "" {
		return u.Email
	}
	return name
}
