package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// FaceEmbedding is the single enrolled face descriptor of a user.
// This table is the only place embeddings are stored.
type FaceEmbedding struct {
	ID        string          `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string          `json:"user_id" gorm:"type:uuid;uniqueIndex;not null"`
	Embedding pgvector.Vector `json:"-" gorm:"type:vector(128);not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (FaceEmbedding) TableName() string {
	return "face_embeddings"
}

func (f *FaceEmbedding) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	return nil
}
