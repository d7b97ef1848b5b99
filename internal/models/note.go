package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultNoteTitle = "Untitled Note"

type Note struct {
	ID        string                      `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string                      `json:"user_id" gorm:"type:uuid;index;not null"`
	Title     string                      `json:"title" gorm:"not null;size:255"`
	Content   string                      `json:"content" gorm:"type:text"`
	Tags      datatypes.JSONSlice[string] `json:"tags" gorm:"type:jsonb"`
	IsPinned  bool                        `json:"is_pinned" gorm:"default:false"`
	IsStarred bool                        `json:"is_starred" gorm:"default:false"`

	Versions []NoteVersion `json:"-" gorm:"foreignKey:NoteID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"`
}

func (Note) TableName() string {
	return "notes"
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}

// Snapshot captures the versioned fields of the note.
func (n *Note) Snapshot() *NoteVersion {
	tags := make(datatypes.JSONSlice[string], len(n.Tags))
	copy(tags, n.Tags)

	return &NoteVersion{
		NoteID:  n.ID,
		Title:   n.Title,
		Content: n.Content,
		Tags:    tags,
	}
}

// NoteVersion is a prior state of a note, written before each content update.
type NoteVersion struct {
	ID        string                      `json:"id" gorm:"primaryKey;type:uuid"`
	NoteID    string                      `json:"note_id" gorm:"type:uuid;index;not null"`
	Title     string                      `json:"title" gorm:"not null;size:255"`
	Content   string                      `json:"content" gorm:"type:text"`
	Tags      datatypes.JSONSlice[string] `json:"tags" gorm:"type:jsonb"`
	CreatedAt time.Time                   `json:"created_at" gorm:"index"`
}

func (NoteVersion) TableName() string {
	return "note_versions"
}

func (v *NoteVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	return nil
}
