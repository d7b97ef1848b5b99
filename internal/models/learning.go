package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// QuizQuestion is one generated multiple-choice question.
type QuizQuestion struct {
	Question string   `json:"question" validate:"required"`
	Choices  []string `json:"choices" validate:"required,min=2,dive,required"`
	Answer   string   `json:"answer" validate:"required"`
}

type LearningPlan struct {
	ID        string    `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string    `json:"user_id" gorm:"type:uuid;index;not null"`
	Topic     string    `json:"topic" gorm:"not null;size:255"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
}

func (LearningPlan) TableName() string {
	return "learning_plans"
}

func (p *LearningPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type QuizResult struct {
	ID        string                            `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string                            `json:"user_id" gorm:"type:uuid;index;not null"`
	Topic     string                            `json:"topic" gorm:"not null;size:255"`
	Questions datatypes.JSONSlice[QuizQuestion] `json:"questions" gorm:"type:jsonb;not null"`
	Answers   datatypes.JSONSlice[string]       `json:"answers" gorm:"type:jsonb;not null"`
	Score     int                               `json:"score" gorm:"not null"`
	CreatedAt time.Time                         `json:"created_at" gorm:"index"`
}

func (QuizResult) TableName() string {
	return "quiz_results"
}

func (r *QuizResult) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// Percentage returns the score as a share of the question count.
func (r *QuizResult) Percentage() float64 {
	if len(r.Questions) == 0 {
		return 0
	}
	return float64(r.Score) / float64(len(r.Questions)) * 100
}
