package validator

import (
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
)

// ===== AUTH =====

type SignUpRequest struct {
	Email     string `json:"email" validate:"required,email,max=255"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128,nefield=CurrentPassword"`
}

// FaceEmbeddingRequest is used for face login, enrollment and verification
type FaceEmbeddingRequest struct {
	Embedding facematch.Embedding `json:"embedding" validate:"required,embedding"`
}

// ===== LEARNING =====

type GeneratePlanRequest struct {
	Topic string `json:"topic" validate:"required,max=255"`
}

type GenerateQuizRequest struct {
	Topic string `json:"topic" validate:"required,max=255"`
}

type ExplainAnswerRequest struct {
	Question   string `json:"question" validate:"required"`
	Answer     string `json:"answer" validate:"required"`
	UserAnswer string `json:"user_answer" validate:"required"`
	Topic      string `json:"topic" validate:"omitempty,max=255"`
}

type SavePlanRequest struct {
	Topic   string `json:"topic" validate:"required,max=255"`
	Content string `json:"content" validate:"required"`
}

type SaveQuizResultRequest struct {
	Topic     string                `json:"topic" validate:"required,max=255"`
	Questions []models.QuizQuestion `json:"questions" validate:"required,min=1,dive"`
	Answers   []string              `json:"answers" validate:"required,min=1"`
	Score     *int                  `json:"score" validate:"required"`
}

// ===== NOTES =====

type CreateNoteRequest struct {
	Title   *string  `json:"title" validate:"omitempty,max=255"`
	Content *string  `json:"content"`
	Tags    []string `json:"tags" validate:"omitempty,note_tags"`
}

// UpdateNoteRequest only changes the fields that are present
type UpdateNoteRequest struct {
	Title     *string   `json:"title" validate:"omitempty,max=255"`
	Content   *string   `json:"content"`
	Tags      *[]string `json:"tags" validate:"omitempty,note_tags"`
	IsPinned  *bool     `json:"is_pinned"`
	IsStarred *bool     `json:"is_starred"`
}

// ChangesContent reports whether the update touches versioned fields
func (r *UpdateNoteRequest) ChangesContent() bool {
	return r.Title != nil || r.Content != nil
}
