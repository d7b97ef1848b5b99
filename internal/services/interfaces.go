package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
	"github.com/SAP-F-2025/study-assistant-service/internal/webhooks"
)

// ===== SERVICE INTERFACES =====

// AuthService owns sessions: every sign-in path ends in a token from the same authority
type AuthService interface {
	SignUp(ctx context.Context, req *validator.SignUpRequest) (*SessionResponse, error)
	SignIn(ctx context.Context, req *validator.SignInRequest) (*SessionResponse, error)
	ChangePassword(ctx context.Context, userID string, req *validator.ChangePasswordRequest) error
	// FaceLogin returns a response even on a miss so callers can report the best score
	FaceLogin(ctx context.Context, req *validator.FaceEmbeddingRequest, clientIP string) (*FaceLoginResponse, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
	Me(ctx context.Context, userID string) (*models.User, error)
}

type FaceService interface {
	Enroll(ctx context.Context, userID string, req *validator.FaceEmbeddingRequest) (*FaceStatusResponse, error)
	Status(ctx context.Context, userID string) (*FaceStatusResponse, error)
	Remove(ctx context.Context, userID string) error
	Verify(ctx context.Context, userID string, req *validator.FaceEmbeddingRequest) (*facematch.Result, error)
	Identify(ctx context.Context, query facematch.Embedding) (*facematch.Result, error)
}

type LearningService interface {
	GeneratePlan(ctx context.Context, req *validator.GeneratePlanRequest) (*PlanResponse, error)
	GenerateQuiz(ctx context.Context, req *validator.GenerateQuizRequest) (*QuizResponse, error)
	ExplainAnswer(ctx context.Context, req *validator.ExplainAnswerRequest) (*ExplanationResponse, error)
	SavePlan(ctx context.Context, userID string, req *validator.SavePlanRequest) (*models.LearningPlan, error)
	SaveQuizResult(ctx context.Context, userID string, req *validator.SaveQuizResultRequest) (*models.QuizResult, error)
	History(ctx context.Context, userID string, filters repositories.HistoryFilters) (*HistoryResponse, error)
	ExportHistory(ctx context.Context, userID string) ([]byte, error)
	// Stats summarizes activity; period is "week", "month" or "year"
	Stats(ctx context.Context, userID, period string) (*StatsResponse, error)
}

type NoteService interface {
	List(ctx context.Context, userID string, filters repositories.NoteFilters) (*NoteListResponse, error)
	Get(ctx context.Context, userID, noteID string) (*models.Note, error)
	Create(ctx context.Context, userID string, req *validator.CreateNoteRequest) (*models.Note, error)
	Update(ctx context.Context, userID, noteID string, req *validator.UpdateNoteRequest) (*models.Note, error)
	Delete(ctx context.Context, userID, noteID string) error
	ListVersions(ctx context.Context, userID, noteID string) ([]*models.NoteVersion, error)
	RestoreVersion(ctx context.Context, userID, versionID string) (*models.Note, error)
}

type UserService interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// SyncFromIdentity pulls the identity provider's profile into the local store
	SyncFromIdentity(ctx context.Context, externalID string) (*models.User, error)
	UpsertFromIdentity(ctx context.Context, identity *repositories.Identity) (*models.User, error)

	// EnqueueIdentityEvent hands a verified webhook to the message bus
	EnqueueIdentityEvent(ctx context.Context, event *webhooks.IdentityEvent) error
	HandleIdentityEvent(ctx context.Context, event *webhooks.IdentityEvent) error
}

type ServiceManager interface {
	Auth() AuthService
	Face() FaceService
	Learning() LearningService
	Note() NoteService
	User() UserService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// ===== RESPONSE TYPES =====

type SessionResponse struct {
	User       *models.User `json:"user"`
	Token      string       `json:"token"`
	ExpiresAt  time.Time    `json:"expires_at"`
	AuthMethod auth.Method  `json:"auth_method"`
}

type FaceLoginResponse struct {
	Recognized bool    `json:"recognized"`
	Score      float64 `json:"score"`
	// Distance between the unit-length query and the best candidate
	Distance *float64         `json:"distance,omitempty"`
	Session  *SessionResponse `json:"session,omitempty"`
}

type FaceStatusResponse struct {
	Enrolled  bool       `json:"enrolled"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

type PlanResponse struct {
	Topic   string `json:"topic"`
	Content string `json:"content"`
}

type QuizResponse struct {
	Topic     string                `json:"topic"`
	Questions []models.QuizQuestion `json:"questions"`
}

type ExplanationResponse struct {
	Explanation string `json:"explanation"`
}

type HistoryResponse struct {
	LearningPlans []*models.LearningPlan `json:"learning_plans"`
	QuizResults   []*models.QuizResult   `json:"quiz_results"`
}

type StatsResponse struct {
	Period string                           `json:"period"`
	Totals *repositories.UserTotals         `json:"totals"`
	Trends []repositories.ActivityTrendData `json:"trends"`
}

type NoteListResponse struct {
	Notes []*models.Note `json:"notes"`
	Total int64          `json:"total"`
}
