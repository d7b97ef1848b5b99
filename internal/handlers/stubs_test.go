package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
	"github.com/SAP-F-2025/study-assistant-service/internal/webhooks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testLogger() utils.Logger {
	return utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ===== STUB SERVICES =====

type stubAuth struct {
	sessions map[string]*auth.Claims

	signInResp *services.SessionResponse
	signInErr  error

	faceLoginResp *services.FaceLoginResponse
	faceLoginErr  error
	faceLoginIPs  []string

	loggedOut []*auth.Claims

	passwordChanges   []string
	changePasswordErr error
}

func (s *stubAuth) SignUp(ctx context.Context, req *validator.SignUpRequest) (*services.SessionResponse, error) {
	return s.signInResp, s.signInErr
}

func (s *stubAuth) SignIn(ctx context.Context, req *validator.SignInRequest) (*services.SessionResponse, error) {
	return s.signInResp, s.signInErr
}

func (s *stubAuth) ChangePassword(ctx context.Context, userID string, req *validator.ChangePasswordRequest) error {
	if s.changePasswordErr != nil {
		return s.changePasswordErr
	}
	s.passwordChanges = append(s.passwordChanges, userID)
	return nil
}

func (s *stubAuth) FaceLogin(ctx context.Context, req *validator.FaceEmbeddingRequest, clientIP string) (*services.FaceLoginResponse, error) {
	s.faceLoginIPs = append(s.faceLoginIPs, clientIP)
	return s.faceLoginResp, s.faceLoginErr
}

func (s *stubAuth) Logout(ctx context.Context, claims *auth.Claims) error {
	s.loggedOut = append(s.loggedOut, claims)
	return nil
}

func (s *stubAuth) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, ok := s.sessions[token]
	if !ok {
		return nil, services.ErrUnauthorized
	}
	return claims, nil
}

func (s *stubAuth) Me(ctx context.Context, userID string) (*models.User, error) {
	return &models.User{ID: userID, Email: userID + "@example.com"}, nil
}

type stubFace struct {
	enrolled map[string]bool
}

func (s *stubFace) Enroll(ctx context.Context, userID string, req *validator.FaceEmbeddingRequest) (*services.FaceStatusResponse, error) {
	s.enrolled[userID] = true
	return &services.FaceStatusResponse{Enrolled: true}, nil
}

func (s *stubFace) Status(ctx context.Context, userID string) (*services.FaceStatusResponse, error) {
	return &services.FaceStatusResponse{Enrolled: s.enrolled[userID]}, nil
}

func (s *stubFace) Remove(ctx context.Context, userID string) error {
	if !s.enrolled[userID] {
		return services.ErrFaceNotEnrolled
	}
	delete(s.enrolled, userID)
	return nil
}

func (s *stubFace) Verify(ctx context.Context, userID string, req *validator.FaceEmbeddingRequest) (*facematch.Result, error) {
	return &facematch.Result{UserID: userID, Score: 1, Matched: true}, nil
}

func (s *stubFace) Identify(ctx context.Context, query facematch.Embedding) (*facematch.Result, error) {
	return &facematch.Result{}, nil
}

type stubLearning struct {
	export    []byte
	exportErr error
	planErr   error
}

func (s *stubLearning) GeneratePlan(ctx context.Context, req *validator.GeneratePlanRequest) (*services.PlanResponse, error) {
	if s.planErr != nil {
		return nil, s.planErr
	}
	return &services.PlanResponse{Topic: req.Topic, Content: "plan"}, nil
}

func (s *stubLearning) GenerateQuiz(ctx context.Context, req *validator.GenerateQuizRequest) (*services.QuizResponse, error) {
	return &services.QuizResponse{Topic: req.Topic, Questions: []models.QuizQuestion{}}, nil
}

func (s *stubLearning) ExplainAnswer(ctx context.Context, req *validator.ExplainAnswerRequest) (*services.ExplanationResponse, error) {
	return &services.ExplanationResponse{Explanation: "because"}, nil
}

func (s *stubLearning) SavePlan(ctx context.Context, userID string, req *validator.SavePlanRequest) (*models.LearningPlan, error) {
	return &models.LearningPlan{UserID: userID, Topic: req.Topic, Content: req.Content}, nil
}

func (s *stubLearning) SaveQuizResult(ctx context.Context, userID string, req *validator.SaveQuizResultRequest) (*models.QuizResult, error) {
	return &models.QuizResult{UserID: userID, Topic: req.Topic}, nil
}

func (s *stubLearning) History(ctx context.Context, userID string, filters repositories.HistoryFilters) (*services.HistoryResponse, error) {
	return &services.HistoryResponse{
		LearningPlans: []*models.LearningPlan{},
		QuizResults:   []*models.QuizResult{},
	}, nil
}

func (s *stubLearning) ExportHistory(ctx context.Context, userID string) ([]byte, error) {
	return s.export, s.exportErr
}

func (s *stubLearning) Stats(ctx context.Context, userID, period string) (*services.StatsResponse, error) {
	if period != "" && period != services.PeriodWeek {
		return nil, fmt.Errorf("%w: unsupported period %q", services.ErrValidationFailed, period)
	}
	return &services.StatsResponse{
		Period: services.PeriodWeek,
		Totals: &repositories.UserTotals{TotalPlans: 3},
		Trends: []repositories.ActivityTrendData{},
	}, nil
}

type stubNote struct {
	filters []repositories.NoteFilters
	notes   map[string]*models.Note
}

func (s *stubNote) List(ctx context.Context, userID string, filters repositories.NoteFilters) (*services.NoteListResponse, error) {
	s.filters = append(s.filters, filters)
	return &services.NoteListResponse{Notes: []*models.Note{}}, nil
}

func (s *stubNote) Get(ctx context.Context, userID, noteID string) (*models.Note, error) {
	note, ok := s.notes[noteID]
	if !ok || note.UserID != userID {
		return nil, services.ErrNoteNotFound
	}
	return note, nil
}

func (s *stubNote) Create(ctx context.Context, userID string, req *validator.CreateNoteRequest) (*models.Note, error) {
	note := &models.Note{ID: "note-new", UserID: userID, Title: models.DefaultNoteTitle}
	if req.Title != nil {
		note.Title = *req.Title
	}
	s.notes[note.ID] = note
	return note, nil
}

func (s *stubNote) Update(ctx context.Context, userID, noteID string, req *validator.UpdateNoteRequest) (*models.Note, error) {
	note, err := s.Get(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		note.Title = *req.Title
	}
	return note, nil
}

func (s *stubNote) Delete(ctx context.Context, userID, noteID string) error {
	if _, err := s.Get(ctx, userID, noteID); err != nil {
		return err
	}
	delete(s.notes, noteID)
	return nil
}

func (s *stubNote) ListVersions(ctx context.Context, userID, noteID string) ([]*models.NoteVersion, error) {
	if _, err := s.Get(ctx, userID, noteID); err != nil {
		return nil, err
	}
	return []*models.NoteVersion{}, nil
}

func (s *stubNote) RestoreVersion(ctx context.Context, userID, versionID string) (*models.Note, error) {
	return nil, services.ErrVersionNotFound
}

type stubUser struct {
	enqueued   []*webhooks.IdentityEvent
	enqueueErr error
	synced     []string
}

func (s *stubUser) GetByID(ctx context.Context, id string) (*models.User, error) {
	return nil, services.ErrUserNotFound
}

func (s *stubUser) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	return nil, services.ErrUserNotFound
}

func (s *stubUser) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, services.ErrUserNotFound
}

func (s *stubUser) SyncFromIdentity(ctx context.Context, externalID string) (*models.User, error) {
	s.synced = append(s.synced, externalID)
	return &models.User{ExternalID: externalID}, nil
}

func (s *stubUser) UpsertFromIdentity(ctx context.Context, identity *repositories.Identity) (*models.User, error) {
	return nil, nil
}

func (s *stubUser) EnqueueIdentityEvent(ctx context.Context, event *webhooks.IdentityEvent) error {
	if s.enqueueErr != nil {
		return s.enqueueErr
	}
	s.enqueued = append(s.enqueued, event)
	return nil
}

func (s *stubUser) HandleIdentityEvent(ctx context.Context, event *webhooks.IdentityEvent) error {
	return nil
}

type stubManager struct {
	auth      *stubAuth
	face      *stubFace
	learning  *stubLearning
	note      *stubNote
	user      *stubUser
	healthErr error
}

func (m *stubManager) Auth() services.AuthService         { return m.auth }
func (m *stubManager) Face() services.FaceService         { return m.face }
func (m *stubManager) Learning() services.LearningService { return m.learning }
func (m *stubManager) Note() services.NoteService         { return m.note }
func (m *stubManager) User() services.UserService         { return m.user }

func (m *stubManager) Initialize(ctx context.Context) error  { return nil }
func (m *stubManager) HealthCheck(ctx context.Context) error { return m.healthErr }
func (m *stubManager) Shutdown(ctx context.Context) error    { return nil }

// ===== TEST SERVER =====

const (
	passwordToken = "password-token"
	faceToken     = "face-token"
	webhookSecret = "whsec_c2VjcmV0LWtleS1mb3ItdGVzdHM="
)

type testServer struct {
	router   *gin.Engine
	manager  *stubManager
	verifier *webhooks.Verifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	manager := &stubManager{
		auth: &stubAuth{sessions: map[string]*auth.Claims{
			passwordToken: sessionClaims("user-1", auth.MethodPassword),
			faceToken:     sessionClaims("user-1", auth.MethodFace),
		}},
		face:     &stubFace{enrolled: map[string]bool{}},
		learning: &stubLearning{},
		note:     &stubNote{notes: map[string]*models.Note{}},
		user:     &stubUser{},
	}

	verifier, err := webhooks.NewVerifier(webhookSecret)
	require.NoError(t, err)

	router := gin.New()
	logger := testLogger()
	SetupMiddleware(router, logger, nil)
	NewHandlerManager(manager, verifier, logger, false).SetupRoutes(router)

	return &testServer{router: router, manager: manager, verifier: verifier}
}

func sessionClaims(userID string, method auth.Method) *auth.Claims {
	claims := &auth.Claims{ExternalID: "ext-" + userID, AuthMethod: method}
	claims.Subject = userID
	claims.ID = "jti-" + string(method)
	return claims
}

type requestOption func(*http.Request)

func withBearer(token string) requestOption {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

func withCookie(token string) requestOption {
	return func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
}

func (s *testServer) do(method, path string, body interface{}, opts ...requestOption) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}
