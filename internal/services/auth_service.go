package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/models"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

const faceLoginRateKeyPrefix = "face-login:"

type authService struct {
	repo      repositories.Repository
	users     UserService
	faces     FaceService
	sessions  *auth.SessionManager
	limiter   *auth.RateLimiter
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAuthService(
	repo repositories.Repository,
	users UserService,
	faces FaceService,
	sessions *auth.SessionManager,
	limiter *auth.RateLimiter,
	publisher events.EventPublisher,
	logger *slog.Logger,
	validator *validator.Validator,
) AuthService {
	return &authService{
		repo:      repo,
		users:     users,
		faces:     faces,
		sessions:  sessions,
		limiter:   limiter,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// ===== PASSWORD FLOWS =====

func (s *authService) SignUp(ctx context.Context, req *validator.SignUpRequest) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	s.logger.Info("Signing up user", "email", email)

	exists, err := s.repo.User().ExistsByEmail(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, ErrEmailTaken
	}

	// The identity may exist upstream without a local row, e.g. after a
	// failed sync or an account created in the provider console.
	existing, err := s.repo.Identity().GetIdentityByEmail(ctx, email)
	switch {
	case err == nil:
		return s.adoptIdentity(ctx, existing, req.Password)
	case !errors.Is(err, repositories.ErrIdentityNotFound):
		return nil, upstreamError("look up identity", err)
	}

	externalID, err := s.repo.Identity().CreateIdentity(ctx, email, repositories.IdentityAttributes{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return nil, upstreamError("create identity", err)
	}

	user := &models.User{
		ExternalID: externalID,
		Email:      email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
	}
	if err := s.repo.User().Create(ctx, nil, user); err != nil {
		s.compensateSignUp(ctx, externalID, email, err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	resp, err := s.newSession(user, auth.MethodPassword)
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.publisher, s.logger, events.TopicStudy, events.TypeUserSignedUp, map[string]string{
		"user_id":     user.ID,
		"external_id": user.ExternalID,
		"email":       user.Email,
	})
	s.logger.Info("User signed up", "user_id", user.ID)

	return resp, nil
}

// adoptIdentity links an upstream identity that has no local user. The
// caller must prove ownership with the upstream password, otherwise the
// email counts as taken.
func (s *authService) adoptIdentity(ctx context.Context, identity *repositories.Identity, password string) (*SessionResponse, error) {
	verified, err := s.repo.Identity().VerifyPassword(ctx, identity.Email, password)
	if err != nil {
		if errors.Is(err, repositories.ErrInvalidCredentials) {
			return nil, ErrEmailTaken
		}
		return nil, identityError("verify password", err)
	}

	user, err := s.users.UpsertFromIdentity(ctx, verified)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Linked existing identity on sign up", "user_id", user.ID, "external_id", user.ExternalID)
	return s.newSession(user, auth.MethodPassword)
}

// compensateSignUp reports an identity that exists upstream without a local
// user and tries to remove it again.
func (s *authService) compensateSignUp(ctx context.Context, externalID, email string, cause error) {
	s.logger.Error("Identity created but local user write failed",
		"external_id", externalID, "email", email, "error", cause)

	publishEvent(ctx, s.publisher, s.logger, events.TopicDivergence, events.TypeIdentityDiverged, map[string]string{
		"external_id": externalID,
		"email":       email,
		"reason":      cause.Error(),
	})

	if err := s.repo.Identity().DeleteIdentity(ctx, externalID); err != nil {
		s.logger.Error("Failed to roll back identity", "external_id", externalID, "error", err)
	}
}

func (s *authService) SignIn(ctx context.Context, req *validator.SignInRequest) (*SessionResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	identity, err := s.repo.Identity().VerifyPassword(ctx, normalizeEmail(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, identityError("verify password", err)
	}

	user, err := s.users.UpsertFromIdentity(ctx, identity)
	if err != nil {
		return nil, err
	}

	return s.newSession(user, auth.MethodPassword)
}

// ChangePassword rotates the upstream credential after re-checking the current one
func (s *authService) ChangePassword(ctx context.Context, userID string, req *validator.ChangePasswordRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.repo.Identity().VerifyPassword(ctx, user.Email, req.CurrentPassword); err != nil {
		if errors.Is(err, repositories.ErrIdentityNotFound) {
			return ErrInvalidCredentials
		}
		return identityError("verify password", err)
	}

	if err := s.repo.Identity().UpdateCredential(ctx, user.ExternalID, req.NewPassword); err != nil {
		return identityError("update credential", err)
	}

	publishEvent(ctx, s.publisher, s.logger, events.TopicStudy, events.TypePasswordChanged, map[string]string{
		"user_id":     user.ID,
		"external_id": user.ExternalID,
	})
	s.logger.Info("Password changed", "user_id", user.ID)

	return nil
}

// ===== FACE LOGIN =====

func (s *authService) FaceLogin(ctx context.Context, req *validator.FaceEmbeddingRequest, clientIP string) (*FaceLoginResponse, error) {
	allowed, err := s.limiter.Allow(ctx, faceLoginRateKeyPrefix+clientIP)
	if err != nil {
		s.logger.Warn("Face login rate limiter unavailable", "client_ip", clientIP, "error", err)
	} else if !allowed {
		return nil, ErrRateLimited
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	result, err := s.faces.Identify(ctx, req.Embedding)
	if err != nil {
		return nil, err
	}
	if !result.Matched {
		s.logger.Info("Face not recognized", "client_ip", clientIP, "score", result.Score)
		return &FaceLoginResponse{Recognized: false, Score: result.Score, Distance: result.Distance}, ErrFaceNotRecognized
	}

	user, err := s.repo.User().GetByID(ctx, nil, result.UserID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Embedding outlived its user
			s.logger.Warn("Matched embedding has no user", "user_id", result.UserID)
			return &FaceLoginResponse{Recognized: false, Score: result.Score, Distance: result.Distance}, ErrFaceNotRecognized
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	session, err := s.newSession(user, auth.MethodFace)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Face login succeeded", "user_id", user.ID, "score", result.Score)

	return &FaceLoginResponse{
		Recognized: true,
		Score:      result.Score,
		Distance:   result.Distance,
		Session:    session,
	}, nil
}

// ===== SESSIONS =====

func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if err := s.sessions.Revoke(ctx, claims); err != nil {
		if errors.Is(err, cache.ErrCacheNotAvailable) {
			s.logger.Warn("Session revocation unavailable, token stays valid until expiry", "user_id", claims.Subject)
			return nil
		}
		if errors.Is(err, auth.ErrInvalidToken) {
			return fmt.Errorf("%w: %w", ErrUnauthorized, err)
		}
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.logger.Info("User logged out", "user_id", claims.Subject)
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.sessions.Parse(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return claims, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *authService) newSession(user *models.User, method auth.Method) (*SessionResponse, error) {
	session, err := s.sessions.Issue(user.ID, user.ExternalID, method)
	if err != nil {
		return nil, fmt.Errorf("failed to issue session: %w", err)
	}

	return &SessionResponse{
		User:       user,
		Token:      session.Token,
		ExpiresAt:  session.ExpiresAt,
		AuthMethod: session.Method,
	}, nil
}
