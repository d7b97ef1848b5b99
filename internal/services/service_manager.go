package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/completion"
	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
)

// ServiceManagerConfig holds the collaborators shared by the services
type ServiceManagerConfig struct {
	Sessions         *auth.SessionManager
	FaceLoginLimiter *auth.RateLimiter
	Matcher          *facematch.Matcher
	Generator        completion.Generator
	Publisher        events.EventPublisher

	// StatsCache is optional; without it statistics are computed per request
	StatsCache *cache.CacheHelper
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	// Dependencies
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	config    ServiceManagerConfig

	// Service instances
	authService     AuthService
	faceService     FaceService
	learningService LearningService
	noteService     NoteService
	userService     UserService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(repo repositories.Repository, logger *slog.Logger, validator *validator.Validator, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		config:    config,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.validateConfig(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if sm.config.Generator == nil {
		sm.logger.Warn("No completion generator configured, learning generation is disabled")
		sm.config.Generator = completion.NewUnavailableGenerator()
	}
	if sm.config.StatsCache == nil {
		sm.config.StatsCache = cache.NewCacheHelper(nil, cache.StatsCacheConfig.Prefix)
	}
	if sm.config.Matcher == nil {
		sm.config.Matcher = facematch.NewMatcher(facematch.DefaultThreshold)
	}

	sm.userService = NewUserService(sm.repo, sm.config.Publisher, sm.logger)
	sm.logger.Info("User service initialized")

	sm.faceService = NewFaceService(sm.repo, sm.config.Matcher, sm.config.Publisher, sm.logger, sm.validator)
	sm.logger.Info("Face service initialized", "threshold", sm.config.Matcher.Threshold())

	sm.authService = NewAuthService(sm.repo, sm.userService, sm.faceService,
		sm.config.Sessions, sm.config.FaceLoginLimiter, sm.config.Publisher, sm.logger, sm.validator)
	sm.logger.Info("Auth service initialized")

	sm.learningService = NewLearningService(sm.repo, sm.config.Generator, sm.config.Publisher, sm.config.StatsCache, sm.logger, sm.validator)
	sm.logger.Info("Learning service initialized")

	sm.noteService = NewNoteService(sm.repo, sm.config.Publisher, sm.config.StatsCache, sm.logger, sm.validator)
	sm.logger.Info("Note service initialized")

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) validateConfig() error {
	if sm.repo == nil {
		return fmt.Errorf("repository is required")
	}
	if sm.validator == nil {
		return fmt.Errorf("validator is required")
	}
	if sm.config.Sessions == nil {
		return fmt.Errorf("session manager is required")
	}
	if sm.config.FaceLoginLimiter == nil {
		return fmt.Errorf("face login rate limiter is required")
	}
	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.authService == nil {
		panic("service manager not initialized")
	}
	return sm.authService
}

func (sm *serviceManager) Face() FaceService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.faceService == nil {
		panic("service manager not initialized")
	}
	return sm.faceService
}

func (sm *serviceManager) Learning() LearningService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.learningService == nil {
		panic("service manager not initialized")
	}
	return sm.learningService
}

func (sm *serviceManager) Note() NoteService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.noteService == nil {
		panic("service manager not initialized")
	}
	return sm.noteService
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized || sm.userService == nil {
		panic("service manager not initialized")
	}
	return sm.userService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

// Shutdown stops handing out work. Connections are owned and closed by the caller.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
