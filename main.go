package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/SAP-F-2025/study-assistant-service/internal/auth"
	"github.com/SAP-F-2025/study-assistant-service/internal/completion"
	"github.com/SAP-F-2025/study-assistant-service/internal/config"
	"github.com/SAP-F-2025/study-assistant-service/internal/events"
	"github.com/SAP-F-2025/study-assistant-service/internal/facematch"
	"github.com/SAP-F-2025/study-assistant-service/internal/handlers"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories/casdoor"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/study-assistant-service/internal/services"
	"github.com/SAP-F-2025/study-assistant-service/internal/utils"
	"github.com/SAP-F-2025/study-assistant-service/internal/validator"
	"github.com/SAP-F-2025/study-assistant-service/internal/webhooks"
	"github.com/SAP-F-2025/study-assistant-service/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	logger := utils.NewSlogLogger(slogLogger)

	// Initialize database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Redis backs session revocation, face-login throttling and identity caching
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = pkg.NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, running without cache", "error", err)
			redisClient = nil
		}
	}

	// Initialize repositories
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		log.Fatalf("Failed to initialize repositories: %v", err)
	}
	caches := repoManager.CacheManager()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Completion service
	var generator completion.Generator = completion.NewUnavailableGenerator()
	if cfg.Gemini.APIKey != "" {
		gemini, err := completion.NewGeminiGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			log.Fatalf("Failed to initialize completion client: %v", err)
		}
		generator = gemini
	} else {
		logger.Warn("GEMINI_API_KEY not set, learning generation is disabled")
	}

	// Event bus
	bus, err := events.NewBus(events.BusConfig{KafkaBrokers: cfg.Kafka.Brokers}, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize event bus: %v", err)
	}

	// Initialize services
	serviceManager := services.NewServiceManager(
		repoManager.GetRepository(),
		slogLogger,
		validator.New(validator.WithEmbeddingDimensions(cfg.Face.EmbeddingDimensions)),
		services.ServiceManagerConfig{
			Sessions:         auth.NewSessionManager(cfg.Session.Secret, cfg.Session.TTL, caches.Sessions),
			FaceLoginLimiter: auth.NewRateLimiter(caches.RateLimit, cfg.Face.LoginRateLimit, cfg.Face.LoginRateWindow),
			StatsCache:       caches.Stats,
			Matcher:          facematch.NewMatcher(cfg.Face.MatchThreshold),
			Generator:        generator,
			Publisher:        bus,
		},
	)
	if err := serviceManager.Initialize(ctx); err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Identity webhooks are applied asynchronously by this consumer
	bus.AddHandler("identity_sync", events.TopicIdentity, services.IdentityEventHandler(serviceManager.User()))
	busErr := make(chan error, 1)
	go func() {
		busErr <- bus.Run(ctx)
	}()
	select {
	case <-bus.Running():
	case err := <-busErr:
		log.Fatalf("Failed to start event bus: %v", err)
	}

	var verifier *webhooks.Verifier
	if cfg.WebhookSecret != "" {
		verifier, err = webhooks.NewVerifier(cfg.WebhookSecret)
		if err != nil {
			log.Fatalf("Failed to initialize webhook verifier: %v", err)
		}
	} else {
		logger.Warn("WEBHOOK_SECRET not set, identity webhooks will be rejected")
	}

	// Initialize handlers
	handlerManager := handlers.NewHandlerManager(serviceManager, verifier, logger, cfg.Session.SecureCookie)

	// Setup Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger, cfg.AllowedOrigins)
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if err := serviceManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}

	if err := bus.Close(); err != nil {
		logger.Error("Failed to close event bus", "error", err)
	}

	// Closes Postgres and Redis
	if err := repoManager.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to close repositories", "error", err)
	}

	logger.Info("Server exited")
}
