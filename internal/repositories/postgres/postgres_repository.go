package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/study-assistant-service/internal/cache"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories"
	"github.com/SAP-F-2025/study-assistant-service/internal/repositories/casdoor"
)

// PostgreSQLRepository implements the main Repository interface
type PostgreSQLRepository struct {
	db           *gorm.DB
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	// Repository instances
	user          repositories.UserRepository
	identity      repositories.IdentityRepository
	faceEmbedding repositories.FaceEmbeddingRepository
	learningPlan  repositories.LearningPlanRepository
	quizResult    repositories.QuizResultRepository
	note          repositories.NoteRepository
	noteVersion   repositories.NoteVersionRepository
	stats         repositories.StatsRepository
}

// RepositoryConfig holds configuration for repository initialization
type RepositoryConfig struct {
	DB            *gorm.DB
	RedisClient   *redis.Client
	CasdoorConfig casdoor.CasdoorConfig

	// Identity overrides the Casdoor-backed identity provider when set
	Identity repositories.IdentityRepository
}

// NewPostgreSQLRepository creates a new repository with all sub-repositories
func NewPostgreSQLRepository(config RepositoryConfig) *PostgreSQLRepository {
	cacheManager := cache.NewCacheManager(config.RedisClient)

	identity := config.Identity
	if identity == nil {
		// Identity provider is external and never joins a transaction
		identity = casdoor.NewIdentityCasdoor(config.CasdoorConfig, cacheManager.Identity)
	}

	repo := &PostgreSQLRepository{
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
		identity:     identity,
	}
	repo.bind(config.DB)

	return repo
}

// bind points every database-backed sub-repository at db
func (r *PostgreSQLRepository) bind(db *gorm.DB) {
	r.db = db
	r.user = NewUserRepository(db)
	r.faceEmbedding = NewFaceEmbeddingRepository(db)
	r.learningPlan = NewLearningPlanRepository(db)
	r.quizResult = NewQuizResultRepository(db)
	r.note = NewNoteRepository(db)
	r.noteVersion = NewNoteVersionRepository(db)
	r.stats = NewStatsRepository(db)
}

func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

func (r *PostgreSQLRepository) Identity() repositories.IdentityRepository {
	return r.identity
}

func (r *PostgreSQLRepository) FaceEmbedding() repositories.FaceEmbeddingRepository {
	return r.faceEmbedding
}

func (r *PostgreSQLRepository) LearningPlan() repositories.LearningPlanRepository {
	return r.learningPlan
}

func (r *PostgreSQLRepository) QuizResult() repositories.QuizResultRepository {
	return r.quizResult
}

func (r *PostgreSQLRepository) Note() repositories.NoteRepository {
	return r.note
}

func (r *PostgreSQLRepository) NoteVersion() repositories.NoteVersionRepository {
	return r.noteVersion
}

func (r *PostgreSQLRepository) Stats() repositories.StatsRepository {
	return r.stats
}

// CacheManager exposes the shared cache helpers
func (r *PostgreSQLRepository) CacheManager() *cache.CacheManager {
	return r.cacheManager
}

// WithTransaction executes a function within a database transaction
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &PostgreSQLRepository{
			redisClient:  r.redisClient,
			cacheManager: r.cacheManager,
			identity:     r.identity,
		}
		txRepo.bind(tx)

		return fn(txRepo)
	})
}

// Ping checks the health of database and cache connections
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}

	return nil
}

// Close closes all connections
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}

	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   *PostgreSQLRepository
}

// NewRepositoryManager creates a new repository manager
func NewRepositoryManager(config RepositoryConfig) *RepositoryManager {
	return &RepositoryManager{
		config: config,
	}
}

// Initialize checks connections and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.DB == nil {
		return fmt.Errorf("database connection is required")
	}

	sqlDB, err := rm.config.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}

	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}

	rm.repo = NewPostgreSQLRepository(rm.config)

	return nil
}

// GetRepository returns the repository instance
func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

// CacheManager returns the cache manager built during Initialize
func (rm *RepositoryManager) CacheManager() *cache.CacheManager {
	if rm.repo == nil {
		return cache.NewCacheManager(nil)
	}
	return rm.repo.CacheManager()
}

// HealthCheck checks the health of all repository connections
func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}

	return rm.repo.Ping(ctx)
}

// Shutdown gracefully shuts down all repository connections
func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}

	return rm.repo.Close()
}
