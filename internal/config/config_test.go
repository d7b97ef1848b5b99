package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SESSION_SECRET", "dev-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, 7*24*time.Hour, cfg.Session.TTL)
	assert.False(t, cfg.Session.SecureCookie)
	assert.InDelta(t, 0.6, cfg.Face.MatchThreshold, 1e-9)
	assert.Equal(t, 128, cfg.Face.EmbeddingDimensions)
	assert.Equal(t, 10, cfg.Face.LoginRateLimit)
	assert.Equal(t, time.Minute, cfg.Face.LoginRateWindow)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SESSION_TTL", "12h")
	t.Setenv("FACE_MATCH_THRESHOLD", "0.75")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("CASDOOR_ORGANIZATION", "study")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.Session.SecureCookie)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, 12*time.Hour, cfg.Session.TTL)
	assert.InDelta(t, 0.75, cfg.Face.MatchThreshold, 1e-9)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "study", cfg.Casdoor.Organization)
}

func TestLoadConfig_DotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("GEMINI_MODEL=gemini-test\n"), 0o600))

	t.Setenv("ENV_FILE", path)
	t.Setenv("SESSION_SECRET", "dev-secret")
	// godotenv never overrides a variable that is already set; the
	// Setenv cleanup restores the original state after the file sets it
	t.Setenv("GEMINI_MODEL", "")
	os.Unsetenv("GEMINI_MODEL")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "gemini-test", cfg.Gemini.Model)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))

	t.Setenv("SESSION_SECRET", "")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "SESSION_SECRET is required")

	t.Setenv("SESSION_SECRET", "short")
	t.Setenv("ENVIRONMENT", "production")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "at least 32 characters")

	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("FACE_MATCH_THRESHOLD", "1.5")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "FACE_MATCH_THRESHOLD")
}
