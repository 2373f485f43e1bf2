package config_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/extended-memory/mcp-storage/internal/config"
)

func TestLoad_OverrideTakesPriorityOverEnv(t *testing.T) {
	t.Setenv("STORAGE_CONNECTION_STRING", "sqlite:///env-path.db")
	cfg := config.Load("sqlite:///override-path.db")
	assert.Contains(t, cfg.ConnectionString, "override-path.db")
}

func TestLoad_FallsBackToEnvWhenNoOverride(t *testing.T) {
	t.Setenv("STORAGE_CONNECTION_STRING", "sqlite:///env-path.db")
	cfg := config.Load("")
	assert.Contains(t, cfg.ConnectionString, "env-path.db")
}

func TestLoad_RedisDefaults(t *testing.T) {
	os.Unsetenv("REDIS_KEY_PREFIX")
	os.Unsetenv("REDIS_TTL_HOURS")
	cfg := config.Load("sqlite:///x.db")
	assert.Equal(t, "extended_memory", cfg.RedisKeyPrefix)
	assert.Equal(t, 8760, cfg.RedisTTLHours)
}

func TestLoad_LogLevelParsing(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")
	cfg := config.Load("sqlite:///x.db")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestNewLogger(t *testing.T) {
	logger := config.NewLogger(slog.LevelInfo)
	require.NotNil(t, logger)
}
