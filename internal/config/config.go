// Package config centralizes resolution of this service's environment
// variables. Configuration is env-var-only; there is no config-file layer.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/extended-memory/mcp-storage/internal/connstring"
)

// Config holds the resolved environment for one process run.
type Config struct {
	ConnectionString      string
	RedisKeyPrefix        string
	RedisTTLHours         int
	LogLevel              slog.Level
	CustomInstructionPath string
}

const (
	defaultRedisKeyPrefix = "extended_memory"
	defaultRedisTTLHours  = 8760
)

// Load resolves Config from the environment, with override taking priority
// over STORAGE_CONNECTION_STRING.
func Load(connectionOverride string) Config {
	return Config{
		ConnectionString:      connstring.DefaultConnectionString(connectionOverride),
		RedisKeyPrefix:        envOr("REDIS_KEY_PREFIX", defaultRedisKeyPrefix),
		RedisTTLHours:         envIntOr("REDIS_TTL_HOURS", defaultRedisTTLHours),
		LogLevel:              parseLogLevel(os.Getenv("LOG_LEVEL")),
		CustomInstructionPath: os.Getenv("CUSTOM_INSTRUCTION_PATH"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// parseLogLevel maps the LOG_LEVEL six-level scale onto slog.Level. TRACE
// and CRITICAL have no direct slog equivalent: TRACE sits one step below
// Debug, CRITICAL one step above Error.
func parseLogLevel(raw string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "TRACE":
		return slog.LevelDebug - 4
	case "DEBUG":
		return slog.LevelDebug
	case "INFO", "":
		return slog.LevelInfo
	case "WARNING", "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	case "CRITICAL":
		return slog.LevelError + 4
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process-wide structured logger: text handler on
// stderr, level from LOG_LEVEL.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
