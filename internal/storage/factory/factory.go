// Package factory builds a memory.Storage from a parsed connection
// descriptor, dispatching on the descriptor's provider.
//
// No silent fallback: a backend construction failure always propagates to
// the caller. If the chosen backend fails to initialize, the process must
// fail loudly rather than substitute a different one — data written through
// a substituted backend would land in the wrong place.
package factory

import (
	"context"
	"log/slog"
	"time"

	"github.com/extended-memory/mcp-storage/internal/connstring"
	"github.com/extended-memory/mcp-storage/internal/memerr"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/storage/rediskv"
	"github.com/extended-memory/mcp-storage/internal/storage/sqlite"
)

// Options carries the environment-derived overrides New needs beyond what
// the connection string itself encodes.
type Options struct {
	Logger         *slog.Logger
	RedisKeyPrefix string
	RedisTTLHours  int
	FallbackProject string
}

// New parses raw and constructs the matching backend, calling Initialize
// before returning so a misconfigured store fails here rather than on its
// first real operation.
func New(ctx context.Context, raw string, opts Options) (memory.Storage, error) {
	const op = "factory.New"
	desc, err := connstring.Parse(raw)
	if err != nil {
		return nil, err // Configuration errors propagate unwrapped-but-annotated already.
	}
	return NewFromDescriptor(ctx, desc, opts)
}

// NewFromDescriptor builds the backend a Descriptor selects. Exported
// separately from New so callers that already parsed a connection string
// (e.g. to validate it up front) don't parse twice.
func NewFromDescriptor(ctx context.Context, desc *connstring.Descriptor, opts Options) (memory.Storage, error) {
	const op = "factory.NewFromDescriptor"
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	fallback := opts.FallbackProject
	if fallback == "" {
		fallback = "general"
	}

	var store memory.Storage
	switch desc.Provider {
	case connstring.ProviderSQLite:
		s, err := sqlite.New(desc.SQLite, sqlite.WithLogger(logger), sqlite.WithFallbackProject(fallback))
		if err != nil {
			return nil, err
		}
		store = s
	case connstring.ProviderRedis:
		redisOpts := []rediskv.Option{
			rediskv.WithLogger(logger),
			rediskv.WithFallbackProject(fallback),
		}
		if opts.RedisKeyPrefix != "" {
			redisOpts = append(redisOpts, rediskv.WithKeyPrefix(opts.RedisKeyPrefix))
		}
		if opts.RedisTTLHours > 0 {
			redisOpts = append(redisOpts, rediskv.WithTTL(time.Duration(opts.RedisTTLHours)*time.Hour))
		}
		s, err := rediskv.New(desc.Redis, redisOpts...)
		if err != nil {
			return nil, err
		}
		store = s
	case connstring.ProviderPostgreSQL:
		return nil, memerr.Configf(op, "postgresql scheme is recognized but reserved: no backend implements it")
	default:
		return nil, memerr.Configf(op, "unsupported storage provider %q", desc.Provider)
	}

	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

