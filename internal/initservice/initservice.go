// Package initservice orchestrates the session-init composite read: a
// "smart load" combining a high-importance slab and a recent slab, deduped
// and re-sorted, plus an operator-authored instruction blob attached on
// top (path safety delegated to internal/instructionfile).
package initservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/extended-memory/mcp-storage/internal/instructionfile"
	"github.com/extended-memory/mcp-storage/internal/memerr"
	"github.com/extended-memory/mcp-storage/internal/memory"
)

// recentWindow bounds how far back the "recent" slab looks before an item
// is dropped as stale.
const recentWindow = 7 * 24 * time.Hour

const (
	highImportanceMin = 7
	highSlabLimit     = 15
	recentImportanceMin = 4
	recentSlabLimit     = 20
)

// fallbackInstruction is returned when instruction loading fails for any
// reason other than a Permission error — the assembly step must still
// return the loaded contexts.
const fallbackInstruction = ""

// Service composes memory.Storage reads into the init-time package the
// tool-dispatch layer returns from `load_contexts` with `init_load=true`.
type Service struct {
	storage memory.Storage
	log     *slog.Logger
	nowFn   func() time.Time
}

// Option customizes New.
type Option func(*Service)

// WithLogger overrides the default slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock overrides the time source, for deterministic tests of the
// 7-day recency cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.nowFn = now }
}

// New builds a Service over storage.
func New(storage memory.Storage, opts ...Option) *Service {
	s := &Service{storage: storage, log: slog.Default(), nowFn: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadSmartContexts returns a high-importance slab union'd with a
// de-staled, de-duplicated recent slab, sorted and truncated to limit.
func (s *Service) LoadSmartContexts(ctx context.Context, projectID string, limit int) ([]memory.Context, error) {
	high, err := s.storage.LoadContexts(ctx, memory.LoadFilter{
		ProjectID:           projectID,
		ImportanceThreshold: highImportanceMin,
		Limit:               highSlabLimit,
	})
	if err != nil {
		s.log.Warn("load_smart_contexts high slab failed", "error", err)
		high = nil
	}
	recent, err := s.storage.LoadContexts(ctx, memory.LoadFilter{
		ProjectID:           projectID,
		ImportanceThreshold: recentImportanceMin,
		Limit:               recentSlabLimit,
	})
	if err != nil {
		s.log.Warn("load_smart_contexts recent slab failed", "error", err)
		recent = nil
	}

	seen := make(map[string]struct{}, len(high))
	combined := make([]memory.Context, 0, len(high)+len(recent))
	for _, c := range high {
		seen[c.ID] = struct{}{}
		combined = append(combined, c)
	}

	cutoff := s.nowFn().Add(-recentWindow)
	for _, c := range recent {
		if _, dup := seen[c.ID]; dup {
			continue
		}
		if c.CreatedAt.Before(cutoff) {
			continue
		}
		seen[c.ID] = struct{}{}
		combined = append(combined, c)
	}

	memory.SortDescending(combined)
	return memory.Truncate(combined, limit), nil
}

// LoadInitContexts assembles the {init_instruction, contexts, metadata}
// package. A Permission error from the instruction path check (a blocked
// path) propagates unconverted, never swallowed into a fallback. Every
// other instruction-loading failure falls back to an empty instruction with
// the contexts still returned.
func (s *Service) LoadInitContexts(ctx context.Context, projectID string, limit int, instructionPath string) (memory.InitResult, error) {
	contexts, err := s.LoadSmartContexts(ctx, projectID, limit)
	if err != nil {
		s.log.Warn("load_init_contexts smart load failed", "error", err)
		contexts = nil
	}

	instruction, err := instructionfile.Load(instructionPath, map[string]string{"project": projectID})
	if err != nil {
		if memerr.IsKind(err, memerr.Permission) {
			return memory.InitResult{}, err
		}
		s.log.Warn("load_init_contexts instruction load failed", "path", instructionPath, "error", err)
		instruction = fallbackInstruction
	}

	return memory.InitResult{
		InitInstruction: instruction,
		Contexts:        contexts,
		Metadata: map[string]any{
			"project_id": projectID,
			"count":      len(contexts),
		},
	}, nil
}
