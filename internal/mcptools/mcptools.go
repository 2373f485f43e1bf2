// Package mcptools is the tool-dispatch layer the JSON-RPC framing calls
// into: it maps the five named operations onto memory.Storage and
// initservice.Service, validating the tags_filter length cap and the
// tags_filter=>init_load=false rule.
package mcptools

import (
	"context"
	"log/slog"

	"github.com/extended-memory/mcp-storage/internal/initservice"
	"github.com/extended-memory/mcp-storage/internal/memerr"
	"github.com/extended-memory/mcp-storage/internal/memory"
	"github.com/extended-memory/mcp-storage/internal/normalize"
)

// maxTagsFilter caps how many tags_filter entries one call may pass.
const maxTagsFilter = 10

// Handler dispatches the five named operations onto storage + init.
type Handler struct {
	storage         memory.Storage
	init            *initservice.Service
	log             *slog.Logger
	fallback        string
	instructionPath func() string
}

// Option customizes New.
type Option func(*Handler)

// WithLogger overrides the default slog.Logger.
func WithLogger(l *slog.Logger) Option { return func(h *Handler) { h.log = l } }

// WithFallbackProject overrides the project-id normalization fallback.
func WithFallbackProject(name string) Option {
	return func(h *Handler) {
		if name != "" {
			h.fallback = name
		}
	}
}

// WithInstructionPath supplies the CUSTOM_INSTRUCTION_PATH resolver used by
// the init_load path. A func rather than a plain string so tests can change
// it between calls.
func WithInstructionPath(f func() string) Option {
	return func(h *Handler) { h.instructionPath = f }
}

// New builds a Handler over storage and its init service.
func New(storage memory.Storage, init *initservice.Service, opts ...Option) *Handler {
	h := &Handler{
		storage:         storage,
		init:            init,
		log:             slog.Default(),
		fallback:        normalize.DefaultFallback,
		instructionPath: func() string { return "" },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SaveContextArgs mirrors the `save_context` tool's flat argument record.
type SaveContextArgs struct {
	Content         string
	ImportanceLevel int
	ProjectID       string
	Tags            []string
}

// SaveContext validates and normalizes its arguments then delegates to the
// storage trait.
func (h *Handler) SaveContext(ctx context.Context, args SaveContextArgs) (string, error) {
	const op = "mcptools.SaveContext"
	if args.ImportanceLevel < 1 || args.ImportanceLevel > 10 {
		return "", memerr.ValidationErr(op, errImportanceRange(args.ImportanceLevel))
	}
	projectID := normalize.ProjectID(args.ProjectID, h.fallback)
	return h.storage.SaveContext(ctx, args.Content, args.ImportanceLevel, projectID, args.Tags)
}

// LoadContextsArgs mirrors the `load_contexts` tool's flat argument record.
type LoadContextsArgs struct {
	ProjectID       string
	ImportanceLevel int // minimum; zero means "no threshold"
	Limit           int
	TagsFilter      []string
	InitLoad        bool
}

// LoadContextsResult is what the `load_contexts` tool returns: contexts,
// plus an instruction when this was an init-time load.
type LoadContextsResult struct {
	Contexts        []memory.Context
	InitInstruction string
}

// LoadContexts implements the tags_filter=>init_load=false rule and the
// ≤10-entry cap before delegating to either a plain LoadContexts or the
// init service's smart-load-plus-instruction composition.
func (h *Handler) LoadContexts(ctx context.Context, args LoadContextsArgs) (LoadContextsResult, error) {
	const op = "mcptools.LoadContexts"
	if len(args.TagsFilter) > maxTagsFilter {
		return LoadContextsResult{}, memerr.ValidationErr(op, errTooManyTags(len(args.TagsFilter)))
	}

	projectID := normalize.ProjectID(args.ProjectID, h.fallback)
	initLoad := args.InitLoad
	if len(args.TagsFilter) > 0 {
		initLoad = false
	}

	if initLoad {
		result, err := h.init.LoadInitContexts(ctx, projectID, args.Limit, h.instructionPath())
		if err != nil {
			return LoadContextsResult{}, err
		}
		return LoadContextsResult{Contexts: result.Contexts, InitInstruction: result.InitInstruction}, nil
	}

	rows, err := h.storage.LoadContexts(ctx, memory.LoadFilter{
		ProjectID:           projectID,
		Limit:               args.Limit,
		ImportanceThreshold: args.ImportanceLevel,
		TagsFilter:          args.TagsFilter,
	})
	if err != nil {
		return LoadContextsResult{}, err
	}
	return LoadContextsResult{Contexts: rows}, nil
}

// ForgetContext is the `forget_context` tool: an alias of DeleteContext.
func (h *Handler) ForgetContext(ctx context.Context, contextID string) (bool, error) {
	return memory.ForgetContext(ctx, h.storage, contextID)
}

// ListAllProjects is the `list_all_projects` tool.
func (h *Handler) ListAllProjects(ctx context.Context) ([]memory.ProjectInfo, error) {
	return h.storage.ListAllProjects(ctx)
}

// GetPopularTagsArgs mirrors the `get_popular_tags` tool's flat argument
// record.
type GetPopularTagsArgs struct {
	Limit     int
	MinUsage  int
	ProjectID string
}

// GetPopularTags is the `get_popular_tags` tool.
func (h *Handler) GetPopularTags(ctx context.Context, args GetPopularTagsArgs) ([]memory.PopularTag, error) {
	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}
	minUsage := args.MinUsage
	if minUsage <= 0 {
		minUsage = 2
	}
	var projectID string
	if args.ProjectID != "" {
		projectID = normalize.ProjectID(args.ProjectID, h.fallback)
	}
	return h.storage.GetPopularTags(ctx, limit, minUsage, projectID)
}
