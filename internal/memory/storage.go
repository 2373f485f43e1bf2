package memory

import "context"

// Storage is the uniform contract both backends satisfy. Every method that
// can return multiple contexts must attach tags through exactly one batch
// round-trip; see the implementations' LoadContextsByIDs for the shared
// invariant this interface exists to enforce.
type Storage interface {
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) bool

	SaveContext(ctx context.Context, content string, importance int, projectID string, tags []string) (string, error)
	LoadContext(ctx context.Context, id string) (*Context, error)
	LoadContexts(ctx context.Context, filter LoadFilter) ([]Context, error)
	LoadContextsByIDs(ctx context.Context, ids []string) ([]Context, error)
	UpdateContext(ctx context.Context, id string, content *string, importance *int) (bool, error)
	DeleteContext(ctx context.Context, id string) (bool, error)
	SearchContexts(ctx context.Context, filter SearchFilter) ([]Context, error)

	GetContextTags(ctx context.Context, id string) ([]string, error)
	AddContextTag(ctx context.Context, id, tag string) (bool, error)

	GetPopularTags(ctx context.Context, limit, minUsage int, projectID string) ([]PopularTag, error)
	FindContextsByTag(ctx context.Context, tag, projectID string) ([]string, error)
	FindContextsByMultipleTags(ctx context.Context, tags []string, projectID string, limit int) ([]Context, error)

	ListAllProjects(ctx context.Context) ([]ProjectInfo, error)
	GetStorageStats(ctx context.Context) (StorageStats, error)
	AnalyzeTagPatterns(ctx context.Context, limit int) ([]TagPattern, error)

	CleanupExpired(ctx context.Context) (int, error)
	CleanupUnusedTags(ctx context.Context) (int, error)

	LoadHighImportanceContexts(ctx context.Context, limit int) ([]Context, error)

	Close() error
}

// ForgetContext is the documented alias for DeleteContext. Kept as a free
// function rather than a second interface method so both backends share one
// implementation of the alias.
func ForgetContext(ctx context.Context, s Storage, id string) (bool, error) {
	return s.DeleteContext(ctx, id)
}
