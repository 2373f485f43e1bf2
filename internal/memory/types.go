// Package memory defines the shared data model and the Storage contract
// both backends satisfy: contexts, tags, popular-tag and project summaries,
// and the filter/result types the query planner operates on.
package memory

import "time"

// Status is the lifecycle state of a Context. The core only ever produces
// StatusActive; other values are reserved for filtering.
type Status string

const StatusActive Status = "active"

// Context is a single stored memory artifact.
type Context struct {
	ID               string
	Content          string
	ImportanceLevel  int
	ProjectID        string
	Tags             []string
	CreatedAt        time.Time
	Status           Status
	ExpiresAt        *time.Time
	AccessCount      int
	LastAccessed     time.Time
}

// PopularTag is a derived {tag, count} record, never persisted on its own.
type PopularTag struct {
	Tag   string
	Count int
}

// ProjectInfo is a derived {id, name, context_count} record computed by
// scanning distinct project ids; not backed by a dedicated table read path.
type ProjectInfo struct {
	ID           string
	Name         string
	ContextCount int
}

// TagPattern is produced by AnalyzeTagPatterns.
type TagPattern struct {
	Tag           string
	UsageCount    int
	AvgImportance float64
	LatestUsage   time.Time
	ProjectCount  int
}

// StorageStats summarizes a backend's current contents.
type StorageStats struct {
	ActiveContexts  int
	DistinctProjects int
	TagCount        int
	ByteSize        int64
	OldestContext   *time.Time
	NewestContext   *time.Time
	ImportanceHistogram map[int]int
}

// LoadFilter parameterizes LoadContexts.
type LoadFilter struct {
	ProjectID          string
	Limit              int
	Offset             int
	ImportanceThreshold int
	TagsFilter         []string
}

// SearchFilter parameterizes SearchContexts. ContentSearch is a reserved
// substring hook; implementers may leave it unused per the query-planner
// rules.
type SearchFilter struct {
	ProjectID       string
	ImportanceMin   int
	TagsFilter      []string
	ContentSearch   string
	Limit           int
}

// InitResult is the composite package returned by LoadInitContexts.
type InitResult struct {
	InitInstruction string
	Contexts        []Context
	Metadata        map[string]any
}
