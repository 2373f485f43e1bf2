package rediskv

import (
	"encoding/json"
	"time"

	"github.com/extended-memory/mcp-storage/internal/memory"
)

// document is the JSON shape stored at <prefix>:context:<uuid>, with tags
// embedded in-document per the key-value backend's key layout.
type document struct {
	ID              string     `json:"id"`
	Content         string     `json:"content"`
	ImportanceLevel int        `json:"importance_level"`
	ProjectID       string     `json:"project_id"`
	Tags            []string   `json:"tags"`
	CreatedAt       time.Time  `json:"created_at"`
	Status          string     `json:"status"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	AccessCount     int        `json:"access_count"`
	LastAccessed    time.Time  `json:"last_accessed"`
}

func (d document) toContext() memory.Context {
	return memory.Context{
		ID:              d.ID,
		Content:         d.Content,
		ImportanceLevel: d.ImportanceLevel,
		ProjectID:       d.ProjectID,
		Tags:            d.Tags,
		CreatedAt:       d.CreatedAt,
		Status:          memory.Status(d.Status),
		ExpiresAt:       d.ExpiresAt,
		AccessCount:     d.AccessCount,
		LastAccessed:    d.LastAccessed,
	}
}

func marshalDocument(d document) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func unmarshalDocument(raw string) (document, error) {
	var d document
	err := json.Unmarshal([]byte(raw), &d)
	return d, err
}
