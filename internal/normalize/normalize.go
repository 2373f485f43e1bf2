// Package normalize implements project-id normalization: a pure, idempotent
// fold of whatever identifier a caller supplies onto a canonical form, so
// visually-distinct spellings of the same project collide by design.
package normalize

import "strings"

// DefaultFallback is the project id substituted for empty/whitespace input
// when no fallback override is configured.
const DefaultFallback = "general"

var replacer = strings.NewReplacer("_", " ", "-", " ")

// ProjectID normalizes projectID against fallback. Pass DefaultFallback (or
// an operator-configured value read from the environment) as fallback.
//
// normalize("My_Project") == normalize("my-project") == normalize("  MY  PROJECT  ") == "my project"
// normalize("") == normalize("   ") == fallback
func ProjectID(projectID, fallback string) string {
	if strings.TrimSpace(projectID) == "" {
		return fallback
	}
	normalized := strings.ToLower(strings.TrimSpace(projectID))
	normalized = replacer.Replace(normalized)
	return strings.Join(strings.Fields(normalized), " ")
}

// IsDefaultProject reports whether projectID (already normalized) equals
// fallback.
func IsDefaultProject(projectID, fallback string) bool {
	return projectID == fallback
}
