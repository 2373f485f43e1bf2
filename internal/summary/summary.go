// Package summary turns loaded contexts and storage stats into the short
// human-readable text a chat client renders: a one-line stat header
// followed by bullets, built with strings.Builder.
package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/extended-memory/mcp-storage/internal/memory"
)

const (
	highImportanceThreshold = 8
	recentHoursThreshold    = 24
	maxContentLength        = 200
)

// Contexts builds the header-plus-bullets summary for a load_contexts-shaped
// response: a one-line stat header ("Found N saved contexts for project
// 'demo' including 2 from last 24h, 1 high-importance.") followed by one
// bullet per context in chronological order.
func Contexts(contexts []memory.Context, projectID string, limit int, now time.Time) string {
	if len(contexts) == 0 {
		label := projectID
		if label == "" {
			label = "global"
		}
		return fmt.Sprintf("No saved context found for project %s.", label)
	}

	header := header(contexts, projectID, limit, now)
	items := bulletItems(contexts)
	if len(items) == 0 {
		return header
	}
	return header + "\n\n" + strings.Join(items, "\n")
}

func header(contexts []memory.Context, projectID string, limit int, now time.Time) string {
	verb := "Found"
	if limit > 0 && len(contexts) == limit {
		verb = "Loaded only"
	}

	parts := []string{fmt.Sprintf("%s %d saved contexts", verb, len(contexts))}
	if projectID != "" {
		parts = append(parts, fmt.Sprintf("for project '%s'", projectID))
	}

	recentCutoff := now.Add(-recentHoursThreshold * time.Hour)
	var highImportance, recent int
	for _, c := range contexts {
		if c.ImportanceLevel >= highImportanceThreshold {
			highImportance++
		}
		if c.CreatedAt.After(recentCutoff) {
			recent++
		}
	}

	var smart []string
	if recent > 0 {
		smart = append(smart, fmt.Sprintf("%d from last %dh", recent, recentHoursThreshold))
	}
	if highImportance > 0 {
		smart = append(smart, fmt.Sprintf("%d high-importance", highImportance))
	}
	if len(smart) > 0 {
		parts = append(parts, fmt.Sprintf("including %s", strings.Join(smart, ", ")))
	}

	return strings.Join(parts, " ") + "."
}

func bulletItems(contexts []memory.Context) []string {
	sorted := make([]memory.Context, len(contexts))
	copy(sorted, contexts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	items := make([]string, 0, len(sorted))
	for _, c := range sorted {
		content := truncate(strings.TrimSpace(c.Content), maxContentLength)
		dateStr := ""
		if !c.CreatedAt.IsZero() {
			dateStr = fmt.Sprintf(" (%s)", c.CreatedAt.Format("01-02 15:04"))
		}
		items = append(items, fmt.Sprintf("**•** %s%s", content, dateStr))
	}
	return items
}

func truncate(content string, max int) string {
	if len(content) <= max {
		return content
	}
	return content[:max] + "..."
}

// Stats renders a memory.StorageStats as a short plain-text block.
func Stats(stats memory.StorageStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Active contexts: %d\n", stats.ActiveContexts)
	fmt.Fprintf(&b, "Projects: %d\n", stats.DistinctProjects)
	fmt.Fprintf(&b, "Tags: %d\n", stats.TagCount)
	fmt.Fprintf(&b, "Storage size: %d bytes\n", stats.ByteSize)
	if stats.OldestContext != nil {
		fmt.Fprintf(&b, "Oldest: %s\n", stats.OldestContext.Format(time.RFC3339))
	}
	if stats.NewestContext != nil {
		fmt.Fprintf(&b, "Newest: %s\n", stats.NewestContext.Format(time.RFC3339))
	}
	if len(stats.ImportanceHistogram) > 0 {
		b.WriteString("Importance histogram:\n")
		levels := make([]int, 0, len(stats.ImportanceHistogram))
		for level := range stats.ImportanceHistogram {
			levels = append(levels, level)
		}
		sort.Ints(levels)
		for _, level := range levels {
			fmt.Fprintf(&b, "  %d: %d\n", level, stats.ImportanceHistogram[level])
		}
	}
	return b.String()
}

// PopularTags renders a popular-tags response as plain text.
func PopularTags(tags []memory.PopularTag, minUsage int) string {
	if len(tags) == 0 {
		return fmt.Sprintf("No tags found with at least %d uses.", minUsage)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Popular Tags (min %d uses, %d found)\n\n", minUsage, len(tags))
	for _, t := range tags {
		fmt.Fprintf(&b, "- %s (%d)\n", t.Tag, t.Count)
	}
	return b.String()
}
