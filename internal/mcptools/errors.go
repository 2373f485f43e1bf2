package mcptools

import "fmt"

func errImportanceRange(level int) error {
	return fmt.Errorf("importance_level %d out of range 1..10", level)
}

func errTooManyTags(n int) error {
	return fmt.Errorf("tags_filter has %d entries, maximum is %d", n, maxTagsFilter)
}
