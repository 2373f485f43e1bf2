// Package instructionfile loads the operator-authored instruction blob
// attached to a session-init response. Beyond reading the file verbatim it
// supports an optional YAML front-matter block feeding `{{variable}}`
// substitution, with no conditionals. A plain file with no front-matter is
// returned as-is.
package instructionfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/extended-memory/mcp-storage/internal/memerr"
)

// allowedExtensions limits instruction files to plain-text formats.
var allowedExtensions = map[string]bool{
	".md":       true,
	".txt":      true,
	".text":     true,
	".markdown": true,
}

// blockedPrefixes are system locations an instruction file may never be
// read from. Checked against the path after `~` expansion and symlink
// resolution.
var blockedPrefixes = []string{
	"/etc/", "/proc/", "/sys/", "/dev/", "/bin/", "/sbin/",
	"/usr/bin/", "/usr/sbin/",
	"~/.ssh/", "~/.aws/",
}

// Load reads and renders the instruction file at path, returning "" if path
// is empty (no CUSTOM_INSTRUCTION_PATH configured). A blocked path or an
// unsupported extension is a Permission error that must propagate, never be
// swallowed into an empty string.
func Load(path string, vars map[string]string) (string, error) {
	const op = "instructionfile.Load"
	if strings.TrimSpace(path) == "" {
		return "", nil
	}

	if err := checkExtension(path); err != nil {
		return "", memerr.PermissionErr(op, err)
	}

	resolved, err := resolvePath(path)
	if err != nil {
		return "", memerr.PermissionErr(op, err)
	}

	raw, err := os.ReadFile(resolved)
	if err != nil {
		// A safety-check failure (extension, blocked prefix) is a Permission
		// error and must propagate; a file that simply isn't there or can't
		// be read is a Storage-kind failure the caller is free to fall back
		// on.
		return "", memerr.StorageErr(op, fmt.Errorf("read instruction file: %w", err))
	}

	front, body := splitFrontMatter(string(raw))
	merged := mergeVars(front, vars)
	return render(body, merged), nil
}

// checkExtension validates the extension allowlist, cheaply, before any
// filesystem access (including symlink resolution) happens.
func checkExtension(path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !allowedExtensions[ext] {
		return fmt.Errorf("instruction file extension %q is not allowed", ext)
	}
	return nil
}

// resolvePath expands `~`, resolves the path to absolute, and follows
// symlinks before the final safety check — the blocked-prefix check must
// see where a symlink actually points, not just its apparent location. The
// check runs on the pre-symlink absolute path too, so a blocked location is
// refused even when nothing exists there yet.
func resolvePath(path string) (string, error) {
	expanded := expandTilde(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve instruction path: %w", err)
	}
	if err := checkBlocked(abs); err != nil {
		return "", err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		// Missing file is reported by the subsequent ReadFile; only a
		// resolution failure distinct from "doesn't exist" is fatal here.
		if os.IsNotExist(err) {
			return abs, nil
		}
		return "", fmt.Errorf("resolve instruction path symlinks: %w", err)
	}
	if err := checkBlocked(real); err != nil {
		return "", err
	}
	return real, nil
}

func checkBlocked(path string) error {
	for _, prefix := range blockedPrefixes {
		blocked := expandTilde(prefix)
		// expandTilde routes through filepath.Join, which strips the
		// trailing separator the prefix match depends on.
		if !strings.HasSuffix(blocked, "/") {
			blocked += "/"
		}
		if strings.HasPrefix(path, blocked) {
			return fmt.Errorf("instruction path resolves under a blocked prefix: %s", path)
		}
	}
	return nil
}

func expandTilde(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// splitFrontMatter separates a leading `---\n...\n---\n` YAML block from the
// rest of the file. Returns an empty map and the original content unchanged
// if no front-matter is present.
func splitFrontMatter(content string) (map[string]string, string) {
	const delim = "---"
	if !strings.HasPrefix(content, delim) {
		return nil, content
	}
	rest := content[len(delim):]
	rest = strings.TrimPrefix(rest, "\n")
	end := strings.Index(rest, "\n"+delim)
	if end == -1 {
		return nil, content
	}
	yamlBlock := rest[:end]
	body := strings.TrimPrefix(rest[end+1+len(delim):], "\n")

	var front map[string]string
	if err := yaml.Unmarshal([]byte(yamlBlock), &front); err != nil {
		return nil, content
	}
	return front, body
}

func mergeVars(front map[string]string, vars map[string]string) map[string]string {
	merged := make(map[string]string, len(front)+len(vars))
	for k, v := range front {
		merged[k] = v
	}
	for k, v := range vars {
		merged[k] = v
	}
	return merged
}

// render substitutes `{{name}}` placeholders with merged values. An unknown
// placeholder is left untouched rather than erroring.
func render(body string, vars map[string]string) string {
	if len(vars) == 0 {
		return body
	}
	out := body
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{{"+name+"}}", value)
	}
	return out
}
