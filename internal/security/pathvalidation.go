// Package security guards the file paths the daemon and plot tool write to:
// database backups and rendered recording plots.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFilenameLen bounds SanitizeFilename output, in bytes.
const maxFilenameLen = 128

// canonicalPath returns the absolute, symlink-resolved form of path. When
// path does not exist yet, the nearest existing ancestor is resolved and the
// missing tail is joined back on, so a new file under a symlinked directory
// is judged by where it would really land.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, err := filepath.Rel(dir, abs)
			if err != nil {
				return "", err
			}
			return filepath.Join(resolved, rel), nil
		}
		if dir == filepath.Dir(dir) {
			return abs, nil
		}
	}
}

// ValidatePathWithinDirectory returns an error unless filePath, after
// resolving "..", symlinks and relative components, stays inside safeDir.
// safeDir must exist.
func ValidatePathWithinDirectory(filePath, safeDir string) error {
	target, err := canonicalPath(filePath)
	if err != nil {
		return err
	}
	absDir, err := filepath.Abs(safeDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory path: %w", err)
	}
	dir, err := filepath.EvalSymlinks(absDir)
	if err != nil {
		return fmt.Errorf("failed to resolve safe directory symlinks: %w", err)
	}

	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return fmt.Errorf("path is outside safe directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s attempts to escape %s", filePath, safeDir)
	}
	return nil
}

// ValidateOutputPath accepts a path for generated output (plots, exports)
// only when it lies inside the working directory or the system temp
// directory.
func ValidateOutputPath(filePath string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	allowed := []string{cwd, os.TempDir()}
	for _, dir := range allowed {
		if ValidatePathWithinDirectory(filePath, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("output path %s must be within one of %v", filePath, allowed)
}

// SanitizeFilename turns an identifier such as a recording id into a safe
// file name component. Runs of characters other than ASCII letters, digits,
// '.', '_' and '-' become a single '_'; leading and trailing dots and
// underscores are trimmed. An empty result is "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	pendingUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		safe := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
			r == '.' || r == '_' || r == '-'
		if !safe {
			if !pendingUnderscore {
				b.WriteByte('_')
				pendingUnderscore = true
			}
			continue
		}
		b.WriteRune(r)
		pendingUnderscore = false
	}
	if out := strings.Trim(b.String(), "._"); out != "" {
		return out
	}
	return "unknown"
}
