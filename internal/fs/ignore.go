package fs

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is the per-source exclusion file, read from the source root.
const IgnoreFileName = ".mirrorignore"

// defaultIgnorePatterns are always applied regardless of config or .mirrorignore.
// The root-level summary log is excluded so a source that used to be a
// target can never overwrite a target's append-only log.
var defaultIgnorePatterns = []string{
	IgnoreFileName,
	"/backup_log.txt",
}

// IgnoreMatcher checks source-relative paths against gitignore-style patterns.
type IgnoreMatcher struct {
	gi *ignore.GitIgnore
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings in
// addition to the default patterns. Blank lines and '#' comments are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	lines := make([]string, 0, len(defaultIgnorePatterns)+len(rawPatterns))
	lines = append(lines, defaultIgnorePatterns...)
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		lines = append(lines, raw)
	}
	return &IgnoreMatcher{gi: ignore.CompileIgnoreLines(lines...)}
}

// Match reports whether the given relative path should be excluded.
// Directories are matched with a trailing slash so "build/" patterns apply to them.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	normalized := filepath.ToSlash(relativePath)
	if isDir {
		normalized += "/"
	}
	return m.gi.MatchesPath(normalized)
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
