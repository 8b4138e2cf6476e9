// Package progress provides ProgressSink implementations for front-ends.
package progress

import (
	"path/filepath"
	"strings"

	"mirror-go/internal/mirror"
)

// Route picks the target an event text belongs to: the target whose root
// appears in the text, or mirror.AllTargets when none does. When several
// roots match, the longest wins so "/backup" does not claim "/backup2/a.txt".
func Route(text string, roots []string) mirror.TargetHint {
	hint := mirror.AllTargets
	best := 0
	for i, root := range roots {
		if root == "" {
			continue
		}
		root = filepath.Clean(root)
		if len(root) > best && containsRoot(text, root) {
			hint = mirror.TargetHint(i)
			best = len(root)
		}
	}
	return hint
}

// containsRoot reports whether root occurs in text as a whole path, not as
// the prefix of a longer name.
func containsRoot(text, root string) bool {
	for offset := 0; ; {
		i := strings.Index(text[offset:], root)
		if i < 0 {
			return false
		}
		end := offset + i + len(root)
		if end == len(text) || strings.ContainsRune(string(filepath.Separator)+" ", rune(text[end])) {
			return true
		}
		offset += i + 1
	}
}
