package fs

import (
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"mirror-go/internal/mirror"
)

// OSFilesystemManager is the real filesystem implementation of FilesystemManager.
type OSFilesystemManager struct {
	ignore []string // extra exclusion patterns from config
}

// NewOSFilesystemManager creates a filesystem manager that operates on the real filesystem.
// ignore holds gitignore-style patterns excluded from every walk.
func NewOSFilesystemManager(ignore []string) *OSFilesystemManager {
	return &OSFilesystemManager{ignore: ignore}
}

// Walk enumerates root depth-first. Each directory is yielded before its
// subdirectories; siblings come in lexical order. Symlinks to regular files
// are files; symlinked directories are not followed. Devices, sockets and
// pipes are skipped.
func (m *OSFilesystemManager) Walk(root string) iter.Seq2[mirror.DirectoryEntry, error] {
	return func(yield func(mirror.DirectoryEntry, error) bool) {
		matcher, err := m.matcherFor(root)
		if err != nil {
			if !yield(mirror.DirectoryEntry{}, err) {
				return
			}
		}
		m.walkDir(root, ".", matcher, yield)
	}
}

// walkDir yields rel and then recurses. It returns false once the consumer stops.
func (m *OSFilesystemManager) walkDir(root, rel string, matcher *IgnoreMatcher, yield func(mirror.DirectoryEntry, error) bool) bool {
	dir := filepath.Join(root, rel)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return yield(mirror.DirectoryEntry{}, &mirror.FileAccessError{Op: "read directory", Path: dir, Err: err})
	}

	var files, subdirs []string
	for _, entry := range entries {
		isDir, ok := classify(dir, entry)
		if !ok {
			continue
		}
		if matcher.Match(filepath.Join(rel, entry.Name()), isDir) {
			continue
		}
		if isDir {
			subdirs = append(subdirs, entry.Name())
		} else {
			files = append(files, entry.Name())
		}
	}

	if !yield(mirror.DirectoryEntry{RelativePath: rel, Files: files}, nil) {
		return false
	}
	for _, sub := range subdirs {
		if !m.walkDir(root, filepath.Join(rel, sub), matcher, yield) {
			return false
		}
	}
	return true
}

// classify reports whether entry is a directory to descend into or a file to
// mirror. ok is false for entries the walk skips.
func classify(dir string, entry fs.DirEntry) (isDir bool, ok bool) {
	switch {
	case entry.IsDir():
		return true, true
	case entry.Type().IsRegular():
		return false, true
	case entry.Type()&fs.ModeSymlink != 0:
		info, err := os.Stat(filepath.Join(dir, entry.Name()))
		if err != nil || !info.Mode().IsRegular() {
			return false, false
		}
		return false, true
	default:
		return false, false
	}
}

// matcherFor combines the default, configured, and .mirrorignore patterns for root.
func (m *OSFilesystemManager) matcherFor(root string) (*IgnoreMatcher, error) {
	patterns := append([]string{}, m.ignore...)
	ignoreFile := filepath.Join(root, IgnoreFileName)
	fromFile, err := ParseIgnoreFile(ignoreFile)
	if err != nil {
		return NewIgnoreMatcher(patterns), &mirror.FileAccessError{Op: "read ignore file", Path: ignoreFile, Err: err}
	}
	return NewIgnoreMatcher(append(patterns, fromFile...)), nil
}

// Stat returns file info for path, following symlinks.
func (m *OSFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// Open opens a file for reading.
func (m *OSFilesystemManager) Open(path string) (io.ReadCloser, error) {
	return os.Open(path)
}

// MkdirAll creates path and any missing parents.
func (m *OSFilesystemManager) MkdirAll(path string) error {
	return os.MkdirAll(path, 0755)
}

// AppendFile appends data to path in append mode, so concurrent writers
// never interleave within a single write.
func (m *OSFilesystemManager) AppendFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Compile-time check that OSFilesystemManager implements mirror.FilesystemManager interface
var _ mirror.FilesystemManager = (*OSFilesystemManager)(nil)
