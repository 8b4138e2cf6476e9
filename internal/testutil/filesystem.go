package testutil

import (
	"io"
	"iter"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"mirror-go/internal/fs"
	"mirror-go/internal/mirror"
)

// FaultyFilesystemManager wraps the real filesystem and fails selected
// operations on selected paths. Tests run as root cannot rely on chmod to
// make a file unreadable, so failures are injected here instead.
type FaultyFilesystemManager struct {
	mirror.FilesystemManager

	mu         sync.Mutex
	openErrs   map[string]error
	copyErrs   map[string]error
	mkdirErrs  map[string]error
	appendErrs map[string]error
	walkErrs   map[string]error
	opens      map[string]int
}

// NewFaultyFilesystemManager wraps an OSFilesystemManager with no ignore patterns.
func NewFaultyFilesystemManager() *FaultyFilesystemManager {
	return &FaultyFilesystemManager{
		FilesystemManager: fs.NewOSFilesystemManager(nil),
		openErrs:          make(map[string]error),
		copyErrs:          make(map[string]error),
		mkdirErrs:         make(map[string]error),
		appendErrs:        make(map[string]error),
		walkErrs:          make(map[string]error),
		opens:             make(map[string]int),
	}
}

// FailOpen makes Open (and therefore hashing) of path return err.
func (m *FaultyFilesystemManager) FailOpen(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.openErrs[path] = err
}

// FailCopy makes CopyFile from src return err.
func (m *FaultyFilesystemManager) FailCopy(src string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.copyErrs[src] = err
}

// FailMkdir makes MkdirAll of path return err.
func (m *FaultyFilesystemManager) FailMkdir(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirErrs[path] = err
}

// FailAppend makes AppendFile of path return err.
func (m *FaultyFilesystemManager) FailAppend(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErrs[path] = err
}

// FailWalk makes Walk of root fail to list root itself with err.
func (m *FaultyFilesystemManager) FailWalk(root string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walkErrs[root] = err
}

// Opens returns how many times path was opened for reading.
func (m *FaultyFilesystemManager) Opens(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opens[path]
}

func (m *FaultyFilesystemManager) Walk(root string) iter.Seq2[mirror.DirectoryEntry, error] {
	m.mu.Lock()
	err := m.walkErrs[root]
	m.mu.Unlock()
	if err == nil {
		return m.FilesystemManager.Walk(root)
	}
	return func(yield func(mirror.DirectoryEntry, error) bool) {
		yield(mirror.DirectoryEntry{}, &mirror.FileAccessError{Op: "read directory", Path: root, Err: err})
	}
}

func (m *FaultyFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	err := m.openErrs[path]
	m.opens[path]++
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.FilesystemManager.Open(path)
}

func (m *FaultyFilesystemManager) CopyFile(src, dst string) (int64, error) {
	m.mu.Lock()
	err := m.copyErrs[src]
	m.mu.Unlock()
	if err != nil {
		return 0, &mirror.FileAccessError{Op: "copy", Path: src, Err: err}
	}
	return m.FilesystemManager.CopyFile(src, dst)
}

func (m *FaultyFilesystemManager) MkdirAll(path string) error {
	m.mu.Lock()
	err := m.mkdirErrs[path]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.FilesystemManager.MkdirAll(path)
}

func (m *FaultyFilesystemManager) AppendFile(path string, data []byte) error {
	m.mu.Lock()
	err := m.appendErrs[path]
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.FilesystemManager.AppendFile(path, data)
}

// Compile-time check
var _ mirror.FilesystemManager = (*FaultyFilesystemManager)(nil)

// WriteTree creates files under root from a map of slash-separated relative
// paths to contents.
func WriteTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", rel, err)
		}
	}
}

// ReadTree returns every regular file under root keyed by slash-separated
// relative path. Files named in skip are left out.
func ReadTree(t *testing.T, root string, skip ...string) map[string]string {
	t.Helper()
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}

	files := make(map[string]string)
	err := filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if skipped[rel] {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[rel] = string(data)
		return nil
	})
	if err != nil {
		t.Fatalf("reading tree %s: %v", root, err)
	}
	return files
}
