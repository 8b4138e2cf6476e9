package fs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"mirror-go/internal/mirror"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating parent of %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func collect(t *testing.T, m *OSFilesystemManager, root string) map[string][]string {
	t.Helper()
	got := make(map[string][]string)
	for entry, err := range m.Walk(root) {
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		if _, dup := got[entry.RelativePath]; dup {
			t.Fatalf("directory %q yielded twice", entry.RelativePath)
		}
		got[entry.RelativePath] = entry.Files
	}
	return got
}

func TestOSFilesystemManager_Walk(t *testing.T) {
	t.Run("yields every directory with its files", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a.txt"), "x")
		writeFile(t, filepath.Join(root, "sub", "b.txt"), "y")
		writeFile(t, filepath.Join(root, "sub", "deep", "c.txt"), "z")
		if err := os.Mkdir(filepath.Join(root, "empty"), 0755); err != nil {
			t.Fatal(err)
		}

		got := collect(t, NewOSFilesystemManager(nil), root)

		deep := filepath.Join("sub", "deep")
		want := map[string][]string{
			".":     {"a.txt"},
			"sub":   {"b.txt"},
			deep:    {"c.txt"},
			"empty": nil,
		}
		if len(got) != len(want) {
			t.Fatalf("Walk() yielded %d directories, want %d: %v", len(got), len(want), got)
		}
		for dir, files := range want {
			if !slices.Equal(got[dir], files) {
				t.Errorf("files in %q = %v, want %v", dir, got[dir], files)
			}
		}
	})

	t.Run("parent is yielded before children", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "sub", "deep", "c.txt"), "z")

		var order []string
		for entry, err := range NewOSFilesystemManager(nil).Walk(root) {
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			order = append(order, entry.RelativePath)
		}
		want := []string{".", "sub", filepath.Join("sub", "deep")}
		if !slices.Equal(order, want) {
			t.Errorf("order = %v, want %v", order, want)
		}
	})

	t.Run("applies config and ignore file patterns", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "keep.txt"), "k")
		writeFile(t, filepath.Join(root, "debug.log"), "l")
		writeFile(t, filepath.Join(root, "cache", "blob"), "c")
		writeFile(t, filepath.Join(root, "backup_log.txt"), "old log")
		writeFile(t, filepath.Join(root, IgnoreFileName), "cache/\n")

		got := collect(t, NewOSFilesystemManager([]string{"*.log"}), root)

		if !slices.Equal(got["."], []string{"keep.txt"}) {
			t.Errorf("root files = %v, want [keep.txt]", got["."])
		}
		if _, ok := got["cache"]; ok {
			t.Error("ignored directory cache was walked")
		}
	})

	t.Run("symlinked files are included, symlinked directories are not followed", func(t *testing.T) {
		root := t.TempDir()
		outside := t.TempDir()
		writeFile(t, filepath.Join(outside, "real.txt"), "r")
		writeFile(t, filepath.Join(outside, "dir", "inner.txt"), "i")
		if err := os.Symlink(filepath.Join(outside, "real.txt"), filepath.Join(root, "link.txt")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
		if err := os.Symlink(filepath.Join(outside, "dir"), filepath.Join(root, "linkdir")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}
		if err := os.Symlink(filepath.Join(outside, "missing"), filepath.Join(root, "dangling")); err != nil {
			t.Skipf("symlinks unsupported: %v", err)
		}

		got := collect(t, NewOSFilesystemManager(nil), root)

		if !slices.Equal(got["."], []string{"link.txt"}) {
			t.Errorf("root files = %v, want [link.txt]", got["."])
		}
		if len(got) != 1 {
			t.Errorf("Walk() yielded %d directories, want 1", len(got))
		}
	})

	t.Run("missing root yields a file access error", func(t *testing.T) {
		var gotErr error
		for _, err := range NewOSFilesystemManager(nil).Walk(filepath.Join(t.TempDir(), "missing")) {
			gotErr = err
		}
		var fae *mirror.FileAccessError
		if !errors.As(gotErr, &fae) {
			t.Fatalf("Walk() error = %v, want *mirror.FileAccessError", gotErr)
		}
	})

	t.Run("stops when the consumer breaks", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "a", "1.txt"), "1")
		writeFile(t, filepath.Join(root, "b", "2.txt"), "2")

		count := 0
		for range NewOSFilesystemManager(nil).Walk(root) {
			count++
			break
		}
		if count != 1 {
			t.Errorf("count = %d, want 1", count)
		}
	})
}

func TestOSFilesystemManager_CopyFile(t *testing.T) {
	t.Run("copies content, mode and mtime", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.txt")
		dst := filepath.Join(dir, "dst.txt")
		writeFile(t, src, "hello world")
		if err := os.Chmod(src, 0600); err != nil {
			t.Fatal(err)
		}
		mtime := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)
		if err := os.Chtimes(src, mtime, mtime); err != nil {
			t.Fatal(err)
		}

		n, err := NewOSFilesystemManager(nil).CopyFile(src, dst)
		if err != nil {
			t.Fatalf("CopyFile() error = %v", err)
		}
		if n != 11 {
			t.Errorf("CopyFile() = %d bytes, want 11", n)
		}

		data, err := os.ReadFile(dst)
		if err != nil {
			t.Fatalf("reading dst: %v", err)
		}
		if !bytes.Equal(data, []byte("hello world")) {
			t.Errorf("dst content = %q, want %q", data, "hello world")
		}
		info, err := os.Stat(dst)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("dst mode = %v, want %v", info.Mode().Perm(), os.FileMode(0600))
		}
		if !info.ModTime().Equal(mtime) {
			t.Errorf("dst mtime = %v, want %v", info.ModTime(), mtime)
		}
	})

	t.Run("replaces existing target and leaves no temp files", func(t *testing.T) {
		dir := t.TempDir()
		src := filepath.Join(dir, "src.txt")
		dst := filepath.Join(dir, "out", "dst.txt")
		writeFile(t, src, "new")
		writeFile(t, dst, "old content")

		if _, err := NewOSFilesystemManager(nil).CopyFile(src, dst); err != nil {
			t.Fatalf("CopyFile() error = %v", err)
		}
		data, _ := os.ReadFile(dst)
		if string(data) != "new" {
			t.Errorf("dst content = %q, want %q", data, "new")
		}
		entries, _ := os.ReadDir(filepath.Dir(dst))
		if len(entries) != 1 {
			t.Errorf("target dir has %d entries, want 1", len(entries))
		}
	})

	t.Run("missing source returns file access error", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewOSFilesystemManager(nil).CopyFile(filepath.Join(dir, "nope"), filepath.Join(dir, "dst"))
		var fae *mirror.FileAccessError
		if !errors.As(err, &fae) {
			t.Fatalf("CopyFile() error = %v, want *mirror.FileAccessError", err)
		}
		if fae.Op != "open" {
			t.Errorf("Op = %q, want %q", fae.Op, "open")
		}
	})
}

func TestOSFilesystemManager_AppendFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	m := NewOSFilesystemManager(nil)

	for _, line := range []string{"one\n", "two\n"} {
		if err := m.AppendFile(path, []byte(line)); err != nil {
			t.Fatalf("AppendFile() error = %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "one\ntwo\n" {
		t.Errorf("content = %q, want %q", data, "one\ntwo\n")
	}
}

func TestOSFilesystemManager_MkdirAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "c")
	m := NewOSFilesystemManager(nil)
	for i := 0; i < 2; i++ {
		if err := m.MkdirAll(path); err != nil {
			t.Fatalf("MkdirAll() call %d error = %v", i+1, err)
		}
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		t.Fatalf("expected directory at %s, err = %v", path, err)
	}
}
