package mirror_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mirror-go/internal/mirror"
	"mirror-go/internal/testutil"
)

func newSyncer(t *testing.T, fsmgr mirror.FilesystemManager) *mirror.Syncer {
	t.Helper()
	return mirror.NewSyncer(fsmgr, newComparator(t, fsmgr), mirror.NewNopLogger())
}

var syncEntries = []mirror.DirectoryEntry{
	{RelativePath: ".", Files: []string{"a.txt"}},
	{RelativePath: "sub", Files: []string{"b.txt", "c.txt"}},
}

func writeSyncSource(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	testutil.WriteTree(t, src, map[string]string{
		"a.txt":     "alpha",
		"sub/b.txt": "bravo",
		"sub/c.txt": "charlie",
	})
	return src
}

func TestSyncer_Sync(t *testing.T) {
	t.Run("copies into empty target", func(t *testing.T) {
		src := writeSyncSource(t)
		dst := filepath.Join(t.TempDir(), "target")
		sink := testutil.NewRecordingSink()
		target := &mirror.SyncTarget{Index: 1, Root: dst, Total: 3}

		summary, err := newSyncer(t, testutil.NewFaultyFilesystemManager()).Sync(context.Background(), src, target, syncEntries, sink)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}

		want := mirror.SyncSummary{Copied: 3, Total: 3, BytesCopied: int64(len("alpha") + len("bravo") + len("charlie"))}
		if summary != want {
			t.Errorf("Sync() summary = %+v, want %+v", summary, want)
		}
		if got := testutil.ReadTree(t, dst); got["sub/c.txt"] != "charlie" || len(got) != 3 {
			t.Errorf("target tree = %v", got)
		}
		if n := sink.CountPrefix(1, "Copied: "); n != 3 {
			t.Errorf("Copied events for target 2 = %d, want 3", n)
		}
		wantFirst := "Copied: " + filepath.Join(src, "a.txt") + " to " + filepath.Join(dst, "a.txt")
		if got := sink.Texts()[0]; got != wantFirst {
			t.Errorf("first event = %q, want %q", got, wantFirst)
		}
	})

	t.Run("skips matching files", func(t *testing.T) {
		src := writeSyncSource(t)
		dst := t.TempDir()
		testutil.WriteTree(t, dst, map[string]string{
			"a.txt":     "alpha",
			"sub/b.txt": "bravo",
			"sub/c.txt": "CHARLIE",
		})
		sink := testutil.NewRecordingSink()
		target := &mirror.SyncTarget{Root: dst, Total: 3}

		summary, err := newSyncer(t, testutil.NewFaultyFilesystemManager()).Sync(context.Background(), src, target, syncEntries, sink)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if summary.Copied != 1 || summary.Skipped != 2 {
			t.Errorf("Sync() summary = %+v, want 1 copied 2 skipped", summary)
		}
		want := "Skipped (same content): " + filepath.Join(dst, "a.txt")
		if got := sink.Texts()[0]; got != want {
			t.Errorf("first event = %q, want %q", got, want)
		}
	})

	t.Run("per-file failure is reported and skipped", func(t *testing.T) {
		src := writeSyncSource(t)
		dst := t.TempDir()
		fsmgr := testutil.NewFaultyFilesystemManager()
		fsmgr.FailCopy(filepath.Join(src, "sub", "b.txt"), os.ErrPermission)
		sink := testutil.NewRecordingSink()
		target := &mirror.SyncTarget{Root: dst, Total: 3}

		summary, err := newSyncer(t, fsmgr).Sync(context.Background(), src, target, syncEntries, sink)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if summary.Copied != 2 || summary.Failed != 1 {
			t.Errorf("Sync() summary = %+v, want 2 copied 1 failed", summary)
		}
		if n := sink.CountPrefix(0, "Failed: "+filepath.Join(src, "sub", "b.txt")); n != 1 {
			t.Errorf("Failed events = %d, want 1", n)
		}
		if _, err := os.Stat(filepath.Join(dst, "sub", "b.txt")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("failed file exists in target: %v", err)
		}
	})

	t.Run("directory creation failure stops the target", func(t *testing.T) {
		src := writeSyncSource(t)
		dst := t.TempDir()
		fsmgr := testutil.NewFaultyFilesystemManager()
		fsmgr.FailMkdir(filepath.Join(dst, "sub"), os.ErrPermission)
		target := &mirror.SyncTarget{Root: dst, Total: 3}

		_, err := newSyncer(t, fsmgr).Sync(context.Background(), src, target, syncEntries, testutil.NewRecordingSink())

		var dirErr *mirror.DirectoryCreationError
		if !errors.As(err, &dirErr) {
			t.Fatalf("Sync() error = %v, want *DirectoryCreationError", err)
		}
		if dirErr.Path != filepath.Join(dst, "sub") {
			t.Errorf("Path = %q, want %q", dirErr.Path, filepath.Join(dst, "sub"))
		}
		if target.Copied != 1 {
			t.Errorf("Copied = %d, want 1 (files before the failed directory)", target.Copied)
		}
	})

	t.Run("canceled context stops between files", func(t *testing.T) {
		src := writeSyncSource(t)
		dst := t.TempDir()
		ctx, cancel := context.WithCancel(context.Background())
		sink := mirror.SinkFunc(func(e mirror.ProgressEvent) {
			if strings.HasPrefix(e.Text, "Copied: ") {
				cancel()
			}
		})
		target := &mirror.SyncTarget{Root: dst, Total: 3}

		_, err := newSyncer(t, testutil.NewFaultyFilesystemManager()).Sync(ctx, src, target, syncEntries, sink)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Sync() error = %v, want %v", err, context.Canceled)
		}
		if target.Copied != 1 {
			t.Errorf("Copied = %d, want 1", target.Copied)
		}
	})
}
