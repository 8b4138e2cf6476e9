package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mirror-go/internal/mirror"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func newResult(id string, started time.Time, targets ...*mirror.SyncTarget) *mirror.RunResult {
	return &mirror.RunResult{
		ID:         id,
		SourceRoot: "/src",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		State:      mirror.StateCompleted,
		Total:      3,
		Targets:    targets,
	}
}

func TestSQLiteDatabase_RecordRun(t *testing.T) {
	t.Run("round trips run and targets", func(t *testing.T) {
		db := newTestDB(t)
		started := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

		result := newResult("run-1", started,
			&mirror.SyncTarget{Root: "/a", Copied: 3, BytesCopied: 120},
			&mirror.SyncTarget{Root: "/b", Copied: 1, Skipped: 1, Failed: 1, Err: errors.New("disk full")},
		)
		if err := db.RecordRun(result); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}

		runs, err := db.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("ListRuns() returned %d runs, want 1", len(runs))
		}

		got := runs[0]
		if got.ID != "run-1" || got.SourceRoot != "/src" || got.State != "completed" || got.Total != 3 {
			t.Errorf("ListRuns()[0] = %+v", got)
		}
		if !got.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
		}
		if !got.FinishedAt.Equal(started.Add(2 * time.Second)) {
			t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, started.Add(2*time.Second))
		}

		if len(got.Targets) != 2 {
			t.Fatalf("len(Targets) = %d, want 2", len(got.Targets))
		}
		a, b := got.Targets[0], got.Targets[1]
		if a.Root != "/a" || a.Copied != 3 || a.BytesCopied != 120 || a.Error != "" {
			t.Errorf("Targets[0] = %+v", a)
		}
		if b.Root != "/b" || b.Copied != 1 || b.Skipped != 1 || b.Failed != 1 || b.Error != "disk full" {
			t.Errorf("Targets[1] = %+v", b)
		}
	})

	t.Run("rejects duplicate run id", func(t *testing.T) {
		db := newTestDB(t)
		result := newResult("run-1", time.Now(), &mirror.SyncTarget{Root: "/a"})

		if err := db.RecordRun(result); err != nil {
			t.Fatalf("RecordRun() error = %v", err)
		}
		if err := db.RecordRun(result); err == nil {
			t.Error("RecordRun() expected error for duplicate id, got nil")
		}

		runs, err := db.ListRuns(0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 || len(runs[0].Targets) != 1 {
			t.Errorf("failed insert left partial rows: %d runs", len(runs))
		}
	})
}

func TestSQLiteDatabase_ListRuns(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		result := newResult(id, base.Add(time.Duration(i)*time.Hour), &mirror.SyncTarget{Root: "/a"})
		if err := db.RecordRun(result); err != nil {
			t.Fatalf("RecordRun(%s) error = %v", id, err)
		}
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "newest first", limit: 10, want: []string{"third", "second", "first"}},
		{name: "limited", limit: 2, want: []string{"third", "second"}},
		{name: "zero means all", limit: 0, want: []string{"third", "second", "first"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := db.ListRuns(tt.limit)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("ListRuns() returned %d runs, want %d", len(runs), len(tt.want))
			}
			for i, run := range runs {
				if run.ID != tt.want[i] {
					t.Errorf("runs[%d].ID = %q, want %q", i, run.ID, tt.want[i])
				}
				if len(run.Targets) != 1 {
					t.Errorf("runs[%d] has %d targets, want 1", i, len(run.Targets))
				}
			}
		})
	}
}

func TestSQLiteDatabase_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() error = %v", err)
	}
	if err := db.RecordRun(newResult("run-1", time.Now(), &mirror.SyncTarget{Root: "/a"})); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := NewSQLiteDatabase(path)
	if err != nil {
		t.Fatalf("NewSQLiteDatabase() reopen error = %v", err)
	}
	defer reopened.Close()

	if reopened.Path() != path {
		t.Errorf("Path() = %q, want %q", reopened.Path(), path)
	}
	runs, err := reopened.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-1" {
		t.Errorf("ListRuns() after reopen = %v, want run-1", runs)
	}
}
