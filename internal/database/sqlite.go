package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mirror-go/internal/database/migrations"
	"mirror-go/internal/mirror"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase stores run history in SQLite.
type SQLiteDatabase struct {
	db   *sql.DB
	path string
}

// NewSQLiteDatabase opens the database at path and brings its schema up to date.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating %s: %w", path, err)
	}

	return &SQLiteDatabase{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every new connection to ":memory:" is a separate empty database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// SQLite leaves foreign keys off unless asked.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// RecordRun stores a run and its targets in a single transaction.
func (s *SQLiteDatabase) RecordRun(result *mirror.RunResult) error {
	ctx := context.Background()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, source_root, started_at, finished_at, state, total)
		VALUES (?, ?, ?, ?, ?, ?)`,
		result.ID, result.SourceRoot, result.StartedAt.UTC(), result.FinishedAt.UTC(),
		result.State.String(), result.Total)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", result.ID, err)
	}

	for i, target := range result.Targets {
		errText := ""
		if target.Err != nil {
			errText = target.Err.Error()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO run_targets (run_id, position, root, copied, skipped, failed, bytes_copied, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			result.ID, i, target.Root, target.Copied, target.Skipped, target.Failed,
			target.BytesCopied, errText)
		if err != nil {
			return fmt.Errorf("inserting target %s: %w", target.Root, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. A limit of zero or less
// returns every run.
func (s *SQLiteDatabase) ListRuns(limit int) ([]*mirror.RunRecord, error) {
	ctx := context.Background()
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	runs, err := s.queryRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	// Targets are loaded after the run rows are closed: an in-memory
	// database has a single connection.
	for _, run := range runs {
		targets, err := s.queryTargets(ctx, run.ID)
		if err != nil {
			return nil, err
		}
		run.Targets = targets
	}
	return runs, nil
}

func (s *SQLiteDatabase) queryRuns(ctx context.Context, limit int) ([]*mirror.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_root, started_at, finished_at, state, total
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []*mirror.RunRecord
	for rows.Next() {
		var (
			run      mirror.RunRecord
			started  time.Time
			finished time.Time
		)
		if err := rows.Scan(&run.ID, &run.SourceRoot, &started, &finished, &run.State, &run.Total); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.StartedAt = started.Local()
		run.FinishedAt = finished.Local()
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteDatabase) queryTargets(ctx context.Context, runID string) ([]*mirror.TargetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT root, copied, skipped, failed, bytes_copied, error
		FROM run_targets
		WHERE run_id = ?
		ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing targets of run %s: %w", runID, err)
	}
	defer rows.Close()

	var targets []*mirror.TargetRecord
	for rows.Next() {
		var t mirror.TargetRecord
		if err := rows.Scan(&t.Root, &t.Copied, &t.Skipped, &t.Failed, &t.BytesCopied, &t.Error); err != nil {
			return nil, fmt.Errorf("scanning target: %w", err)
		}
		targets = append(targets, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing targets of run %s: %w", runID, err)
	}
	return targets, nil
}

// Path returns the database location.
func (s *SQLiteDatabase) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// Compile-time check
var _ mirror.History = (*SQLiteDatabase)(nil)
