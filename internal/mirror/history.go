package mirror

import "time"

// History persists finished runs so past backups can be listed.
type History interface {
	// RecordRun stores a run and its per-target results.
	RecordRun(result *RunResult) error

	// ListRuns returns the most recent runs, newest first.
	ListRuns(limit int) ([]*RunRecord, error)

	// Close closes the underlying store.
	Close() error
}

// RunRecord is a stored run.
type RunRecord struct {
	ID         string
	SourceRoot string
	StartedAt  time.Time
	FinishedAt time.Time
	State      string
	Total      int
	Targets    []*TargetRecord
}

// TargetRecord is the stored outcome of one target within a run.
type TargetRecord struct {
	Root        string
	Copied      int
	Skipped     int
	Failed      int
	BytesCopied int64
	Error       string // empty when the target completed
}
