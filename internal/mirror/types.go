package mirror

import (
	"sync/atomic"
	"time"
)

// CopyDecision is the outcome of comparing a source file with its mirrored target.
type CopyDecision int

const (
	Skip CopyDecision = iota // target content already matches
	Copy                     // target is missing or differs
)

func (d CopyDecision) String() string {
	if d == Copy {
		return "copy"
	}
	return "skip"
}

// SyncTarget is one destination of a run. Its counters are mutated only by
// the syncer that owns it and read by the coordinator after that syncer returns.
type SyncTarget struct {
	Index       TargetHint
	Root        string
	Total       int
	Copied      int
	Skipped     int
	Failed      int
	BytesCopied int64
	Err         error // non-nil when the target sync or its summary log failed
}

// SyncSummary is the result of syncing one target.
type SyncSummary struct {
	Copied      int
	Skipped     int
	Failed      int
	Total       int
	BytesCopied int64
}

// Summary returns the target's counters.
func (t *SyncTarget) Summary() SyncSummary {
	return SyncSummary{
		Copied:      t.Copied,
		Skipped:     t.Skipped,
		Failed:      t.Failed,
		Total:       t.Total,
		BytesCopied: t.BytesCopied,
	}
}

// RunState is the lifecycle state of a backup run.
type RunState int32

const (
	StateIdle RunState = iota
	StateValidating
	StateWalking
	StateSyncing
	StateLogging
	StateCompleted
	StateFailed   // reachable from StateValidating, or StateWalking when the source root cannot be listed
	StateCanceled // context canceled before logging
)

var runStateNames = map[RunState]string{
	StateIdle:       "idle",
	StateValidating: "validating",
	StateWalking:    "walking",
	StateSyncing:    "syncing",
	StateLogging:    "logging",
	StateCompleted:  "completed",
	StateFailed:     "failed",
	StateCanceled:   "canceled",
}

func (s RunState) String() string {
	if name, ok := runStateNames[s]; ok {
		return name
	}
	return "unknown"
}

// RunResult is the outcome of one backup run.
type RunResult struct {
	ID         string
	SourceRoot string
	StartedAt  time.Time
	FinishedAt time.Time
	State      RunState
	Total      int
	Targets    []*SyncTarget
}

// backupRun is the in-flight aggregate behind a RunResult.
type backupRun struct {
	result *RunResult
	state  atomic.Int32
}

func (r *backupRun) setState(s RunState) {
	r.state.Store(int32(s))
	r.result.State = s
}

func (r *backupRun) currentState() RunState {
	return RunState(r.state.Load())
}
