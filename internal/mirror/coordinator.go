package mirror

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Coordinator runs backups of one source tree into N target roots.
// The tree is walked once per run and the materialized entries are shared,
// read-only, by one Syncer pass per target.
type Coordinator struct {
	fsmgr   FilesystemManager
	syncer  *Syncer
	logger  Logger
	clock   Clock
	idgen   IDGenerator
	workers int
}

// NewCoordinator creates a Coordinator. workers bounds how many targets are
// synced concurrently; 1 syncs them one after another.
func NewCoordinator(fsmgr FilesystemManager, hasher Hasher, logger Logger, clock Clock, idgen IDGenerator, workers int) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{
		fsmgr:   fsmgr,
		syncer:  NewSyncer(fsmgr, NewComparator(fsmgr, hasher), logger),
		logger:  logger,
		clock:   clock,
		idgen:   idgen,
		workers: workers,
	}
}

// RunHandle is a backup running on the coordinator's background worker.
type RunHandle struct {
	run    *backupRun
	done   chan struct{}
	result *RunResult
	err    error
}

// Done is closed when the run has finished.
func (h *RunHandle) Done() <-chan struct{} { return h.done }

// State returns the run's current lifecycle state.
func (h *RunHandle) State() RunState { return h.run.currentState() }

// Wait blocks until the run finishes and returns its result.
// The result is non-nil even when err is non-nil.
func (h *RunHandle) Wait() (*RunResult, error) {
	<-h.done
	return h.result, h.err
}

// Start begins a backup on a background goroutine and returns immediately.
func (c *Coordinator) Start(ctx context.Context, sourceRoot string, targetRoots []string, sink ProgressSink) *RunHandle {
	h := &RunHandle{
		run:  c.newRun(sourceRoot, targetRoots),
		done: make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		h.result, h.err = c.execute(ctx, h.run, sink)
	}()
	return h
}

// Run performs a backup and blocks until it completes.
// It returns a *ConfigurationError without touching any target when a path
// is unset. Per-file and per-target failures do not make Run return an
// error; they are reported to sink and recorded on the result's targets.
func (c *Coordinator) Run(ctx context.Context, sourceRoot string, targetRoots []string, sink ProgressSink) (*RunResult, error) {
	return c.Start(ctx, sourceRoot, targetRoots, sink).Wait()
}

func (c *Coordinator) newRun(sourceRoot string, targetRoots []string) *backupRun {
	targets := make([]*SyncTarget, len(targetRoots))
	for i, root := range targetRoots {
		targets[i] = &SyncTarget{Index: TargetHint(i), Root: root}
	}
	return &backupRun{result: &RunResult{
		ID:         c.idgen.New(),
		SourceRoot: sourceRoot,
		StartedAt:  c.clock.Now(),
		State:      StateIdle,
		Targets:    targets,
	}}
}

func (c *Coordinator) execute(ctx context.Context, run *backupRun, sink ProgressSink) (*RunResult, error) {
	if sink == nil {
		sink = DiscardSink
	}
	sink = &lockedSink{sink: sink}
	res := run.result
	defer func() { res.FinishedAt = c.clock.Now() }()

	run.setState(StateValidating)
	if err := c.validate(res.SourceRoot, res.Targets); err != nil {
		run.setState(StateFailed)
		c.logger.Warn("backup not started", "error", err)
		if len(err.Missing) > 0 {
			sink.Emit(ProgressEvent{Text: promptText, Target: AllTargets})
		} else {
			sink.Emit(notStartedEvent(err))
		}
		return res, err
	}
	c.logger.Info("backup started", "run", res.ID, "source", res.SourceRoot, "targets", len(res.Targets))

	run.setState(StateWalking)
	entries, total, err := c.walk(ctx, res.SourceRoot, sink)
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		run.setState(StateFailed)
		c.logger.Warn("backup not started", "error", err)
		sink.Emit(notStartedEvent(err))
		return res, err
	}
	if err != nil {
		run.setState(StateCanceled)
		return res, err
	}
	res.Total = total
	for _, t := range res.Targets {
		t.Total = total
	}

	run.setState(StateSyncing)
	c.syncAll(ctx, res, entries, sink)
	if err := ctx.Err(); err != nil {
		run.setState(StateCanceled)
		c.logger.Warn("backup canceled", "run", res.ID, "error", err)
		return res, err
	}

	run.setState(StateLogging)
	for _, t := range res.Targets {
		c.finishTarget(t, sink)
	}

	sink.Emit(ProgressEvent{Text: completedText, Target: AllTargets})
	run.setState(StateCompleted)
	c.logger.Info("backup completed", "run", res.ID, "total", res.Total)
	return res, nil
}

// validate checks every input path before any target I/O happens.
func (c *Coordinator) validate(sourceRoot string, targets []*SyncTarget) *ConfigurationError {
	var missing []string
	if strings.TrimSpace(sourceRoot) == "" {
		missing = append(missing, "source")
	}
	if len(targets) == 0 {
		missing = append(missing, "target")
	}
	seen := make(map[string]bool, len(targets))
	for i, t := range targets {
		if strings.TrimSpace(t.Root) == "" {
			missing = append(missing, fmt.Sprintf("target %d", i+1))
			continue
		}
		clean := filepath.Clean(t.Root)
		if seen[clean] {
			return &ConfigurationError{Reason: fmt.Sprintf("target folder %s is listed more than once", t.Root)}
		}
		seen[clean] = true
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}

	source := filepath.Clean(sourceRoot)
	for _, t := range targets {
		if within(source, filepath.Clean(t.Root)) {
			return &ConfigurationError{Reason: fmt.Sprintf("target folder %s is inside source folder %s", t.Root, sourceRoot)}
		}
	}

	info, err := c.fsmgr.Stat(sourceRoot)
	if err != nil {
		return &ConfigurationError{Reason: fmt.Sprintf("source folder %s is not accessible: %v", sourceRoot, err)}
	}
	if !info.IsDir() {
		return &ConfigurationError{Reason: fmt.Sprintf("source folder %s is not a directory", sourceRoot)}
	}
	return nil
}

// walk materializes the source tree and counts its files. Directories that
// cannot be listed are reported and left out, except the source root itself,
// which fails the run as a ConfigurationError.
func (c *Coordinator) walk(ctx context.Context, sourceRoot string, sink ProgressSink) ([]DirectoryEntry, int, error) {
	var entries []DirectoryEntry
	total := 0
	for entry, err := range c.fsmgr.Walk(sourceRoot) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		if err != nil {
			var accessErr *FileAccessError
			if errors.As(err, &accessErr) && filepath.Clean(accessErr.Path) == filepath.Clean(sourceRoot) {
				return nil, 0, &ConfigurationError{Reason: fmt.Sprintf("source folder %s cannot be listed: %v", sourceRoot, accessErr.Err)}
			}
			c.logger.Warn("directory skipped", "error", err)
			sink.Emit(walkFailedEvent(err))
			continue
		}
		entries = append(entries, entry)
		total += len(entry.Files)
	}
	c.logger.Debug("source walked", "directories", len(entries), "files", total)
	return entries, total, nil
}

// syncAll runs one sync per target, at most c.workers at a time. A failing
// target never stops its siblings.
func (c *Coordinator) syncAll(ctx context.Context, res *RunResult, entries []DirectoryEntry, sink ProgressSink) {
	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, t := range res.Targets {
		g.Go(func() error {
			if _, err := c.syncer.Sync(ctx, res.SourceRoot, t, entries, sink); err != nil {
				t.Err = err
				c.logger.Error("target sync failed", "target", t.Root, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// finishTarget appends the summary line for a synced target and reports it.
func (c *Coordinator) finishTarget(t *SyncTarget, sink ProgressSink) {
	if t.Err != nil {
		sink.Emit(targetFailedEvent(t.Root, t.Err, t.Index))
		return
	}

	line := SummaryLine(t.Copied, t.Total, c.clock.Now())
	if err := c.fsmgr.AppendFile(SummaryLogPath(t.Root), []byte(line)); err != nil {
		t.Err = fmt.Errorf("writing summary log: %w", err)
		c.logger.Error("summary log failed", "target", t.Root, "error", err)
		sink.Emit(targetFailedEvent(t.Root, t.Err, t.Index))
		return
	}

	sink.Emit(targetDoneEvent(t.Root, t.Index))
}

// within reports whether path is dir or lies below it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
