package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"mirror-go/internal/config"
	"mirror-go/internal/database"
	"mirror-go/internal/fs"
	"mirror-go/internal/hash"
	"mirror-go/internal/mirror"
)

// MirrorApp is the application layer between the CLI and the mirror Coordinator.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw string paths, and manages the history DB lifecycle on Close.
type MirrorApp struct {
	cfg     *config.Config
	fsmgr   mirror.FilesystemManager
	history mirror.History
	coord   *mirror.Coordinator
	logger  mirror.Logger
	logFile *os.File
}

// NewMirrorApp creates a fully wired MirrorApp from the given config.
// operation identifies the CLI command being run (e.g. "backup", "history")
// and prefixes the log operation ID. The caller must call Close when done.
func NewMirrorApp(cfg *config.Config, operation string) (*MirrorApp, error) {
	return newMirrorApp(cfg, operation, os.Stderr)
}

func newMirrorApp(cfg *config.Config, operation string, console io.Writer) (*MirrorApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	fsmgr := fs.NewOSFilesystemManager(cfg.Filesystem.Ignore)

	hasher, err := hash.NewStreamHasher(fsmgr, cfg.Hash.Algorithm, cfg.Hash.ChunkSize)
	if err != nil {
		return nil, fmt.Errorf("creating hasher: %w", err)
	}

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	opID := operation + "-" + time.Now().UTC().Format("20060102T150405Z")
	l, logFile, err := newLogger(cfg.LogDir, opID, parseLevel(cfg.LogLevel), console)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: l}

	coord := mirror.NewCoordinator(fsmgr, hasher, logger, mirror.RealClock{}, mirror.UUIDGenerator{}, cfg.Backup.Workers)

	return &MirrorApp{
		cfg:     cfg,
		fsmgr:   fsmgr,
		history: db,
		coord:   coord,
		logger:  logger,
		logFile: logFile,
	}, nil
}

// Backup mirrors source into every target and records the run in the
// history database. It is StartBackup followed by Wait.
func (a *MirrorApp) Backup(ctx context.Context, source string, targets []string, sink mirror.ProgressSink) (*mirror.RunResult, error) {
	run, err := a.StartBackup(ctx, source, targets, sink)
	if err != nil {
		return nil, err
	}
	return run.Wait()
}

// BackupRun is a backup started by StartBackup.
type BackupRun struct {
	app     *MirrorApp
	handle  *mirror.RunHandle
	source  string
	targets []string

	once sync.Once
	res  *mirror.RunResult
	err  error
}

// StartBackup resolves the paths and starts the backup in the background.
// When neither source nor targets are given, the [backup] section of the
// config supplies them.
func (a *MirrorApp) StartBackup(ctx context.Context, source string, targets []string, sink mirror.ProgressSink) (*BackupRun, error) {
	source, targets, err := a.resolvePaths(source, targets)
	if err != nil {
		return nil, err
	}
	return &BackupRun{
		app:     a,
		handle:  a.coord.Start(ctx, source, targets, sink),
		source:  source,
		targets: targets,
	}, nil
}

// Source is the resolved source root.
func (r *BackupRun) Source() string { return r.source }

// Targets are the resolved target roots, in the order events refer to them.
func (r *BackupRun) Targets() []string { return r.targets }

// Done is closed when the coordinator has finished the run.
func (r *BackupRun) Done() <-chan struct{} { return r.handle.Done() }

// Wait blocks until the run finishes and records it in the history
// database exactly once. Runs rejected by validation are not recorded.
func (r *BackupRun) Wait() (*mirror.RunResult, error) {
	r.once.Do(func() {
		r.res, r.err = r.handle.Wait()

		var cfgErr *mirror.ConfigurationError
		if errors.As(r.err, &cfgErr) {
			return
		}
		if err := r.app.history.RecordRun(r.res); err != nil {
			r.app.logger.Error("recording run failed", "run", r.res.ID, "error", err)
			r.err = errors.Join(r.err, fmt.Errorf("recording run history: %w", err))
		}
	})
	return r.res, r.err
}

// resolvePaths falls back to the configured paths and makes non-blank
// paths absolute. Blank paths are passed through so validation reports them.
func (a *MirrorApp) resolvePaths(source string, targets []string) (string, []string, error) {
	if source == "" && len(targets) == 0 {
		source = a.cfg.Backup.Source
		targets = a.cfg.Backup.Targets
	}

	abs := func(p string) (string, error) {
		if strings.TrimSpace(p) == "" {
			return p, nil
		}
		resolved, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("resolving path %s: %w", p, err)
		}
		return resolved, nil
	}

	src, err := abs(source)
	if err != nil {
		return "", nil, err
	}
	resolved := make([]string, len(targets))
	for i, t := range targets {
		if resolved[i], err = abs(t); err != nil {
			return "", nil, err
		}
	}
	return src, resolved, nil
}

// History returns up to limit recorded runs, newest first.
func (a *MirrorApp) History(limit int) ([]*mirror.RunRecord, error) {
	return a.history.ListRuns(limit)
}

// SummaryLog returns the lines of a target's summary log, oldest first.
func (a *MirrorApp) SummaryLog(target string) ([]string, error) {
	root, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("resolving path %s: %w", target, err)
	}

	f, err := a.fsmgr.Open(mirror.SummaryLogPath(root))
	if err != nil {
		return nil, fmt.Errorf("opening summary log: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading summary log: %w", err)
	}
	return lines, nil
}

// Close closes the history database and the log file.
func (a *MirrorApp) Close() error {
	var firstErr error
	if err := a.history.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
