package mirror

import (
	"context"
	"path/filepath"
)

// Syncer mirrors a walked source tree into one target root.
// One Syncer may serve several targets; all per-target state lives in SyncTarget.
type Syncer struct {
	fsmgr      FilesystemManager
	comparator *Comparator
	logger     Logger
}

// NewSyncer creates a Syncer.
func NewSyncer(fsmgr FilesystemManager, comparator *Comparator, logger Logger) *Syncer {
	return &Syncer{
		fsmgr:      fsmgr,
		comparator: comparator,
		logger:     logger,
	}
}

// Sync replays entries into target.Root. For every directory entry the
// mirrored directory is created before any of its files is copied. Per-file
// failures are reported to sink and counted in target.Failed; they do not
// stop the sync. A DirectoryCreationError or a canceled ctx stops this
// target and is returned.
func (s *Syncer) Sync(ctx context.Context, sourceRoot string, target *SyncTarget, entries []DirectoryEntry, sink ProgressSink) (SyncSummary, error) {
	s.logger.Debug("target sync started", "target", target.Root, "entries", len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return target.Summary(), err
		}

		targetDir := filepath.Join(target.Root, entry.RelativePath)
		if err := s.fsmgr.MkdirAll(targetDir); err != nil {
			return target.Summary(), &DirectoryCreationError{Path: targetDir, Err: err}
		}

		sourceDir := filepath.Join(sourceRoot, entry.RelativePath)
		for _, name := range entry.Files {
			if err := ctx.Err(); err != nil {
				return target.Summary(), err
			}
			s.syncFile(target, filepath.Join(sourceDir, name), filepath.Join(targetDir, name), sink)
		}
	}

	s.logger.Info("target sync finished",
		"target", target.Root,
		"copied", target.Copied,
		"skipped", target.Skipped,
		"failed", target.Failed,
		"total", target.Total,
	)
	return target.Summary(), nil
}

// syncFile makes one copy decision and acts on it.
func (s *Syncer) syncFile(target *SyncTarget, src, dst string, sink ProgressSink) {
	decision, err := s.comparator.NeedsCopy(src, dst)
	if err != nil {
		s.fail(target, src, dst, err, sink)
		return
	}

	if decision == Skip {
		target.Skipped++
		s.logger.Debug("file skipped", "path", dst)
		sink.Emit(skippedEvent(dst, target.Index))
		return
	}

	n, err := s.fsmgr.CopyFile(src, dst)
	if err != nil {
		s.fail(target, src, dst, err, sink)
		return
	}

	target.Copied++
	target.BytesCopied += n
	s.logger.Debug("file copied", "src", src, "dst", dst, "bytes", n)
	sink.Emit(copiedEvent(src, dst, target.Index))
}

func (s *Syncer) fail(target *SyncTarget, src, dst string, err error, sink ProgressSink) {
	target.Failed++
	s.logger.Warn("file failed", "src", src, "dst", dst, "error", err)
	sink.Emit(failedEvent(src, dst, err, target.Index))
}
