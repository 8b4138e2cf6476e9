package fs

import (
	"io"
	"os"
	"path/filepath"

	"mirror-go/internal/mirror"
)

// CopyFile copies src over dst using a temp file in dst's directory and an
// atomic rename, so a reader never sees a partially written target.
// Permission bits and timestamps are carried over on a best-effort basis.
func (m *OSFilesystemManager) CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, &mirror.FileAccessError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, &mirror.FileAccessError{Op: "stat", Path: src, Err: err}
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".mirror-tmp-*")
	if err != nil {
		return 0, &mirror.FileAccessError{Op: "create", Path: dst, Err: err}
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, in)
	if err != nil {
		tmpFile.Close()
		return 0, &mirror.FileAccessError{Op: "copy", Path: src, Err: err}
	}

	// Best effort: a target filesystem without permission bits still gets the data.
	_ = tmpFile.Chmod(info.Mode().Perm())

	if err := tmpFile.Close(); err != nil {
		return 0, &mirror.FileAccessError{Op: "close", Path: dst, Err: err}
	}

	// Times are set after close so the final flush cannot bump mtime.
	_ = os.Chtimes(tmpPath, accessTime(info), info.ModTime())

	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, &mirror.FileAccessError{Op: "rename", Path: dst, Err: err}
	}

	success = true
	return written, nil
}
