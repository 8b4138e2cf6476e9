package mirror

import (
	"fmt"
	"strings"
)

// ConfigurationError reports that a run could not start because required
// paths are unset or unusable. No I/O against any target has happened.
type ConfigurationError struct {
	Missing []string // names of unset inputs, e.g. "source", "target 2"
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if len(e.Missing) > 0 {
		return fmt.Sprintf("missing required paths: %s", strings.Join(e.Missing, ", "))
	}
	return e.Reason
}

// FileAccessError reports a per-file failure while hashing or copying.
// The file is skipped and the run continues.
type FileAccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// DirectoryCreationError reports that a mirrored directory could not be
// created. It aborts the sync of the affected target only.
type DirectoryCreationError struct {
	Path string
	Err  error
}

func (e *DirectoryCreationError) Error() string {
	return fmt.Sprintf("creating directory %s: %v", e.Path, e.Err)
}

func (e *DirectoryCreationError) Unwrap() error { return e.Err }
