package mirror

import (
	"io"
	"io/fs"
	"iter"
)

// DirectoryEntry is one step of a tree walk: a directory relative to the
// source root and the names of the files it directly contains.
// The source root itself has RelativePath ".".
type DirectoryEntry struct {
	RelativePath string
	Files        []string
}

// FilesystemManager provides the filesystem operations the sync engine needs.
// It abstracts file access so the engine can be tested with injected failures.
type FilesystemManager interface {
	// Walk enumerates the tree under root depth-first, yielding one
	// DirectoryEntry per directory. A directory that cannot be listed yields
	// a non-nil error and the walk continues with its siblings.
	Walk(root string) iter.Seq2[DirectoryEntry, error]

	// Stat returns file info for path, following symlinks.
	Stat(path string) (fs.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// MkdirAll creates path and any missing parents. Existing directories are not an error.
	MkdirAll(path string) error

	// CopyFile copies src to dst, preserving permissions and modification time
	// on a best-effort basis. dst is replaced atomically. Returns bytes written.
	CopyFile(src, dst string) (int64, error)

	// AppendFile appends data to path, creating it if needed.
	AppendFile(path string, data []byte) error
}
