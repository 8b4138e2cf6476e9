// Package hash provides streaming content hashers for change detection.
package hash

import (
	"crypto/md5"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"

	"github.com/cespare/xxhash/v2"

	"mirror-go/internal/mirror"
)

// DefaultChunkSize is the read size used when none is configured.
const DefaultChunkSize = 4096

// Supported algorithm names.
const (
	MD5    = "md5"
	SHA256 = "sha256"
	XXHash = "xxhash"
)

// StreamHasher digests files by reading them in fixed-size chunks into a
// fresh hash.Hash, so memory use does not grow with file size.
type StreamHasher struct {
	fsmgr     mirror.FilesystemManager
	newHash   func() hash.Hash
	chunkSize int
}

var _ mirror.Hasher = (*StreamHasher)(nil)

// NewStreamHasher creates a hasher for the named algorithm.
// chunkSize <= 0 selects DefaultChunkSize.
func NewStreamHasher(fsmgr mirror.FilesystemManager, algorithm string, chunkSize int) (*StreamHasher, error) {
	newHash, err := hashFunc(algorithm)
	if err != nil {
		return nil, err
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &StreamHasher{
		fsmgr:     fsmgr,
		newHash:   newHash,
		chunkSize: chunkSize,
	}, nil
}

func hashFunc(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case MD5, "":
		return md5.New, nil
	case SHA256:
		return sha256.New, nil
	case XXHash:
		return func() hash.Hash { return xxhash.New() }, nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm: %q", algorithm)
	}
}

// Supported reports whether algorithm names a known digest.
func Supported(algorithm string) bool {
	_, err := hashFunc(algorithm)
	return err == nil
}

// Digest returns the content digest of the file at path.
// Open and read failures are returned as *mirror.FileAccessError.
func (h *StreamHasher) Digest(path string) (mirror.Digest, error) {
	f, err := h.fsmgr.Open(path)
	if err != nil {
		return nil, &mirror.FileAccessError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	sum := h.newHash()
	buf := make([]byte, h.chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			sum.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &mirror.FileAccessError{Op: "read", Path: path, Err: err}
		}
	}
	return mirror.Digest(sum.Sum(nil)), nil
}
