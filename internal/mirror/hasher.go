package mirror

import (
	"bytes"
	"encoding/hex"
)

// Digest is the fixed-size content hash of a file.
type Digest []byte

// Equal reports whether two digests are identical.
func (d Digest) Equal(other Digest) bool {
	return bytes.Equal(d, other)
}

func (d Digest) String() string {
	return hex.EncodeToString(d)
}

// Hasher computes content digests for equality detection.
// Implementations stream the file so memory use is independent of file size.
type Hasher interface {
	Digest(path string) (Digest, error)
}
