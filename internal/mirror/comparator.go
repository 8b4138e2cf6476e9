package mirror

import (
	"errors"
	"fmt"
	"io/fs"
)

// Comparator decides whether a source file must be copied over its mirrored target.
type Comparator struct {
	fsmgr  FilesystemManager
	hasher Hasher
}

// NewComparator creates a Comparator that hashes with the given Hasher.
func NewComparator(fsmgr FilesystemManager, hasher Hasher) *Comparator {
	return &Comparator{fsmgr: fsmgr, hasher: hasher}
}

// NeedsCopy returns Copy if target does not exist or its digest differs from
// source's, Skip if the digests match. Any stat or read failure is returned
// as an error; the decision is never defaulted.
func (c *Comparator) NeedsCopy(source, target string) (CopyDecision, error) {
	info, err := c.fsmgr.Stat(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Copy, nil
		}
		return Skip, &FileAccessError{Op: "stat", Path: target, Err: err}
	}
	if info.IsDir() {
		return Skip, &FileAccessError{Op: "compare", Path: target, Err: fmt.Errorf("target is a directory")}
	}

	sourceDigest, err := c.hasher.Digest(source)
	if err != nil {
		return Skip, err
	}
	targetDigest, err := c.hasher.Digest(target)
	if err != nil {
		return Skip, err
	}

	if sourceDigest.Equal(targetDigest) {
		return Skip, nil
	}
	return Copy, nil
}
