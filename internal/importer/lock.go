package importer

import (
	"fmt"

	"github.com/gofrs/flock"

	"github.com/seward/zeeklite/pkg/types"
)

// RunLock prevents two import runs from overlapping against the same
// destination store. The lock is an advisory flock on a lock file, so a
// crashed run releases it when the process dies.
type RunLock struct {
	fl *flock.Flock
}

// AcquireLock takes the run lock without blocking. Returns ErrRunLocked
// when another run holds it.
func AcquireLock(path string) (*RunLock, error) {
	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", types.ErrRunLocked, path)
	}
	return &RunLock{fl: fl}, nil
}

// Release releases the lock. Must only be called after a successful
// AcquireLock.
func (l *RunLock) Release() error {
	return l.fl.Unlock()
}
