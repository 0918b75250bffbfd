// Package lock guarantees a single running worker per stage.
package lock

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/gofrs/flock"
)

// ErrHeld is returned when another process owns the lock.
var ErrHeld = errors.New("lock held by another process")

// StageLock is an advisory file lock under <dataDir>/locks.
type StageLock struct {
	fl *flock.Flock
}

// Path returns the lock file for a stage.
func Path(dataDir, stage string) string {
	return filepath.Join(dataDir, "locks", stage+".lock")
}

// Acquire takes the stage lock without blocking.
func Acquire(dataDir, stage string) (*StageLock, error) {
	path := Path(dataDir, stage)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "create lock dir for %s", stage)
	}

	fl := flock.New(path)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "lock %s", path)
	}
	if !locked {
		return nil, errors.WithHintf(errors.Wrapf(ErrHeld, "stage %s", stage),
			"another %s worker is running; remove %s only if no worker is alive", stage, path)
	}
	return &StageLock{fl: fl}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *StageLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return errors.Wrap(l.fl.Unlock(), "unlock stage")
}
