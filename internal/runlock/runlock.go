// Package runlock guarantees at most one sync run at a time, within the
// process and across processes sharing a lock file.
package runlock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another run holds the lock.
var ErrLocked = errors.New("a sync run is already in progress")

// Lock is a non-blocking run lock backed by a file.
type Lock struct {
	path string
	mu   sync.Mutex
}

// New creates a lock on the file at path. The file is created on first use.
func New(path string) *Lock {
	return &Lock{path: path}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// TryAcquire takes the lock without blocking. It returns ErrLocked if a
// run is already in progress. Call release when the run ends.
func (l *Lock) TryAcquire() (release func() error, err error) {
	if !l.mu.TryLock() {
		return nil, ErrLocked
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fl := flock.New(l.path)
	acquired, err := fl.TryLock()
	if err != nil {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		l.mu.Unlock()
		return nil, ErrLocked
	}

	var once sync.Once
	return func() error {
		var err error
		once.Do(func() {
			defer l.mu.Unlock()
			if uerr := fl.Unlock(); uerr != nil {
				err = fmt.Errorf("failed to release lock: %w", uerr)
			}
		})
		return err
	}, nil
}
