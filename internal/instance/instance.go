// Package instance keeps a single clipboard watcher running per user
// session. The lock is an advisory file lock, so a crashed watcher never
// leaves a stale lock behind.
package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrRunning is returned when another watcher holds the lock.
var ErrRunning = errors.New("another cliplingo watcher is already running")

// LockPath returns the platform-appropriate path for the lock file.
//
//   - $CLIPLINGO_LOCK when set
//   - $XDG_RUNTIME_DIR/cliplingo.lock on Linux sessions
//   - $TMPDIR/cliplingo.lock otherwise
func LockPath() string {
	if s := os.Getenv("CLIPLINGO_LOCK"); s != "" {
		return s
	}
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "cliplingo.lock")
	}
	return filepath.Join(os.TempDir(), "cliplingo.lock")
}

// Lock is a held single-instance lock.
type Lock struct {
	f *flock.Flock
}

// Acquire takes the lock at path without waiting.
func Acquire(path string) (*Lock, error) {
	f := flock.New(path)
	ok, err := f.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrRunning, path)
	}
	return &Lock{f: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.f.Path() }

// Release drops the lock.
func (l *Lock) Release() error {
	return l.f.Unlock()
}
