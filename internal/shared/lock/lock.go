// Package lock provides the single-instance guard for the long-running loops.
// Each loop writes a pid lock file in the data directory; a second instance
// finds a live owner and exits, while a lock left behind by a dead process is
// treated as stale and taken over.
package lock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nightlyone/lockfile"
)

// ErrAlreadyRunning is returned when another live process holds the lock.
var ErrAlreadyRunning = errors.New("lock: another instance is already running")

// Lock is a held pid-file lock.
type Lock struct {
	lf lockfile.Lockfile
}

// Acquire takes the named pid lock in dir. Stale locks (recorded process no
// longer alive) are stolen; a live owner yields ErrAlreadyRunning.
func Acquire(dir, name string) (*Lock, error) {
	path, err := filepath.Abs(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("lock: resolve path: %w", err)
	}

	lf, err := lockfile.New(path)
	if err != nil {
		return nil, fmt.Errorf("lock: %w", err)
	}

	if err := lf.TryLock(); err != nil {
		if errors.Is(err, lockfile.ErrBusy) {
			return nil, ErrAlreadyRunning
		}
		return nil, fmt.Errorf("lock: acquire %s: %w", path, err)
	}

	return &Lock{lf: lf}, nil
}

// Release removes the lock file. Safe to call on shutdown paths where the
// lock may already be gone.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	_ = l.lf.Unlock()
}
