// Package lockfile implements the advisory exclusive lock that guards
// against concurrent cowpub runs (spec.md §5/§6): a non-blocking flock on
// a well-known path, using syscall.Flock directly rather than a lock-file
// library, as igor/del.go does for its reservations file (there with a
// blocking LOCK_EX).
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"syscall"
)

// ErrLocked is returned by Acquire when another process already holds the
// lock. The CLI maps this to exit code 2 per spec.md §6.
var ErrLocked = errors.New("lockfile: already locked by another process")

// Lock is a held advisory exclusive lock on a file. Release unlocks and
// closes it.
type Lock struct {
	f *os.File
}

// Acquire opens (creating if necessary) the file at path and takes a
// non-blocking exclusive flock on it. It returns ErrLocked if another
// process holds the lock.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("lockfile: opening %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lockfile: locking %s: %w", path, err)
	}

	return &Lock{f: f}, nil
}

// Release unlocks and closes the lock file. Safe to call once; the lock is
// also implicitly released if the process exits.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return closeErr
}
