// Package lockfile holds an exclusive advisory lock on a data directory so
// that two processes never mutate the same database and blob tree at once.
// Locks are flock(2) locks on an open file description: they are released
// when the holder exits, so a crashed server never leaves a stale lock.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/sys/unix"
)

// ErrLocked reports that another holder owns the lock.
var ErrLocked = errors.New("lock is held by another process")

// Lock is a held lock file.
type Lock struct {
	path string
	f    *os.File
}

// Acquire takes the lock at path without blocking, creating the file if
// needed. The holder's pid is written into the file for operators.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{path: path, f: f}, nil
}

// Path is the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock. The file is left in place; unlinking it would let
// a waiter lock an inode nobody else can see.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	unlockErr := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	closeErr := l.f.Close()
	l.f = nil
	return errors.Join(unlockErr, closeErr)
}
