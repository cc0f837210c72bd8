package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
)

// FileLock manages a file-based lock so that only one earningcalls process
// at a time writes to a shared resource (the SQLite store or an audit log).
type FileLock struct {
	lock *flock.Flock
	path string
}

// NewFileLock creates a new lock guarding the given path.
func NewFileLock(path string) (*FileLock, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("could not resolve lock path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &FileLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the lock, waiting if necessary.
// It will print a message if it has to wait.
func (l *FileLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		fmt.Fprintf(os.Stderr, "Another earningcalls process is writing, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the lock.
func (l *FileLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}
