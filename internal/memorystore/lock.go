package memorystore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var errLock = errors.New("memory store lock")

// lockPath is the advisory lock guarding read-modify-write of the document.
// It is never removed; deleting it would let two writers lock different
// inodes.
func (s *Store) lockPath() string {
	return s.path + ".lock"
}

// withFileLock runs fn holding an exclusive lock on lockPath. Each call
// opens its own descriptor, so two Stores on one path exclude each other
// even inside one process.
func (s *Store) withFileLock(fn func() error) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating memory store directory: %w", err)
	}
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", errLock, s.lockPath(), err)
	}
	defer f.Close()

	if err := lockFile(f); err != nil {
		return fmt.Errorf("%w: acquiring %s: %v", errLock, s.lockPath(), err)
	}
	defer unlockFile(f)

	return fn()
}
