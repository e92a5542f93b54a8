package store

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	omnierrors "github.com/omnicontext/omnicontext/internal/errors"
)

// InstanceLock guards `<repoRoot>/.omnicontext/lock` with an exclusive
// cross-process file lock, so two orchestrator instances never open the
// same metadata store concurrently.
type InstanceLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewInstanceLock builds a lock at path. It does not acquire it.
func NewInstanceLock(path string) *InstanceLock {
	return &InstanceLock{path: path, flock: flock.New(path)}
}

// TryLock attempts to acquire the lock without blocking, creating the
// containing directory if needed.
func (l *InstanceLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	l.locked = acquired
	return acquired, nil
}

// Unlock releases the lock. Safe to call when not held.
func (l *InstanceLock) Unlock() error {
	if !l.locked {
		return nil
	}
	err := l.flock.Unlock()
	l.locked = false
	if err != nil {
		return omnierrors.Wrap(omnierrors.CodeIO, err)
	}
	return nil
}

// IsLocked reports whether this process currently holds the lock.
func (l *InstanceLock) IsLocked() bool { return l.locked }
