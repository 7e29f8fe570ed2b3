package os

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockName is the lock file created inside a storage directory.
const LockName = ".mdfront.lock"

var ErrLocked = errors.New("storage dir is used by another instance")

type Flock struct {
	f *flock.Flock
}

// NewDirLock prepares (but does not take) an exclusive lock on dir.
func NewDirLock(dir string) (*Flock, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := CheckCreateDir(dir); err != nil {
		return nil, err
	}
	return &Flock{f: flock.New(filepath.Join(dir, LockName))}, nil
}

// TryLock takes the lock without blocking the frame loop.
func (f *Flock) TryLock() error {
	ok, err := f.f.TryLock()
	if err != nil {
		return err
	}
	if !ok {
		return ErrLocked
	}
	return nil
}

func (f *Flock) Unlock() error { return f.f.Unlock() }
func (f *Flock) Path() string  { return f.f.Path() }
