// Package runlock serializes concurrent invocations of the update pipeline
// through an advisory file lock.
package runlock

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

const (
	lockPathRequiredMessageConstant = "lock file path must be provided"
	lockHeldMessageConstant         = "another update run is already active"
	lockAcquireErrorTemplate        = "unable to acquire run lock %s: %w"
	lockReleaseErrorTemplate        = "unable to release run lock %s: %w"
)

// ErrLockPathRequired indicates the lock was constructed without a path.
var ErrLockPathRequired = errors.New(lockPathRequiredMessageConstant)

// ErrRunAlreadyActive indicates another process currently holds the run lock.
var ErrRunAlreadyActive = errors.New(lockHeldMessageConstant)

// RunLock guards a single pipeline invocation via flock.
type RunLock struct {
	lockPath string
	fileLock *flock.Flock
}

// New constructs a RunLock for the provided lock file path.
func New(lockPath string) (*RunLock, error) {
	if len(lockPath) == 0 {
		return nil, ErrLockPathRequired
	}
	return &RunLock{lockPath: lockPath, fileLock: flock.New(lockPath)}, nil
}

// Path returns the lock file location.
func (lock *RunLock) Path() string {
	return lock.lockPath
}

// Acquire attempts a non-blocking lock and fails when another run holds it.
func (lock *RunLock) Acquire() error {
	lockObtained, lockError := lock.fileLock.TryLock()
	if lockError != nil {
		return fmt.Errorf(lockAcquireErrorTemplate, lock.lockPath, lockError)
	}
	if !lockObtained {
		return ErrRunAlreadyActive
	}
	return nil
}

// Release unlocks the run lock.
func (lock *RunLock) Release() error {
	if unlockError := lock.fileLock.Unlock(); unlockError != nil {
		return fmt.Errorf(lockReleaseErrorTemplate, lock.lockPath, unlockError)
	}
	return nil
}
