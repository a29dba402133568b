package master

import (
	"fmt"

	"github.com/gofrs/flock"
)

// lockPathFor returns the filesystem path used to enforce the
// "only one OS process ever holds the master handle" invariant for a
// given master index.
func lockPathFor(masterIndex int) string {
	return fmt.Sprintf("/var/lock/ecatcyclicd.master%d.lock", masterIndex)
}

// DeviceLock enforces the single-owner-process invariant with an
// advisory file lock, so a second supervisor started against the same
// master index fails fast at startup instead of racing the kernel
// library for the device.
type DeviceLock struct {
	fl *flock.Flock
}

// AcquireDeviceLock attempts a non-blocking exclusive lock on the
// device-lock path for masterIndex. A lock already held elsewhere
// returns ErrMasterBusy; any other flock failure returns
// ErrLibraryUnavailable with the underlying detail.
func AcquireDeviceLock(masterIndex int) (*DeviceLock, error) {
	fl := flock.New(lockPathFor(masterIndex))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, detailed(ErrLibraryUnavailable, err.Error())
	}
	if !locked {
		return nil, ErrMasterBusy
	}
	return &DeviceLock{fl: fl}, nil
}

// Release drops the lock. Safe to call on a nil *DeviceLock.
func (l *DeviceLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// Path reports the filesystem path backing this lock.
func (l *DeviceLock) Path() string {
	if l == nil || l.fl == nil {
		return ""
	}
	return l.fl.Path()
}
