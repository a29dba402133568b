package master

import (
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/require"
)

func TestDeviceLockRejectsSecondHolder(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/master0.lock"

	first := flock.New(path)
	locked, err := first.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer first.Unlock()

	second := flock.New(path)
	locked, err = second.TryLock()
	require.NoError(t, err)
	require.False(t, locked, "second holder must not acquire the lock")
}

func TestAdapterErrorIs(t *testing.T) {
	err := detailed(ErrMasterBusy, "master 0 already held")
	require.ErrorIs(t, err, ErrMasterBusy)
	require.NotErrorIs(t, err, ErrDomainError)
}

func TestSdoAbortErrorMessage(t *testing.T) {
	err := &SdoAbortError{Position: 3, Index: 0x6040, Subindex: 0, Code: 0x05030000}
	require.Contains(t, err.Error(), "6040")
}

func TestLockPathForDiffersPerMasterIndex(t *testing.T) {
	require.NotEqual(t, lockPathFor(0), lockPathFor(1))
}
