package handle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/status"
)

func TestMutatingCallsNeverBlock(t *testing.T) {
	out := make(chan command.Command, 1)
	h := New(0, out, NewCache())

	require.NoError(t, h.SetVelocity(1000))
	err := h.SetVelocity(2000)
	require.ErrorIs(t, err, ErrCommandQueueFull)
}

func TestStatusReflectsCacheUpdate(t *testing.T) {
	out := make(chan command.Command, 8)
	cache := NewCache()
	h := New(0, out, cache)
	h.throttle = 0

	_, ok := h.Status()
	require.False(t, ok)

	cache.Update(status.NetworkStatus{Drives: []status.DriveStatus{{Position: 0, Statusword: 0x27}}})
	ds, ok := h.Status()
	require.True(t, ok)
	require.Equal(t, uint16(0x27), ds.Statusword)
}

func TestStatusThrottleServesStaleReadWithinWindow(t *testing.T) {
	out := make(chan command.Command, 8)
	cache := NewCache()
	h := New(0, out, cache)
	h.throttle = time.Hour

	cache.Update(status.NetworkStatus{Drives: []status.DriveStatus{{Position: 0, Statusword: 1}}})
	ds1, _ := h.Status()

	cache.Update(status.NetworkStatus{Drives: []status.DriveStatus{{Position: 0, Statusword: 2}}})
	ds2, _ := h.Status()

	require.Equal(t, ds1.Statusword, ds2.Statusword)
}

func TestArmProbeEnqueuesExpectedCommand(t *testing.T) {
	out := make(chan command.Command, 1)
	h := New(5, out, NewCache())
	require.NoError(t, h.ArmProbe(command.ProbeEdgePositive))

	c := <-out
	require.Equal(t, command.KindArmProbe, c.Kind)
	require.Equal(t, uint16(5), c.Position)
}
