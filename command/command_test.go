package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewStampsUniqueID(t *testing.T) {
	a := New(0, KindClearFault)
	b := New(0, KindClearFault)
	require.NotEqual(t, a.ID, b.ID)
}

func TestSetVelocity(t *testing.T) {
	c := SetVelocity(3, 12345)
	require.Equal(t, KindSetVelocity, c.Kind)
	require.Equal(t, uint16(3), c.Position)
	require.Equal(t, int32(12345), c.Velocity)
}

func TestSetPositionCSP(t *testing.T) {
	c := SetPosition(1, -500, PositionModeCSP)
	require.Equal(t, KindSetPosition, c.Kind)
	require.Equal(t, PositionModeCSP, c.PositionMode)
	require.Equal(t, int32(-500), c.TargetPosition)
}

func TestKindString(t *testing.T) {
	require.Equal(t, "arm-probe", KindArmProbe.String())
	require.Equal(t, "unknown", Kind(99).String())
}
