package netconfig

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ecatcyclic/ecatmgr/esi"
)

func validDrive(pos uint16) DriveConfig {
	return DriveConfig{
		Position: pos,
		Features: esi.FeatureSet{
			RxPDOs: []esi.PdoDescriptor{{Index: 0x1600}},
		},
		Unit: UnitConversion{PulsesPerUnit: 1000, Scale: 1},
	}
}

func TestVerifyRejectsNoDrives(t *testing.T) {
	nc := NetworkConfig{MasterIndex: 0, CyclePeriod: time.Millisecond}
	require.ErrorIs(t, nc.Verify(), ErrNoDrives)
}

func TestVerifyRejectsDuplicatePosition(t *testing.T) {
	nc := NetworkConfig{
		MasterIndex: 0,
		CyclePeriod: time.Millisecond,
		Drives:      []DriveConfig{validDrive(0), validDrive(0)},
	}
	require.ErrorIs(t, nc.Verify(), ErrDuplicatePos)
}

func TestVerifyRejectsZeroPulsesPerUnit(t *testing.T) {
	d := validDrive(0)
	d.Unit.PulsesPerUnit = 0
	nc := NetworkConfig{
		MasterIndex: 0,
		CyclePeriod: time.Millisecond,
		Drives:      []DriveConfig{d},
	}
	require.Error(t, nc.Verify())
}

func TestWithDefaultsFillsTunables(t *testing.T) {
	nc := NetworkConfig{}.WithDefaults()
	require.Equal(t, DefaultEnableTransitionPacing, nc.EnableTransitionPacing)
	require.Equal(t, DefaultPPAckMask, nc.PPAckMask)
	require.Equal(t, DefaultShutdownJoinWait, nc.ShutdownJoinWait)
}

func TestUnitConversionRoundTrip(t *testing.T) {
	u := UnitConversion{PulsesPerUnit: 1000, Scale: 1}
	p := u.ToPulses(2.5)
	require.Equal(t, int32(2500), p)
	require.InDelta(t, 2.5, u.FromPulses(p), 0.0001)
}

func TestLoadBytes(t *testing.T) {
	doc := `
[global]
master-index = 0
cycle-period-ms = 2
sdo-only = false
op-state-timeout-s = 5
enable-transition-pacing-ms = 100
pp-ack-mask = 4096
pp-ack-timeout-ms = 200
shutdown-join-wait-ms = 2000
preflight-enabled = true
preflight-delay-ms = 50

[drive "0"]
alias = 1
vendor = 0x1234
product = 0x5678
esi-path = /etc/ecatcyclic/drive0.xml
pulses-per-unit = 10000
scale = 1
velocity = 50000
acceleration = 100000
max-velocity = 200000
`
	nc, err := LoadBytes([]byte(doc))
	require.NoError(t, err)
	require.Equal(t, 0, nc.MasterIndex)
	require.Equal(t, 2*time.Millisecond, nc.CyclePeriod)
	require.Len(t, nc.Drives, 1)
	require.Equal(t, uint16(0), nc.Drives[0].Position)
	require.Equal(t, "/etc/ecatcyclic/drive0.xml", nc.Drives[0].ESIPath)
	require.True(t, nc.PreflightEnabled)
}

func TestLoadBytesTooLarge(t *testing.T) {
	big := make([]byte, maxConfigSize+1)
	_, err := LoadBytes(big)
	require.ErrorIs(t, err, ErrConfigFileTooLarge)
}
