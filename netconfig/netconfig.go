// Package netconfig holds the immutable, process-wide configuration
// handed to the process supervisor at start.
package netconfig

import (
	"errors"
	"fmt"
	"time"

	"github.com/ecatcyclic/ecatmgr/esi"
	"github.com/ecatcyclic/ecatmgr/wire"
)

// SoftLimitPolicy is the software position/velocity limit policy a
// drive's configuration names. The cyclic engine does not read it and
// enforces no software limit.
type SoftLimitPolicy int

const (
	SoftLimitIgnore SoftLimitPolicy = iota
	SoftLimitClamp
	SoftLimitFault
)

func (p SoftLimitPolicy) String() string {
	switch p {
	case SoftLimitIgnore:
		return "ignore"
	case SoftLimitClamp:
		return "clamp"
	case SoftLimitFault:
		return "fault"
	default:
		return "unknown"
	}
}

// DCSettings carries a drive's distributed-clock configuration: sync0
// cycle and shift, sync1 cycle and shift.
type DCSettings struct {
	Enable         bool
	AssignActivate uint16
	Sync0CycleNs   uint32
	Sync0ShiftNs   int32
	Sync1CycleNs   uint32
	Sync1ShiftNs   int32
}

// UnitConversion converts between a drive's pulses and the
// application's user units.
type UnitConversion struct {
	PulsesPerUnit float64
	Scale         float64
}

// ToPulses converts a user-unit value into drive pulses.
func (u UnitConversion) ToPulses(v float64) int32 {
	return int32(v * u.Scale * u.PulsesPerUnit)
}

// FromPulses converts a drive pulse count into user units.
func (u UnitConversion) FromPulses(p int32) float64 {
	if u.PulsesPerUnit == 0 {
		return 0
	}
	return float64(p) / (u.Scale * u.PulsesPerUnit)
}

// ProfileDefaults carries a drive's CiA 402 profile defaults as loaded
// from configuration. The cyclic engine does not apply them: no default
// is written to the drive and commanded velocities are not clamped to
// MaxVelocity.
type ProfileDefaults struct {
	Velocity        int32
	Acceleration    int32
	Polarity        uint8
	InertiaRatio    float64
	SoftLimitPolicy SoftLimitPolicy
	MaxVelocity     int32
}

// HomingParams carries a drive's CiA 402 homing method parameters
// (object 0x6098 and friends).
type HomingParams struct {
	Method    int8
	SearchVel int32
	ZeroVel   int32
	Accel     uint32
	Offset    int32
}

// TrajectorySettings configures the optional jerk-limited trajectory
// generator collaborator. A zero value disables
// it; the engine then expects position intents to already be
// interpolated by the caller.
type TrajectorySettings struct {
	Enabled        bool
	MaxJerk        float64
	MaxAcceleration float64
}

// PdoOverride lets a DriveConfig replace the ESI-derived default PDO
// layout with an explicit one.
type PdoOverride struct {
	RxPDOs []esi.PdoDescriptor
	TxPDOs []esi.PdoDescriptor
}

// DriveConfig is a single slave's immutable configuration.
type DriveConfig struct {
	Position uint16
	Alias    uint16
	Vendor   uint32
	Product  uint32

	// ESIPath and Features are mutually exclusive ESI references: a
	// path to be loaded with esi.LoadFile, or a pre-parsed feature
	// set supplied directly by a richer decoder.
	ESIPath  string
	Features esi.FeatureSet

	PdoOverride *PdoOverride

	DC   DCSettings
	Unit UnitConversion

	Profile ProfileDefaults
	Homing  HomingParams

	Trajectory TrajectorySettings
}

// resolveFeatures returns cfg's feature set: the ESI file at ESIPath
// when one is set, otherwise Features.
func (cfg DriveConfig) resolveFeatures() (esi.FeatureSet, error) {
	if cfg.ESIPath == "" {
		return cfg.Features, nil
	}
	return esi.LoadFile(cfg.ESIPath)
}

// RxPDOs returns the drive's effective receive-PDO layout: the
// explicit override when present, otherwise the ESI-derived default.
func (cfg DriveConfig) RxPDOs() ([]esi.PdoDescriptor, error) {
	if cfg.PdoOverride != nil {
		return cfg.PdoOverride.RxPDOs, nil
	}
	fs, err := cfg.resolveFeatures()
	if err != nil {
		return nil, err
	}
	return fs.RxPDOs, nil
}

// TxPDOs returns the drive's effective transmit-PDO layout.
func (cfg DriveConfig) TxPDOs() ([]esi.PdoDescriptor, error) {
	if cfg.PdoOverride != nil {
		return cfg.PdoOverride.TxPDOs, nil
	}
	fs, err := cfg.resolveFeatures()
	if err != nil {
		return nil, err
	}
	return fs.TxPDOs, nil
}

// Validate checks cfg for the constraints the cyclic engine's startup
// sequence depends on.
func (cfg DriveConfig) Validate(sdoOnly bool) error {
	if cfg.ESIPath == "" && len(cfg.Features.RxPDOs) == 0 && len(cfg.Features.TxPDOs) == 0 && cfg.PdoOverride == nil {
		return fmt.Errorf("netconfig: drive %d: no ESI path, feature set, or PDO override given", cfg.Position)
	}
	if cfg.Unit.PulsesPerUnit == 0 {
		return fmt.Errorf("netconfig: drive %d: pulses-per-unit must be nonzero", cfg.Position)
	}
	return nil
}

// NetworkConfig is the immutable, process-wide configuration handed to
// the supervisor at start.
type NetworkConfig struct {
	MasterIndex int
	CyclePeriod time.Duration
	SdoOnly     bool

	OpStateTimeout time.Duration

	EnableTransitionPacing time.Duration

	PPAckMask    uint16
	PPAckTimeout time.Duration

	ShutdownJoinWait time.Duration

	// PreflightEnabled permits the supervisor's best-effort
	// stale-holder release on startup.
	PreflightEnabled bool
	PreflightDelay   time.Duration

	Drives []DriveConfig
}

var (
	ErrNoDrives        = errors.New("netconfig: at least one drive is required")
	ErrInvalidPeriod   = errors.New("netconfig: cycle period must be positive")
	ErrInvalidMaster   = errors.New("netconfig: master index must be non-negative")
	ErrDuplicatePos    = errors.New("netconfig: duplicate drive bus position")
)

// DefaultEnableTransitionPacing is the default enable-transition
// period between CiA 402 power-state controlword writes.
const DefaultEnableTransitionPacing = 100 * time.Millisecond

// DefaultPPAckMask is the default PP set-point-acknowledged
// mask: bit 12 of the statusword.
const DefaultPPAckMask uint16 = 1 << 12

// DefaultShutdownJoinWait is the supervisor's default bounded join
// wait before force-termination.
const DefaultShutdownJoinWait = 2 * time.Second

// Verify checks nc against its own field invariants and the constraints
// the startup sequence requires before it ever touches the master
// adapter. Neither it nor DriveConfig.Validate opens ESI files:
// Validate only checks that each drive names an ESI source or PDO
// override and has a nonzero pulses-per-unit, and does not use its
// sdoOnly argument.
func (nc NetworkConfig) Verify() error {
	if nc.MasterIndex < 0 {
		return ErrInvalidMaster
	}
	if nc.CyclePeriod <= 0 {
		return ErrInvalidPeriod
	}
	if len(nc.Drives) == 0 {
		return ErrNoDrives
	}
	seen := make(map[uint16]bool, len(nc.Drives))
	for _, d := range nc.Drives {
		if seen[d.Position] {
			return fmt.Errorf("%w: %d", ErrDuplicatePos, d.Position)
		}
		seen[d.Position] = true
		if err := d.Validate(nc.SdoOnly); err != nil {
			return err
		}
	}
	return nil
}

// WithDefaults returns a copy of nc with zero-valued tunables replaced
// by their documented defaults.
func (nc NetworkConfig) WithDefaults() NetworkConfig {
	out := nc
	if out.EnableTransitionPacing == 0 {
		out.EnableTransitionPacing = DefaultEnableTransitionPacing
	}
	if out.PPAckMask == 0 {
		out.PPAckMask = DefaultPPAckMask
	}
	if out.ShutdownJoinWait == 0 {
		out.ShutdownJoinWait = DefaultShutdownJoinWait
	}
	return out
}

// RequiresPdo reports whether obj must be PDO-mapped for this network
// to pass the startup PDO-presence requirement: statusword (0x6041)
// and controlword (0x6040) mapped in PDO at startup.
func RequiresPdo(obj wire.Object) bool {
	return obj == wire.ObjControlword || obj == wire.ObjStatusword
}
