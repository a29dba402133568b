// Package intent holds the per-drive mutable record the cyclic engine
// exclusively owns and the sub-state machines
// that drive its per-cycle maintenance: CiA 402 power
// state, mode-switch verification, probe arming, PP bit-4 stall
// rescue, and homing.
package intent

import (
	"time"

	"github.com/ecatcyclic/ecatmgr/command"
)

// Config bundles the tunables a Drive's state machines need, sourced
// from netconfig.NetworkConfig/DriveConfig at setup.
type Config struct {
	EnableTransitionPacing time.Duration
	ModeVerifyRetry        time.Duration
	ModeVerifyBudget       int
	ProbeTransitionWindow  time.Duration
	ProbeRetryBudget       int
	StallWindow            time.Duration
	Bit4CycleInterval      time.Duration
	MaxRescuesPerTarget    int
	StallMinDelta          int32
	PPAckTimeout           time.Duration
	HomingTimeout          time.Duration
}

// DefaultConfig returns the package's default tuning values.
func DefaultConfig() Config {
	return Config{
		EnableTransitionPacing: 100 * time.Millisecond,
		ModeVerifyRetry:        DefaultModeVerifyRetryInterval,
		ModeVerifyBudget:       DefaultModeVerifyAttemptBudget,
		ProbeTransitionWindow:  DefaultProbeTransitionWindow,
		ProbeRetryBudget:       DefaultProbeReadbackRetryBudget,
		StallWindow:            DefaultStallWindow,
		Bit4CycleInterval:      DefaultBit4CycleInterval,
		MaxRescuesPerTarget:    DefaultMaxRescuesPerTarget,
		StallMinDelta:          DefaultStallMinDelta,
		PPAckTimeout:           200 * time.Millisecond,
		HomingTimeout:          DefaultHomingTimeout,
	}
}

// Mode mirrors the CiA 402 modes of operation this engine drives.
type Mode int8

const (
	ModeNone     Mode = 0
	ModeVelocity Mode = 3
	ModePP       Mode = 1
	ModeCSP      Mode = 8
	ModeHM       Mode = Mode(ModeHoming)
)

// Drive is one slave's intent state plus its sub-state machines. The
// cyclic engine creates one per configured drive at setup and
// destroys it at teardown; nothing outside this package and the engine
// ever touches it.
type Drive struct {
	Position uint16
	cfg      Config

	mode  modeTracker
	power powerTracker
	probe probeTracker
	pos   *positionTracker
	homing homingTracker

	faultResetRequested bool
	currentMode         Mode
	desiredVelocity     *int32
}

// NewDrive constructs an empty Drive for the given bus position.
func NewDrive(position uint16, cfg Config) *Drive {
	return &Drive{
		Position: position,
		cfg:      cfg,
		pos:      newPositionTracker(cfg.MaxRescuesPerTarget),
	}
}

// Apply folds a drained command into this drive's intent. It is the
// only way intent state changes outside of a Step call.
func (d *Drive) Apply(now time.Time, c command.Command) {
	switch c.Kind {
	case command.KindSetVelocityMode:
		d.setMode(ModeVelocity)
	case command.KindSetPositionMode:
		if c.PositionMode == command.PositionModeCSP {
			d.setMode(ModeCSP)
		} else {
			d.setMode(ModePP)
		}
	case command.KindSetCSPMode:
		d.setMode(ModeCSP)
	case command.KindSetHomingMode:
		d.setMode(ModeHM)
	case command.KindSetVelocity:
		d.setVelocity(c.Velocity)
	case command.KindSetPosition:
		d.setPosition(c.TargetPosition)
	case command.KindArmProbe:
		d.probe.requestArm(now, probeFunctionFor(c.ProbeEdge), d.cfg.ProbeTransitionWindow)
	case command.KindDisableProbe:
		d.probe.requestDisable()
	case command.KindClearFault:
		d.faultResetRequested = true
	case command.KindStartHoming:
		d.setMode(ModeHM)
		d.homing.start()
	}
}

func probeFunctionFor(edge command.ProbeEdge) uint16 {
	switch edge {
	case command.ProbeEdgePositive:
		return 0x0011
	case command.ProbeEdgeNegative:
		return 0x0021
	case command.ProbeEdgeBoth:
		return 0x0031
	default:
		return 0x0000
	}
}

func (d *Drive) setMode(m Mode) {
	d.currentMode = m
	mm := int8(m)
	d.mode.setDesired(mm)
}

func (d *Drive) setVelocity(pulses int32) {
	d.desiredVelocity = &pulses
}

func (d *Drive) setPosition(pulses int32) {
	d.pos.setDesired(pulses)
}
