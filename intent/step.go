package intent

import (
	"time"

	"github.com/ecatcyclic/ecatmgr/status"
)

// Inputs carries everything Step needs to read from the wire this
// cycle. Pointer fields are nil when the underlying object isn't
// mapped in PDO and hasn't been read via SDO this cycle.
type Inputs struct {
	Now time.Time

	Statusword  uint16
	ModeDisplay *int8

	PositionActual int32

	ProbeReadback *uint16

	StatuswordAck bool // whether cfg.PPAckMask bits are currently set

	HomingAttained bool
	HomingFailed   bool
}

// Outputs is everything Step wants written to the wire this cycle,
// plus the status-relevant flags the publisher needs. A nil pointer
// means "nothing to write" for that object.
type Outputs struct {
	Controlword *uint16
	Mode        *int8
	Velocity    *int32
	Position    *int32
	ProbeWrite  *uint16

	HomingStageParameters bool
	HomingSwitchMode      bool

	ModeVerifyFailed bool
	PPStallEscalated bool
}

// Step runs one cycle of intent application for this drive, in this
// order: fault handling, CiA 402 power state, mode maintenance,
// velocity maintenance, position maintenance, probe arm sequence,
// homing.
func (d *Drive) Step(in Inputs) Outputs {
	var out Outputs

	state := DecodePowerState(in.Statusword)
	if cw, write := d.power.step(in.Now, state, d.faultResetRequested, d.cfg.EnableTransitionPacing); write {
		d.faultResetRequested = false
		out.Controlword = &cw
	}

	if mw, write := d.mode.step(in.Now, in.ModeDisplay, d.cfg.ModeVerifyRetry, d.cfg.ModeVerifyBudget); write {
		out.Mode = &mw
	}
	out.ModeVerifyFailed = d.mode.verifyFailed()

	if d.desiredVelocity != nil {
		v := *d.desiredVelocity
		out.Velocity = &v
	}

	switch d.currentMode {
	case ModePP:
		action, target, escalate := d.pos.stepPP(in.Now, in.PositionActual, in.StatuswordAck,
			d.cfg.PPAckTimeout, d.cfg.StallWindow, d.cfg.Bit4CycleInterval, d.cfg.StallMinDelta)
		out.PPStallEscalated = escalate
		switch action {
		case positionActionPulse:
			p := target
			out.Position = &p
			setBit4(&out, true)
		case positionActionClearBit4:
			p := target
			out.Position = &p
			setBit4(&out, false)
		}
	case ModeCSP:
		if action, target := d.pos.stepCSP(); action == positionActionStream {
			p := target
			out.Position = &p
		}
	}

	if action, value := d.probe.step(in.Now, in.ProbeReadback, d.cfg.ProbeTransitionWindow, d.cfg.ProbeRetryBudget); action != probeActionNone {
		v := value
		out.ProbeWrite = &v
	}

	if d.currentMode == ModeHM {
		modeVerified := in.ModeDisplay != nil && *in.ModeDisplay == int8(ModeHoming)
		switch d.homing.step(in.Now, modeVerified, in.HomingAttained, in.HomingFailed, d.cfg.HomingTimeout) {
		case homingActionStageParameters:
			out.HomingStageParameters = true
		case homingActionSwitchMode:
			out.HomingSwitchMode = true
		case homingActionPulseStart:
			setBit4(&out, true)
		}
	}

	return out
}

// setBit4 asserts or clears CiA 402 controlword bit 4 (new set-point /
// homing start) on whatever controlword value Step is about to emit
// this cycle, starting from the drive's last-commanded value if no
// other writer already populated Outputs.Controlword.
func setBit4(out *Outputs, assert bool) {
	var base uint16
	if out.Controlword != nil {
		base = *out.Controlword
	}
	if assert {
		base |= 1 << 4
	} else {
		base &^= 1 << 4
	}
	out.Controlword = &base
}

// HomingState reports the drive's current homing progression.
func (d *Drive) HomingState() status.HomingState {
	return d.homing.state
}
