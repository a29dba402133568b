package intent

import "time"

// PowerState mirrors the CiA 402 power-state machine decoded from the
// low byte of statusword.
type PowerState int

const (
	PowerNotReadyToSwitchOn PowerState = iota
	PowerSwitchOnDisabled
	PowerReadyToSwitchOn
	PowerSwitchedOn
	PowerOperationEnabled
	PowerQuickStopActive
	PowerFaultReactionActive
	PowerFault
)

func (p PowerState) String() string {
	switch p {
	case PowerNotReadyToSwitchOn:
		return "not-ready-to-switch-on"
	case PowerSwitchOnDisabled:
		return "switch-on-disabled"
	case PowerReadyToSwitchOn:
		return "ready-to-switch-on"
	case PowerSwitchedOn:
		return "switched-on"
	case PowerOperationEnabled:
		return "operation-enabled"
	case PowerQuickStopActive:
		return "quick-stop-active"
	case PowerFaultReactionActive:
		return "fault-reaction-active"
	case PowerFault:
		return "fault"
	default:
		return "unknown"
	}
}

// DecodePowerState reads the CiA 402 power-state bits out of a
// statusword value (bits 0-3, 5, 6).
func DecodePowerState(statusword uint16) PowerState {
	masked := statusword & 0x6F
	switch masked {
	case 0x00, 0x20, 0x40, 0x60:
		if masked == 0x40 {
			return PowerSwitchOnDisabled
		}
		return PowerNotReadyToSwitchOn
	case 0x21:
		return PowerReadyToSwitchOn
	case 0x23:
		return PowerSwitchedOn
	case 0x27:
		return PowerOperationEnabled
	case 0x07:
		return PowerQuickStopActive
	case 0x0F:
		return PowerFaultReactionActive
	case 0x08, 0x28, 0x2F:
		return PowerFault
	default:
		return PowerNotReadyToSwitchOn
	}
}

// CiA 402 controlword transition edges.
const (
	ControlwordFaultReset        uint16 = 0x0080
	ControlwordShutdown          uint16 = 0x0006
	ControlwordSwitchOn          uint16 = 0x0007
	ControlwordEnableOperation   uint16 = 0x000F
)

// powerTracker advances the CiA 402 power state one edge per cycle,
// pacing transitions by the configured enable-transition period so
// drives that need settle time aren't overrun.
type powerTracker struct {
	lastTransition time.Time
}

// step inspects the current decoded state and returns the next
// controlword to write and whether to write it this cycle (in FAULT
// with a reset pending, that controlword is the fault-reset edge).
// now is the cycle's timestamp; pacing is the
// configured minimum interval between transitions.
func (t *powerTracker) step(now time.Time, state PowerState, faultResetPending bool, pacing time.Duration) (controlword uint16, shouldWrite bool) {
	if state == PowerFault {
		if faultResetPending {
			t.lastTransition = now
			return ControlwordFaultReset, true
		}
		return 0, false
	}
	if !t.lastTransition.IsZero() && now.Sub(t.lastTransition) < pacing {
		return 0, false
	}
	switch state {
	case PowerSwitchOnDisabled, PowerNotReadyToSwitchOn:
		controlword, shouldWrite = ControlwordShutdown, true
	case PowerReadyToSwitchOn:
		controlword, shouldWrite = ControlwordSwitchOn, true
	case PowerSwitchedOn:
		controlword, shouldWrite = ControlwordEnableOperation, true
	case PowerOperationEnabled:
		return 0, false
	default:
		return 0, false
	}
	if shouldWrite {
		t.lastTransition = now
	}
	return
}
