package intent

import (
	"time"

	"github.com/ecatcyclic/ecatmgr/status"
)

// DefaultHomingTimeout bounds how long the homing tracker waits for
// the drive to report complete or failed after the start pulse before
// declaring the homing attempt timed out.
const DefaultHomingTimeout = 30 * time.Second

// CiA 402 homing mode: method 0x6098, start bit 4,
// statusword bits 10 (target reached), 12 (homing attained) and 13
// (homing error) are read by the engine and passed in as
// HomingAttained/HomingFailed.
const ModeHoming int8 = 6

// homingAction tags what the engine should do this cycle for a
// drive's homing sequence.
type homingAction int

const (
	homingActionNone homingAction = iota
	homingActionStageParameters
	homingActionSwitchMode
	homingActionPulseStart
)

// homingTracker implements the homing state machine: idle,
// parameters-staged, enabled, in-progress, complete, failed.
type homingTracker struct {
	state    status.HomingState
	deadline time.Time
	started  bool
}

// start begins a new homing sequence, replacing whatever state was
// previously tracked.
func (h *homingTracker) start() {
	h.state = status.HomingParametersStaged
	h.started = false
}

// step advances the homing sequence. modeVerified reports whether the
// drive has confirmed HM mode (0x6061 == ModeHoming); attained and
// failed report the drive's homing-specific statusword bits.
func (h *homingTracker) step(now time.Time, modeVerified, attained, failed bool, timeout time.Duration) homingAction {
	switch h.state {
	case status.HomingIdle:
		return homingActionNone
	case status.HomingParametersStaged:
		h.state = status.HomingEnabled
		return homingActionStageParameters
	case status.HomingEnabled:
		if !modeVerified {
			return homingActionSwitchMode
		}
		h.state = status.HomingInProgress
		h.deadline = now.Add(timeout)
		h.started = true
		return homingActionPulseStart
	case status.HomingInProgress:
		if !h.started {
			h.started = true
			return homingActionPulseStart
		}
		if failed || now.After(h.deadline) {
			h.state = status.HomingFailed
			return homingActionNone
		}
		if attained {
			h.state = status.HomingComplete
			return homingActionNone
		}
		return homingActionNone
	default:
		return homingActionNone
	}
}
