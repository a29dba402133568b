package intent

import "time"

// Defaults for the PP position/bit-4 rescue sub-state machine.
const (
	DefaultStallWindow       = 500 * time.Millisecond
	DefaultBit4CycleInterval = 300 * time.Millisecond
	DefaultMaxRescuesPerTarget = 16
	// DefaultStallMinDelta is the minimum pulses of observed motion
	// within DefaultStallWindow below which the target is considered
	// stalled.
	DefaultStallMinDelta = int32(1)
)

// positionAction tags what the cyclic engine should do with
// controlword bit 4 and 0x607A this cycle.
type positionAction int

const (
	positionActionNone positionAction = iota
	// positionActionPulse asserts bit 4 for exactly one cycle (new
	// set-point, or a stall rescue's re-assert half).
	positionActionPulse
	// positionActionClearBit4 deasserts bit 4, the first half of a
	// stall rescue.
	positionActionClearBit4
	// positionActionStream writes 0x607A every cycle with no bit-4
	// pulse, for CSP mode.
	positionActionStream
)

// positionTracker implements PP/CSP position maintenance and the PP
// bit-4 stall-rescue sub-state machine. The rescue throttle is a
// shift register of timestamps: a bounded history of rescue
// timestamps, consulted before issuing a new one.
type positionTracker struct {
	desired        *int32
	lastApplied    int32
	appliedValid   bool

	ackPending  bool
	ackDeadline time.Time

	lastMotionObserved time.Time
	lastObservedActual int32
	haveObservedActual bool

	rescueHistory []time.Time
	rescueCursor  int
	rescuePhase   int // 0 = idle/pulsed, 1 = bit4 cleared mid-rescue
	rescued       bool
}

func newPositionTracker(maxRescues int) *positionTracker {
	if maxRescues <= 0 {
		maxRescues = DefaultMaxRescuesPerTarget
	}
	return &positionTracker{rescueHistory: make([]time.Time, maxRescues)}
}

// setDesired installs a new position target. It does not itself reset
// lastApplied: the tracker compares against lastApplied to detect the
// change on the next step.
func (p *positionTracker) setDesired(v int32) {
	p.desired = &v
}

// shiftRescue records a rescue attempt in the bounded history,
// shifting older entries back and dropping the oldest.
func (p *positionTracker) shiftRescue(now time.Time) {
	for i := len(p.rescueHistory) - 1; i > 0; i-- {
		p.rescueHistory[i] = p.rescueHistory[i-1]
	}
	p.rescueHistory[0] = now
}

// rescueBudgetExhausted reports whether every slot in the bounded
// history has been used, meaning the configured max-rescues-per-target
// has been reached.
func (p *positionTracker) rescueBudgetExhausted() bool {
	return !p.rescueHistory[len(p.rescueHistory)-1].IsZero()
}

// stepPP advances PP mode's position maintenance for one cycle.
// actualPosition is the drive's current 0x6064 reading; statuswordAck
// reports whether the configured ack mask is currently set in the
// statusword.
func (p *positionTracker) stepPP(now time.Time, actualPosition int32, statuswordAck bool, ackTimeout, stallWindow, bit4Interval time.Duration, minDelta int32) (action positionAction, target int32, escalate bool) {
	if p.desired == nil {
		return positionActionNone, 0, false
	}

	if !p.haveObservedActual {
		p.haveObservedActual = true
		p.lastObservedActual = actualPosition
		p.lastMotionObserved = now
	} else if abs32(actualPosition-p.lastObservedActual) >= minDelta {
		p.lastObservedActual = actualPosition
		p.lastMotionObserved = now
	}

	changed := !p.appliedValid || p.lastApplied != *p.desired
	if changed {
		p.appliedValid = true
		p.lastApplied = *p.desired
		p.ackPending = true
		p.ackDeadline = now.Add(ackTimeout)
		p.lastMotionObserved = now
		p.rescuePhase = 0
		for i := range p.rescueHistory {
			p.rescueHistory[i] = time.Time{}
		}
		return positionActionPulse, *p.desired, false
	}

	if p.ackPending {
		if statuswordAck {
			p.ackPending = false
		} else if now.After(p.ackDeadline) {
			p.ackPending = false
		} else {
			return positionActionNone, *p.desired, false
		}
	}

	if p.rescuePhase == 1 {
		p.rescuePhase = 0
		return positionActionPulse, *p.desired, false
	}

	if now.Sub(p.lastMotionObserved) < stallWindow {
		return positionActionNone, *p.desired, false
	}
	if p.rescueHistory[0].IsZero() || now.Sub(p.rescueHistory[0]) >= bit4Interval {
		if p.rescueBudgetExhausted() {
			return positionActionNone, *p.desired, true
		}
		p.shiftRescue(now)
		p.rescuePhase = 1
		p.lastMotionObserved = now
		return positionActionClearBit4, *p.desired, false
	}
	return positionActionNone, *p.desired, false
}

// stepCSP advances CSP mode's position maintenance: stream 0x607A
// every cycle, no bit-4 pulse.
func (p *positionTracker) stepCSP() (action positionAction, target int32) {
	if p.desired == nil {
		return positionActionNone, 0
	}
	p.lastApplied = *p.desired
	p.appliedValid = true
	return positionActionStream, *p.desired
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
