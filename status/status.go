// Package status defines the immutable snapshot records produced by
// the status publisher and read by the drive handle.
package status

import (
	"github.com/ecatcyclic/ecatmgr/pdo"
	"github.com/ecatcyclic/ecatmgr/wire"
)

// HomingState mirrors the homing progression tracked on DriveIntent
// so the publisher can surface it without reaching into
// engine-internal state.
type HomingState int

const (
	HomingIdle HomingState = iota
	HomingParametersStaged
	HomingEnabled
	HomingInProgress
	HomingComplete
	HomingFailed
)

func (h HomingState) String() string {
	switch h {
	case HomingIdle:
		return "idle"
	case HomingParametersStaged:
		return "parameters-staged"
	case HomingEnabled:
		return "enabled"
	case HomingInProgress:
		return "in-progress"
	case HomingComplete:
		return "complete"
	case HomingFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// DriveStatus is one drive's slice of a NetworkStatus snapshot: a
// per-drive record of statusword, mode display, position
// actual, velocity actual, probe active flag, probe positive-edge
// position, probe negative-edge position, digital-inputs word, fault
// code when present, and per-object PDO health tag.
type DriveStatus struct {
	Position uint16

	Statusword  uint16
	ModeDisplay int8

	PositionActual int32
	VelocityActual int32

	ProbeActive            bool
	ProbePositiveEdgePos   int32
	ProbeNegativeEdgePos   int32
	DigitalInputs          uint32

	FaultCode   uint16
	HasFault    bool

	Homing HomingState

	// ModeVerifyFailed is set once the mode-verify attempt budget is
	// exhausted.
	ModeVerifyFailed bool

	// PPStallEscalated is set once bit-4 rescue attempts for the
	// current target are exhausted.
	PPStallEscalated bool

	// PolarityWriteRefused resolves Open Question 3: it flags that a
	// drive rejected a post-activation 0x607E write. The engine issues
	// no polarity write and no code sets this flag, so it is always
	// false.
	PolarityWriteRefused bool

	// CommandQueueOverflows is a cumulative per-drive count of command
	// enqueue attempts rejected because the command queue was full.
	CommandQueueOverflows uint64

	ObjectHealth map[wire.Object]pdo.Health
}

// NetworkStatus is the immutable snapshot the status publisher sends
// on the status queue.
type NetworkStatus struct {
	TimestampNs int64
	CyclePeriod int64
	SdoOnly     bool

	Drives []DriveStatus
}

// ByPosition returns the DriveStatus for the given bus position, and
// whether it was found in the snapshot.
func (ns NetworkStatus) ByPosition(position uint16) (DriveStatus, bool) {
	for _, d := range ns.Drives {
		if d.Position == position {
			return d, true
		}
	}
	return DriveStatus{}, false
}
