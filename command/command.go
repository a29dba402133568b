// Package command defines the tagged-union command records that cross
// the command queue from the drive handle to the cyclic engine.
package command

import "github.com/google/uuid"

// Kind tags which variant of Command is populated.
type Kind int

const (
	KindSetVelocityMode Kind = iota
	KindSetPositionMode
	KindSetCSPMode
	KindSetHomingMode
	KindSetVelocity
	KindSetPosition
	KindArmProbe
	KindDisableProbe
	KindClearFault
	KindStartHoming
)

func (k Kind) String() string {
	switch k {
	case KindSetVelocityMode:
		return "set-velocity-mode"
	case KindSetPositionMode:
		return "set-position-mode"
	case KindSetCSPMode:
		return "set-csp-mode"
	case KindSetHomingMode:
		return "set-homing-mode"
	case KindSetVelocity:
		return "set-velocity"
	case KindSetPosition:
		return "set-position"
	case KindArmProbe:
		return "arm-probe"
	case KindDisableProbe:
		return "disable-probe"
	case KindClearFault:
		return "clear-fault"
	case KindStartHoming:
		return "start-homing"
	default:
		return "unknown"
	}
}

// PositionMode distinguishes the two ways a SetPosition command can be
// interpreted: profile position or cyclic synchronous position.
type PositionMode int

const (
	PositionModePP PositionMode = iota
	PositionModeCSP
)

// ProbeEdge selects which latch edge an ArmProbe command targets.
type ProbeEdge int

const (
	ProbeEdgePositive ProbeEdge = iota
	ProbeEdgeNegative
	ProbeEdgeBoth
)

// Command is a single enqueued intent mutation targeting one drive
// (identified by bus position). Only the fields relevant to Kind are
// meaningful: a single envelope type carries an ID and a payload
// rather than per-kind channel types, since the queue itself is
// kind-agnostic.
type Command struct {
	ID       uuid.UUID
	Position uint16
	Kind     Kind

	Velocity       int32
	TargetPosition int32
	PositionMode   PositionMode
	ProbeEdge      ProbeEdge
}

// New builds a Command of the given kind for the given drive, stamping
// a fresh trace ID. Callers fill in the kind-specific fields on the
// returned value before enqueuing it.
func New(position uint16, kind Kind) Command {
	return Command{
		ID:       uuid.New(),
		Position: position,
		Kind:     kind,
	}
}

// SetVelocity builds a velocity-intent command.
func SetVelocity(position uint16, pulses int32) Command {
	c := New(position, KindSetVelocity)
	c.Velocity = pulses
	return c
}

// SetPosition builds a position-intent command for either PP or CSP
// mode.
func SetPosition(position uint16, pulses int32, mode PositionMode) Command {
	c := New(position, KindSetPosition)
	c.TargetPosition = pulses
	c.PositionMode = mode
	return c
}

// ArmProbe builds a probe-arm command for the given edge.
func ArmProbe(position uint16, edge ProbeEdge) Command {
	c := New(position, KindArmProbe)
	c.ProbeEdge = edge
	return c
}
