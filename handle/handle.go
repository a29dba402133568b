// Package handle implements the Drive Handle: the
// application-facing façade for one drive. Every mutating call is
// non-blocking — it enqueues a command.Command and returns — and
// status reads come from a cache refreshed at most once per throttle
// window rather than on every call.
package handle

import (
	"sync"
	"time"

	"github.com/ecatcyclic/ecatmgr/command"
	"github.com/ecatcyclic/ecatmgr/status"
)

// DefaultStatusThrottle bounds how often a Handle re-reads its
// drive's status from the shared cache.
const DefaultStatusThrottle = 20 * time.Millisecond

// Cache is the shared, throttled status mirror every Handle reads
// from. A single Cache is normally shared across all of a network's
// handles; Update is called by whatever drains the status queue (the
// process supervisor's relay does not call it).
type Cache struct {
	mu       sync.RWMutex
	snapshot status.NetworkStatus
	updated  time.Time
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{}
}

// Update replaces the cache's snapshot, called whenever a fresh
// status.NetworkStatus is read off the status queue.
func (c *Cache) Update(ns status.NetworkStatus) {
	c.mu.Lock()
	c.snapshot = ns
	c.updated = time.Now()
	c.mu.Unlock()
}

func (c *Cache) driveStatus(position uint16) (status.DriveStatus, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ds, ok := c.snapshot.ByPosition(position)
	return ds, c.updated, ok
}

// Handle is the non-blocking façade for one drive. It
// never blocks on the cyclic engine: mutating calls push onto a
// bounded command queue and report only enqueue failure, never
// drive-side failure, which is why every status-relevant outcome
// (mode-verify failure, stall escalation, fault) is read back through
// Status instead of a call's return value.
type Handle struct {
	position uint16
	out      chan<- command.Command
	cache    *Cache
	throttle time.Duration

	mu         sync.Mutex
	lastRead   time.Time
	lastStatus status.DriveStatus
	haveStatus bool
}

// New creates a Handle for the drive at position, sending commands
// onto out and reading status from cache.
func New(position uint16, out chan<- command.Command, cache *Cache) *Handle {
	return &Handle{position: position, out: out, cache: cache, throttle: DefaultStatusThrottle}
}

func (h *Handle) enqueue(c command.Command) error {
	select {
	case h.out <- c:
		return nil
	default:
		return ErrCommandQueueFull
	}
}

// ErrCommandQueueFull is returned by every mutating call when the
// command queue is at capacity.
var ErrCommandQueueFull = commandQueueFullError{}

type commandQueueFullError struct{}

func (commandQueueFullError) Error() string { return "handle: command queue full" }

// SetVelocityMode requests PV (profile velocity) mode for this drive.
func (h *Handle) SetVelocityMode() error {
	return h.enqueue(command.New(h.position, command.KindSetVelocityMode))
}

// SetPositionMode requests PP or CSP position mode for this drive.
func (h *Handle) SetPositionMode(mode command.PositionMode) error {
	c := command.New(h.position, command.KindSetPositionMode)
	c.PositionMode = mode
	return h.enqueue(c)
}

// SetHomingMode requests HM (homing) mode for this drive.
func (h *Handle) SetHomingMode() error {
	return h.enqueue(command.New(h.position, command.KindSetHomingMode))
}

// SetVelocity sets the target velocity intent in drive pulses.
func (h *Handle) SetVelocity(pulses int32) error {
	return h.enqueue(command.SetVelocity(h.position, pulses))
}

// SetPositionAbsolute sets an absolute target position intent,
// applied via PP.
func (h *Handle) SetPositionAbsolute(pulses int32) error {
	return h.enqueue(command.SetPosition(h.position, pulses, command.PositionModePP))
}

// SetPositionCSP streams a cyclic synchronous position target.
func (h *Handle) SetPositionCSP(pulses int32) error {
	return h.enqueue(command.SetPosition(h.position, pulses, command.PositionModeCSP))
}

// ArmProbe arms the touch probe for the given edge.
func (h *Handle) ArmProbe(edge command.ProbeEdge) error {
	return h.enqueue(command.ArmProbe(h.position, edge))
}

// DisableProbe disables the touch probe.
func (h *Handle) DisableProbe() error {
	return h.enqueue(command.New(h.position, command.KindDisableProbe))
}

// ClearFault requests a CiA 402 fault reset on the next cycle.
func (h *Handle) ClearFault() error {
	return h.enqueue(command.New(h.position, command.KindClearFault))
}

// StartHoming begins the homing sequence.
func (h *Handle) StartHoming() error {
	return h.enqueue(command.New(h.position, command.KindStartHoming))
}

// Status returns this drive's most recently published status,
// refreshing from the shared cache at most once per throttle window.
func (h *Handle) Status() (status.DriveStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if time.Since(h.lastRead) < h.throttle && h.haveStatus {
		return h.lastStatus, true
	}
	ds, updated, ok := h.cache.driveStatus(h.position)
	if !ok {
		return status.DriveStatus{}, false
	}
	h.lastStatus = ds
	h.lastRead = updated
	h.haveStatus = true
	return ds, true
}
