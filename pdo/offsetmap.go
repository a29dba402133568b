// Package pdo holds the per-slave mapping from CiA 402 object
// dictionary entries to their byte offset within the process-data
// domain. The map is populated exactly once, after the
// master adapter registers the domain entry list during startup, and
// is immutable for the lifetime of the cyclic process.
package pdo

import (
	"fmt"

	"github.com/ecatcyclic/ecatmgr/wire"
)

// Health describes whether a canonical object is mapped into the PDO
// domain for a given drive, used by the status publisher's per-object
// health tag.
type Health int

const (
	HealthMapped Health = iota
	HealthMissing
	HealthError
)

func (h Health) String() string {
	switch h {
	case HealthMapped:
		return "mapped"
	case HealthMissing:
		return "missing"
	case HealthError:
		return "error"
	default:
		return "unknown"
	}
}

// OffsetMap is the immutable (index, subindex) -> domain byte offset
// table for a single slave. A zero value is a valid, empty map.
type OffsetMap struct {
	offsets map[wire.Object]uint32
}

// NewOffsetMap builds an OffsetMap from the registration results
// returned by the master adapter's RegisterPdoEntryList call. objs and
// offsets must be parallel slices of equal length; a mismatched length
// is a programmer error and panics, since it can only happen from a
// bug in the adapter wiring, never from untrusted input.
func NewOffsetMap(objs []wire.Object, offsets []uint32) OffsetMap {
	if len(objs) != len(offsets) {
		panic(fmt.Sprintf("pdo: mismatched object/offset slice lengths: %d != %d", len(objs), len(offsets)))
	}
	m := make(map[wire.Object]uint32, len(objs))
	for i, o := range objs {
		m[o] = offsets[i]
	}
	return OffsetMap{offsets: m}
}

// Offset returns the byte offset for obj within the domain, and
// whether it is mapped at all.
func (m OffsetMap) Offset(obj wire.Object) (uint32, bool) {
	off, ok := m.offsets[obj]
	return off, ok
}

// Has reports whether obj is mapped in the PDO domain.
func (m OffsetMap) Has(obj wire.Object) bool {
	_, ok := m.offsets[obj]
	return ok
}

// Health reports the PDO health tag for obj: mapped if present,
// missing otherwise. Callers that already know an object errored out
// during a prior cycle's domain read should report HealthError
// directly rather than through this helper.
func (m OffsetMap) Health(obj wire.Object) Health {
	if m.Has(obj) {
		return HealthMapped
	}
	return HealthMissing
}

// Len reports the number of mapped objects, chiefly useful for tests
// and diagnostics.
func (m OffsetMap) Len() int {
	return len(m.offsets)
}
