// Package wire implements the little-endian wire format used by CiA 402
// object dictionary entries as they appear in an EtherCAT process-data
// domain. Every signed PDO field (position actual, velocity
// actual, probe edge positions) crosses the domain boundary as raw
// bytes; this package is the single place that knows how to pack and
// unpack them, following the same explicit-mask, little-endian
// technique the CAN bus frame decoder in the retrieval pack uses for
// its own fixed-width fields.
package wire

import (
	"encoding/binary"
	"fmt"
)

// Object identifies a CiA 402 object dictionary entry by index and
// subindex, the natural key for a process-data offset lookup.
type Object struct {
	Index    uint16
	Subindex uint8
}

// MarshalText renders obj as "index:subindex" in hex, so it can serve
// as a JSON object key when a status snapshot crosses the supervisor's
// process boundary.
func (o Object) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("%04x:%02x", o.Index, o.Subindex)), nil
}

// UnmarshalText parses the format MarshalText produces.
func (o *Object) UnmarshalText(b []byte) error {
	var idx, sub uint32
	if _, err := fmt.Sscanf(string(b), "%x:%x", &idx, &sub); err != nil {
		return fmt.Errorf("wire: parse object %q: %w", b, err)
	}
	o.Index = uint16(idx)
	o.Subindex = uint8(sub)
	return nil
}

// Canonical object indices named throughout the engine and intent
// packages, kept here so every package spells them the same way.
var (
	ObjControlword      = Object{Index: 0x6040, Subindex: 0}
	ObjStatusword       = Object{Index: 0x6041, Subindex: 0}
	ObjModesOfOperation = Object{Index: 0x6060, Subindex: 0}
	ObjModesDisplay     = Object{Index: 0x6061, Subindex: 0}
	ObjPositionActual   = Object{Index: 0x6064, Subindex: 0}
	ObjVelocityActual   = Object{Index: 0x606C, Subindex: 0}
	ObjTargetPosition   = Object{Index: 0x607A, Subindex: 0}
	ObjTargetVelocity   = Object{Index: 0x60FF, Subindex: 0}
	ObjProbeFunction    = Object{Index: 0x60B8, Subindex: 0}
	ObjProbeStatus      = Object{Index: 0x60B9, Subindex: 0}
	ObjProbePosPos      = Object{Index: 0x60BA, Subindex: 0}
	ObjProbeNegPosB     = Object{Index: 0x60BB, Subindex: 0} // most drives
	ObjProbeNegPosC     = Object{Index: 0x60BC, Subindex: 0} // some drives, per ESI
)

// Probe function values for 0x60B8 (touch probe function register).
const (
	ProbeFunctionDisabled       uint16 = 0x0000
	ProbeFunctionPositiveSingle uint16 = 0x0011
	ProbeFunctionNegativeSingle uint16 = 0x0021
	ProbeFunctionBothEdges      uint16 = 0x0031
)

// PutI32 writes v into b (which must have len(b) >= 4) as a little-endian
// signed 32-bit integer.
func PutI32(b []byte, v int32) {
	binary.LittleEndian.PutUint32(b, uint32(v))
}

// I32 reads a little-endian signed 32-bit integer from the front of b.
func I32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}

// PutI16 writes v into b (which must have len(b) >= 2) as a little-endian
// signed 16-bit integer.
func PutI16(b []byte, v int16) {
	binary.LittleEndian.PutUint16(b, uint16(v))
}

// I16 reads a little-endian signed 16-bit integer from the front of b,
// sign-extending to the platform word.
func I16(b []byte) int16 {
	return int16(binary.LittleEndian.Uint16(b))
}

// PutU16 writes v into b as a little-endian unsigned 16-bit integer.
func PutU16(b []byte, v uint16) {
	binary.LittleEndian.PutUint16(b, v)
}

// U16 reads a little-endian unsigned 16-bit integer from the front of b.
func U16(b []byte) uint16 {
	return binary.LittleEndian.Uint16(b)
}

// I8 reinterprets a single byte as a signed 8-bit value, used for the
// modes-of-operation / modes-display objects which are SINT8 on the
// wire.
func I8(b byte) int8 {
	return int8(b)
}
