package wire

import "testing"

func TestI32RoundTrip(t *testing.T) {
	b := make([]byte, 4)
	PutI32(b, -1234567)
	if got := I32(b); got != -1234567 {
		t.Fatalf("I32 round trip: got %d, want -1234567", got)
	}
}

func TestI16SignExtend(t *testing.T) {
	b := []byte{0xff, 0xff}
	if got := I16(b); got != -1 {
		t.Fatalf("I16(0xffff) = %d, want -1", got)
	}
}

func TestU16RoundTrip(t *testing.T) {
	b := make([]byte, 2)
	PutU16(b, ProbeFunctionBothEdges)
	if got := U16(b); got != ProbeFunctionBothEdges {
		t.Fatalf("U16 round trip: got %#x, want %#x", got, ProbeFunctionBothEdges)
	}
}
