// This is free and unencumbered software released into the public domain.
//
// Anyone is free to copy, modify, publish, use, compile, sell, or
// distribute this software, either in source code form or as a compiled
// binary, for any purpose, commercial or non-commercial, and by any
// means.
//
// In jurisdictions that recognize copyright laws, the author or authors
// of this software dedicate any and all copyright interest in the
// software to the public domain. We make this dedication for the benefit
// of the public at large and to the detriment of our heirs and
// successors. We intend this dedication to be an overt act of
// relinquishment in perpetuity of all present and future rights to this
// software under copyright law.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
// EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
// MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
// IN NO EVENT SHALL THE AUTHORS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.
//
// For more information, please refer to <https://unlicense.org>

package hash

import (
	"testing"
)

func TestZeroIsZero(t *testing.T) {
	var h Hash
	if !h.IsZero() {
		t.Fatal("default Hash value must be zero")
	}
	if !Zero.IsZero() {
		t.Fatal("Zero must be zero")
	}
}

func TestBitOrderingMSBFirst(t *testing.T) {
	var h Hash
	h[0] = 0x80 // 1000_0000
	if !h.Bit(0) {
		t.Fatal("bit 0 should be the MSB of byte 0")
	}
	for i := 1; i < 8; i++ {
		if h.Bit(i) {
			t.Fatalf("bit %d should be unset", i)
		}
	}

	h = Hash{}
	h[1] = 0x01 // byte 1, LSB
	if !h.Bit(15) {
		t.Fatal("bit 15 should be the LSB of byte 1")
	}
}

func TestValueDeterministic(t *testing.T) {
	a := Value([]byte("bar"))
	b := Value([]byte("bar"))
	if a != b {
		t.Fatal("Value must be deterministic")
	}
	if a == Value([]byte("baz")) {
		t.Fatal("different inputs should not collide in this test")
	}
}

func TestDomainSeparation(t *testing.T) {
	// Value and Leaf must not collide even on similar-looking inputs,
	// since they're tagged with different domain bytes.
	v := Value([]byte{0x01, 0x00, 0x00, 'x'})
	l := Leaf([]byte{}, Value([]byte("x")))
	if v == l {
		t.Fatal("value and leaf hashes must be domain separated")
	}
}

func TestInternalHashChangesWithChildren(t *testing.T) {
	leafH := Leaf([]byte("k"), Value([]byte("v")))
	a := Internal(Zero, leafH, Zero)
	b := Internal(Zero, Zero, leafH)
	if a == b {
		t.Fatal("swapping left/right child hash must change the internal hash")
	}
}

func TestFromBytesRoundTrip(t *testing.T) {
	h := Value([]byte("round-trip"))
	h2 := FromBytes(h[:])
	if h != h2 {
		t.Fatal("FromBytes should reproduce the same hash")
	}
}

func TestFromBytesPanicsOnWrongLength(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on wrong-length input")
		}
	}()
	FromBytes([]byte{1, 2, 3})
}
