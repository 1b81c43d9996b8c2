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

package key

import (
	"bytes"
	"testing"
)

func TestNewAndBytesRoundTrip(t *testing.T) {
	in := []byte{0xAB, 0xCD, 0x01}
	k := New(in)
	if k.BitLength() != 24 {
		t.Fatalf("expected 24 bits, got %d", k.BitLength())
	}
	out := k.Bytes()
	if !bytes.Equal(in, out) {
		t.Fatalf("round trip mismatch: %x != %x", in, out)
	}
}

func TestGetBitMSBFirst(t *testing.T) {
	k := New([]byte{0x80}) // 1000_0000
	if !k.GetBit(0) {
		t.Fatal("bit 0 should be the MSB")
	}
	for i := 1; i < 8; i++ {
		if k.GetBit(i) {
			t.Fatalf("bit %d should be unset", i)
		}
	}
}

func TestSetBitImmutable(t *testing.T) {
	k1 := New([]byte{0x00})
	k2 := k1.SetBit(0, true)

	if k1.GetBit(0) {
		t.Fatal("SetBit must not mutate the receiver")
	}
	if !k2.GetBit(0) {
		t.Fatal("SetBit result should have the new bit set")
	}
}

func TestSetBitExtends(t *testing.T) {
	k := Empty()
	k = k.SetBit(0, true)
	k = k.SetBit(1, false)
	k = k.SetBit(2, true)
	if k.BitLength() != 3 {
		t.Fatalf("expected length 3, got %d", k.BitLength())
	}
	if !k.GetBit(0) || k.GetBit(1) || !k.GetBit(2) {
		t.Fatal("unexpected bit pattern after extension")
	}
}

func TestEqual(t *testing.T) {
	a := New([]byte{0x12, 0x34})
	b := New([]byte{0x12, 0x34})
	c := New([]byte{0x12, 0x35})
	if !a.Equal(b) {
		t.Fatal("identical keys should be equal")
	}
	if a.Equal(c) {
		t.Fatal("different keys should not be equal")
	}
}

func TestPathDeterministic(t *testing.T) {
	p1 := Path([]byte("hello"), 256)
	p2 := Path([]byte("hello"), 256)
	if !p1.Equal(p2) {
		t.Fatal("Path must be deterministic for the same input")
	}
	p3 := Path([]byte("hellp"), 256)
	if p1.Equal(p3) {
		t.Fatal("different keys should produce different paths with overwhelming probability")
	}
}

func TestPathLongerThanOneBlock(t *testing.T) {
	p := Path([]byte("a long enough key to exercise more than one block"), 300)
	if p.BitLength() != 300 {
		t.Fatalf("expected 300 bits, got %d", p.BitLength())
	}
}

func TestPathEmpty(t *testing.T) {
	p := Path([]byte("anything"), 0)
	if p.BitLength() != 0 {
		t.Fatalf("expected empty path, got %d bits", p.BitLength())
	}
}

func TestIDAtDepth(t *testing.T) {
	k := New([]byte{0xFF, 0x00})
	id := ID{Path: k, Depth: 16}
	anc := id.AtDepth(5)
	if anc.Depth != 5 {
		t.Fatalf("expected depth 5, got %d", anc.Depth)
	}
	if !anc.Path.Equal(k) {
		t.Fatal("AtDepth should share the same path")
	}
}
