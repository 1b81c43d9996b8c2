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

package syncer

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/oasisprotocol/go-urkel/hash"
)

func TestSubtreeRoundTrip(t *testing.T) {
	s := &Subtree{Root: SubtreePointer{Valid: true, Full: false, Index: 0}}
	leafPtr, err := s.AddFullNode(Node{
		Kind:      LeafKind,
		Key:       []byte("hello"),
		ValueHash: hash.Value([]byte("world")),
	})
	if err != nil {
		t.Fatalf("AddFullNode: %v", err)
	}
	internalPtr, err := s.AddFullNode(Node{
		Kind:         InternalKind,
		LeafNodeHash: hash.Zero,
		LeftHash:     hash.Value([]byte("left")),
		RightHash:    hash.Value([]byte("right")),
	})
	if err != nil {
		t.Fatalf("AddFullNode: %v", err)
	}
	if _, err := s.AddSummary(InternalNodeSummary{
		LeafNode: NullSubtreePointer,
		Left:     leafPtr,
		Right:    internalPtr,
	}); err != nil {
		t.Fatalf("AddSummary: %v", err)
	}
	s.Root = SubtreePointer{Valid: true, Full: false, Index: 0}

	enc, err := s.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}

	var decoded Subtree
	if err := decoded.UnmarshalBinary(enc); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}

	if !reflect.DeepEqual(s, &decoded) {
		t.Fatalf("round trip mismatch:\nwant %s\ngot %s", spew.Sdump(s), spew.Sdump(&decoded))
	}
}

func TestUnmarshalBinaryTruncated(t *testing.T) {
	var s Subtree
	if err := s.UnmarshalBinary([]byte{1, 2, 3}); err != ErrInvalidEncoding {
		t.Fatalf("expected ErrInvalidEncoding, got %v", err)
	}
}

func TestNullSubtreePointerRoundTrip(t *testing.T) {
	s := &Subtree{Root: NullSubtreePointer}
	enc, err := s.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	var decoded Subtree
	if err := decoded.UnmarshalBinary(enc); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if !decoded.Root.IsNull() {
		t.Fatalf("expected null root pointer, got %+v", decoded.Root)
	}
}
