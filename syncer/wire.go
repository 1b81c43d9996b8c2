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
	"encoding/binary"
	"fmt"

	"github.com/oasisprotocol/go-urkel/hash"
)

// ErrInvalidEncoding is returned by UnmarshalBinary when the input is
// truncated or carries an unrecognized tag.
var ErrInvalidEncoding = fmt.Errorf("urkel/syncer: invalid subtree encoding")

func putPointer(buf []byte, p SubtreePointer) []byte {
	var valid byte
	if p.Valid {
		valid = 1
	}
	var full byte
	if p.Full {
		full = 1
	}
	buf = append(buf, valid, full)
	var idx [2]byte
	binary.BigEndian.PutUint16(idx[:], p.Index)
	return append(buf, idx[:]...)
}

func getPointer(b []byte) (SubtreePointer, []byte, error) {
	if len(b) < 4 {
		return SubtreePointer{}, nil, ErrInvalidEncoding
	}
	p := SubtreePointer{
		Valid: b[0] != 0,
		Full:  b[1] != 0,
		Index: binary.BigEndian.Uint16(b[2:4]),
	}
	return p, b[4:], nil
}

// MarshalBinary encodes s per the canonical subtree wire format: a root
// pointer followed by length-prefixed full_nodes and summaries arrays.
func (s *Subtree) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 256)
	buf = putPointer(buf, s.Root)

	var countBuf [4]byte
	binary.BigEndian.PutUint32(countBuf[:], uint32(len(s.FullNodes)))
	buf = append(buf, countBuf[:]...)
	for _, n := range s.FullNodes {
		enc, err := n.marshalBinary()
		if err != nil {
			return nil, err
		}
		buf = append(buf, enc...)
	}

	binary.BigEndian.PutUint32(countBuf[:], uint32(len(s.Summaries)))
	buf = append(buf, countBuf[:]...)
	for _, sm := range s.Summaries {
		buf = putPointer(buf, sm.LeafNode)
		buf = putPointer(buf, sm.Left)
		buf = putPointer(buf, sm.Right)
	}

	return buf, nil
}

// UnmarshalBinary decodes a Subtree previously produced by MarshalBinary.
func (s *Subtree) UnmarshalBinary(b []byte) error {
	root, rest, err := getPointer(b)
	if err != nil {
		return err
	}
	if len(rest) < 4 {
		return ErrInvalidEncoding
	}
	nFull := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]

	fullNodes := make([]Node, 0, nFull)
	for i := uint32(0); i < nFull; i++ {
		var n Node
		rest, err = n.unmarshalBinary(rest)
		if err != nil {
			return err
		}
		fullNodes = append(fullNodes, n)
	}

	if len(rest) < 4 {
		return ErrInvalidEncoding
	}
	nSummaries := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]

	summaries := make([]InternalNodeSummary, 0, nSummaries)
	for i := uint32(0); i < nSummaries; i++ {
		var sm InternalNodeSummary
		sm.LeafNode, rest, err = getPointer(rest)
		if err != nil {
			return err
		}
		sm.Left, rest, err = getPointer(rest)
		if err != nil {
			return err
		}
		sm.Right, rest, err = getPointer(rest)
		if err != nil {
			return err
		}
		summaries = append(summaries, sm)
	}

	s.Root = root
	s.FullNodes = fullNodes
	s.Summaries = summaries
	return nil
}

// marshalBinary encodes one full Node: a tag byte followed by its
// kind-specific fields.
func (n *Node) marshalBinary() ([]byte, error) {
	switch n.Kind {
	case InternalKind:
		buf := make([]byte, 0, 1+3*hash.Size)
		buf = append(buf, byte(InternalKind))
		buf = append(buf, n.LeafNodeHash[:]...)
		buf = append(buf, n.LeftHash[:]...)
		buf = append(buf, n.RightHash[:]...)
		return buf, nil
	case LeafKind:
		buf := make([]byte, 0, 1+2+len(n.Key)+hash.Size)
		buf = append(buf, byte(LeafKind))
		var keyLen [2]byte
		binary.BigEndian.PutUint16(keyLen[:], uint16(len(n.Key)))
		buf = append(buf, keyLen[:]...)
		buf = append(buf, n.Key...)
		buf = append(buf, n.ValueHash[:]...)
		return buf, nil
	default:
		return nil, fmt.Errorf("urkel/syncer: unknown node kind %#x", byte(n.Kind))
	}
}

// unmarshalBinary decodes one full Node from the front of b, returning
// the remainder.
func (n *Node) unmarshalBinary(b []byte) ([]byte, error) {
	if len(b) < 1 {
		return nil, ErrInvalidEncoding
	}
	kind := NodeKind(b[0])
	b = b[1:]
	switch kind {
	case InternalKind:
		if len(b) < 3*hash.Size {
			return nil, ErrInvalidEncoding
		}
		n.Kind = InternalKind
		n.LeafNodeHash = hash.FromBytes(b[0:hash.Size])
		n.LeftHash = hash.FromBytes(b[hash.Size : 2*hash.Size])
		n.RightHash = hash.FromBytes(b[2*hash.Size : 3*hash.Size])
		return b[3*hash.Size:], nil
	case LeafKind:
		if len(b) < 2 {
			return nil, ErrInvalidEncoding
		}
		keyLen := int(binary.BigEndian.Uint16(b[:2]))
		b = b[2:]
		if len(b) < keyLen+hash.Size {
			return nil, ErrInvalidEncoding
		}
		n.Kind = LeafKind
		n.Key = append([]byte(nil), b[:keyLen]...)
		n.ValueHash = hash.FromBytes(b[keyLen : keyLen+hash.Size])
		return b[keyLen+hash.Size:], nil
	default:
		return nil, fmt.Errorf("%w: unknown node kind %#x", ErrInvalidEncoding, byte(kind))
	}
}
