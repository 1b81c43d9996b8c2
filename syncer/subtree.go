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
	"errors"

	"github.com/oasisprotocol/go-urkel/hash"
)

// InvalidIndex is the SubtreePointer index denoting a null child.
const InvalidIndex uint16 = 0xFFFF

// maxSubtreeEntries is the most entries either array of a Subtree may
// hold, which keeps every index below InvalidIndex, the value reserved
// to mean "no child".
const maxSubtreeEntries = int(InvalidIndex) - 1

// ErrSubtreeFull is returned when a Subtree would need more than
// maxSubtreeEntries full nodes or summaries to represent.
var ErrSubtreeFull = errors.New("urkel/syncer: subtree has too many entries")

// SubtreePointer addresses one entry in a Subtree's FullNodes or
// Summaries array, or a null child.
type SubtreePointer struct {
	Index uint16
	Full  bool
	Valid bool
}

// IsNull reports whether p denotes an absent (null) child.
func (p SubtreePointer) IsNull() bool {
	return p.Valid && p.Index == InvalidIndex
}

// NullSubtreePointer is the pointer used for an absent child.
var NullSubtreePointer = SubtreePointer{Index: InvalidIndex, Valid: true}

// InternalNodeSummary is the compressed (index-only) representation of
// an internal node above a subtree's max_depth boundary.
type InternalNodeSummary struct {
	LeafNode SubtreePointer
	Left     SubtreePointer
	Right    SubtreePointer
}

// NodeKind discriminates the two materialized node shapes carried in a
// Subtree's FullNodes array.
type NodeKind byte

const (
	// InternalKind tags a materialized internal node (only child
	// hashes, no grandchildren).
	InternalKind NodeKind = 0x01
	// LeafKind tags a materialized leaf (key and value hash, not the
	// value itself).
	LeafKind NodeKind = 0x02
)

// Node is the materialized ("full") wire representation of one node:
// either an Internal (child hashes only) or a Leaf (key + value hash).
type Node struct {
	Kind NodeKind

	// Set when Kind == InternalKind.
	LeafNodeHash hash.Hash
	LeftHash     hash.Hash
	RightHash    hash.Hash

	// Set when Kind == LeafKind.
	Key       []byte
	ValueHash hash.Hash
}

// Subtree is a compact, self-contained encoding of a bounded portion of
// the tree: materialized boundary nodes, internal-node summaries, and a
// root pointer into one of the two arrays.
type Subtree struct {
	Root      SubtreePointer
	FullNodes []Node
	Summaries []InternalNodeSummary
}

// AddFullNode appends n to the subtree's full-node array and returns a
// pointer to it.
func (s *Subtree) AddFullNode(n Node) (SubtreePointer, error) {
	if len(s.FullNodes) >= maxSubtreeEntries {
		return SubtreePointer{}, ErrSubtreeFull
	}
	idx := len(s.FullNodes)
	s.FullNodes = append(s.FullNodes, n)
	return SubtreePointer{Index: uint16(idx), Full: true, Valid: true}, nil
}

// AddSummary appends sum to the subtree's summary array and returns a
// pointer to it.
func (s *Subtree) AddSummary(sum InternalNodeSummary) (SubtreePointer, error) {
	if len(s.Summaries) >= maxSubtreeEntries {
		return SubtreePointer{}, ErrSubtreeFull
	}
	idx := len(s.Summaries)
	s.Summaries = append(s.Summaries, sum)
	return SubtreePointer{Index: uint16(idx), Full: false, Valid: true}, nil
}

// FullNodeAt returns the full node at p and whether p was in fact a
// valid, in-range full-node pointer. The caller (the cache's
// reconstruction logic) is responsible for turning ok == false into its
// own InvalidSubtreePointer error, since that error belongs to the
// cache's error taxonomy, not the wire format's.
func (s *Subtree) FullNodeAt(p SubtreePointer) (n Node, ok bool) {
	if !p.Valid || !p.Full || int(p.Index) >= len(s.FullNodes) {
		return Node{}, false
	}
	return s.FullNodes[p.Index], true
}

// SummaryAt returns the summary at p. isNull is true if p denotes an
// absent child (in which case sum is meaningless). ok is false if p was
// out of range or otherwise malformed.
func (s *Subtree) SummaryAt(p SubtreePointer) (sum InternalNodeSummary, isNull bool, ok bool) {
	if !p.Valid {
		return InternalNodeSummary{}, false, false
	}
	if p.IsNull() {
		return InternalNodeSummary{}, true, true
	}
	if p.Full || int(p.Index) >= len(s.Summaries) {
		return InternalNodeSummary{}, false, false
	}
	return s.Summaries[p.Index], false, true
}
