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

// Package node defines the in-memory node and pointer graph of the tree:
// internal nodes, leaves, and the resolved/unresolved pointers that link
// them. Nothing here knows about the syncer or the cache; it is pure
// data plus the hash recomputation used by commit.
package node

import (
	"github.com/oasisprotocol/go-urkel/hash"
	"github.com/oasisprotocol/go-urkel/key"
)

// Node is either an *InternalNode or a *LeafNode.
type Node interface {
	isNode()
	// CanonicalHash recomputes the hash this node should have given its
	// (already-clean) children. It does not mutate the node.
	CanonicalHash() hash.Hash
}

// InternalNode is an internal trie node with up to two children and an
// optional inline leaf terminating exactly at this node's depth.
type InternalNode struct {
	LeafNode *Pointer
	Left     *Pointer
	Right    *Pointer

	Hash  hash.Hash
	Clean bool
}

func (*InternalNode) isNode() {}

// CanonicalHash implements Node.
func (n *InternalNode) CanonicalHash() hash.Hash {
	return hash.Internal(n.LeafNode.Hash, n.Left.Hash, n.Right.Hash)
}

// Clone returns a shallow copy of n: children pointers are shared, but
// the returned node is a distinct object that can be mutated (e.g. have
// a child replaced) without affecting n. Used by insert/remove to clone
// the spine they touch.
func (n *InternalNode) Clone() *InternalNode {
	c := *n
	return &c
}

// LeafNode is a leaf holding one key/value pair.
type LeafNode struct {
	Key   key.Key
	Value *ValuePointer

	Hash  hash.Hash
	Clean bool
}

func (*LeafNode) isNode() {}

// CanonicalHash implements Node.
func (n *LeafNode) CanonicalHash() hash.Hash {
	return hash.Leaf(n.Key.Bytes(), n.Value.Hash)
}

// Clone returns a shallow copy of n.
func (n *LeafNode) Clone() *LeafNode {
	c := *n
	return &c
}

// Pointer is a handle to a Node that may be resolved (Node != nil) or
// unresolved (only Hash known, fetched lazily through the cache).
type Pointer struct {
	Clean bool
	Hash  hash.Hash
	Node  Node

	// CacheExtra is the LRU sequence number; 0 means "not in the LRU".
	CacheExtra uint64
}

// NullPointer returns a new distinguished null pointer: no node, zero
// hash, clean (its hash will never change and never needs fetching).
func NullPointer() *Pointer {
	return &Pointer{Clean: true, Hash: hash.Zero}
}

// IsNull reports whether p is the null pointer: no resident node and a
// zero hash.
func (p *Pointer) IsNull() bool {
	return p.Node == nil && p.Hash.IsZero()
}

// HasNode reports whether p currently has a resolved node in memory.
func (p *Pointer) HasNode() bool {
	return p.Node != nil
}

// Extract returns the node this pointer holds, or nil if unresolved.
func (p *Pointer) Extract() Node {
	return p.Node
}

// ValuePointer is a handle to a value blob that may be resolved (Value
// != nil) or unresolved (only Hash known).
type ValuePointer struct {
	Clean bool
	Hash  hash.Hash
	Value []byte

	CacheExtra uint64
}

// NewValue creates a dirty value pointer owning a copy of b. Its hash is
// computed later, at commit.
func NewValue(b []byte) *ValuePointer {
	cp := make([]byte, len(b))
	copy(cp, b)
	return &ValuePointer{Value: cp}
}

// IsResolved reports whether the value bytes are currently resident.
func (v *ValuePointer) IsResolved() bool {
	return v.Value != nil
}
