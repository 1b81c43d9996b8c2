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

// Package cache owns the pending/sync root pair, the node and value LRU
// lists, and the lazy dereference and subtree-reconstruction logic that
// faults in remote state through a syncer.ReadSyncer on demand.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/oasisprotocol/go-urkel/hash"
	"github.com/oasisprotocol/go-urkel/key"
	"github.com/oasisprotocol/go-urkel/node"
	"github.com/oasisprotocol/go-urkel/syncer"
)

// Errors returned by cache operations.
var (
	ErrMaximumDepthExceeded  = errors.New("urkel: maximum depth exceeded")
	ErrInvalidSubtreePointer = errors.New("urkel: invalid subtree pointer")
	ErrReconstructedRootNil  = errors.New("urkel: reconstructed root is nil")
	ErrHashMismatch          = errors.New("urkel: hash mismatch")
)

// ErrSyncerBadRoot is returned when a reconstructed subtree's recomputed
// root hash does not match the hash the caller expected.
type ErrSyncerBadRoot struct {
	Expected hash.Hash
	Returned hash.Hash
}

func (e *ErrSyncerBadRoot) Error() string {
	return fmt.Sprintf("urkel: syncer returned bad root: expected %s, got %s", e.Expected, e.Returned)
}

// Stats reports the cache's current occupancy.
type Stats struct {
	InternalNodeCount uint64
	LeafNodeCount     uint64
	LeafValueSize     int
}

// Config configures a new Cache.
type Config struct {
	// NodeCapacity bounds the number of nodes held before eviction. Zero
	// disables node eviction.
	NodeCapacity int
	// ValueCapacity bounds the total byte size of values held before
	// eviction. Zero disables value eviction.
	ValueCapacity int
	// Syncer is consulted whenever a clean pointer needs to be resolved
	// and isn't already resident.
	Syncer syncer.ReadSyncer
}

// Cache owns the pending root, the sync root, and the node/value LRU
// lists backing a single tree instance. It is not safe for concurrent
// use, matching the tree's own single-writer model.
type Cache struct {
	syncer syncer.ReadSyncer

	pendingRoot *node.Pointer
	syncRoot    hash.Hash

	internalNodeCount uint64
	leafNodeCount     uint64

	prefetchDepth uint8

	lruNodes  *lruList[*node.Pointer]
	lruValues *lruList[*node.ValuePointer]

	evictedNodes  int
	evictedValues int

	// valuesByHash indexes resident values by content hash, so a syncer
	// serving GetValue doesn't need to walk the tree to answer it.
	valuesByHash map[hash.Hash]*node.ValuePointer
}

// New constructs a Cache with an empty pending root.
func New(cfg Config) *Cache {
	s := cfg.Syncer
	if s == nil {
		s = syncer.NopReadSyncer{}
	}
	return &Cache{
		syncer:       s,
		pendingRoot:  node.NullPointer(),
		valuesByHash: make(map[hash.Hash]*node.ValuePointer),
		lruNodes: newLRUList(cfg.NodeCapacity,
			func(p *node.Pointer) *uint64 { return &p.CacheExtra },
			func(*node.Pointer) int { return 1 }),
		lruValues: newLRUList(cfg.ValueCapacity,
			func(v *node.ValuePointer) *uint64 { return &v.CacheExtra },
			func(v *node.ValuePointer) int { return len(v.Value) }),
	}
}

// ValueByHash looks up a resident value by its content hash, for a tree
// serving its own committed state through GetValue.
func (c *Cache) ValueByHash(h hash.Hash) ([]byte, bool) {
	vptr, ok := c.valuesByHash[h]
	if !ok || vptr.Value == nil {
		return nil, false
	}
	return vptr.Value, true
}

// Stats returns the cache's current occupancy counters.
func (c *Cache) Stats() Stats {
	return Stats{
		InternalNodeCount: c.internalNodeCount,
		LeafNodeCount:     c.leafNodeCount,
		LeafValueSize:     c.lruValues.size,
	}
}

// PendingRoot returns the current, possibly dirty, root pointer.
func (c *Cache) PendingRoot() *node.Pointer {
	return c.pendingRoot
}

// SetPendingRoot replaces the current root pointer.
func (c *Cache) SetPendingRoot(p *node.Pointer) {
	c.pendingRoot = p
}

// SyncRoot returns the committed root hash the syncer answers against.
func (c *Cache) SyncRoot() hash.Hash {
	return c.syncRoot
}

// SetSyncRoot updates the committed root hash.
func (c *Cache) SetSyncRoot(h hash.Hash) {
	c.syncRoot = h
}

// SetPrefetchDepth configures how many levels Prefetch asks for.
func (c *Cache) SetPrefetchDepth(depth uint8) {
	c.prefetchDepth = depth
}

// NewInternalNode creates a dirty pointer to a freshly built internal
// node with the given children (any of which may be node.NullPointer()).
func (c *Cache) NewInternalNode(leafNode, left, right *node.Pointer) *node.Pointer {
	return &node.Pointer{Node: &node.InternalNode{LeafNode: leafNode, Left: left, Right: right}}
}

// NewLeafNode creates a dirty pointer to a freshly built leaf.
func (c *Cache) NewLeafNode(k key.Key, value *node.ValuePointer) *node.Pointer {
	return &node.Pointer{Node: &node.LeafNode{Key: k, Value: value}}
}

// NewValue creates a dirty value pointer owning a copy of b.
func (c *Cache) NewValue(b []byte) *node.ValuePointer {
	return node.NewValue(b)
}

// removeNode evicts ptr's resident node from memory (keeping the
// pointer's hash), releasing its value too if it was a leaf, and
// adjusting the occupancy counters.
func (c *Cache) removeNode(ptr *node.Pointer) {
	if ptr.IsNull() || ptr.Node == nil {
		return
	}
	switch n := ptr.Node.(type) {
	case *node.InternalNode:
		c.internalNodeCount--
	case *node.LeafNode:
		c.RemoveValue(n.Value)
		c.leafNodeCount--
	}
	ptr.Node = nil
}

// TryRemoveNode evicts ptr from the LRU and drops its resident node,
// unless doing so would orphan cached children (only safe for leaves
// and for internal nodes whose children aren't themselves resident).
func (c *Cache) TryRemoveNode(ptr *node.Pointer) {
	if ptr.CacheExtra == 0 {
		return
	}
	if n, ok := ptr.Node.(*node.InternalNode); ok {
		if n.LeafNode.HasNode() || n.Left.HasNode() || n.Right.HasNode() {
			return
		}
	}
	if c.lruNodes.remove(ptr) {
		c.removeNode(ptr)
	}
}

// RemoveValue evicts vptr from the value LRU, if present.
func (c *Cache) RemoveValue(vptr *node.ValuePointer) {
	c.lruValues.remove(vptr)
	if vptr.Clean && !vptr.Hash.IsZero() {
		delete(c.valuesByHash, vptr.Hash)
	}
}

// DerefNodeID walks from the pending root along id.Path for id.Depth
// bits, resolving each step through DerefNodePtr, and returns the
// pointer found at that depth (possibly the null pointer). This walk
// only ever follows Left/Right, so it cannot address a leaf occupying
// its parent's leaf_node slot: that leaf shares its parent's id and
// DerefNodeID resolves to the parent. Callers that may be looking at a
// leaf_node slot pointer must resolve it through DerefNodePtr with a
// non-nil searchKey instead (GetPath), not through an id lookup.
func (c *Cache) DerefNodeID(ctx context.Context, id key.ID) (*node.Pointer, error) {
	cur := c.pendingRoot
	for d := uint8(0); d < id.Depth; d++ {
		n, err := c.DerefNodePtr(ctx, id.AtDepth(d), cur, nil)
		if err != nil {
			return nil, err
		}
		in, ok := n.(*node.InternalNode)
		if !ok {
			return node.NullPointer(), nil
		}
		if id.Path.GetBit(int(d)) {
			cur = in.Right
		} else {
			cur = in.Left
		}
	}
	return cur, nil
}

// DerefNodePtr resolves ptr to its node, fetching through the syncer if
// necessary. searchKey, when non-nil, requests a full authentication
// path for that key (used by the tree walker) rather than just the one
// node; nil requests only the single node at id. Returns (nil, nil) for
// a dirty or null pointer, which the caller must not attempt to fetch.
func (c *Cache) DerefNodePtr(ctx context.Context, id key.ID, ptr *node.Pointer, searchKey *key.Key) (node.Node, error) {
	if ptr.Node != nil {
		return ptr.Node, nil
	}
	if !ptr.Clean || ptr.IsNull() {
		return nil, nil
	}

	if searchKey == nil {
		wire, err := c.syncer.GetNode(ctx, c.syncRoot, id)
		if err != nil {
			return nil, err
		}
		resolved, err := wireToNode(wire, true)
		if err != nil {
			return nil, err
		}
		if !resolved.CanonicalHash().Equal(ptr.Hash) {
			return nil, ErrHashMismatch
		}
		ptr.Node = resolved
		return ptr.Node, nil
	}

	subtree, err := c.syncer.GetPath(ctx, c.syncRoot, *searchKey, id.Depth)
	if err != nil {
		return nil, err
	}
	newPtr, err := c.ReconstructSubtree(ctx, ptr.Hash, subtree, id.Depth, uint8(hash.Size*8-1))
	if err != nil {
		return nil, err
	}
	ptr.Clean = newPtr.Clean
	ptr.Hash = newPtr.Hash
	ptr.Node = newPtr.Node
	return ptr.Node, nil
}

// DerefValuePtr resolves vptr to its byte value, fetching through the
// syncer and installing it into the value LRU if necessary.
func (c *Cache) DerefValuePtr(ctx context.Context, vptr *node.ValuePointer) ([]byte, error) {
	if c.lruValues.moveToFront(vptr) || vptr.Value != nil {
		return vptr.Value, nil
	}
	if !vptr.Clean {
		return nil, nil
	}

	value, err := c.syncer.GetValue(ctx, c.syncRoot, vptr.Hash)
	if err != nil {
		return nil, err
	}
	if !hash.Value(value).Equal(vptr.Hash) {
		return nil, ErrHashMismatch
	}
	vptr.Value = value
	c.CommitValue(vptr)
	return vptr.Value, nil
}

// CommitNode installs a clean pointer into the node LRU, evicting older
// entries to make room. Panics if ptr is dirty.
func (c *Cache) CommitNode(ptr *node.Pointer) {
	if !ptr.Clean {
		panic("urkel/cache: CommitNode called on a dirty pointer")
	}
	if ptr.Node == nil {
		return
	}
	if c.lruNodes.moveToFront(ptr) {
		return
	}
	for _, evicted := range c.lruNodes.evictForVal(ptr) {
		c.removeNode(evicted)
		c.evictedNodes++
	}
	c.lruNodes.addToFront(ptr)

	switch ptr.Node.(type) {
	case *node.InternalNode:
		c.internalNodeCount++
	case *node.LeafNode:
		c.leafNodeCount++
	}
}

// CommitValue installs a clean value pointer into the value LRU.
// Panics if vptr is dirty.
func (c *Cache) CommitValue(vptr *node.ValuePointer) {
	if !vptr.Clean {
		panic("urkel/cache: CommitValue called on a dirty value")
	}
	if c.lruValues.moveToFront(vptr) {
		return
	}
	if vptr.Value == nil {
		return
	}
	for _, evicted := range c.lruValues.evictForVal(vptr) {
		// The owning leaf keeps evicted.Hash, so a later deref can
		// still verify a value fetched back through the syncer; only
		// the byte payload and the hash index entry are released.
		delete(c.valuesByHash, evicted.Hash)
		evicted.Value = nil
		c.evictedValues++
	}
	c.lruValues.addToFront(vptr)
	c.valuesByHash[vptr.Hash] = vptr
}

// wireToNode converts a wire-format node into its live in-memory form,
// with unresolved (hash-only) children. clean controls whether the
// node-level dirty flag is left set (the subtree-reconstruction path
// needs it dirty, so the bottom-up commit pass both revisits it and
// installs it into the LRU; a direct single-node fetch is already
// verified against a known hash and needs neither).
func wireToNode(w syncer.Node, clean bool) (node.Node, error) {
	switch w.Kind {
	case syncer.InternalKind:
		return &node.InternalNode{
			LeafNode: &node.Pointer{Clean: true, Hash: w.LeafNodeHash},
			Left:     &node.Pointer{Clean: true, Hash: w.LeftHash},
			Right:    &node.Pointer{Clean: true, Hash: w.RightHash},
			Clean:    clean,
		}, nil
	case syncer.LeafKind:
		return &node.LeafNode{
			Key:   key.New(w.Key),
			Value: &node.ValuePointer{Clean: true, Hash: w.ValueHash},
			Clean: clean,
		}, nil
	default:
		return nil, fmt.Errorf("urkel/cache: unknown wire node kind %#x", byte(w.Kind))
	}
}

// reconstructSummary dual-walks a Subtree and its root pointer,
// allocating fresh node pointers: full nodes are cloned as owned but
// left dirty (their hash will be recomputed by the caller's bottom-up
// commit pass), summaries recurse into freshly reconstructed children.
func (c *Cache) reconstructSummary(st *syncer.Subtree, sptr syncer.SubtreePointer, depth, maxDepth uint8) (*node.Pointer, error) {
	if depth > maxDepth {
		return nil, ErrMaximumDepthExceeded
	}
	if !sptr.Valid {
		return nil, ErrInvalidSubtreePointer
	}
	if sptr.IsNull() {
		return node.NullPointer(), nil
	}

	if sptr.Full {
		wire, ok := st.FullNodeAt(sptr)
		if !ok {
			return nil, ErrInvalidSubtreePointer
		}
		n, err := wireToNode(wire, false)
		if err != nil {
			return nil, err
		}
		return &node.Pointer{Node: n}, nil
	}

	summary, isNull, ok := st.SummaryAt(sptr)
	if !ok {
		return nil, ErrInvalidSubtreePointer
	}
	if isNull {
		return node.NullPointer(), nil
	}

	leafNode, err := c.reconstructSummary(st, summary.LeafNode, depth, maxDepth)
	if err != nil {
		return nil, err
	}
	left, err := c.reconstructSummary(st, summary.Left, depth+1, maxDepth)
	if err != nil {
		return nil, err
	}
	right, err := c.reconstructSummary(st, summary.Right, depth+1, maxDepth)
	if err != nil {
		return nil, err
	}
	return &node.Pointer{Node: &node.InternalNode{LeafNode: leafNode, Left: left, Right: right}}, nil
}

// ReconstructSubtree rebuilds a pointer graph from st, recomputes its
// root hash bottom-up, and verifies it equals root before installing
// any of the newly materialized nodes into the LRU. Nothing is
// installed if verification fails.
func (c *Cache) ReconstructSubtree(ctx context.Context, root hash.Hash, st *syncer.Subtree, depth, maxDepth uint8) (*node.Pointer, error) {
	ptr, err := c.reconstructSummary(st, st.Root, depth, maxDepth)
	if err != nil {
		return nil, err
	}
	if ptr.IsNull() {
		return nil, ErrReconstructedRootNil
	}

	var updates []*node.Pointer
	var valueUpdates []*node.ValuePointer
	commitHashes(ptr, &updates, &valueUpdates)
	if !ptr.Hash.Equal(root) {
		return nil, &ErrSyncerBadRoot{Expected: root, Returned: ptr.Hash}
	}
	for _, v := range valueUpdates {
		c.CommitValue(v)
	}
	for _, p := range updates {
		c.CommitNode(p)
	}
	return ptr, nil
}

// Commit recomputes canonical hashes bottom-up from ptr, marking every
// touched pointer clean and installing it into the LRU, and returns the
// resulting root hash. Used by the tree's own commit operation, where
// (unlike subtree reconstruction) there is no externally expected hash
// to verify against.
func (c *Cache) Commit(ptr *node.Pointer) hash.Hash {
	var updates []*node.Pointer
	var valueUpdates []*node.ValuePointer
	commitHashes(ptr, &updates, &valueUpdates)
	for _, v := range valueUpdates {
		c.CommitValue(v)
	}
	for _, p := range updates {
		c.CommitNode(p)
	}
	return ptr.Hash
}

// commitHashes recomputes canonical hashes bottom-up for every dirty
// pointer reachable from ptr, marking them clean, and appends each one
// (in bottom-up order) to updates. A leaf's dirty value (freshly built
// by NewValue, never yet hashed) is hashed here too and appended to
// valueUpdates. It does not touch the LRU itself — callers install the
// result only once they trust it, which is what lets subtree
// reconstruction discard a bad root without polluting the cache.
func commitHashes(ptr *node.Pointer, updates *[]*node.Pointer, valueUpdates *[]*node.ValuePointer) {
	if ptr.Clean {
		return
	}
	switch n := ptr.Node.(type) {
	case *node.InternalNode:
		commitHashes(n.LeafNode, updates, valueUpdates)
		commitHashes(n.Left, updates, valueUpdates)
		commitHashes(n.Right, updates, valueUpdates)
		n.Clean = true
	case *node.LeafNode:
		if !n.Value.Clean {
			n.Value.Hash = hash.Value(n.Value.Value)
			n.Value.Clean = true
			*valueUpdates = append(*valueUpdates, n.Value)
		}
		n.Clean = true
	default:
		panic("urkel/cache: commit reached a dirty pointer with no node")
	}
	ptr.Hash = ptr.Node.CanonicalHash()
	ptr.Clean = true
	*updates = append(*updates, ptr)
}

// DrainEvictionCounts returns the number of nodes and values evicted
// since the last call (or since construction), resetting both to zero.
// Intended for an observer layered on top of the cache to report
// eviction pressure without the cache needing to know what an observer
// is.
func (c *Cache) DrainEvictionCounts() (nodes, values int) {
	nodes, values = c.evictedNodes, c.evictedValues
	c.evictedNodes, c.evictedValues = 0, 0
	return nodes, values
}

// Prefetch speculatively fetches and installs the subtree rooted at
// subtreePath/depth, up to the configured prefetch depth. A syncer that
// doesn't support GetSubtree degrades silently to a no-op, per the
// syncer contract's Unsupported convention.
func (c *Cache) Prefetch(ctx context.Context, subtreeRoot hash.Hash, subtreePath key.Key, depth uint8) (*node.Pointer, error) {
	if c.prefetchDepth == 0 {
		return node.NullPointer(), nil
	}

	st, err := c.syncer.GetSubtree(ctx, c.syncRoot, key.ID{Path: subtreePath, Depth: depth}, c.prefetchDepth)
	if err != nil {
		if errors.Is(err, syncer.ErrUnsupported) {
			return node.NullPointer(), nil
		}
		return nil, err
	}
	return c.ReconstructSubtree(ctx, subtreeRoot, st, 0, c.prefetchDepth)
}
