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

// Package urkel implements the authenticated binary trie: Get, Insert,
// Remove and Commit over a cache-backed pointer graph, plus the tree's
// second role as a syncer.ReadSyncer serving its own committed state to
// other trees.
package urkel

import (
	"context"
	"fmt"
	"sync"

	"github.com/oasisprotocol/go-urkel/cache"
	"github.com/oasisprotocol/go-urkel/hash"
	"github.com/oasisprotocol/go-urkel/key"
	"github.com/oasisprotocol/go-urkel/node"
	"github.com/oasisprotocol/go-urkel/syncer"
)

// pathBits is the width of the hash-derived walk path: every key, no
// matter its own length, branches across this many bits before it would
// run out of path to descend along.
const pathBits = hash.Size * 8

// maxNodeDepth is the deepest a node identifier's Depth field (a uint8)
// can address. Reaching it requires pathBits-1 consecutive matching
// path bits between two keys, which won't happen outside of a
// deliberately crafted adversarial input.
const maxNodeDepth = 255

// Observer receives lifecycle notifications from a Tree: what got
// resolved and from where, what got evicted, and what got committed. It
// exists for instrumentation; a Tree works the same with or without one.
type Observer interface {
	OnNodeResolved(id key.ID, fromSyncer bool)
	OnValueResolved(h hash.Hash, fromSyncer bool)
	OnCacheEvict(nodes, values int)
	OnCommit(root hash.Hash, dirtyNodes int)
}

// NopObserver implements Observer with no-ops. It is the default when
// Options.Observer is nil.
type NopObserver struct{}

func (NopObserver) OnNodeResolved(key.ID, bool)    {}
func (NopObserver) OnValueResolved(hash.Hash, bool) {}
func (NopObserver) OnCacheEvict(int, int)           {}
func (NopObserver) OnCommit(hash.Hash, int)         {}

var _ Observer = NopObserver{}

// Options configures a new Tree.
type Options struct {
	// NodeCapacity and ValueCapacity bound the cache's two LRU lists.
	// Zero disables eviction for that list.
	NodeCapacity  int
	ValueCapacity int
	// PrefetchDepth configures how deep the cache's Prefetch asks for.
	// Zero disables prefetching. Get, Insert, Remove and Iterate do not
	// call Prefetch, so a Tree fetches only the paths and nodes it walks.
	PrefetchDepth uint8
	// InitialRoot, if set, seeds the tree as already committed to this
	// root hash, with nothing resident yet: the first read faults
	// everything in through the syncer.
	InitialRoot *hash.Hash
	// Observer, if set, is notified of cache resolution, eviction and
	// commit events. Defaults to NopObserver.
	Observer Observer
}

// Tree is a single authenticated binary trie instance. Get, Insert,
// Remove and Commit are not reentrant and must not be called
// concurrently with each other; the syncer.ReadSyncer methods (GetNode,
// GetValue, GetSubtree, GetPath) answer fixed, already-committed state
// and may be called concurrently with each other; they take the read
// lock, so a call made while a mutation holds the write lock waits for
// it to finish.
type Tree struct {
	mu       sync.RWMutex
	cache    *cache.Cache
	observer Observer
}

var _ syncer.ReadSyncer = (*Tree)(nil)

// New constructs a Tree that consults rs to fault in state it doesn't
// already hold. A nil rs behaves like syncer.NopReadSyncer{}: the tree
// must be the sole source of truth for everything it is asked about.
func New(rs syncer.ReadSyncer, opts Options) *Tree {
	c := cache.New(cache.Config{
		NodeCapacity:  opts.NodeCapacity,
		ValueCapacity: opts.ValueCapacity,
		Syncer:        rs,
	})
	c.SetPrefetchDepth(opts.PrefetchDepth)

	obs := opts.Observer
	if obs == nil {
		obs = NopObserver{}
	}

	t := &Tree{cache: c, observer: obs}
	if opts.InitialRoot != nil {
		c.SetSyncRoot(*opts.InitialRoot)
		c.SetPendingRoot(&node.Pointer{Clean: true, Hash: *opts.InitialRoot})
	}
	return t
}

// RootHash returns the hash of the most recently committed root. Before
// the first Commit, this is the zero hash (or, with Options.InitialRoot
// set, that seeded root).
func (t *Tree) RootHash() hash.Hash {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cache.SyncRoot()
}

// Get retrieves the value stored for k, or (nil, nil) if k isn't
// present.
func (t *Tree) Get(ctx context.Context, k []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	userKey := key.New(k)
	path := key.Path(k, pathBits)

	ptr := t.cache.PendingRoot()
	var depth uint8
	for {
		if ptr.IsNull() {
			return nil, nil
		}

		id := key.ID{Path: path, Depth: depth}
		n, err := t.derefNode(ctx, id, ptr, &path)
		if err != nil {
			return nil, err
		}
		if n == nil {
			return nil, nil
		}

		switch nn := n.(type) {
		case *node.LeafNode:
			if !nn.Key.Equal(userKey) {
				return nil, nil
			}
			return t.derefValue(ctx, nn.Value)
		case *node.InternalNode:
			if userKey.BitLength() == int(depth) {
				ptr = nn.LeafNode
				continue
			}
			if path.GetBit(int(depth)) {
				ptr = nn.Right
			} else {
				ptr = nn.Left
			}
			depth++
		default:
			return nil, fmt.Errorf("urkel: unexpected node type %T during get", n)
		}
	}
}

// Insert sets the value stored for k, replacing any existing value.
func (t *Tree) Insert(ctx context.Context, k, v []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	userKey := key.New(k)
	path := key.Path(k, pathBits)
	vptr := t.cache.NewValue(v)

	newRoot, err := t.insertAt(ctx, t.cache.PendingRoot(), 0, path, userKey, vptr)
	if err != nil {
		return err
	}
	t.cache.SetPendingRoot(newRoot)
	return nil
}

// insertAt returns the pointer that should replace ptr (at depth,
// reached via path) once userKey/vptr has been inserted beneath it.
func (t *Tree) insertAt(ctx context.Context, ptr *node.Pointer, depth uint8, path, userKey key.Key, vptr *node.ValuePointer) (*node.Pointer, error) {
	if depth >= maxNodeDepth {
		return nil, cache.ErrMaximumDepthExceeded
	}
	if ptr.IsNull() {
		return t.cache.NewLeafNode(userKey, vptr), nil
	}

	id := key.ID{Path: path, Depth: depth}
	n, err := t.derefNode(ctx, id, ptr, &path)
	if err != nil {
		return nil, err
	}

	switch existing := n.(type) {
	case *node.LeafNode:
		if existing.Key.Equal(userKey) {
			return t.cache.NewLeafNode(userKey, vptr), nil
		}
		existingPath := key.Path(existing.Key.Bytes(), pathBits)
		return t.attachLeaf(existing, existingPath, userKey, path, vptr, depth)

	case *node.InternalNode:
		clone := existing.Clone()

		if userKey.BitLength() == int(depth) {
			if clone.LeafNode.IsNull() {
				clone.LeafNode = t.cache.NewLeafNode(userKey, vptr)
				return &node.Pointer{Node: clone}, nil
			}

			occupantNode, err := t.derefNode(ctx, key.ID{Path: path, Depth: depth}, clone.LeafNode, &path)
			if err != nil {
				return nil, err
			}
			occupant, ok := occupantNode.(*node.LeafNode)
			if !ok {
				return nil, fmt.Errorf("urkel: leaf slot holds a %T", occupantNode)
			}
			if occupant.Key.Equal(userKey) {
				clone.LeafNode = t.cache.NewLeafNode(userKey, vptr)
				return &node.Pointer{Node: clone}, nil
			}

			// Two distinct keys that both terminate at this exact
			// depth: a path collision between their hash-derived
			// walk paths, rare but not excluded by the data model.
			// Resolved the same way as any other leaf split, just
			// starting from this depth instead of depth+1.
			occupantPath := key.Path(occupant.Key.Bytes(), pathBits)
			slot, err := t.attachLeaf(occupant, occupantPath, userKey, path, vptr, depth)
			if err != nil {
				return nil, err
			}
			clone.LeafNode = slot
			return &node.Pointer{Node: clone}, nil
		}

		if path.GetBit(int(depth)) {
			next, err := t.insertAt(ctx, clone.Right, depth+1, path, userKey, vptr)
			if err != nil {
				return nil, err
			}
			clone.Right = next
		} else {
			next, err := t.insertAt(ctx, clone.Left, depth+1, path, userKey, vptr)
			if err != nil {
				return nil, err
			}
			clone.Left = next
		}
		return &node.Pointer{Node: clone}, nil

	default:
		return nil, fmt.Errorf("urkel: unexpected node type %T during insert", n)
	}
}

// attachLeaf builds the chain of internal nodes needed to place newKey
// alongside existing, starting at depth. Both keys are assumed distinct.
func (t *Tree) attachLeaf(existing *node.LeafNode, existingPath, newKey, newPath key.Key, newValue *node.ValuePointer, depth uint8) (*node.Pointer, error) {
	if depth >= maxNodeDepth {
		return nil, cache.ErrMaximumDepthExceeded
	}

	existingEnds := existing.Key.BitLength() == int(depth)
	newEnds := newKey.BitLength() == int(depth)

	if existingEnds != newEnds {
		existingLeaf := t.cache.NewLeafNode(existing.Key, existing.Value)
		newLeaf := t.cache.NewLeafNode(newKey, newValue)
		if existingEnds {
			if newPath.GetBit(int(depth)) {
				return t.cache.NewInternalNode(existingLeaf, node.NullPointer(), newLeaf), nil
			}
			return t.cache.NewInternalNode(existingLeaf, newLeaf, node.NullPointer()), nil
		}
		if existingPath.GetBit(int(depth)) {
			return t.cache.NewInternalNode(newLeaf, node.NullPointer(), existingLeaf), nil
		}
		return t.cache.NewInternalNode(newLeaf, existingLeaf, node.NullPointer()), nil
	}

	// Either both keys end here (a path collision, see insertAt) or
	// neither does. Either way, only the path bits are left to tell
	// them apart.
	if existingPath.GetBit(int(depth)) == newPath.GetBit(int(depth)) {
		child, err := t.attachLeaf(existing, existingPath, newKey, newPath, newValue, depth+1)
		if err != nil {
			return nil, err
		}
		if existingPath.GetBit(int(depth)) {
			return t.cache.NewInternalNode(node.NullPointer(), node.NullPointer(), child), nil
		}
		return t.cache.NewInternalNode(node.NullPointer(), child, node.NullPointer()), nil
	}

	existingLeaf := t.cache.NewLeafNode(existing.Key, existing.Value)
	newLeaf := t.cache.NewLeafNode(newKey, newValue)
	if existingPath.GetBit(int(depth)) {
		return t.cache.NewInternalNode(node.NullPointer(), newLeaf, existingLeaf), nil
	}
	return t.cache.NewInternalNode(node.NullPointer(), existingLeaf, newLeaf), nil
}

// Remove deletes k, if present. Removing an absent key is a no-op.
func (t *Tree) Remove(ctx context.Context, k []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	userKey := key.New(k)
	path := key.Path(k, pathBits)

	newRoot, _, err := t.removeAt(ctx, t.cache.PendingRoot(), 0, path, userKey)
	if err != nil {
		return err
	}
	t.cache.SetPendingRoot(newRoot)
	return nil
}

func (t *Tree) removeAt(ctx context.Context, ptr *node.Pointer, depth uint8, path, userKey key.Key) (*node.Pointer, bool, error) {
	if ptr.IsNull() {
		return ptr, false, nil
	}

	id := key.ID{Path: path, Depth: depth}
	n, err := t.derefNode(ctx, id, ptr, &path)
	if err != nil {
		return nil, false, err
	}
	if n == nil {
		return ptr, false, nil
	}

	switch existing := n.(type) {
	case *node.LeafNode:
		if !existing.Key.Equal(userKey) {
			return ptr, false, nil
		}
		t.cache.RemoveValue(existing.Value)
		return node.NullPointer(), true, nil

	case *node.InternalNode:
		clone := existing.Clone()
		removed := false

		switch {
		case userKey.BitLength() == int(depth):
			if !clone.LeafNode.IsNull() {
				occupantNode, err := t.derefNode(ctx, key.ID{Path: path, Depth: depth}, clone.LeafNode, &path)
				if err != nil {
					return nil, false, err
				}
				if occupant, ok := occupantNode.(*node.LeafNode); ok && occupant.Key.Equal(userKey) {
					t.cache.RemoveValue(occupant.Value)
					clone.LeafNode = node.NullPointer()
					removed = true
				}
			}
		case path.GetBit(int(depth)):
			next, r, err := t.removeAt(ctx, clone.Right, depth+1, path, userKey)
			if err != nil {
				return nil, false, err
			}
			clone.Right = next
			removed = r
		default:
			next, r, err := t.removeAt(ctx, clone.Left, depth+1, path, userKey)
			if err != nil {
				return nil, false, err
			}
			clone.Left = next
			removed = r
		}

		if !removed {
			return ptr, false, nil
		}
		newPtr, err := t.collapse(ctx, clone, path, depth)
		if err != nil {
			return nil, false, err
		}
		return newPtr, true, nil

	default:
		return nil, false, fmt.Errorf("urkel: unexpected node type %T during remove", n)
	}
}

// collapse reduces an internal node that may have just lost its only
// other occupant. This is a non-path-compressed, one-bit-per-level trie:
// an internal node with a single child standing encodes that child's
// path bit at this node's own depth (see attachLeaf), so only a *leaf*
// child can be promoted to replace the parent outright — promoting a
// single internal child up a level would reinterpret its bit split one
// depth too shallow and silently misroute reads. With nothing left, the
// node is replaced by the null pointer; with the leaf_node slot as the
// sole occupant, it is already a leaf and is promoted directly; with
// more than one occupant, the node is kept as-is.
func (t *Tree) collapse(ctx context.Context, n *node.InternalNode, path key.Key, depth uint8) (*node.Pointer, error) {
	leafEmpty := n.LeafNode.IsNull()
	leftEmpty := n.Left.IsNull()
	rightEmpty := n.Right.IsNull()

	switch {
	case leafEmpty && leftEmpty && rightEmpty:
		return node.NullPointer(), nil
	case !leafEmpty && leftEmpty && rightEmpty:
		return n.LeafNode, nil
	case leafEmpty && !leftEmpty && rightEmpty:
		return t.collapseChild(ctx, n, n.Left, path, depth)
	case leafEmpty && leftEmpty && !rightEmpty:
		return t.collapseChild(ctx, n, n.Right, path, depth)
	default:
		return &node.Pointer{Node: n}, nil
	}
}

// collapseChild decides whether child, the lone surviving occupant of
// parent, can replace parent outright: only if child resolves to a
// *LeafNode. Otherwise parent is kept, wrapping child as its one
// standing branch.
func (t *Tree) collapseChild(ctx context.Context, parent *node.InternalNode, child *node.Pointer, path key.Key, depth uint8) (*node.Pointer, error) {
	id := key.ID{Path: path, Depth: depth + 1}
	n, err := t.derefNode(ctx, id, child, nil)
	if err != nil {
		return nil, err
	}
	if _, ok := n.(*node.LeafNode); ok {
		return child, nil
	}
	return &node.Pointer{Node: parent}, nil
}

// Commit recomputes hashes for every pending write and returns the new
// root hash. Until Commit is called, writes are visible to Get within
// this Tree but not to the tree's own syncer.ReadSyncer side or to the
// RootHash it reports.
func (t *Tree) Commit(ctx context.Context) (hash.Hash, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	dirty := countDirty(t.cache.PendingRoot())
	root := t.cache.Commit(t.cache.PendingRoot())
	t.cache.SetSyncRoot(root)

	if nodes, values := t.cache.DrainEvictionCounts(); nodes > 0 || values > 0 {
		t.observer.OnCacheEvict(nodes, values)
	}
	t.observer.OnCommit(root, dirty)
	return root, nil
}

func countDirty(ptr *node.Pointer) int {
	if ptr.Clean {
		return 0
	}
	switch n := ptr.Node.(type) {
	case *node.InternalNode:
		return 1 + countDirty(n.LeafNode) + countDirty(n.Left) + countDirty(n.Right)
	case *node.LeafNode:
		return 1
	default:
		return 0
	}
}

// Iterate walks every key/value pair in ascending path order, calling fn
// for each. Iteration stops early if fn returns false.
func (t *Tree) Iterate(ctx context.Context, fn func(k, v []byte) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := t.iterateAt(ctx, t.cache.PendingRoot(), key.Empty(), 0, nil, fn)
	return err
}

// iterateAt walks ptr (identified by (path, depth)). searchKey is nil
// for a node reachable by its own unique (path, depth) id (the root, or
// a Left/Right child); it is &path when ptr occupies the parent's
// leaf_node slot, since that slot shares its parent's id and a plain
// single-node lookup by id would resolve the parent instead of the
// leaf — the same reason Get always supplies a search key when
// following that slot.
func (t *Tree) iterateAt(ctx context.Context, ptr *node.Pointer, path key.Key, depth uint8, searchKey *key.Key, fn func(k, v []byte) bool) (bool, error) {
	if ptr.IsNull() {
		return true, nil
	}

	id := key.ID{Path: path, Depth: depth}
	n, err := t.derefNode(ctx, id, ptr, searchKey)
	if err != nil {
		return false, err
	}
	if n == nil {
		return true, nil
	}

	switch nn := n.(type) {
	case *node.LeafNode:
		value, err := t.derefValue(ctx, nn.Value)
		if err != nil {
			return false, err
		}
		return fn(nn.Key.Bytes(), value), nil

	case *node.InternalNode:
		if !nn.LeafNode.IsNull() {
			cont, err := t.iterateAt(ctx, nn.LeafNode, path, depth, &path, fn)
			if err != nil || !cont {
				return cont, err
			}
		}
		cont, err := t.iterateAt(ctx, nn.Left, path.SetBit(int(depth), false), depth+1, nil, fn)
		if err != nil || !cont {
			return cont, err
		}
		return t.iterateAt(ctx, nn.Right, path.SetBit(int(depth), true), depth+1, nil, fn)

	default:
		return false, fmt.Errorf("urkel: unexpected node type %T during iterate", n)
	}
}

// derefNode resolves ptr and reports the resolution to the observer.
func (t *Tree) derefNode(ctx context.Context, id key.ID, ptr *node.Pointer, searchKey *key.Key) (node.Node, error) {
	wasResident := ptr.HasNode()
	n, err := t.cache.DerefNodePtr(ctx, id, ptr, searchKey)
	if err != nil {
		return nil, err
	}
	if n != nil {
		t.observer.OnNodeResolved(id, !wasResident)
	}
	return n, nil
}

// derefValue resolves vptr and reports the resolution to the observer.
func (t *Tree) derefValue(ctx context.Context, vptr *node.ValuePointer) ([]byte, error) {
	wasResident := vptr.IsResolved()
	v, err := t.cache.DerefValuePtr(ctx, vptr)
	if err != nil {
		return nil, err
	}
	t.observer.OnValueResolved(vptr.Hash, !wasResident)
	return v, nil
}
