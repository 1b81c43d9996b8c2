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

package urkel

import (
	"context"

	"github.com/oasisprotocol/go-urkel/hash"
	"github.com/oasisprotocol/go-urkel/key"
	"github.com/oasisprotocol/go-urkel/node"
	"github.com/oasisprotocol/go-urkel/syncer"
)

// checkServable reports whether the tree can currently answer syncer
// requests: its pending writes must already be committed (a dirty root
// has no stable hash to authenticate against).
func (t *Tree) checkServable(root hash.Hash) error {
	if !t.cache.PendingRoot().Clean {
		return syncer.ErrDirtyRoot
	}
	if !root.Equal(t.cache.SyncRoot()) {
		return syncer.ErrInvalidRoot
	}
	return nil
}

// GetSubtree implements syncer.ReadSyncer, serving this tree's own
// committed state.
func (t *Tree) GetSubtree(ctx context.Context, root hash.Hash, id key.ID, maxDepth uint8) (*syncer.Subtree, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkServable(root); err != nil {
		return nil, err
	}

	ptr, err := t.cache.DerefNodeID(ctx, id)
	if err != nil {
		return nil, err
	}

	end := int(id.Depth) + int(maxDepth)
	if end > maxNodeDepth {
		end = maxNodeDepth
	}

	st := &syncer.Subtree{}
	rootPtr, err := t.doGetSubtree(ctx, st, ptr, id, uint8(end))
	if err != nil {
		return nil, err
	}
	st.Root = rootPtr
	return st, nil
}

// doGetSubtree materializes ptr into st: a boundary node (a leaf, or any
// node at maxAbsDepth) is added as a full node; anything else is added
// as a summary whose children are themselves materialized recursively.
func (t *Tree) doGetSubtree(ctx context.Context, st *syncer.Subtree, ptr *node.Pointer, id key.ID, maxAbsDepth uint8) (syncer.SubtreePointer, error) {
	if ptr.IsNull() {
		return syncer.NullSubtreePointer, nil
	}

	n, err := t.derefNode(ctx, id, ptr, nil)
	if err != nil {
		return syncer.SubtreePointer{}, err
	}
	if n == nil {
		return syncer.SubtreePointer{}, syncer.ErrNodeNotFound
	}

	if _, isLeaf := n.(*node.LeafNode); isLeaf || id.Depth >= maxAbsDepth {
		wire, err := syncer.Extract(n)
		if err != nil {
			return syncer.SubtreePointer{}, err
		}
		return st.AddFullNode(wire)
	}

	in := n.(*node.InternalNode)
	leafPtr, err := t.doGetSubtree(ctx, st, in.LeafNode, key.ID{Path: id.Path, Depth: id.Depth}, maxAbsDepth)
	if err != nil {
		return syncer.SubtreePointer{}, err
	}
	leftPtr, err := t.doGetSubtree(ctx, st, in.Left, key.ID{Path: id.Path, Depth: id.Depth + 1}, maxAbsDepth)
	if err != nil {
		return syncer.SubtreePointer{}, err
	}
	rightPtr, err := t.doGetSubtree(ctx, st, in.Right, key.ID{Path: id.Path, Depth: id.Depth + 1}, maxAbsDepth)
	if err != nil {
		return syncer.SubtreePointer{}, err
	}
	return st.AddSummary(syncer.InternalNodeSummary{LeafNode: leafPtr, Left: leftPtr, Right: rightPtr})
}

// GetPath implements syncer.ReadSyncer, serving the authentication path
// to searchKey under this tree's own committed state.
func (t *Tree) GetPath(ctx context.Context, root hash.Hash, searchKey key.Key, startDepth uint8) (*syncer.Subtree, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkServable(root); err != nil {
		return nil, err
	}

	id := key.ID{Path: searchKey, Depth: startDepth}
	ptr, err := t.cache.DerefNodeID(ctx, id)
	if err != nil {
		return nil, err
	}

	// A search key that ends exactly at startDepth addresses the leaf in
	// the leaf_node slot of the node found there (the slot shares that
	// node's id), so the subtree is rooted at that leaf.
	if searchKey.BitLength() == int(startDepth) && !ptr.IsNull() {
		n, err := t.derefNode(ctx, id, ptr, nil)
		if err != nil {
			return nil, err
		}
		if in, ok := n.(*node.InternalNode); ok && !in.LeafNode.IsNull() {
			ptr = in.LeafNode
		}
	}

	st := &syncer.Subtree{}
	rootPtr, err := t.doGetPath(ctx, st, ptr, id, searchKey)
	if err != nil {
		return nil, err
	}
	st.Root = rootPtr
	return st, nil
}

// doGetPath materializes only the boundary of the subtree surrounding
// the walk toward searchKey: the child that stays on the walk recurses
// further as a summary, the sibling that falls off the walk is
// materialized as a full node and not explored any deeper.
func (t *Tree) doGetPath(ctx context.Context, st *syncer.Subtree, ptr *node.Pointer, id key.ID, searchKey key.Key) (syncer.SubtreePointer, error) {
	if ptr.IsNull() {
		return syncer.NullSubtreePointer, nil
	}

	n, err := t.derefNode(ctx, id, ptr, nil)
	if err != nil {
		return syncer.SubtreePointer{}, err
	}
	if n == nil {
		return syncer.SubtreePointer{}, syncer.ErrNodeNotFound
	}

	in, ok := n.(*node.InternalNode)
	if !ok || id.Depth >= maxNodeDepth {
		wire, err := syncer.Extract(n)
		if err != nil {
			return syncer.SubtreePointer{}, err
		}
		return st.AddFullNode(wire)
	}

	if searchKey.BitLength() == int(id.Depth) {
		leafPtr, err := t.doGetPath(ctx, st, in.LeafNode, key.ID{Path: id.Path, Depth: id.Depth}, searchKey)
		if err != nil {
			return syncer.SubtreePointer{}, err
		}
		leftPtr, err := t.fullNodePointer(ctx, st, in.Left, key.ID{Path: id.Path, Depth: id.Depth + 1})
		if err != nil {
			return syncer.SubtreePointer{}, err
		}
		rightPtr, err := t.fullNodePointer(ctx, st, in.Right, key.ID{Path: id.Path, Depth: id.Depth + 1})
		if err != nil {
			return syncer.SubtreePointer{}, err
		}
		return st.AddSummary(syncer.InternalNodeSummary{LeafNode: leafPtr, Left: leftPtr, Right: rightPtr})
	}

	leafPtr, err := t.fullNodePointer(ctx, st, in.LeafNode, key.ID{Path: id.Path, Depth: id.Depth})
	if err != nil {
		return syncer.SubtreePointer{}, err
	}

	var leftPtr, rightPtr syncer.SubtreePointer
	if searchKey.GetBit(int(id.Depth)) {
		if leftPtr, err = t.fullNodePointer(ctx, st, in.Left, key.ID{Path: id.Path, Depth: id.Depth + 1}); err != nil {
			return syncer.SubtreePointer{}, err
		}
		if rightPtr, err = t.doGetPath(ctx, st, in.Right, key.ID{Path: id.Path, Depth: id.Depth + 1}, searchKey); err != nil {
			return syncer.SubtreePointer{}, err
		}
	} else {
		if leftPtr, err = t.doGetPath(ctx, st, in.Left, key.ID{Path: id.Path, Depth: id.Depth + 1}, searchKey); err != nil {
			return syncer.SubtreePointer{}, err
		}
		if rightPtr, err = t.fullNodePointer(ctx, st, in.Right, key.ID{Path: id.Path, Depth: id.Depth + 1}); err != nil {
			return syncer.SubtreePointer{}, err
		}
	}
	return st.AddSummary(syncer.InternalNodeSummary{LeafNode: leafPtr, Left: leftPtr, Right: rightPtr})
}

// fullNodePointer materializes ptr as a single boundary node, without
// recursing into its children (a full node only ever carries child
// hashes, never grandchildren).
func (t *Tree) fullNodePointer(ctx context.Context, st *syncer.Subtree, ptr *node.Pointer, id key.ID) (syncer.SubtreePointer, error) {
	if ptr.IsNull() {
		return syncer.NullSubtreePointer, nil
	}
	n, err := t.derefNode(ctx, id, ptr, nil)
	if err != nil {
		return syncer.SubtreePointer{}, err
	}
	if n == nil {
		return syncer.SubtreePointer{}, syncer.ErrNodeNotFound
	}
	wire, err := syncer.Extract(n)
	if err != nil {
		return syncer.SubtreePointer{}, err
	}
	return st.AddFullNode(wire)
}

// GetNode implements syncer.ReadSyncer, serving a single node from this
// tree's own committed state. id addresses a node reached by walking
// Left/Right bits only, so it cannot address a leaf occupying its
// parent's leaf_node slot (that leaf shares its parent's id); callers
// wanting such a leaf must use GetPath instead, the way Get does.
func (t *Tree) GetNode(ctx context.Context, root hash.Hash, id key.ID) (syncer.Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkServable(root); err != nil {
		return syncer.Node{}, err
	}

	ptr, err := t.cache.DerefNodeID(ctx, id)
	if err != nil {
		return syncer.Node{}, err
	}
	if ptr.IsNull() {
		return syncer.Node{}, syncer.ErrNodeNotFound
	}

	n, err := t.derefNode(ctx, id, ptr, nil)
	if err != nil {
		return syncer.Node{}, err
	}
	if n == nil {
		return syncer.Node{}, syncer.ErrNodeNotFound
	}
	return syncer.Extract(n)
}

// GetValue implements syncer.ReadSyncer, serving a single value by its
// content hash from this tree's own committed state.
func (t *Tree) GetValue(ctx context.Context, root, valueHash hash.Hash) ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if err := t.checkServable(root); err != nil {
		return nil, err
	}

	if v, ok := t.cache.ValueByHash(valueHash); ok {
		return v, nil
	}
	return nil, syncer.ErrValueNotFound
}
