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

package cache

import (
	"context"
	"testing"

	"github.com/oasisprotocol/go-urkel/hash"
	"github.com/oasisprotocol/go-urkel/key"
	"github.com/oasisprotocol/go-urkel/node"
	"github.com/oasisprotocol/go-urkel/syncer"
)

func buildLeaf(c *Cache, k []byte, v []byte) *node.Pointer {
	vp := c.NewValue(v)
	return c.NewLeafNode(key.New(k), vp)
}

func TestCommitSingleLeaf(t *testing.T) {
	c := New(Config{})
	leaf := buildLeaf(c, []byte("foo"), []byte("bar"))
	root := c.Commit(leaf)
	if root.IsZero() {
		t.Fatal("committed leaf should have a non-zero hash")
	}
	if !leaf.Clean {
		t.Fatal("commit should leave the pointer clean")
	}
	stats := c.Stats()
	if stats.LeafNodeCount != 1 {
		t.Fatalf("expected 1 leaf node, got %d", stats.LeafNodeCount)
	}
}

func TestCommitDeterministic(t *testing.T) {
	c1 := New(Config{})
	left1 := buildLeaf(c1, []byte("a"), []byte("1"))
	right1 := buildLeaf(c1, []byte("b"), []byte("2"))
	internal1 := c1.NewInternalNode(node.NullPointer(), left1, right1)
	root1 := c1.Commit(internal1)

	c2 := New(Config{})
	left2 := buildLeaf(c2, []byte("a"), []byte("1"))
	right2 := buildLeaf(c2, []byte("b"), []byte("2"))
	internal2 := c2.NewInternalNode(node.NullPointer(), left2, right2)
	root2 := c2.Commit(internal2)

	if !root1.Equal(root2) {
		t.Fatalf("identical structures should commit to the same hash: %s != %s", root1, root2)
	}
}

func TestNodeEvictionRespectsCapacity(t *testing.T) {
	c := New(Config{NodeCapacity: 2})
	for i := 0; i < 5; i++ {
		leaf := buildLeaf(c, []byte{byte(i)}, []byte("v"))
		c.Commit(leaf)
	}
	if c.lruNodes.size > 2 {
		t.Fatalf("expected LRU node size <= 2, got %d", c.lruNodes.size)
	}
}

func TestValueEvictionRespectsCapacity(t *testing.T) {
	c := New(Config{ValueCapacity: 4})
	for i := 0; i < 10; i++ {
		leaf := buildLeaf(c, []byte{byte(i)}, []byte{byte(i), byte(i)})
		c.Commit(leaf)
	}
	if c.lruValues.size > 4 {
		t.Fatalf("expected value LRU size <= 4, got %d", c.lruValues.size)
	}
}

func TestDerefValuePtrHashMismatchFails(t *testing.T) {
	c := New(Config{Syncer: badValueSyncer{}})
	vptr := &node.ValuePointer{Clean: true, Hash: hash.FromBytes(make([]byte, 32))}
	_, err := c.DerefValuePtr(context.Background(), vptr)
	if err != ErrHashMismatch {
		t.Fatalf("expected ErrHashMismatch, got %v", err)
	}
}

type badValueSyncer struct {
	syncer.NopReadSyncer
}

func (badValueSyncer) GetValue(ctx context.Context, root hash.Hash, valueHash hash.Hash) ([]byte, error) {
	return []byte("not the right bytes"), nil
}
