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
	"fmt"

	"github.com/oasisprotocol/go-urkel/node"
)

// Extract converts a live, resolved in-memory node into its wire
// ("full node") form: an internal node keeps only its children's
// hashes, a leaf keeps its key and its value's hash, never the value
// bytes themselves.
func Extract(n node.Node) (Node, error) {
	switch v := n.(type) {
	case *node.InternalNode:
		return Node{
			Kind:         InternalKind,
			LeafNodeHash: v.LeafNode.Hash,
			LeftHash:     v.Left.Hash,
			RightHash:    v.Right.Hash,
		}, nil
	case *node.LeafNode:
		return Node{
			Kind:      LeafKind,
			Key:       v.Key.Bytes(),
			ValueHash: v.Value.Hash,
		}, nil
	default:
		return Node{}, fmt.Errorf("urkel/syncer: cannot extract node of type %T", n)
	}
}
