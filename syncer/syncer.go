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

// Package syncer defines the abstract remote-sync protocol (ReadSyncer)
// and the compact wire format (Subtree) used to answer it, along with a
// no-op implementation for trees that never need to fetch.
package syncer

import (
	"context"
	"errors"

	"github.com/oasisprotocol/go-urkel/hash"
	"github.com/oasisprotocol/go-urkel/key"
)

// Errors returned by a ReadSyncer implementation.
var (
	// ErrUnsupported is returned by an operation a syncer doesn't
	// implement.
	ErrUnsupported = errors.New("urkel: syncer operation unsupported")
	// ErrInvalidRoot is returned when the requested root doesn't match
	// the root the syncer is serving.
	ErrInvalidRoot = errors.New("urkel: invalid root")
	// ErrDirtyRoot is returned when a tree acting as a syncer is asked
	// to serve a request while its pending root has uncommitted writes.
	ErrDirtyRoot = errors.New("urkel: dirty root")
	// ErrNodeNotFound is returned when the requested node doesn't exist
	// under the given root.
	ErrNodeNotFound = errors.New("urkel: node not found")
	// ErrValueNotFound is returned when the requested value doesn't
	// exist.
	ErrValueNotFound = errors.New("urkel: value not found")
)

// ReadSyncer is the abstract source of authoritative subtrees, paths,
// nodes and values, keyed by root hash. A tree instance can either
// consume one (to lazily fault in remote state) or implement one itself
// (to serve its own committed state to other trees).
type ReadSyncer interface {
	// GetSubtree retrieves a compressed summary of the subtree rooted at
	// id, under root, capped at maxDepth levels below id.
	GetSubtree(ctx context.Context, root hash.Hash, id key.ID, maxDepth uint8) (*Subtree, error)

	// GetPath retrieves a compressed summary of the authentication path
	// to searchKey, starting at startDepth, under root.
	GetPath(ctx context.Context, root hash.Hash, searchKey key.Key, startDepth uint8) (*Subtree, error)

	// GetNode retrieves a single node identified by id, under root.
	GetNode(ctx context.Context, root hash.Hash, id key.ID) (Node, error)

	// GetValue retrieves a single value blob by its hash, under root.
	GetValue(ctx context.Context, root hash.Hash, valueHash hash.Hash) ([]byte, error)
}

// NopReadSyncer is a ReadSyncer that can't answer anything. It is valid
// for trees that are the sole source of truth and never need to fetch.
type NopReadSyncer struct{}

var _ ReadSyncer = NopReadSyncer{}

// GetSubtree implements ReadSyncer.
func (NopReadSyncer) GetSubtree(context.Context, hash.Hash, key.ID, uint8) (*Subtree, error) {
	return nil, ErrUnsupported
}

// GetPath implements ReadSyncer.
func (NopReadSyncer) GetPath(context.Context, hash.Hash, key.Key, uint8) (*Subtree, error) {
	return nil, ErrUnsupported
}

// GetNode implements ReadSyncer.
func (NopReadSyncer) GetNode(context.Context, hash.Hash, key.ID) (Node, error) {
	return Node{}, ErrUnsupported
}

// GetValue implements ReadSyncer.
func (NopReadSyncer) GetValue(context.Context, hash.Hash, hash.Hash) ([]byte, error) {
	return nil, ErrUnsupported
}
