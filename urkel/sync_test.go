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
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"testing"

	"github.com/oasisprotocol/go-urkel/hash"
	"github.com/oasisprotocol/go-urkel/key"
	"github.com/oasisprotocol/go-urkel/syncer"
)

func buildServer(ctx context.Context, t *testing.T, n int) (*Tree, hash.Hash, map[string][]byte) {
	t.Helper()
	server := New(syncer.NopReadSyncer{}, Options{})
	data := make(map[string][]byte, n)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < n; i++ {
		k := make([]byte, 16)
		v := make([]byte, 16)
		r.Read(k)
		r.Read(v)
		data[string(k)] = v
		if err := server.Insert(ctx, k, v); err != nil {
			t.Fatal(err)
		}
	}
	root, err := server.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	return server, root, data
}

func TestClientSyncsAgainstServer(t *testing.T) {
	ctx := context.Background()
	server, root, data := buildServer(ctx, t, 100)

	client := New(server, Options{InitialRoot: &root, PrefetchDepth: 3})
	for k, want := range data {
		got, err := client.Get(ctx, []byte(k))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("key %x: got %q, want %q", []byte(k), got, want)
		}
	}

	clientRoot, err := client.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !clientRoot.Equal(root) {
		t.Fatalf("client root %s should match server root %s after a read-only sync", clientRoot, root)
	}
}

func TestClientSyncMissingKeyReturnsNil(t *testing.T) {
	ctx := context.Background()
	server, root, _ := buildServer(ctx, t, 20)

	client := New(server, Options{InitialRoot: &root})
	v, err := client.Get(ctx, []byte("definitely-not-a-key-in-the-set"))
	if err != nil {
		t.Fatal(err)
	}
	if v != nil {
		t.Fatalf("expected nil for an absent key, got %q", v)
	}
}

func TestGetNodeRejectsDirtyRoot(t *testing.T) {
	ctx := context.Background()
	server := New(syncer.NopReadSyncer{}, Options{})
	if err := server.Insert(ctx, []byte("a"), []byte("1")); err != nil {
		t.Fatal(err)
	}
	// Not committed yet: the pending root is dirty and has no stable hash.
	_, err := server.GetNode(ctx, hash.Zero, key.ID{Path: key.Path([]byte("a"), pathBits), Depth: 0})
	if err != syncer.ErrDirtyRoot {
		t.Fatalf("expected ErrDirtyRoot, got %v", err)
	}
}

func TestGetSubtreeRejectsWrongRoot(t *testing.T) {
	ctx := context.Background()
	server, _, _ := buildServer(ctx, t, 10)

	var bogus hash.Hash
	bogus[0] = 0xFF
	_, err := server.GetSubtree(ctx, bogus, key.ID{}, 8)
	if err != syncer.ErrInvalidRoot {
		t.Fatalf("expected ErrInvalidRoot, got %v", err)
	}
}

// tamperedSyncer wraps a real ReadSyncer but corrupts every value it
// serves, letting tests exercise the hash-mismatch path a client hits
// when a dishonest peer lies about content.
type tamperedSyncer struct {
	syncer.ReadSyncer
}

func (s tamperedSyncer) GetValue(ctx context.Context, root, valueHash hash.Hash) ([]byte, error) {
	v, err := s.ReadSyncer.GetValue(ctx, root, valueHash)
	if err != nil {
		return nil, err
	}
	tampered := make([]byte, len(v))
	copy(tampered, v)
	if len(tampered) > 0 {
		tampered[0] ^= 0xFF
	}
	return tampered, nil
}

func TestClientDetectsTamperedValue(t *testing.T) {
	ctx := context.Background()
	server, root, data := buildServer(ctx, t, 30)

	var anyKey string
	for k := range data {
		anyKey = k
		break
	}

	client := New(tamperedSyncer{server}, Options{InitialRoot: &root})
	_, err := client.Get(ctx, []byte(anyKey))
	if err == nil {
		t.Fatal("expected a hash-mismatch error when the syncer lies about a value")
	}
}

func TestMultipleClientsSyncConcurrently(t *testing.T) {
	ctx := context.Background()
	server, root, data := buildServer(ctx, t, 200)

	const numClients = 6
	errs := make(chan error, numClients)
	for c := 0; c < numClients; c++ {
		go func(id int) {
			client := New(server, Options{InitialRoot: &root, PrefetchDepth: 4})
			for k, want := range data {
				got, err := client.Get(ctx, []byte(k))
				if err != nil {
					errs <- fmt.Errorf("client %d: %w", id, err)
					return
				}
				if !bytes.Equal(got, want) {
					errs <- fmt.Errorf("client %d: mismatch for key %x", id, []byte(k))
					return
				}
			}
			errs <- nil
		}(c)
	}

	for c := 0; c < numClients; c++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}
}

// TestIterateAfterSyncResolvesLeafSlot forces a key whose own raw bit
// length (8 bits, a single byte) is shorter than the path depth it
// shares with another key, so it ends up occupying its parent
// internal node's leaf_node slot rather than being an ordinary
// Left/Right child. That slot shares its parent's (path, depth)
// identifier, so resolving it over a syncer by plain node id (rather
// than through GetPath, as Get does) would return the parent instead
// of the leaf and fail hash verification. Iterating a freshly synced
// client tree (nothing resident yet) must still recover both keys.
func TestIterateAfterSyncResolvesLeafSlot(t *testing.T) {
	ctx := context.Background()

	short := []byte{0x5A}
	shortPath := key.Path(short, pathBits)

	var long []byte
	r := rand.New(rand.NewSource(13))
	for {
		candidate := make([]byte, 20)
		r.Read(candidate)
		p := key.Path(candidate, pathBits)
		matches := true
		for i := 0; i < 8; i++ {
			if p.GetBit(i) != shortPath.GetBit(i) {
				matches = false
				break
			}
		}
		if matches {
			long = candidate
			break
		}
	}

	server := New(syncer.NopReadSyncer{}, Options{})
	if err := server.Insert(ctx, short, []byte("short-value")); err != nil {
		t.Fatal(err)
	}
	if err := server.Insert(ctx, long, []byte("long-value")); err != nil {
		t.Fatal(err)
	}
	root, err := server.Commit(ctx)
	if err != nil {
		t.Fatal(err)
	}

	client := New(server, Options{InitialRoot: &root})
	seen := map[string][]byte{}
	err = client.Iterate(ctx, func(k, v []byte) bool {
		cp := make([]byte, len(v))
		copy(cp, v)
		seen[string(k)] = cp
		return true
	})
	if err != nil {
		t.Fatal(err)
	}

	if got := seen[string(short)]; !bytes.Equal(got, []byte("short-value")) {
		t.Fatalf("short key: got %q, want %q", got, "short-value")
	}
	if got := seen[string(long)]; !bytes.Equal(got, []byte("long-value")) {
		t.Fatalf("long key: got %q, want %q", got, "long-value")
	}
}

func TestIterateAfterSyncMatchesServer(t *testing.T) {
	ctx := context.Background()
	server, root, data := buildServer(ctx, t, 40)

	client := New(server, Options{InitialRoot: &root})
	seen := map[string][]byte{}
	err := client.Iterate(ctx, func(k, v []byte) bool {
		cp := make([]byte, len(v))
		copy(cp, v)
		seen[string(k)] = cp
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != len(data) {
		t.Fatalf("expected %d pairs from iteration, saw %d", len(data), len(seen))
	}
	for k, want := range data {
		if !bytes.Equal(seen[k], want) {
			t.Fatalf("key %x: got %q, want %q", []byte(k), seen[k], want)
		}
	}
}
