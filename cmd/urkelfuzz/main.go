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

// Command urkelfuzz repeatedly inserts the same set of keys in two
// different orders and checks that the resulting root hash is the same
// either way, the way the tree's balance is supposed to work regardless
// of insertion order.
package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sort"

	"github.com/oasisprotocol/go-urkel/syncer"
	"github.com/oasisprotocol/go-urkel/urkel"
)

const (
	numKeys = 1000
	keySize = 32
	valSize = 32
)

type keyList [][]byte

func (kl keyList) Len() int           { return len(kl) }
func (kl keyList) Less(i, j int) bool { return bytes.Compare(kl[i], kl[j]) < 0 }
func (kl keyList) Swap(i, j int)      { kl[i], kl[j] = kl[j], kl[i] }

func randomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

func shuffled(kl keyList) keyList {
	out := make(keyList, len(kl))
	copy(out, kl)
	for i := len(out) - 1; i > 0; i-- {
		jBig, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			panic(err)
		}
		j := int(jBig.Int64())
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func main() {
	ctx := context.Background()

	for attempt := 0; ; attempt++ {
		fmt.Println("attempt #", attempt)

		keys := make(keyList, numKeys)
		values := make([][]byte, numKeys)
		for i := range keys {
			keys[i] = randomBytes(keySize)
			values[i] = randomBytes(valSize)
		}

		sortedOrder := make(keyList, numKeys)
		copy(sortedOrder, keys)
		sort.Sort(sortedOrder)

		valueFor := make(map[string][]byte, numKeys)
		for i, k := range keys {
			valueFor[string(k)] = values[i]
		}

		treeA := urkel.New(syncer.NopReadSyncer{}, urkel.Options{})
		for _, k := range sortedOrder {
			if err := treeA.Insert(ctx, k, valueFor[string(k)]); err != nil {
				panic(err)
			}
		}
		rootA, err := treeA.Commit(ctx)
		if err != nil {
			panic(err)
		}

		treeB := urkel.New(syncer.NopReadSyncer{}, urkel.Options{})
		for _, k := range shuffled(sortedOrder) {
			if err := treeB.Insert(ctx, k, valueFor[string(k)]); err != nil {
				panic(err)
			}
		}
		rootB, err := treeB.Commit(ctx)
		if err != nil {
			panic(err)
		}

		if !rootA.Equal(rootB) {
			panic(fmt.Sprintf("root hash depends on insertion order: %s != %s", rootA, rootB))
		}
	}
}
