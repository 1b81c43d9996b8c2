package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/oasisprotocol/go-urkel/syncer"
	"github.com/oasisprotocol/go-urkel/urkel"
)

func main() {
	benchmarkInsertInExisting()
}

func benchmarkInsertInExisting() {
	f, _ := os.Create("cpu.prof")
	g, _ := os.Create("mem.prof")
	_ = pprof.StartCPUProfile(f)
	defer pprof.StopCPUProfile()
	defer func() { _ = pprof.WriteHeapProfile(g) }()

	ctx := context.Background()

	// Number of existing keys in tree
	n := 1000000
	// Keys to be inserted afterwards
	toInsert := 10000
	total := n + toInsert

	keys := make([][]byte, n)
	toInsertKeys := make([][]byte, toInsert)
	value := []byte("value")

	for i := 0; i < 4; i++ {
		// Generate set of keys once
		for i := 0; i < total; i++ {
			key := make([]byte, 32)
			if _, err := rand.Read(key); err != nil {
				panic(err)
			}
			if i < n {
				keys[i] = key
			} else {
				toInsertKeys[i-n] = key
			}
		}
		fmt.Printf("Generated key set %d\n", i)

		// Build a tree from the same keys multiple times
		for i := 0; i < 5; i++ {
			tree := urkel.New(syncer.NopReadSyncer{}, urkel.Options{})
			for _, k := range keys {
				if err := tree.Insert(ctx, k, value); err != nil {
					panic(err)
				}
			}
			if _, err := tree.Commit(ctx); err != nil {
				panic(err)
			}

			// Now insert the remaining leaves and measure time.
			start := time.Now()
			for _, k := range toInsertKeys {
				if err := tree.Insert(ctx, k, value); err != nil {
					panic(err)
				}
			}
			if _, err := tree.Commit(ctx); err != nil {
				panic(err)
			}
			elapsed := time.Since(start)
			fmt.Printf("Took %v to insert and commit %d leaves\n", elapsed, toInsert)
		}
	}
}
