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

// lruList is an eviction queue keyed by a monotonically increasing
// sequence number, the way the cache's two lists (nodes and values)
// are each kept ordered by recency without needing a doubly linked
// list: the lowest key is always the least recently used entry.
//
// extra reads/writes an item's stored sequence number (0 meaning "not
// in this list"); size reports the unit charged against capacity (1
// per node, byte length per value).
type lruList[T any] struct {
	entries  map[uint64]T
	seqNext  uint64
	size     int
	capacity int

	extra func(T) *uint64
	size_ func(T) int
}

func newLRUList[T any](capacity int, extra func(T) *uint64, size func(T) int) *lruList[T] {
	return &lruList[T]{
		entries:  make(map[uint64]T),
		seqNext:  1,
		capacity: capacity,
		extra:    extra,
		size_:    size,
	}
}

// addToFront inserts val as the most recently used entry.
func (l *lruList[T]) addToFront(val T) {
	extra := l.extra(val)
	if *extra == 0 {
		l.size += l.size_(val)
	}
	*extra = l.seqNext
	l.entries[l.seqNext] = val
	l.seqNext++
}

// moveToFront re-sequences val as most recently used, if present.
// Reports whether val was already in the list.
func (l *lruList[T]) moveToFront(val T) bool {
	extra := l.extra(val)
	if *extra == 0 {
		return false
	}
	delete(l.entries, *extra)
	*extra = l.seqNext
	l.entries[l.seqNext] = val
	l.seqNext++
	return true
}

// remove drops val from the list. Reports whether it was present.
func (l *lruList[T]) remove(val T) bool {
	extra := l.extra(val)
	if *extra == 0 {
		return false
	}
	if _, ok := l.entries[*extra]; !ok {
		return false
	}
	delete(l.entries, *extra)
	l.size -= l.size_(val)
	*extra = 0
	return true
}

// evictForVal drains lowest-sequence entries until val's size would fit
// under capacity, returning the evicted entries in eviction order. A
// capacity of 0 disables eviction entirely.
func (l *lruList[T]) evictForVal(val T) []T {
	var evicted []T
	if l.capacity <= 0 {
		return evicted
	}
	target := l.size_(val)
	for len(l.entries) > 0 && l.capacity-l.size < target {
		lowest := l.lowestSeq()
		item := l.entries[lowest]
		if l.remove(item) {
			evicted = append(evicted, item)
		}
	}
	return evicted
}

// lowestSeq returns the smallest sequence number currently stored.
// Called only when entries is non-empty.
func (l *lruList[T]) lowestSeq() uint64 {
	var min uint64
	first := true
	for seq := range l.entries {
		if first || seq < min {
			min = seq
			first = false
		}
	}
	return min
}
