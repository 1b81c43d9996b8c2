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

// Package key implements the variable-length bit-addressable key used to
// walk the tree, and the node identifier built from it.
package key

import (
	"github.com/bits-and-blooms/bitset"

	"github.com/oasisprotocol/go-urkel/hash"
)

// Key is an immutable, variable-length bit string. Bit 0 is the most
// significant bit of the first byte, matching hash.Hash's bit ordering
// so a key derived from a key-hash walks the tree the same way the hash
// itself would.
type Key struct {
	bits   *bitset.BitSet
	length int // in bits
}

// New builds a Key from the bytes of b, MSB-first, with bit length
// len(b)*8.
func New(b []byte) Key {
	length := len(b) * 8
	bs := bitset.New(uint(length))
	for i := 0; i < length; i++ {
		byteIdx := i / 8
		bitIdx := 7 - uint(i%8)
		if (b[byteIdx]>>bitIdx)&1 == 1 {
			bs.Set(uint(i))
		}
	}
	return Key{bits: bs, length: length}
}

// Empty returns the zero-length key.
func Empty() Key {
	return Key{bits: bitset.New(0), length: 0}
}

// BitLength returns the number of bits in the key.
func (k Key) BitLength() int {
	return k.length
}

// GetBit returns bit d of the key. d must be in [0, BitLength()).
func (k Key) GetBit(d int) bool {
	if d < 0 || d >= k.length {
		return false
	}
	return k.bits.Test(uint(d))
}

// SetBit returns a new Key equal to k with bit d set to v. If d ==
// BitLength(), the key is extended by one bit; any other out-of-range d
// panics. k itself is never mutated.
func (k Key) SetBit(d int, v bool) Key {
	if d < 0 || d > k.length {
		panic("key: SetBit index out of range")
	}
	length := k.length
	if d == length {
		length++
	}
	bs := k.bits.Clone()
	if bs.Len() < uint(length) {
		grown := bitset.New(uint(length))
		for i := 0; i < k.length; i++ {
			if bs.Test(uint(i)) {
				grown.Set(uint(i))
			}
		}
		bs = grown
	}
	if v {
		bs.Set(uint(d))
	} else {
		bs.Clear(uint(d))
	}
	return Key{bits: bs, length: length}
}

// Bytes reconstructs the big-endian byte representation of the key,
// zero-padding the final partial byte if BitLength() isn't a multiple of
// 8.
func (k Key) Bytes() []byte {
	n := (k.length + 7) / 8
	out := make([]byte, n)
	for i := 0; i < k.length; i++ {
		if k.bits.Test(uint(i)) {
			byteIdx := i / 8
			bitIdx := 7 - uint(i%8)
			out[byteIdx] |= 1 << bitIdx
		}
	}
	return out
}

// Equal reports whether k and other encode the same bit string.
func (k Key) Equal(other Key) bool {
	if k.length != other.length {
		return false
	}
	if k.length == 0 {
		return true
	}
	return k.bits.Equal(other.bits)
}

// Path builds the bitLen-bit walk path for userKey: the bits a tree
// traversal branches on, derived from hash.KeyPath rather than from
// userKey's own bytes. This is what gives the tree good balance
// regardless of the key distribution; the original userKey is kept
// separately (at the leaf) for equality checks and for determining
// where, along this path, the leaf actually terminates.
func Path(userKey []byte, bitLen int) Key {
	if bitLen == 0 {
		return Empty()
	}
	bs := bitset.New(uint(bitLen))
	blocks := (bitLen + 255) / 256
	for blk := 0; blk < blocks; blk++ {
		h := hash.KeyPath(userKey, uint32(blk))
		base := blk * 256
		limit := bitLen - base
		if limit > 256 {
			limit = 256
		}
		for i := 0; i < limit; i++ {
			if h.Bit(i) {
				bs.Set(uint(base + i))
			}
		}
	}
	return Key{bits: bs, length: bitLen}
}

// ID is a root-relative node identifier: the prefix consumed to reach
// the node (Path, truncated conceptually at Depth bits) and the depth
// itself.
type ID struct {
	Path  Key
	Depth uint8
}

// AtDepth returns the identifier of the ancestor of id at depth d. The
// underlying path bits are shared; only the depth marker changes.
func (id ID) AtDepth(d uint8) ID {
	return ID{Path: id.Path, Depth: d}
}
