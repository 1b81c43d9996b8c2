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

// Package hash implements the fixed-width, domain-separated digest used
// throughout the tree, cache and syncer packages.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Size is the length, in bytes, of a Hash.
const Size = 32

// Domain separation tags, one per hashed structure. These must never be
// reordered or reused: changing a tag changes every hash that uses it.
const (
	tagValue    byte = 0x00
	tagLeaf     byte = 0x01
	tagInternal byte = 0x02
	// tagKeyPath is not part of the interoperable wire format (§6 only
	// specifies Value/Leaf/Internal); it derives the internal walk path
	// from a user key and never leaves the process.
	tagKeyPath byte = 0x03
)

// Hash is a 256-bit cryptographic digest.
type Hash [Size]byte

// Zero is the distinguished all-zero hash used for null pointers and the
// empty tree.
var Zero Hash

// IsZero returns true if h is the all-zero hash.
func (h Hash) IsZero() bool {
	return h == Zero
}

// Equal reports whether h and other are the same digest.
func (h Hash) Equal(other Hash) bool {
	return h == other
}

// Bit returns bit i of the hash, counting from the most significant bit
// of byte 0. It is used to walk the tree by the hash of a key.
func (h Hash) Bit(i int) bool {
	byteIdx := i / 8
	bitIdx := 7 - uint(i%8)
	return (h[byteIdx]>>bitIdx)&1 == 1
}

// String returns the lowercase hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// FromBytes builds a Hash from a 32-byte slice, panicking if the length
// is wrong. Callers that don't control the length should check it first.
func FromBytes(b []byte) (h Hash) {
	if len(b) != Size {
		panic("hash: wrong length")
	}
	copy(h[:], b)
	return
}

// sum hashes tag followed by parts, each part length-prefixed only when
// noted by the caller (the callers below inline the exact domain-specific
// layout from the wire format).
func sum(buf []byte) Hash {
	return sha256.Sum256(buf)
}

// Value computes H_value(b) = H(0x00 || b).
func Value(b []byte) Hash {
	buf := make([]byte, 0, 1+len(b))
	buf = append(buf, tagValue)
	buf = append(buf, b...)
	return sum(buf)
}

// Leaf computes H_leaf(k, vh) = H(0x01 || len(k) || k || vh).
func Leaf(key []byte, valueHash Hash) Hash {
	buf := make([]byte, 0, 1+2+len(key)+Size)
	buf = append(buf, tagLeaf)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(key)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, key...)
	buf = append(buf, valueHash[:]...)
	return sum(buf)
}

// Internal computes H_internal(lnh, lh, rh) = H(0x02 || lnh || lh || rh).
// Null children hash to Zero, per the data model invariants; callers pass
// Zero directly rather than special-casing it here.
func Internal(leafNodeHash, leftHash, rightHash Hash) Hash {
	buf := make([]byte, 0, 1+3*Size)
	buf = append(buf, tagInternal)
	buf = append(buf, leafNodeHash[:]...)
	buf = append(buf, leftHash[:]...)
	buf = append(buf, rightHash[:]...)
	return sum(buf)
}

// KeyPath derives one 256-bit block of the walk path for key. block 0
// covers path bits [0,256); block 1 covers [256,512); and so on. Nearly
// every key needs only block 0 — the extra blocks exist so an
// unusually long key never runs out of path bits to branch on. This is
// an internal addressing detail, not part of the wire format: it never
// needs to be reproduced by another implementation for interop, since
// only the resulting tree shape (and the node/value hashes in §6) is
// ever transmitted.
func KeyPath(key []byte, block uint32) Hash {
	buf := make([]byte, 0, 1+4+len(key))
	buf = append(buf, tagKeyPath)
	var blockBuf [4]byte
	binary.BigEndian.PutUint32(blockBuf[:], block)
	buf = append(buf, blockBuf[:]...)
	buf = append(buf, key...)
	return sum(buf)
}
