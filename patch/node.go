// Copyright 2025 R5 Labs
// This file is part of the R5 Core library.
//
// This software is provided "as is", without warranty of any kind,
// express or implied, including but not limited to the warranties
// of merchantability, fitness for a particular purpose and
// noninfringement. In no event shall the authors or copyright
// holders be liable for any claim, damages, or other liability,
// whether in an action of contract, tort or otherwise, arising
// from, out of or in connection with the software or the use or
// other dealings in the software.

package patch

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/triblespace/tribles-go/internal/bytetable"
	"github.com/triblespace/tribles-go/internal/siphash128"
)

// node is a trie node: a Go interface implemented by exactly *leaf and
// *branch. An interface value is already a compact (type, pointer)
// pair with an O(1) tag test and by-value copies, so no hand-packed
// tagged-pointer word is needed on top of it. The byte key a parent
// uses to find a child lives on head, the (key byte, node) pair a
// branch's byte-table stores per slot.
type node interface {
	refs() *int32
}

type hash128 struct {
	lo, hi uint64
}

func (h hash128) xor(o hash128) hash128 {
	return hash128{h.lo ^ o.lo, h.hi ^ o.hi}
}

var zeroHash hash128

// leaf is a trie leaf: the full tree-order key plus an optional payload
// distinct from the key itself (unused by the trible orderings, which
// store the whole trible as the key, but exercised by the pile's blob
// index, whose payload is the blob's on-disk location).
type leaf struct {
	refcount int32
	key      []byte
	value    any
	hash     hash128
}

func (l *leaf) refs() *int32 { return &l.refcount }

// branch is a trie interior node. Its byte-table slots are keyed by the
// tree-order byte at depth endDepth; childleaf lets any depth's key
// prefix be reconstructed without storing it on every interior node.
type branch struct {
	refcount     int32
	endDepth     int
	childleaf    *leaf
	leafCount    uint64
	segmentCount uint64
	hash         hash128
	table        *bytetable.Table[head]
}

func (b *branch) refs() *int32 { return &b.refcount }

// head is a single slot of a branch's byte-table: the tree-order byte a
// parent uses to find this child, plus the child itself. A nil node
// marks an empty slot.
type head struct {
	key  byte
	node node
}

type headOps struct{}

func (headOps) ByteKey(h head) byte { return h.key }
func (headOps) Empty() head         { return head{} }
func (headOps) IsEmpty(h head) bool { return h.node == nil }

func newTable() *bytetable.Table[head] {
	return bytetable.New[head](headOps{})
}

// sipKey is the process-wide SipHash-2-4 key used to derive leaf
// hashes. It is seeded exactly once, at first use, from crypto/rand; it
// is never persisted and is meaningful only within this process (see
// internal/siphash128).
var (
	sipKeyOnce sync.Once
	sipKey     siphash128.Key
)

func ensureSipKey() {
	sipKeyOnce.Do(func() {
		var buf [16]byte
		if _, err := rand.Read(buf[:]); err != nil {
			panic("patch: failed to seed process-wide hash key: " + err.Error())
		}
		sipKey = siphash128.Key{
			K0: binary.LittleEndian.Uint64(buf[0:8]),
			K1: binary.LittleEndian.Uint64(buf[8:16]),
		}
	})
}

func hashKey(key []byte) hash128 {
	ensureSipKey()
	lo, hi := siphash128.Sum128(sipKey, key)
	return hash128{lo: lo, hi: hi}
}

// retain increments n's refcount. u32 overflow is a fatal invariant
// violation, not a recoverable error: it means more outstanding
// references exist than the address space could ever hold live heads.
func retain(n node) node {
	if n == nil {
		return nil
	}
	if atomic.AddInt32(n.refs(), 1) == 0 {
		panic("patch: refcount overflow")
	}
	return n
}

// release decrements n's refcount. Nothing here frees memory by hand:
// the collector reclaims a node the moment nothing reachable still
// holds it. release exists so that ownedExclusively below can tell
// whether a node is safe to mutate in place, which is the only reason
// the trie tracks refcounts at all.
func release(n node) {
	if n == nil {
		return
	}
	atomic.AddInt32(n.refs(), -1)
}

func ownedExclusively(n node) bool {
	return atomic.LoadInt32(n.refs()) == 1
}

// retainChildren bumps the refcount of every child in a branch's table;
// used when a branch body is shared into a second owner (Clone, or a
// set operation that reuses a subtree by reference).
func retainChildren(b *branch) {
	b.table.Each(func(h head) {
		retain(h.node)
	})
}

func releaseChildren(b *branch) {
	b.table.Each(func(h head) {
		release(h.node)
	})
}

// ownedBranch returns a branch the caller may mutate in place: b itself
// if its refcount is 1, otherwise a fresh clone with its own table and
// refcount 1, with every child's refcount bumped to reflect the new
// reference and the original's refcount dropped by one.
func ownedBranch(b *branch) *branch {
	if ownedExclusively(b) {
		return b
	}
	clone := &branch{
		refcount:     1,
		endDepth:     b.endDepth,
		childleaf:    b.childleaf,
		leafCount:    b.leafCount,
		segmentCount: b.segmentCount,
		hash:         b.hash,
		table:        b.table.Clone(),
	}
	retainChildren(clone)
	release(b)
	return clone
}

func newLeaf(key []byte, value any) *leaf {
	k := make([]byte, len(key))
	copy(k, key)
	return &leaf{refcount: 1, key: k, value: value, hash: hashKey(k)}
}

// newBranch2 builds a fresh two-child branch at the given end depth. A
// 2-slot table always has room for both children, so a displacement
// here is an invariant violation.
func newBranch2(endDepth int, a, b head) *branch {
	br := &branch{refcount: 1, endDepth: endDepth, table: newTable()}
	if _, ok := br.table.Insert(a); !ok {
		panic("patch: unexpected displacement inserting into a fresh table")
	}
	if _, ok := br.table.Insert(b); !ok {
		panic("patch: unexpected displacement inserting into a fresh 2-child table")
	}
	br.childleaf = childLeafOf(a.node)
	br.hash = nodeHash(a.node).xor(nodeHash(b.node))
	br.leafCount = nodeLeafCount(a.node) + nodeLeafCount(b.node)
	return br
}

func childLeafOf(n node) *leaf {
	switch v := n.(type) {
	case *leaf:
		return v
	case *branch:
		return v.childleaf
	}
	panic("patch: unknown node kind")
}

func nodeHash(n node) hash128 {
	switch v := n.(type) {
	case *leaf:
		return v.hash
	case *branch:
		return v.hash
	}
	return zeroHash
}

func nodeLeafCount(n node) uint64 {
	switch v := n.(type) {
	case *leaf:
		return 1
	case *branch:
		return v.leafCount
	}
	return 0
}

// endDepthOf returns the tree-order depth at which n's children (if any)
// first disagree: keyLen for a leaf, since a leaf has no further
// disagreement possible, or the branch's own end_depth.
func endDepthOf(keyLen int, n node) int {
	if b, ok := n.(*branch); ok {
		return b.endDepth
	}
	return keyLen
}

// ownedBranchFresh always clones b, regardless of refcount: used by set
// operations, which build a brand new result structurally sharing b's
// children without disturbing b itself (b remains fully valid and
// usable by its own owner after the operation returns).
func ownedBranchFresh(b *branch) *branch {
	clone := &branch{
		refcount:     1,
		endDepth:     b.endDepth,
		childleaf:    b.childleaf,
		leafCount:    b.leafCount,
		segmentCount: b.segmentCount,
		hash:         b.hash,
		table:        b.table.Clone(),
	}
	retainChildren(clone)
	return clone
}

// insertHeadGrowing inserts h into b's table, growing the table as many
// times as needed and carrying the displaced entry through each grow.
func insertHeadGrowing(b *branch, h head) {
	for {
		displaced, ok := b.table.Insert(h)
		if ok {
			return
		}
		b.table = b.table.Grow()
		h = displaced
	}
}

// anyChildLeaf returns a representative leaf from one of b's children,
// used to refresh childleaf after a child is replaced or removed.
func anyChildLeaf(table *bytetable.Table[head]) *leaf {
	var result *leaf
	table.Each(func(h head) {
		if result == nil {
			result = childLeafOf(h.node)
		}
	})
	return result
}
