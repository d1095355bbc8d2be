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

import "github.com/triblespace/tribles-go/internal/bytetable"

// Patch is a persistent, copy-on-write radix trie over fixed-width keys
// ordered by a Schema. Insert and Remove mutate the root in place,
// copying shared structure only where their own Clone, or a set
// operation, has left it with more than one owner.
type Patch struct {
	schema Schema
	root   head
}

// New returns an empty Patch ordered by schema.
func New(schema Schema) *Patch {
	return &Patch{schema: schema}
}

// Schema returns the key ordering this Patch was built with.
func (p *Patch) Schema() Schema { return p.schema }

// Len returns the number of distinct keys stored.
func (p *Patch) Len() int { return int(nodeLeafCount(p.root.node)) }

// Clone returns a Patch sharing this one's structure; mutating either
// copy through Insert or Remove never affects the other (P8).
func (p *Patch) Clone() *Patch {
	return &Patch{schema: p.schema, root: head{node: retain(p.root.node)}}
}

// Hash returns the 128-bit incremental XOR hash of the stored key set.
// Two Patches with equal hashes hold the same set of keys (Equal).
func (p *Patch) Hash() (lo, hi uint64) {
	h := nodeHash(p.root.node)
	return h.lo, h.hi
}

// Equal reports whether p and other hold identical key sets, by
// comparing root hashes alone; no structural comparison is performed.
func (p *Patch) Equal(other *Patch) bool {
	return nodeHash(p.root.node) == nodeHash(other.root.node)
}

func (p *Patch) checkKeyLen(key []byte) {
	if len(key) != p.schema.KeyLen {
		panic("patch: key length does not match schema")
	}
}

// Insert adds key (checkKeyLen-length, in natural byte order) with an
// optional payload. Inserting a key already present leaves the Patch
// unchanged (P2).
func (p *Patch) Insert(key []byte, value any) {
	p.checkKeyLen(key)
	nl := newLeaf(key, value)
	if p.root.node == nil {
		p.root = head{node: nl}
		return
	}
	newNode, _ := insertNode(p.schema, p.root.node, 0, nl)
	p.root.node = newNode
}

func insertNode(schema Schema, n node, atDepth int, nl *leaf) (node, bool) {
	switch v := n.(type) {
	case nil:
		return nl, true
	case *leaf:
		return insertIntoLeaf(schema, v, atDepth, nl)
	case *branch:
		return insertIntoBranch(schema, v, atDepth, nl)
	}
	panic("patch: unknown node kind")
}

func insertIntoLeaf(schema Schema, cur *leaf, atDepth int, nl *leaf) (node, bool) {
	for d := atDepth; d < schema.KeyLen; d++ {
		ko := schema.TreeToKey[d]
		if cur.key[ko] != nl.key[ko] {
			a := head{key: cur.key[ko], node: cur}
			b := head{key: nl.key[ko], node: nl}
			br := newBranch2(d, a, b)
			finalizeBranch(schema, br)
			return br, true
		}
	}
	return cur, false
}

// insertIntoBranch always clones br (via ownedBranch) before descending
// into a shared child: cloning bumps that child's refcount, which is
// what makes the child's own ownedBranch check see it needs cloning
// too. Checking the child's refcount before cloning br would miss
// sharing introduced purely by br having more than one owner.
func insertIntoBranch(schema Schema, br *branch, atDepth int, nl *leaf) (node, bool) {
	for d := atDepth; d < br.endDepth; d++ {
		ko := schema.TreeToKey[d]
		if br.childleaf.key[ko] != nl.key[ko] {
			a := head{key: br.childleaf.key[ko], node: br}
			b := head{key: nl.key[ko], node: nl}
			newBr := newBranch2(d, a, b)
			finalizeBranch(schema, newBr)
			return newBr, true
		}
	}

	byteKey := nl.key[schema.TreeToKey[br.endDepth]]
	owned := ownedBranch(br)
	if existing, found := owned.table.Get(byteKey); found {
		newChild, inserted := insertNode(schema, existing.node, br.endDepth+1, nl)
		// The child slot is rewritten even on a duplicate insert: the
		// recursion may have handed back a copy whose ownership the
		// table must take over, or the stale slot would keep pointing
		// at a body the copy already released.
		owned.table.Replace(head{key: byteKey, node: newChild})
		if !inserted {
			return owned, false
		}
		owned.leafCount++
		owned.hash = owned.hash.xor(nl.hash)
		finalizeBranch(schema, owned)
		return owned, true
	}

	insertHeadGrowing(owned, head{key: byteKey, node: nl})
	owned.leafCount++
	owned.hash = owned.hash.xor(nl.hash)
	finalizeBranch(schema, owned)
	return owned, true
}

// Remove deletes key if present, reporting whether it was.
func (p *Patch) Remove(key []byte) bool {
	p.checkKeyLen(key)
	newNode, _, changed := removeNode(p.schema, p.root.node, 0, key)
	p.root.node = newNode
	return changed
}

func removeNode(schema Schema, n node, atDepth int, key []byte) (node, *leaf, bool) {
	switch v := n.(type) {
	case nil:
		return nil, nil, false
	case *leaf:
		for d := atDepth; d < schema.KeyLen; d++ {
			ko := schema.TreeToKey[d]
			if v.key[ko] != key[ko] {
				return v, nil, false
			}
		}
		release(v)
		return nil, v, true
	case *branch:
		for d := atDepth; d < v.endDepth; d++ {
			ko := schema.TreeToKey[d]
			if v.childleaf.key[ko] != key[ko] {
				return v, nil, false
			}
		}
		byteKey := key[schema.TreeToKey[v.endDepth]]
		if _, found := v.table.Get(byteKey); !found {
			return v, nil, false
		}

		owned := ownedBranch(v)
		existing, _ := owned.table.Get(byteKey)
		newChild, removed, changed := removeNode(schema, existing.node, v.endDepth+1, key)
		if !changed {
			owned.table.Replace(head{key: byteKey, node: newChild})
			return owned, nil, false
		}
		if newChild == nil {
			owned.table.Delete(byteKey)
		} else {
			owned.table.Replace(head{key: byteKey, node: newChild})
		}
		owned.leafCount--
		owned.hash = owned.hash.xor(removed.hash)

		if owned.table.Count() == 1 {
			var lone head
			owned.table.Each(func(h head) { lone = h })
			return lone.node, removed, true
		}
		owned.childleaf = anyChildLeaf(owned.table)
		finalizeBranch(schema, owned)
		return owned, removed, true
	}
	return n, nil, false
}

// Has reports whether key is present.
func (p *Patch) Has(key []byte) bool {
	p.checkKeyLen(key)
	return getNode(p.schema, p.root.node, 0, key) != nil
}

// Get returns the payload stored under key, if any.
func (p *Patch) Get(key []byte) (any, bool) {
	p.checkKeyLen(key)
	l := getNode(p.schema, p.root.node, 0, key)
	if l == nil {
		return nil, false
	}
	return l.value, true
}

func getNode(schema Schema, n node, atDepth int, key []byte) *leaf {
	switch v := n.(type) {
	case nil:
		return nil
	case *leaf:
		for d := atDepth; d < schema.KeyLen; d++ {
			ko := schema.TreeToKey[d]
			if v.key[ko] != key[ko] {
				return nil
			}
		}
		return v
	case *branch:
		for d := atDepth; d < v.endDepth; d++ {
			ko := schema.TreeToKey[d]
			if v.childleaf.key[ko] != key[ko] {
				return nil
			}
		}
		byteKey := key[schema.TreeToKey[v.endDepth]]
		child, ok := v.table.Get(byteKey)
		if !ok {
			return nil
		}
		return getNode(schema, child.node, v.endDepth+1, key)
	}
	return nil
}

// HasPrefix reports whether any stored key agrees with prefix, given in
// tree-order bytes, on its leading len(prefix) tree-order positions.
func (p *Patch) HasPrefix(prefix []byte) bool {
	return hasPrefixNode(p.schema, p.root.node, 0, prefix)
}

func hasPrefixNode(schema Schema, n node, atDepth int, prefix []byte) bool {
	switch v := n.(type) {
	case nil:
		return false
	case *leaf:
		for d := atDepth; d < len(prefix); d++ {
			if v.key[schema.TreeToKey[d]] != prefix[d] {
				return false
			}
		}
		return true
	case *branch:
		limit := v.endDepth
		if len(prefix) < limit {
			limit = len(prefix)
		}
		for d := atDepth; d < limit; d++ {
			if v.childleaf.key[schema.TreeToKey[d]] != prefix[d] {
				return false
			}
		}
		if len(prefix) <= v.endDepth {
			return true
		}
		child, ok := v.table.Get(prefix[v.endDepth])
		if !ok {
			return false
		}
		return hasPrefixNode(schema, child.node, v.endDepth+1, prefix)
	}
	return false
}

// SegmentedLen returns the number of distinct values the segment
// immediately following prefix (given in tree-order bytes) can take
// among keys sharing prefix, or 0 if no stored key shares it.
func (p *Patch) SegmentedLen(prefix []byte) uint64 {
	return segmentedLenNode(p.schema, p.root.node, 0, prefix)
}

func segmentedLenNode(schema Schema, n node, atDepth int, prefix []byte) uint64 {
	switch v := n.(type) {
	case nil:
		return 0
	case *leaf:
		for d := atDepth; d < len(prefix); d++ {
			if v.key[schema.TreeToKey[d]] != prefix[d] {
				return 0
			}
		}
		return 1
	case *branch:
		limit := v.endDepth
		if len(prefix) < limit {
			limit = len(prefix)
		}
		for d := atDepth; d < limit; d++ {
			if v.childleaf.key[schema.TreeToKey[d]] != prefix[d] {
				return 0
			}
		}
		if len(prefix) <= v.endDepth {
			// If the children only start to differ in a segment past the
			// one the prefix stops in, that whole segment is fixed by the
			// compressed path: exactly one value is possible.
			_, segEnd := schema.segmentRange(len(prefix))
			if v.endDepth >= segEnd {
				return 1
			}
			return v.segmentCount
		}
		child, ok := v.table.Get(prefix[v.endDepth])
		if !ok {
			return 0
		}
		return segmentedLenNode(schema, child.node, v.endDepth+1, prefix)
	}
	return 0
}

// Infixes calls fn once per distinct value of the tree-order byte range
// [start, end) among keys sharing prefix (also tree-order bytes).
func (p *Patch) Infixes(prefix []byte, start, end int, fn func(infix []byte)) {
	seen := map[string]bool{}
	infixNode(p.schema, p.root.node, 0, prefix, start, end, fn, seen)
}

func infixNode(schema Schema, n node, atDepth int, prefix []byte, start, end int, fn func([]byte), seen map[string]bool) {
	emit := func(key []byte) {
		infix := make([]byte, end-start)
		for d := start; d < end; d++ {
			infix[d-start] = key[schema.TreeToKey[d]]
		}
		s := string(infix)
		if !seen[s] {
			seen[s] = true
			fn(infix)
		}
	}
	switch v := n.(type) {
	case nil:
		return
	case *leaf:
		for d := atDepth; d < len(prefix); d++ {
			if v.key[schema.TreeToKey[d]] != prefix[d] {
				return
			}
		}
		emit(v.key)
	case *branch:
		limit := v.endDepth
		if len(prefix) < limit {
			limit = len(prefix)
		}
		for d := atDepth; d < limit; d++ {
			if v.childleaf.key[schema.TreeToKey[d]] != prefix[d] {
				return
			}
		}
		switch {
		case len(prefix) <= v.endDepth && v.endDepth >= end:
			emit(v.childleaf.key)
		case len(prefix) <= v.endDepth:
			v.table.Each(func(h head) {
				infixNode(schema, h.node, v.endDepth+1, prefix, start, end, fn, seen)
			})
		default:
			child, ok := v.table.Get(prefix[v.endDepth])
			if !ok {
				return
			}
			infixNode(schema, child.node, v.endDepth+1, prefix, start, end, fn, seen)
		}
	}
}

func finalizeBranch(schema Schema, br *branch) {
	br.segmentCount = computeSegmentCount(schema, br.endDepth, br.table)
}

func computeSegmentCount(schema Schema, endDepth int, table *bytetable.Table[head]) uint64 {
	_, segEnd := schema.segmentRange(endDepth)
	var total uint64
	table.Each(func(h head) {
		total += childSegmentCount(h.node, segEnd)
	})
	return total
}

func childSegmentCount(n node, segEnd int) uint64 {
	switch v := n.(type) {
	case *leaf:
		return 1
	case *branch:
		if v.endDepth < segEnd {
			return v.segmentCount
		}
		return 1
	}
	return 0
}
