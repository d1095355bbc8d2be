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

// Union, Intersect and Difference build a new Patch from two operands
// of identical Schema without mutating either: every returned subtree
// either is freshly built or is a retained reference into one of the
// operands, so a and b remain valid and unaffected afterward.

func mustSameSchema(a, b *Patch) {
	if a.schema.KeyLen != b.schema.KeyLen {
		panic("patch: schema mismatch between operands")
	}
}

// Union returns the set union of a and b.
func Union(a, b *Patch) *Patch {
	mustSameSchema(a, b)
	return &Patch{schema: a.schema, root: head{node: unionNode(a.schema, a.root.node, b.root.node)}}
}

// Intersect returns the set intersection of a and b.
func Intersect(a, b *Patch) *Patch {
	mustSameSchema(a, b)
	return &Patch{schema: a.schema, root: head{node: intersectNode(a.schema, a.root.node, b.root.node)}}
}

// Difference returns the keys of a that are not present in b.
func Difference(a, b *Patch) *Patch {
	mustSameSchema(a, b)
	return &Patch{schema: a.schema, root: head{node: differenceNode(a.schema, a.root.node, b.root.node)}}
}

func unionNode(schema Schema, x, y node) node {
	if x == nil {
		return retain(y)
	}
	if y == nil {
		return retain(x)
	}
	if nodeHash(x) == nodeHash(y) {
		return retain(x)
	}

	xEnd := endDepthOf(schema.KeyLen, x)
	yEnd := endDepthOf(schema.KeyLen, y)
	limit := xEnd
	if yEnd < limit {
		limit = yEnd
	}
	xLeaf, yLeaf := childLeafOf(x), childLeafOf(y)
	for d := 0; d < limit; d++ {
		ko := schema.TreeToKey[d]
		if xLeaf.key[ko] != yLeaf.key[ko] {
			a := head{key: xLeaf.key[ko], node: retain(x)}
			b := head{key: yLeaf.key[ko], node: retain(y)}
			br := newBranch2(d, a, b)
			finalizeBranch(schema, br)
			return br
		}
	}

	if xEnd < yEnd {
		return unionDescend(schema, x.(*branch), xEnd, y, yLeaf)
	}
	if yEnd < xEnd {
		return unionDescend(schema, y.(*branch), yEnd, x, xLeaf)
	}

	xb, yb := x.(*branch), y.(*branch)
	clone := ownedBranchFresh(xb)
	yb.table.Each(func(yh head) {
		if xh, ok := clone.table.Get(yh.key); ok {
			merged := unionNode(schema, xh.node, yh.node)
			clone.table.Replace(head{key: yh.key, node: merged})
			clone.leafCount = clone.leafCount - nodeLeafCount(xh.node) + nodeLeafCount(merged)
			clone.hash = clone.hash.xor(nodeHash(xh.node)).xor(nodeHash(merged))
			release(xh.node)
		} else {
			insertHeadGrowing(clone, head{key: yh.key, node: retain(yh.node)})
			clone.leafCount += nodeLeafCount(yh.node)
			clone.hash = clone.hash.xor(nodeHash(yh.node))
		}
	})
	clone.childleaf = anyChildLeaf(clone.table)
	finalizeBranch(schema, clone)
	return clone
}

// unionDescend merges other into shallow's single child at other's
// tree-order byte, because shallow's end_depth is strictly earlier and
// the shared prefix check above already confirmed agreement up to it.
func unionDescend(schema Schema, shallow *branch, shallowEnd int, other node, otherLeaf *leaf) node {
	byteKey := otherLeaf.key[schema.TreeToKey[shallowEnd]]
	clone := ownedBranchFresh(shallow)
	if existing, ok := clone.table.Get(byteKey); ok {
		merged := unionNode(schema, existing.node, other)
		clone.table.Replace(head{key: byteKey, node: merged})
		clone.leafCount = clone.leafCount - nodeLeafCount(existing.node) + nodeLeafCount(merged)
		clone.hash = clone.hash.xor(nodeHash(existing.node)).xor(nodeHash(merged))
		release(existing.node)
	} else {
		insertHeadGrowing(clone, head{key: byteKey, node: retain(other)})
		clone.leafCount += nodeLeafCount(other)
		clone.hash = clone.hash.xor(nodeHash(other))
	}
	clone.childleaf = anyChildLeaf(clone.table)
	finalizeBranch(schema, clone)
	return clone
}

func intersectNode(schema Schema, x, y node) node {
	if x == nil || y == nil {
		return nil
	}
	if nodeHash(x) == nodeHash(y) {
		return retain(x)
	}

	xEnd := endDepthOf(schema.KeyLen, x)
	yEnd := endDepthOf(schema.KeyLen, y)
	limit := xEnd
	if yEnd < limit {
		limit = yEnd
	}
	xLeaf, yLeaf := childLeafOf(x), childLeafOf(y)
	for d := 0; d < limit; d++ {
		ko := schema.TreeToKey[d]
		if xLeaf.key[ko] != yLeaf.key[ko] {
			return nil
		}
	}

	if xEnd < yEnd {
		xb := x.(*branch)
		child, ok := xb.table.Get(yLeaf.key[schema.TreeToKey[xEnd]])
		if !ok {
			return nil
		}
		return intersectNode(schema, child.node, y)
	}
	if yEnd < xEnd {
		yb := y.(*branch)
		child, ok := yb.table.Get(xLeaf.key[schema.TreeToKey[yEnd]])
		if !ok {
			return nil
		}
		return intersectNode(schema, x, child.node)
	}

	xb, yb := x.(*branch), y.(*branch)
	type result struct {
		key  byte
		node node
	}
	var results []result
	xb.table.Each(func(xh head) {
		if yh, ok := yb.table.Get(xh.key); ok {
			if res := intersectNode(schema, xh.node, yh.node); res != nil {
				results = append(results, result{xh.key, res})
			}
		}
	})
	switch len(results) {
	case 0:
		return nil
	case 1:
		return results[0].node
	}

	br := &branch{refcount: 1, endDepth: xEnd, table: newTable()}
	var h hash128
	var lc uint64
	for _, r := range results {
		insertHeadGrowing(br, head{key: r.key, node: r.node})
		h = h.xor(nodeHash(r.node))
		lc += nodeLeafCount(r.node)
	}
	br.childleaf = anyChildLeaf(br.table)
	br.hash = h
	br.leafCount = lc
	finalizeBranch(schema, br)
	return br
}

func differenceNode(schema Schema, x, y node) node {
	if y == nil {
		return retain(x)
	}
	if x == nil {
		return nil
	}
	if nodeHash(x) == nodeHash(y) {
		return nil
	}

	xEnd := endDepthOf(schema.KeyLen, x)
	yEnd := endDepthOf(schema.KeyLen, y)
	limit := xEnd
	if yEnd < limit {
		limit = yEnd
	}
	xLeaf, yLeaf := childLeafOf(x), childLeafOf(y)
	for d := 0; d < limit; d++ {
		ko := schema.TreeToKey[d]
		if xLeaf.key[ko] != yLeaf.key[ko] {
			return retain(x)
		}
	}

	if xEnd < yEnd {
		xb := x.(*branch)
		byteKey := yLeaf.key[schema.TreeToKey[xEnd]]
		existing, ok := xb.table.Get(byteKey)
		if !ok {
			return retain(x)
		}
		replaced := differenceNode(schema, existing.node, y)
		return spliceChild(schema, xb, byteKey, existing.node, replaced)
	}
	if yEnd < xEnd {
		yb := y.(*branch)
		child, ok := yb.table.Get(xLeaf.key[schema.TreeToKey[yEnd]])
		if !ok {
			return retain(x)
		}
		return differenceNode(schema, x, child.node)
	}

	xb, yb := x.(*branch), y.(*branch)
	clone := ownedBranchFresh(xb)
	xb.table.Each(func(xh head) {
		if yh, ok := yb.table.Get(xh.key); ok {
			replaced := differenceNode(schema, xh.node, yh.node)
			old, _ := clone.table.Get(xh.key)
			applySplice(clone, xh.key, old.node, replaced)
		}
	})
	return collapseOrReturn(schema, clone)
}

// spliceChild replaces shallow's byteKey child (currently old) with
// replaced (nil meaning "removed"), returning the possibly-collapsed
// result.
func spliceChild(schema Schema, shallow *branch, byteKey byte, old, replaced node) node {
	clone := ownedBranchFresh(shallow)
	applySplice(clone, byteKey, old, replaced)
	return collapseOrReturn(schema, clone)
}

func applySplice(clone *branch, byteKey byte, old, replaced node) {
	if replaced == nil {
		clone.table.Delete(byteKey)
	} else {
		clone.table.Replace(head{key: byteKey, node: replaced})
	}
	clone.leafCount = clone.leafCount - nodeLeafCount(old) + nodeLeafCount(replaced)
	clone.hash = clone.hash.xor(nodeHash(old)).xor(nodeHash(replaced))
	release(old)
}

func collapseOrReturn(schema Schema, clone *branch) node {
	switch clone.table.Count() {
	case 0:
		return nil
	case 1:
		var lone head
		clone.table.Each(func(h head) { lone = h })
		return lone.node
	}
	clone.childleaf = anyChildLeaf(clone.table)
	finalizeBranch(schema, clone)
	return clone
}
