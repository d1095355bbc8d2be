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

import "sort"

// Each visits every stored (key, value) pair in no particular order.
func (p *Patch) Each(fn func(key []byte, value any)) {
	eachNode(p.root.node, fn)
}

func eachNode(n node, fn func([]byte, any)) {
	switch v := n.(type) {
	case nil:
		return
	case *leaf:
		fn(v.key, v.value)
	case *branch:
		v.table.Each(func(h head) { eachNode(h.node, fn) })
	}
}

// EachSorted visits every stored (key, value) pair in ascending
// tree-order byte order.
func (p *Patch) EachSorted(fn func(key []byte, value any)) {
	eachSortedNode(p.root.node, fn)
}

func eachSortedNode(n node, fn func([]byte, any)) {
	switch v := n.(type) {
	case nil:
		return
	case *leaf:
		fn(v.key, v.value)
	case *branch:
		var children []head
		v.table.Each(func(h head) { children = append(children, h) })
		sort.Slice(children, func(i, j int) bool { return children[i].key < children[j].key })
		for _, h := range children {
			eachSortedNode(h.node, fn)
		}
	}
}
