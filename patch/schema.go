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

// Package patch implements PATCH, the Persistent Adaptive Trie with
// Cuckoo-compression and Hash-maintenance that backs every trible index.
// A Schema describes how a fixed-width key is segmented and in which
// order its bytes are visited by the trie; a single 64-byte trible key
// is shared, unmodified, by all six orderings a TribleSet maintains, and
// only the Schema each PATCH is built with differs.
//
// The key length and the tree/key permutation tables are runtime values
// on Schema rather than compile-time parameters, constructed once per
// ordering and shared by every Patch built with it.
package patch

// Segment describes one contiguous run of key bytes, identified by its
// offset and length in the key's natural (untransformed) byte order.
type Segment struct {
	Offset int
	Length int
}

// Schema fixes a key length and a visiting order over that key's bytes.
// TreeToKey[d] is the key-order byte offset visited at tree-order depth
// d; KeyToTree is its inverse. SegmentEnds lists the tree-order depths,
// ascending, at which a segment boundary falls; it drives SegmentedLen.
type Schema struct {
	KeyLen      int
	TreeToKey   []int
	KeyToTree   []int
	SegmentEnds []int
}

// NewSchema builds a Schema visiting the given segments in order,
// front-to-back within each segment.
func NewSchema(segments ...Segment) Schema {
	keyLen := 0
	for _, s := range segments {
		keyLen += s.Length
	}
	treeToKey := make([]int, 0, keyLen)
	keyToTree := make([]int, keyLen)
	segmentEnds := make([]int, 0, len(segments))
	depth := 0
	for _, s := range segments {
		for i := 0; i < s.Length; i++ {
			keyOffset := s.Offset + i
			keyToTree[keyOffset] = depth
			treeToKey = append(treeToKey, keyOffset)
			depth++
		}
		segmentEnds = append(segmentEnds, depth)
	}
	return Schema{KeyLen: keyLen, TreeToKey: treeToKey, KeyToTree: keyToTree, SegmentEnds: segmentEnds}
}

// IdentityOrder builds a Schema over an unsegmented keyLen-byte key
// visited in its natural order: the shape used by the pile's blob and
// branch indices, which key by a raw hash or id rather than a trible.
func IdentityOrder(keyLen int) Schema {
	return NewSchema(Segment{Offset: 0, Length: keyLen})
}

// ToTree reorders a natural-order key into this schema's tree order.
func (s Schema) ToTree(key []byte) []byte {
	out := make([]byte, s.KeyLen)
	for d, keyOffset := range s.TreeToKey {
		out[d] = key[keyOffset]
	}
	return out
}

// FromTree reorders a tree-order key back into natural order.
func (s Schema) FromTree(treeKey []byte) []byte {
	out := make([]byte, s.KeyLen)
	for d, keyOffset := range s.TreeToKey {
		out[keyOffset] = treeKey[d]
	}
	return out
}

// segmentEndAt returns the smallest registered segment boundary that is
// >= depth, or KeyLen if depth is past the last segment.
func (s Schema) segmentEndAt(depth int) int {
	for _, end := range s.SegmentEnds {
		if end >= depth {
			return end
		}
	}
	return s.KeyLen
}

// segmentRange returns the [start, end) tree-order bounds of the
// segment enclosing depth.
func (s Schema) segmentRange(depth int) (start, end int) {
	start = 0
	for _, e := range s.SegmentEnds {
		if e <= depth {
			start = e
			continue
		}
		return start, e
	}
	return start, s.KeyLen
}

// Trible key segmentation: a 64-byte {E:16, A:16, V:32} triple. All six
// orderings below share this segmentation and differ only in visiting
// order. Leaf storage is not shared between them: each Patch keeps its
// own copy of every stored key.
const (
	TribleKeyLen = 64
	entityOff    = 0
	entityLen    = 16
	attrOff      = 16
	attrLen      = 16
	valueOff     = 32
	valueLen     = 32
)

// EAVOrder, EVAOrder, AEVOrder, AVEOrder, VEAOrder and VAEOrder are the
// six trible key orderings a TribleSet maintains in parallel, named
// after the segment each visits first, second and third.
var (
	EAVOrder = NewSchema(Segment{entityOff, entityLen}, Segment{attrOff, attrLen}, Segment{valueOff, valueLen})
	EVAOrder = NewSchema(Segment{entityOff, entityLen}, Segment{valueOff, valueLen}, Segment{attrOff, attrLen})
	AEVOrder = NewSchema(Segment{attrOff, attrLen}, Segment{entityOff, entityLen}, Segment{valueOff, valueLen})
	AVEOrder = NewSchema(Segment{attrOff, attrLen}, Segment{valueOff, valueLen}, Segment{entityOff, entityLen})
	VEAOrder = NewSchema(Segment{valueOff, valueLen}, Segment{entityOff, entityLen}, Segment{attrOff, attrLen})
	VAEOrder = NewSchema(Segment{valueOff, valueLen}, Segment{attrOff, attrLen}, Segment{entityOff, entityLen})
)
