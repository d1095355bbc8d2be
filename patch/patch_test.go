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
	"testing"
	"testing/quick"
)

var testSchema = IdentityOrder(8)

func keysOf(p *Patch) map[string]bool {
	out := map[string]bool{}
	p.Each(func(key []byte, _ any) { out[string(key)] = true })
	return out
}

func dedupe(raw [][8]byte) [][]byte {
	seen := map[[8]byte]bool{}
	var out [][]byte
	for _, k := range raw {
		if seen[k] {
			continue
		}
		seen[k] = true
		kk := make([]byte, 8)
		copy(kk, k[:])
		out = append(out, kk)
	}
	return out
}

// P1: insert(k); contains(k) holds.
func TestInsertThenContains(t *testing.T) {
	f := func(k [8]byte) bool {
		p := New(testSchema)
		p.Insert(k[:], nil)
		return p.Has(k[:])
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

// P2: insert(k); insert(k) leaves len unchanged.
func TestDoubleInsertLenUnchanged(t *testing.T) {
	f := func(k [8]byte) bool {
		p := New(testSchema)
		p.Insert(k[:], nil)
		before := p.Len()
		p.Insert(k[:], nil)
		return p.Len() == before
	}
	if err := quick.Check(f, nil); err != nil {
		t.Error(err)
	}
}

// P3: the set of yielded keys from iter equals the inserted set.
func TestIterateMatchesInsertedSet(t *testing.T) {
	f := func(raw [][8]byte) bool {
		keys := dedupe(raw)
		p := New(testSchema)
		for _, k := range keys {
			p.Insert(k, nil)
		}
		got := keysOf(p)
		if len(got) != len(keys) {
			return false
		}
		for _, k := range keys {
			if !got[string(k)] {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 64}); err != nil {
		t.Error(err)
	}
}

func buildFrom(keys [][]byte) *Patch {
	p := New(testSchema)
	for _, k := range keys {
		p.Insert(k, nil)
	}
	return p
}

// P4: len(union(a,b)) + len(intersect(a,b)) == len(a) + len(b).
func TestUnionIntersectLenIdentity(t *testing.T) {
	f := func(rawA, rawB [][8]byte) bool {
		a := buildFrom(dedupe(rawA))
		b := buildFrom(dedupe(rawB))
		u := Union(a, b)
		i := Intersect(a, b)
		return u.Len()+i.Len() == a.Len()+b.Len()
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 32}); err != nil {
		t.Error(err)
	}
}

// P5: union and intersect are commutative up to hash equality.
func TestUnionIntersectCommuteByHash(t *testing.T) {
	f := func(rawA, rawB [][8]byte) bool {
		a := buildFrom(dedupe(rawA))
		b := buildFrom(dedupe(rawB))
		return Union(a, b).Equal(Union(b, a)) && Intersect(a, b).Equal(Intersect(b, a))
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 32}); err != nil {
		t.Error(err)
	}
}

// P6: a.difference(a).is_empty().
func TestSelfDifferenceIsEmpty(t *testing.T) {
	f := func(raw [][8]byte) bool {
		a := buildFrom(dedupe(raw))
		return Difference(a, a).Len() == 0
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 32}); err != nil {
		t.Error(err)
	}
}

// P7: hash(a) == hash(b) implies iter(a) == iter(b) as sets.
func TestEqualHashImpliesEqualSet(t *testing.T) {
	f := func(raw [][8]byte) bool {
		keys := dedupe(raw)
		a := buildFrom(keys)
		// Insert in reverse order into b; same set, different history.
		reversed := make([][]byte, len(keys))
		for i, k := range keys {
			reversed[len(keys)-1-i] = k
		}
		b := buildFrom(reversed)
		if !a.Equal(b) {
			return true // vacuously fine; we only assert the converse direction
		}
		ga, gb := keysOf(a), keysOf(b)
		if len(ga) != len(gb) {
			return false
		}
		for k := range ga {
			if !gb[k] {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 32}); err != nil {
		t.Error(err)
	}
}

// P8: clone then mutate the clone; the original's iteration output is
// unchanged (COW isolation).
func TestCloneMutationIsolation(t *testing.T) {
	f := func(raw [][8]byte, extra [8]byte) bool {
		keys := dedupe(raw)
		original := buildFrom(keys)
		before := keysOf(original)

		clone := original.Clone()
		clone.Insert(extra[:], nil)
		for _, k := range keys[:min(len(keys), 3)] {
			clone.Remove(k)
		}

		after := keysOf(original)
		if len(before) != len(after) {
			return false
		}
		for k := range before {
			if !after[k] {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 32}); err != nil {
		t.Error(err)
	}
}

// P9: after any sequence of insert/remove, every branch has >= 2 living
// children and leaf_count equals the iteration count.
func TestBranchInvariantsHold(t *testing.T) {
	f := func(toInsert, toRemove [][8]byte) bool {
		p := New(testSchema)
		for _, k := range toInsert {
			p.Insert(k[:], nil)
		}
		for _, k := range toRemove {
			p.Remove(k[:])
		}
		if _, _, ok := auditNode(p.root.node); !ok {
			return false
		}
		count := 0
		p.Each(func([]byte, any) { count++ })
		return count == p.Len()
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 48}); err != nil {
		t.Error(err)
	}
}

// auditNode recomputes a subtree's leaf count and XOR hash bottom-up and
// checks them, plus the two-living-children rule, against what each
// branch has maintained incrementally.
func auditNode(n node) (count uint64, h hash128, ok bool) {
	switch v := n.(type) {
	case nil:
		return 0, zeroHash, true
	case *leaf:
		return 1, v.hash, true
	case *branch:
		if v.table.Count() < 2 {
			return 0, zeroHash, false
		}
		childrenOK := true
		v.table.Each(func(child head) {
			cc, ch, cok := auditNode(child.node)
			if !cok {
				childrenOK = false
			}
			count += cc
			h = h.xor(ch)
		})
		ok = childrenOK && count == v.leafCount && h == v.hash
		return count, h, ok
	}
	return 0, zeroHash, false
}

func TestRemoveMissingKeyReportsFalse(t *testing.T) {
	p := New(testSchema)
	p.Insert([]byte{1, 2, 3, 4, 5, 6, 7, 8}, nil)
	if p.Remove([]byte{9, 9, 9, 9, 9, 9, 9, 9}) {
		t.Fatalf("expected Remove of an absent key to report false")
	}
	if p.Len() != 1 {
		t.Fatalf("expected len 1 after no-op remove, got %d", p.Len())
	}
}

func TestValuePayloadRoundTrips(t *testing.T) {
	p := New(testSchema)
	key := []byte{1, 1, 1, 1, 1, 1, 1, 1}
	p.Insert(key, "payload")
	v, ok := p.Get(key)
	if !ok || v != "payload" {
		t.Fatalf("expected payload round trip, got %v, %v", v, ok)
	}
}
