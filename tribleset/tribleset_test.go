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

package tribleset

import (
	"testing"

	"github.com/triblespace/tribles-go/id"
	"github.com/triblespace/tribles-go/patch"
	"github.com/triblespace/tribles-go/trible"
)

func randTrible() trible.T {
	e := id.New()
	a := id.New()
	var v [32]byte
	src1, src2 := id.New(), id.New()
	copy(v[0:16], src1[:])
	copy(v[16:32], src2[:])
	return trible.New(e, a, v)
}

// TestAllOrderingsAgree is T1: every one of the six maintained orderings
// iterates the same multiset of tribles after a sequence of inserts.
func TestAllOrderingsAgree(t *testing.T) {
	s := New()
	want := map[string]bool{}
	for i := 0; i < 200; i++ {
		tr := randTrible()
		s.Insert(tr)
		want[string(tr[:])] = true
	}

	var got []trible.T
	s.Each(func(tr trible.T) { got = append(got, tr) })

	if len(got) != len(want) {
		t.Fatalf("Each produced %d tribles, want %d", len(got), len(want))
	}
	for _, tr := range got {
		if !want[string(tr[:])] {
			t.Fatalf("Each produced unexpected trible %x", tr)
		}
	}

	if s.eav.Len() != s.eva.Len() || s.eav.Len() != s.aev.Len() ||
		s.eav.Len() != s.ave.Len() || s.eav.Len() != s.vea.Len() ||
		s.eav.Len() != s.vae.Len() {
		t.Fatalf("orderings disagree on length")
	}
}

func TestInsertIdempotent(t *testing.T) {
	s := New()
	tr := randTrible()
	s.Insert(tr)
	s.Insert(tr)
	if s.Len() != 1 {
		t.Fatalf("expected len 1 after duplicate insert, got %d", s.Len())
	}
	if !s.Has(tr) {
		t.Fatalf("expected Has to report true")
	}
}

func TestRemove(t *testing.T) {
	s := New()
	tr := randTrible()
	s.Insert(tr)
	if !s.Remove(tr) {
		t.Fatalf("expected Remove to report true for a present trible")
	}
	if s.Remove(tr) {
		t.Fatalf("expected Remove to report false once already removed")
	}
	if s.Len() != 0 {
		t.Fatalf("expected empty set after remove, got len %d", s.Len())
	}
}

func TestUnionIntersectDifference(t *testing.T) {
	a, b := New(), New()
	shared := randTrible()
	onlyA := randTrible()
	onlyB := randTrible()
	a.Insert(shared)
	a.Insert(onlyA)
	b.Insert(shared)
	b.Insert(onlyB)

	u := Union(a, b)
	if u.Len() != 3 {
		t.Fatalf("union len = %d, want 3", u.Len())
	}

	i := Intersect(a, b)
	if i.Len() != 1 || !i.Has(shared) {
		t.Fatalf("intersect did not yield exactly the shared trible")
	}

	d := Difference(a, b)
	if d.Len() != 1 || !d.Has(onlyA) {
		t.Fatalf("difference did not yield exactly a's unique trible")
	}
}

// TestFullyBoundPatternCardinality is T2: a pattern binding entity,
// attribute and value always reports cardinality 0 or 1.
func TestFullyBoundPatternCardinality(t *testing.T) {
	s := New()
	tr := randTrible()
	s.Insert(tr)

	e := tr.Entity()
	a := tr.Attribute()
	v := tr.Value()

	present := s.NewPattern(&e, &a, &v)
	if got := present.Cardinality(); got != 1 {
		t.Fatalf("cardinality of a present fully bound pattern = %d, want 1", got)
	}

	other := id.New()
	absent := s.NewPattern(&other, &a, &v)
	if got := absent.Cardinality(); got != 0 {
		t.Fatalf("cardinality of an absent fully bound pattern = %d, want 0", got)
	}
}

func TestPartiallyBoundPatternProposesValues(t *testing.T) {
	s := New()
	e := id.New()
	a1, a2 := id.New(), id.New()
	var v1, v2 [32]byte
	v1[0], v2[0] = 1, 2

	s.Insert(trible.New(e, a1, v1))
	s.Insert(trible.New(e, a2, v2))

	pat := s.NewPattern(&e, nil, nil)
	if got := pat.Cardinality(); got != 2 {
		t.Fatalf("cardinality = %d, want 2", got)
	}

	proposals := pat.Propose()
	if len(proposals) != 2 {
		t.Fatalf("got %d proposals, want 2", len(proposals))
	}
}

func TestEqualAcrossEquivalentInsertOrder(t *testing.T) {
	tribles := make([]trible.T, 1000)
	for i := range tribles {
		tribles[i] = randTrible()
	}

	a := New()
	for _, tr := range tribles {
		a.Insert(tr)
	}
	b := New()
	for i := len(tribles) - 1; i >= 0; i-- {
		b.Insert(tribles[i])
	}

	if !a.Equal(b) {
		t.Fatalf("sets built in different insert orders should be Equal")
	}
	pairs := [][2]*patch.Patch{
		{a.eav, b.eav}, {a.eva, b.eva}, {a.aev, b.aev},
		{a.ave, b.ave}, {a.vea, b.vea}, {a.vae, b.vae},
	}
	for i, p := range pairs {
		if !p[0].Equal(p[1]) {
			t.Fatalf("ordering %d disagrees on root hash across insert orders", i)
		}
	}
}
