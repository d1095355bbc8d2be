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

// Package tribleset implements a trible set as six PATCH instances, one
// per key ordering, maintained in lockstep so any of the three trible
// fields can be used as the leading search key.
//
// Each ordering holds its own copy of the 64-byte trible key rather
// than sharing one refcounted leaf allocation across all six tries. A
// PATCH leaf here is an ordinary garbage-collected allocation, not a
// pointer into a hand-managed arena, so per-leaf sharing would buy
// nothing but cross-tree aliasing; the six-orderings invariant
// (identical cardinality and XOR-hash across all six) holds either
// way and is what the tests check.
package tribleset

import (
	"golang.org/x/sync/errgroup"

	"github.com/triblespace/tribles-go/patch"
	"github.com/triblespace/tribles-go/trible"
)

// TribleSet is a set of tribles indexed by all six (entity, attribute,
// value) orderings.
type TribleSet struct {
	eav, eva, aev, ave, vea, vae *patch.Patch
}

// New returns an empty TribleSet.
func New() *TribleSet {
	return &TribleSet{
		eav: patch.New(patch.EAVOrder),
		eva: patch.New(patch.EVAOrder),
		aev: patch.New(patch.AEVOrder),
		ave: patch.New(patch.AVEOrder),
		vea: patch.New(patch.VEAOrder),
		vae: patch.New(patch.VAEOrder),
	}
}

// Insert adds t to all six orderings.
func (s *TribleSet) Insert(t trible.T) {
	key := t[:]
	s.eav.Insert(key, nil)
	s.eva.Insert(key, nil)
	s.aev.Insert(key, nil)
	s.ave.Insert(key, nil)
	s.vea.Insert(key, nil)
	s.vae.Insert(key, nil)
}

// Remove deletes t from all six orderings, reporting whether it was
// present.
func (s *TribleSet) Remove(t trible.T) bool {
	key := t[:]
	removed := s.eav.Remove(key)
	s.eva.Remove(key)
	s.aev.Remove(key)
	s.ave.Remove(key)
	s.vea.Remove(key)
	s.vae.Remove(key)
	return removed
}

// Has reports whether t is a member.
func (s *TribleSet) Has(t trible.T) bool { return s.eav.Has(t[:]) }

// Len returns the number of tribles stored.
func (s *TribleSet) Len() int { return s.eav.Len() }

// Each visits every stored trible in no particular order, over the EAV
// ordering.
func (s *TribleSet) Each(fn func(trible.T)) {
	s.eav.Each(func(key []byte, _ any) {
		var t trible.T
		copy(t[:], key)
		fn(t)
	})
}

// EachSorted visits every stored trible in ascending EAV tree order, so
// two TribleSets holding the same tribles always produce the same
// sequence regardless of insertion history; content-addressed
// encodings of a TribleSet must use this rather than Each.
func (s *TribleSet) EachSorted(fn func(trible.T)) {
	s.eav.EachSorted(func(key []byte, _ any) {
		var t trible.T
		copy(t[:], key)
		fn(t)
	})
}

// Equal reports whether s and other hold the same set of tribles,
// comparing the EAV ordering's root hash alone: the six-orderings
// invariant guarantees this is sufficient.
func (s *TribleSet) Equal(other *TribleSet) bool {
	return s.eav.Equal(other.eav)
}

func combine(a, b *TribleSet, op func(x, y *patch.Patch) *patch.Patch) (*TribleSet, error) {
	out := &TribleSet{}
	var g errgroup.Group
	assign := func(dst **patch.Patch, x, y *patch.Patch) {
		g.Go(func() error {
			*dst = op(x, y)
			return nil
		})
	}
	assign(&out.eav, a.eav, b.eav)
	assign(&out.eva, a.eva, b.eva)
	assign(&out.aev, a.aev, b.aev)
	assign(&out.ave, a.ave, b.ave)
	assign(&out.vea, a.vea, b.vea)
	assign(&out.vae, a.vae, b.vae)
	return out, g.Wait()
}

// Union returns the set union of a and b, computing all six orderings
// concurrently.
func Union(a, b *TribleSet) *TribleSet {
	out, _ := combine(a, b, patch.Union)
	return out
}

// Intersect returns the set intersection of a and b.
func Intersect(a, b *TribleSet) *TribleSet {
	out, _ := combine(a, b, patch.Intersect)
	return out
}

// Difference returns the tribles of a that are not present in b.
func Difference(a, b *TribleSet) *TribleSet {
	out, _ := combine(a, b, patch.Difference)
	return out
}
