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
	"github.com/triblespace/tribles-go/id"
	"github.com/triblespace/tribles-go/patch"
)

// ordEntry pairs one of the six maintained PATCH instances with the
// Schema it was built from and the (entity, attribute, value) segment
// letters in the order that Schema visits them.
type ordEntry struct {
	p      *patch.Patch
	schema patch.Schema
	segs   [3]byte
}

func (s *TribleSet) orderings() [6]ordEntry {
	return [6]ordEntry{
		{s.eav, patch.EAVOrder, [3]byte{'e', 'a', 'v'}},
		{s.eva, patch.EVAOrder, [3]byte{'e', 'v', 'a'}},
		{s.aev, patch.AEVOrder, [3]byte{'a', 'e', 'v'}},
		{s.ave, patch.AVEOrder, [3]byte{'a', 'v', 'e'}},
		{s.vea, patch.VEAOrder, [3]byte{'v', 'e', 'a'}},
		{s.vae, patch.VAEOrder, [3]byte{'v', 'a', 'e'}},
	}
}

func segLen(seg byte) int {
	if seg == 'v' {
		return 32
	}
	return 16
}

// Pattern constrains a TribleSet lookup by zero or more of its three
// fields; a nil field is unbound. Pattern picks, among the six
// maintained orderings, whichever lets the bound fields form the
// longest shared tree-order prefix, so binding more fields always
// narrows the scan rather than forcing a full one.
type Pattern struct {
	set *TribleSet
	e   *id.ID
	a   *id.ID
	v   *[32]byte
}

// NewPattern builds a Pattern over set, binding whichever of e, a and v
// are non-nil.
func (s *TribleSet) NewPattern(e, a *id.ID, v *[32]byte) *Pattern {
	return &Pattern{set: s, e: e, a: a, v: v}
}

func (p *Pattern) bound(seg byte) bool {
	switch seg {
	case 'e':
		return p.e != nil
	case 'a':
		return p.a != nil
	case 'v':
		return p.v != nil
	}
	return false
}

// fullKey lays the pattern's bound fields out in natural (entity,
// attribute, value) byte order, zero-filled where unbound. Only the
// bytes covered by a bound leading segment of the chosen ordering are
// ever read back out of it.
func (p *Pattern) fullKey() [64]byte {
	var key [64]byte
	if p.e != nil {
		copy(key[0:16], p.e[:])
	}
	if p.a != nil {
		copy(key[16:32], p.a[:])
	}
	if p.v != nil {
		copy(key[32:64], p.v[:])
	}
	return key
}

// choose picks the ordering whose leading segments, in its own
// visiting order, are bound for the longest run, and returns that run
// length (0 to 3).
func (p *Pattern) choose() (ordEntry, int) {
	orderings := p.set.orderings()
	best := orderings[0]
	bestSegs := -1
	for _, o := range orderings {
		segs := 0
		for _, seg := range o.segs {
			if !p.bound(seg) {
				break
			}
			segs++
		}
		if segs > bestSegs {
			bestSegs = segs
			best = o
		}
	}
	return best, bestSegs
}

func (p *Pattern) boundPrefix() (*patch.Patch, []byte) {
	o, segs := p.choose()
	key := p.fullKey()
	prefixLen := 0
	for i := 0; i < segs; i++ {
		prefixLen += segLen(o.segs[i])
	}
	tree := o.schema.ToTree(key[:])
	return o.p, tree[:prefixLen]
}

// Cardinality estimates the number of tribles matching the pattern. A
// fully bound pattern (all of entity, attribute and value set) always
// resolves to a membership test and so returns 0 or 1.
func (p *Pattern) Cardinality() uint64 {
	pt, prefix := p.boundPrefix()
	if len(prefix) == patch.TribleKeyLen {
		if pt.HasPrefix(prefix) {
			return 1
		}
		return 0
	}
	return pt.SegmentedLen(prefix)
}

// Propose returns the distinct values the pattern's first unbound
// field (in the chosen ordering's visiting order) can take, as raw
// field-width byte slices: 16 bytes for entity or attribute, 32 for
// value. Propose returns nil once every field is bound.
func (p *Pattern) Propose() [][]byte {
	o, segs := p.choose()
	if segs == 3 {
		return nil
	}
	key := p.fullKey()
	prefixLen := 0
	for i := 0; i < segs; i++ {
		prefixLen += segLen(o.segs[i])
	}
	nextSeg := o.segs[segs]
	start := prefixLen
	end := prefixLen + segLen(nextSeg)
	tree := o.schema.ToTree(key[:])
	prefix := tree[:start]

	var out [][]byte
	o.p.Infixes(prefix, start, end, func(infix []byte) {
		cp := make([]byte, len(infix))
		copy(cp, infix)
		out = append(out, cp)
	})
	return out
}
