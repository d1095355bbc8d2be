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

package repo

import (
	"time"

	"github.com/triblespace/tribles-go/blob"
	"github.com/triblespace/tribles-go/id"
	"github.com/triblespace/tribles-go/patch"
	"github.com/triblespace/tribles-go/trible"
)

// commitSet is a set of commit handles backed by a 32-byte IdentityOrder
// PATCH, so selector combinators can reuse PATCH's own set operations
// instead of reimplementing them over a Go map.
type commitSet struct {
	p *patch.Patch
}

func newCommitSet() *commitSet { return &commitSet{p: patch.New(patch.IdentityOrder(32))} }

func (s *commitSet) add(h CommitHandle) { s.p.Insert(h.Bytes(), nil) }

func (s *commitSet) has(h CommitHandle) bool { return s.p.Has(h.Bytes()) }

func (s *commitSet) each(fn func(CommitHandle)) {
	s.p.Each(func(key []byte, _ any) {
		var raw [32]byte
		copy(raw[:], key)
		fn(handleFromBytes(raw))
	})
}

func handleFromBytes(raw [32]byte) CommitHandle {
	return CommitHandle(raw)
}

func unionSet(a, b *commitSet) *commitSet      { return &commitSet{p: patch.Union(a.p, b.p)} }
func intersectSet(a, b *commitSet) *commitSet  { return &commitSet{p: patch.Intersect(a.p, b.p)} }
func differenceSet(a, b *commitSet) *commitSet { return &commitSet{p: patch.Difference(a.p, b.p)} }

// Selector picks the set of commits a Checkout materializes.
type Selector interface {
	resolve(w *Workspace) (*commitSet, error)
}

type commitSelector struct{ h CommitHandle }

// Commit selects a single commit handle.
func Commit(h CommitHandle) Selector { return commitSelector{h} }

func (s commitSelector) resolve(w *Workspace) (*commitSet, error) {
	out := newCommitSet()
	out.add(s.h)
	return out, nil
}

type commitsSelector struct{ hs []CommitHandle }

// Commits selects a literal list of commit handles.
func Commits(hs []CommitHandle) Selector { return commitsSelector{hs} }

func (s commitsSelector) resolve(w *Workspace) (*commitSet, error) {
	out := newCommitSet()
	for _, h := range s.hs {
		out.add(h)
	}
	return out, nil
}

type ancestorsSelector struct{ h CommitHandle }

// Ancestors selects the transitive closure of h over parent edges,
// including h itself. Descent stops at any commit the repository has
// been told to Forget.
func Ancestors(h CommitHandle) Selector { return ancestorsSelector{h} }

func (s ancestorsSelector) resolve(w *Workspace) (*commitSet, error) {
	return ancestorsOf(w, []CommitHandle{s.h})
}

func ancestorsOf(w *Workspace, roots []CommitHandle) (*commitSet, error) {
	store := w.store()
	out := newCommitSet()
	queue := append([]CommitHandle(nil), roots...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if out.has(cur) {
			continue
		}
		out.add(cur)
		if w.repo.isForgotten(cur) {
			continue
		}
		meta, err := loadMeta(store, cur)
		if err != nil {
			return nil, &CheckoutError{Commit: cur, Err: err}
		}
		queue = append(queue, commitParents(meta)...)
	}
	return out, nil
}

type nthAncestorSelector struct {
	h CommitHandle
	n int
}

// NthAncestor follows h's first parent edge n times.
func NthAncestor(h CommitHandle, n int) Selector { return nthAncestorSelector{h, n} }

func (s nthAncestorSelector) resolve(w *Workspace) (*commitSet, error) {
	store := w.store()
	out := newCommitSet()
	cur := s.h
	for i := 0; i < s.n; i++ {
		meta, err := loadMeta(store, cur)
		if err != nil {
			return nil, &CheckoutError{Commit: cur, Err: err}
		}
		parents := commitParents(meta)
		if len(parents) == 0 {
			return out, nil
		}
		cur = parents[0]
	}
	out.add(cur)
	return out, nil
}

type parentsSelector struct{ h CommitHandle }

// Parents selects the direct parents of h.
func Parents(h CommitHandle) Selector { return parentsSelector{h} }

func (s parentsSelector) resolve(w *Workspace) (*commitSet, error) {
	store := w.store()
	out := newCommitSet()
	meta, err := loadMeta(store, s.h)
	if err != nil {
		return nil, &CheckoutError{Commit: s.h, Err: err}
	}
	for _, p := range commitParents(meta) {
		out.add(p)
	}
	return out, nil
}

type symmetricDiffSelector struct{ a, b CommitHandle }

// SymmetricDiff selects (ancestors(a) ∪ ancestors(b)) \ (ancestors(a) ∩ ancestors(b)).
func SymmetricDiff(a, b CommitHandle) Selector { return symmetricDiffSelector{a, b} }

func (s symmetricDiffSelector) resolve(w *Workspace) (*commitSet, error) {
	aSet, err := ancestorsOf(w, []CommitHandle{s.a})
	if err != nil {
		return nil, err
	}
	bSet, err := ancestorsOf(w, []CommitHandle{s.b})
	if err != nil {
		return nil, err
	}
	u := unionSet(aSet, bSet)
	i := intersectSet(aSet, bSet)
	return differenceSet(u, i), nil
}

type combineSelector struct {
	op       byte
	lhs, rhs Selector
}

// Union selects every commit either lhs or rhs selects.
func Union(lhs, rhs Selector) Selector { return combineSelector{'u', lhs, rhs} }

// Intersect selects every commit both lhs and rhs select.
func Intersect(lhs, rhs Selector) Selector { return combineSelector{'i', lhs, rhs} }

// Difference selects commits lhs selects that rhs does not.
func Difference(lhs, rhs Selector) Selector { return combineSelector{'d', lhs, rhs} }

func (s combineSelector) resolve(w *Workspace) (*commitSet, error) {
	l, err := s.lhs.resolve(w)
	if err != nil {
		return nil, err
	}
	r, err := s.rhs.resolve(w)
	if err != nil {
		return nil, err
	}
	switch s.op {
	case 'u':
		return unionSet(l, r), nil
	case 'i':
		return intersectSet(l, r), nil
	default:
		return differenceSet(l, r), nil
	}
}

type timeRangeSelector struct{ start, end time.Time }

// TimeRange selects ancestors of the workspace's current head whose
// authoring interval overlaps [start, end].
func TimeRange(start, end time.Time) Selector { return timeRangeSelector{start, end} }

func (s timeRangeSelector) resolve(w *Workspace) (*commitSet, error) {
	head, ok := w.Head()
	if !ok {
		return newCommitSet(), nil
	}
	anc, err := ancestorsOf(w, []CommitHandle{head})
	if err != nil {
		return nil, err
	}
	store := w.store()
	out := newCommitSet()
	var walkErr error
	anc.each(func(h CommitHandle) {
		if walkErr != nil {
			return
		}
		meta, err := loadMeta(store, h)
		if err != nil {
			walkErr = &CheckoutError{Commit: h, Err: err}
			return
		}
		cs, ce, ok := commitTimestamp(meta)
		if !ok {
			return
		}
		if !ce.Before(s.start) && !cs.After(s.end) {
			out.add(h)
		}
	})
	return out, walkErr
}

type historyOfSelector struct{ entity id.ID }

// HistoryOf selects ancestors of the workspace's current head whose
// content contains a trible with entity e.
func HistoryOf(e id.ID) Selector { return historyOfSelector{e} }

func (s historyOfSelector) resolve(w *Workspace) (*commitSet, error) {
	head, ok := w.Head()
	if !ok {
		return newCommitSet(), nil
	}
	anc, err := ancestorsOf(w, []CommitHandle{head})
	if err != nil {
		return nil, err
	}
	store := w.store()
	out := newCommitSet()
	var walkErr error
	anc.each(func(h CommitHandle) {
		if walkErr != nil {
			return
		}
		meta, err := loadMeta(store, h)
		if err != nil {
			walkErr = &CheckoutError{Commit: h, Err: err}
			return
		}
		contentHandle, ok := commitContent(meta)
		if !ok {
			return
		}
		payload, err := blob.Get[blob.SimpleArchive](store, contentHandle)
		if err != nil {
			walkErr = &CheckoutError{Commit: h, Err: err}
			return
		}
		contentSet, err := blob.DecodeTribleSet(payload)
		if err != nil {
			walkErr = &CheckoutError{Commit: h, Err: err}
			return
		}
		found := false
		contentSet.Each(func(t trible.T) {
			if t.Entity() == s.entity {
				found = true
			}
		})
		if found {
			out.add(h)
		}
	})
	return out, walkErr
}

type rangeSelector struct{ start, end CommitHandle }

// Range selects commits reachable from end but not from start: it
// walks parents from end, stopping descent at any commit reachable
// from start.
func Range(start, end CommitHandle) Selector { return rangeSelector{start, end} }

func (s rangeSelector) resolve(w *Workspace) (*commitSet, error) {
	stopAt, err := ancestorsOf(w, []CommitHandle{s.start})
	if err != nil {
		return nil, err
	}
	store := w.store()
	out := newCommitSet()
	queue := []CommitHandle{s.end}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if out.has(cur) || stopAt.has(cur) {
			continue
		}
		out.add(cur)
		meta, err := loadMeta(store, cur)
		if err != nil {
			return nil, &CheckoutError{Commit: cur, Err: err}
		}
		queue = append(queue, commitParents(meta)...)
	}
	return out, nil
}
