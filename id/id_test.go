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

package id

import (
	"bytes"
	"testing"
)

func TestNilSentinel(t *testing.T) {
	if !Nil.IsNil() {
		t.Fatalf("zero ID must report IsNil")
	}
	if New().IsNil() {
		t.Fatalf("a freshly minted id must not be nil")
	}
}

func TestUFOIDMonotonicPrefix(t *testing.T) {
	a := NewUFOID()
	b := NewUFOID()
	if a.IsNil() || b.IsNil() {
		t.Fatalf("UFOID must never be nil")
	}
	if bytes.Compare(a[0:4], b[0:4]) > 0 {
		t.Fatalf("expected non-decreasing timestamp prefixes")
	}
}

func TestFUCIDDistinct(t *testing.T) {
	seen := map[ID]bool{}
	for i := 0; i < 1000; i++ {
		f := NewFUCID()
		if seen[f] {
			t.Fatalf("FUCID collision at iteration %d", i)
		}
		seen[f] = true
	}
}

func TestExclusiveIdEnforcesSingleHolder(t *testing.T) {
	target := New()
	excl := Acquire(target)
	defer excl.Release()

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected Acquire of an already-held id to panic")
			}
		}()
		Acquire(target)
	}()
}

func TestExclusiveIdReleaseAllowsReacquire(t *testing.T) {
	target := New()
	excl := Acquire(target)
	excl.Release()
	excl.Release() // idempotent

	again := Acquire(target)
	again.Release()
}

func TestAcquireNilPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected Acquire(Nil) to panic")
		}
	}()
	Acquire(Nil)
}
