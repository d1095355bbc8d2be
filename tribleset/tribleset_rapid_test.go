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

	"pgregory.net/rapid"

	"github.com/triblespace/tribles-go/trible"
)

// TestModelInsertRemoveSequence drives a random sequence of Insert and
// Remove calls against both a TribleSet and a plain Go-map model,
// checking after every step that the set's reported length and
// membership match the model. This is the shrinking-capable cousin of
// TestAllOrderingsAgree/TestRemove in tribleset_test.go: rapid narrows a failing
// sequence down to its shortest reproducing prefix, where the
// hand-rolled quick.Check tests in patch only report the full failing
// input.
func TestModelInsertRemoveSequence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := New()
		model := map[trible.T]bool{}

		steps := rapid.IntRange(1, 64).Draw(rt, "steps").(int)
		pool := make([]trible.T, 0, 16)
		for i := 0; i < steps; i++ {
			insertNew := len(pool) == 0 || rapid.IntRange(0, 1).Draw(rt, "insertNew").(int) == 1
			if insertNew {
				tr := randTrible()
				pool = append(pool, tr)
				s.Insert(tr)
				model[tr] = true
			} else {
				idx := rapid.IntRange(0, len(pool)-1).Draw(rt, "idx").(int)
				tr := pool[idx]
				removed := s.Remove(tr)
				wasPresent := model[tr]
				if removed != wasPresent {
					rt.Fatalf("Remove reported %v, model expected %v", removed, wasPresent)
				}
				delete(model, tr)
			}

			if s.Len() != len(model) {
				rt.Fatalf("Len() = %d, model has %d", s.Len(), len(model))
			}
			for tr, present := range model {
				if present && !s.Has(tr) {
					rt.Fatalf("model has %x but set does not", tr)
				}
			}
		}
	})
}
