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

package bytetable

import (
	"testing"
	"testing/quick"
)

type slot struct {
	key      byte
	occupied bool
	value    int
}

type slotOps struct{}

func (slotOps) ByteKey(s slot) byte { return s.key }
func (slotOps) Empty() slot         { return slot{} }
func (slotOps) IsEmpty(s slot) bool { return !s.occupied }

func insertAll(t *testing.T, keys []byte) *Table[slot] {
	t.Helper()
	tbl := New[slot](slotOps{})
	for i, k := range keys {
		entry := slot{key: k, occupied: true, value: i}
		for {
			displaced, ok := tbl.Insert(entry)
			if ok {
				break
			}
			if tbl.Len() == maxSlots {
				t.Fatalf("table full at max size with only %d entries", len(keys))
			}
			tbl = tbl.Grow()
			entry = displaced
		}
	}
	return tbl
}

func TestInsertAndGetAllBytes(t *testing.T) {
	keys := make([]byte, 256)
	for i := range keys {
		keys[i] = byte(i)
	}
	tbl := insertAll(t, keys)
	if tbl.Len() != maxSlots {
		t.Fatalf("expected fully grown table, got %d slots", tbl.Len())
	}
	for _, k := range keys {
		e, ok := tbl.Get(k)
		if !ok || e.key != k {
			t.Fatalf("key %d missing after full insert", k)
		}
	}
	if tbl.Count() != 256 {
		t.Fatalf("expected 256 occupied slots, got %d", tbl.Count())
	}
}

func TestInsertSubsetRoundTrip(t *testing.T) {
	keys := []byte{1, 2, 3, 17, 200, 201, 255, 0, 128, 64, 32, 16}
	tbl := insertAll(t, keys)
	for _, k := range keys {
		e, ok := tbl.Get(k)
		if !ok || e.key != k {
			t.Fatalf("key %d missing", k)
		}
	}
	for k := 0; k < 256; k++ {
		found := false
		for _, kk := range keys {
			if byte(k) == kk {
				found = true
			}
		}
		if !found {
			if _, ok := tbl.Get(byte(k)); ok {
				t.Fatalf("unexpected key %d present", k)
			}
		}
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	keys := []byte{5, 10, 15, 20}
	tbl := insertAll(t, keys)
	old, ok := tbl.Delete(10)
	if !ok || old.key != 10 {
		t.Fatalf("expected to delete key 10")
	}
	if _, ok := tbl.Get(10); ok {
		t.Fatalf("key 10 still present after delete")
	}
	for _, k := range []byte{5, 15, 20} {
		if _, ok := tbl.Get(k); !ok {
			t.Fatalf("key %d lost after unrelated delete", k)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tbl := insertAll(t, []byte{1, 2, 3})
	clone := tbl.Clone()
	clone.Delete(2)
	if _, ok := tbl.Get(2); !ok {
		t.Fatalf("original table mutated by clone's delete")
	}
	if _, ok := clone.Get(2); ok {
		t.Fatalf("clone did not actually delete")
	}
}

func TestGrowPreservesAllEntries(t *testing.T) {
	f := func(raw []byte) bool {
		seen := map[byte]bool{}
		var keys []byte
		for _, b := range raw {
			if !seen[b] {
				seen[b] = true
				keys = append(keys, b)
			}
			if len(keys) >= 200 {
				break
			}
		}
		tbl := New[slot](slotOps{})
		for i, k := range keys {
			entry := slot{key: k, occupied: true, value: i}
			for {
				displaced, ok := tbl.Insert(entry)
				if ok {
					break
				}
				if tbl.Len() == maxSlots {
					return false
				}
				tbl = tbl.Grow()
				entry = displaced
			}
		}
		for _, k := range keys {
			if _, ok := tbl.Get(k); !ok {
				return false
			}
		}
		return true
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 64}); err != nil {
		t.Error(err)
	}
}

func TestTagMatchesLog2Size(t *testing.T) {
	tbl := New[slot](slotOps{})
	if tbl.Tag() != 1 {
		t.Fatalf("expected tag 1 for a 2-slot table, got %d", tbl.Tag())
	}
	grown := tbl.Grow()
	if grown.Tag() != 2 {
		t.Fatalf("expected tag 2 for a 4-slot table, got %d", grown.Tag())
	}
}
