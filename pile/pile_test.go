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

package pile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/triblespace/tribles-go/blob"
)

func openTemp(t *testing.T) (*Pile, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.pile")
	p, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, path
}

func TestPutAndGetRoundTrip(t *testing.T) {
	p, _ := openTemp(t)
	payload := []byte("hello tribles")
	h, err := p.PutBytes(payload)
	if err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	got, err := p.GetBytes(h)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch: got %q want %q", got, payload)
	}
}

func TestPutDuplicateDoesNotGrowFile(t *testing.T) {
	p, path := openTemp(t)
	payload := []byte("repeated payload")
	if _, err := p.PutBytes(payload); err != nil {
		t.Fatalf("first PutBytes: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	sizeAfterFirst := info.Size()

	if _, err := p.PutBytes(payload); err != nil {
		t.Fatalf("second PutBytes: %v", err)
	}
	info, err = os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != sizeAfterFirst {
		t.Fatalf("file grew on duplicate put: before %d after %d", sizeAfterFirst, info.Size())
	}
}

func TestGetBytesStaysValidAcrossMapGrowth(t *testing.T) {
	p, _ := openTemp(t)
	payload := []byte("pinned by an outstanding reference")
	h, err := p.PutBytes(payload)
	if err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	pinned, err := p.GetBytes(h)
	if err != nil {
		t.Fatalf("GetBytes: %v", err)
	}

	// Append enough records to force the memory map through several
	// doublings; the slice above points into a superseded mapping.
	filler := make([]byte, 1024)
	for i := 0; i < 32; i++ {
		filler[0] = byte(i)
		if _, err := p.PutBytes(filler); err != nil {
			t.Fatalf("PutBytes filler %d: %v", i, err)
		}
	}

	if string(pinned) != string(payload) {
		t.Fatalf("pinned slice changed after map growth: got %q want %q", pinned, payload)
	}
}

func TestGetMissingReturnsNotFound(t *testing.T) {
	p, _ := openTemp(t)
	var h blob.Hash
	h[0] = 1
	if _, err := p.GetBytes(h); err != blob.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBranchUpdateCAS(t *testing.T) {
	p, _ := openTemp(t)
	var id [16]byte
	id[0] = 0xAB

	var headA blob.Hash
	headA[0] = 1
	res, err := p.Update(id, nil, &headA)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !res.Applied {
		t.Fatalf("expected creation CAS to apply")
	}

	var headB blob.Hash
	headB[0] = 2
	wrongOld := headB
	res, err = p.Update(id, &wrongOld, &headB)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if res.Applied {
		t.Fatalf("expected CAS against a stale value to lose")
	}
	if res.Head != headA {
		t.Fatalf("losing CAS should report the current head: got %x want %x", res.Head, headA)
	}

	res, err = p.Update(id, &headA, &headB)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if !res.Applied {
		t.Fatalf("expected CAS against the correct current value to apply")
	}

	got, err := p.Head(id)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if got != headB {
		t.Fatalf("Head mismatch: got %x want %x", got, headB)
	}
}

func TestReopenReappliesRecords(t *testing.T) {
	p, path := openTemp(t)
	payload := []byte("persisted across reopen")
	h, err := p.PutBytes(payload)
	if err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if err := reopened.Restore(); err != nil {
		t.Fatalf("Restore after reopen: %v", err)
	}

	got, err := reopened.GetBytes(h)
	if err != nil {
		t.Fatalf("GetBytes after reopen: %v", err)
	}
	if string(got) != string(payload) {
		t.Fatalf("payload mismatch after reopen: got %q want %q", got, payload)
	}
}

func TestNilBranchIDRecordIsCorruption(t *testing.T) {
	p, _ := openTemp(t)
	if _, err := p.PutBytes([]byte("anchor")); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	validLength := p.AppliedLength()

	record := make([]byte, 64)
	copy(record[0:16], magicMarkerBranch[:])
	// branch id left all-zero; head hash arbitrary
	record[32] = 0xCC
	if _, err := p.file.Write(record); err != nil {
		t.Fatalf("appending nil-id branch record: %v", err)
	}

	err := p.Refresh()
	ce, ok := err.(*ErrCorrupt)
	if !ok || ce.ValidLength != validLength {
		t.Fatalf("expected ErrCorrupt{%d} for a nil branch id, got %v", validLength, err)
	}
	if err := p.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if p.AppliedLength() != validLength {
		t.Fatalf("applied length after restore = %d, want %d", p.AppliedLength(), validLength)
	}
}

func TestRestoreTruncatesPartialTailRecord(t *testing.T) {
	p, path := openTemp(t)
	payload := []byte("a complete blob before the crash")
	if _, err := p.PutBytes(payload); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	goodLength := info.Size()
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.Write([]byte{0x1E, 0x08, 0xB0, 0x22, 0xFF, 0x2F, 0x47, 0xB6, 0x00, 0x00}); err != nil {
		t.Fatalf("appending partial record: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := reopened.Refresh(); err == nil {
		t.Fatalf("expected Refresh to surface the corrupt tail")
	} else if ce, ok := err.(*ErrCorrupt); !ok || ce.ValidLength != goodLength {
		t.Fatalf("expected ErrCorrupt{%d}, got %v", goodLength, err)
	}
	if err := reopened.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	info, err = os.Stat(path)
	if err != nil {
		t.Fatalf("Stat after restore: %v", err)
	}
	if info.Size() != goodLength {
		t.Fatalf("Restore did not truncate to the last good record: got %d want %d", info.Size(), goodLength)
	}
	defer reopened.Close()
}
