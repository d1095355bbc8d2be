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
	"testing"

	fuzz "github.com/google/gofuzz"
)

// TestFuzzedGarbageTailIsCorrupt is Pi2: appending an arbitrary
// (gofuzz-generated) run of garbage bytes past a valid pile's last
// record causes Refresh to report CorruptPile at the original length,
// and Restore to truncate back to it.
func TestFuzzedGarbageTailIsCorrupt(t *testing.T) {
	p, path := openTemp(t)

	f := fuzz.New().NilChance(0).NumElements(1, 200)
	var payload []byte
	f.Fuzz(&payload)
	if _, err := p.PutBytes(payload); err != nil {
		t.Fatalf("PutBytes: %v", err)
	}
	if err := p.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	validLength := p.AppliedLength()

	var garbage []byte
	f.NumElements(1, 63).Fuzz(&garbage)
	if len(garbage) == 0 {
		garbage = []byte{0xFF}
	}
	if _, err := p.file.Write(garbage); err != nil {
		t.Fatalf("appending garbage: %v", err)
	}

	if err := p.Refresh(); err == nil {
		t.Fatalf("expected Refresh to report corruption after a garbage tail")
	} else if ce, ok := err.(*ErrCorrupt); !ok || ce.ValidLength != validLength {
		t.Fatalf("expected ErrCorrupt{%d}, got %v", validLength, err)
	}

	if err := p.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != validLength {
		t.Fatalf("file length after restore = %d, want %d", info.Size(), validLength)
	}
}

// TestFuzzedPayloadsRoundTrip is a randomized extension of Pi1: a
// batch of gofuzz-generated payloads of varying length all round-trip
// through PutBytes/GetBytes unchanged.
func TestFuzzedPayloadsRoundTrip(t *testing.T) {
	p, _ := openTemp(t)
	f := fuzz.New().NilChance(0).NumElements(0, 512)

	var want [][]byte
	for i := 0; i < 20; i++ {
		var payload []byte
		f.Fuzz(&payload)
		want = append(want, payload)
	}

	for i, payload := range want {
		h, err := p.PutBytes(payload)
		if err != nil {
			t.Fatalf("PutBytes(%d): %v", i, err)
		}
		got, err := p.GetBytes(h)
		if err != nil {
			t.Fatalf("GetBytes(%d): %v", i, err)
		}
		if string(got) != string(payload) {
			t.Fatalf("round-trip mismatch at %d: got %x, want %x", i, got, payload)
		}
	}
}
