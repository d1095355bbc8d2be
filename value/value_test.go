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

package value

import "testing"

type testSchema struct{}

func TestFromBytesRoundTrip(t *testing.T) {
	var raw [32]byte
	for i := range raw {
		raw[i] = byte(i)
	}
	v := FromBytes[testSchema](raw[:])
	if v.Bytes() == nil {
		t.Fatalf("Bytes returned nil")
	}
	for i := range raw {
		if v.Bytes()[i] != raw[i] {
			t.Fatalf("byte %d did not round trip: got %x want %x", i, v.Bytes()[i], raw[i])
		}
	}
}

func TestFromBytesTruncatesLongInput(t *testing.T) {
	raw := make([]byte, 40)
	for i := range raw {
		raw[i] = byte(i)
	}
	v := FromBytes[testSchema](raw)
	if len(v.Bytes()) != 32 {
		t.Fatalf("expected a 32-byte value, got %d bytes", len(v.Bytes()))
	}
	for i := 0; i < 32; i++ {
		if v.Bytes()[i] != raw[i] {
			t.Fatalf("byte %d mismatch", i)
		}
	}
}

func TestHandleValueConversionsRoundTrip(t *testing.T) {
	var raw [32]byte
	raw[0] = 0xFF
	v := FromBytes[testSchema](raw[:])

	h := HandleFromValue[Blake3, testSchema](v)
	if h.Bytes()[0] != 0xFF {
		t.Fatalf("handle bytes did not carry over from value")
	}

	back := h.AsValue()
	if back != v {
		t.Fatalf("AsValue did not round trip to the original value")
	}
}

func TestValidatorRejectsAndAccepts(t *testing.T) {
	allZero := Validator[testSchema](func(v Value[testSchema]) bool {
		for _, b := range v {
			if b != 0 {
				return false
			}
		}
		return true
	})

	var zero Value[testSchema]
	if !allZero(zero) {
		t.Fatalf("expected the zero value to satisfy the all-zero validator")
	}

	var raw [32]byte
	raw[5] = 1
	nonZero := FromBytes[testSchema](raw[:])
	if allZero(nonZero) {
		t.Fatalf("expected a non-zero value to fail the all-zero validator")
	}
}
