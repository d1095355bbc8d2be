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

package trible

import (
	"testing"

	"github.com/triblespace/tribles-go/id"
)

func TestNewAccessorsRoundTrip(t *testing.T) {
	e := id.New()
	a := AttrContent
	var v [32]byte
	v[0] = 0xAB

	tr := New(e, a, v)
	if tr.Entity() != e {
		t.Fatalf("entity did not round trip")
	}
	if tr.Attribute() != a {
		t.Fatalf("attribute did not round trip")
	}
	if tr.Value() != v {
		t.Fatalf("value did not round trip")
	}
}

func TestNewRejectsNilIds(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("expected New to panic on a nil entity or attribute")
		}
	}()
	New(id.Nil, AttrContent, [32]byte{})
}

func TestNamespaceAttributesAreDistinct(t *testing.T) {
	attrs := []id.ID{
		AttrContent, AttrParent, AttrMessage, AttrShortMessage, AttrHead,
		AttrBranch, AttrTimestamp, AttrSignedBy, AttrSignatureR, AttrSignatureS,
	}
	seen := map[id.ID]bool{}
	for _, a := range attrs {
		if a.IsNil() {
			t.Fatalf("namespace attribute must not be nil")
		}
		if seen[a] {
			t.Fatalf("duplicate namespace attribute id %s", a)
		}
		seen[a] = true
	}
}
