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

// Package trible defines the 64-byte edge the whole store is built on,
// plus the fixed attribute identifiers the repository layer commits
// against.
package trible

import (
	"encoding/hex"
	"fmt"

	"github.com/triblespace/tribles-go/id"
)

// T is a trible: a 64-byte (entity, attribute, value) edge. Entity and
// attribute occupy the first 32 bytes as non-nil 16-byte ids; value is
// an opaque 32-byte payload whose schema is a concern of the layer
// above trible.
type T [64]byte

// New builds a trible from a non-nil entity and attribute id and a raw
// 32-byte value.
func New(entity, attribute id.ID, value [32]byte) T {
	if entity.IsNil() || attribute.IsNil() {
		panic("trible: entity and attribute ids must be non-nil")
	}
	var t T
	copy(t[0:16], entity[:])
	copy(t[16:32], attribute[:])
	copy(t[32:64], value[:])
	return t
}

// Entity returns the trible's entity id.
func (t T) Entity() id.ID {
	var out id.ID
	copy(out[:], t[0:16])
	return out
}

// Attribute returns the trible's attribute id.
func (t T) Attribute() id.ID {
	var out id.ID
	copy(out[:], t[16:32])
	return out
}

// Value returns the trible's raw 32-byte value.
func (t T) Value() [32]byte {
	var out [32]byte
	copy(out[:], t[32:64])
	return out
}

func mustID(hexStr string) id.ID {
	b, err := hex.DecodeString(hexStr)
	if err != nil || len(b) != 16 {
		panic(fmt.Sprintf("trible: invalid namespace id literal %q", hexStr))
	}
	var out id.ID
	copy(out[:], b)
	return out
}

// Namespace attribute ids the commit and repository layers commit
// against. These are fixed wire constants, not generated: every
// repository, regardless of process, agrees on their meaning.
var (
	AttrContent      = mustID("4DD4DDD05CC31734B03ABB4E43188B1F")
	AttrParent       = mustID("317044B612C690000D798CA660ECFD2A")
	AttrMessage      = mustID("B59D147839100B6ED4B165DF76EDF3BB")
	AttrShortMessage = mustID("12290C0BE0E9207E324F24DDE0D89300")
	AttrHead         = mustID("272FBC56108F336C4D2E17289468C35F")
	AttrBranch       = mustID("8694CC73AF96A5E1C7635C677D1B928A")
	AttrTimestamp    = mustID("71FF566AB4E3119FC2C5E66A18979586")
	AttrSignedBy     = mustID("ADB4FFAD247C886848161297EFF5A05B")
	AttrSignatureR   = mustID("9DF34F84959928F93A3C40AEB6E9E499")
	AttrSignatureS   = mustID("1ACE03BF70242B289FDF00E4327C3BC6")

	// AttrName carries a branch's human-readable name in its metadata
	// tribleset. Like the attributes above it is a fixed wire constant;
	// it lives in the metadata namespace rather than the commit one.
	AttrName = mustID("328147856CC1984F0806DBB824D2B4CB")
)
