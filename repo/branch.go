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
	"golang.org/x/crypto/ed25519"

	"github.com/triblespace/tribles-go/id"
	"github.com/triblespace/tribles-go/trible"
	"github.com/triblespace/tribles-go/tribleset"
)

// buildBranchMeta assembles the branch-metadata tribleset: the branch
// id, its name and, once the branch has a commit, a signed pointer at
// head. The signature is over headPayload, the SimpleArchive encoding
// of the head commit's metadata tribleset, so verifying it also
// verifies the head handle.
func buildBranchMeta(key ed25519.PrivateKey, branchID id.ID, name string, head *CommitHandle, headPayload []byte) *tribleset.TribleSet {
	out := tribleset.New()
	entity := id.NewUFOID()

	out.Insert(trible.New(entity, trible.AttrBranch, packID(branchID)))
	out.Insert(trible.New(entity, trible.AttrName, packShortString(name)))

	if head != nil {
		out.Insert(trible.New(entity, trible.AttrHead, packHandle(*head)))

		sig := ed25519.Sign(key, headPayload)
		var r, s [32]byte
		copy(r[:], sig[0:32])
		copy(s[:], sig[32:64])
		pub := key.Public().(ed25519.PublicKey)
		var pubArr [32]byte
		copy(pubArr[:], pub)

		out.Insert(trible.New(entity, trible.AttrSignedBy, pubArr))
		out.Insert(trible.New(entity, trible.AttrSignatureR, r))
		out.Insert(trible.New(entity, trible.AttrSignatureS, s))
	}

	return out
}

func packID(i id.ID) [32]byte {
	var v [32]byte
	copy(v[:16], i[:])
	return v
}

func readBranchID(meta *tribleset.TribleSet) (id.ID, bool) {
	var out id.ID
	found := false
	meta.Each(func(t trible.T) {
		if t.Attribute() == trible.AttrBranch {
			v := t.Value()
			copy(out[:], v[:16])
			found = true
		}
	})
	return out, found
}

func readBranchName(meta *tribleset.TribleSet) (string, bool) {
	var out string
	found := false
	meta.Each(func(t trible.T) {
		if t.Attribute() == trible.AttrName {
			out = unpackShortString(t.Value())
			found = true
		}
	})
	return out, found
}

func readHead(meta *tribleset.TribleSet) (CommitHandle, bool) {
	var out CommitHandle
	found := false
	meta.Each(func(t trible.T) {
		if t.Attribute() == trible.AttrHead {
			out = CommitHandle(t.Value())
			found = true
		}
	})
	return out, found
}
