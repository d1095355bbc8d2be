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
	"encoding/binary"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/triblespace/tribles-go/blob"
	"github.com/triblespace/tribles-go/id"
	"github.com/triblespace/tribles-go/trible"
	"github.com/triblespace/tribles-go/tribleset"
)

// CommitHandle addresses a commit or branch metadata blob, both of
// which are encoded as a SimpleArchive.
type CommitHandle = blob.Handle[blob.SimpleArchive]

func packInterval(start, end time.Time) [32]byte {
	var v [32]byte
	binary.LittleEndian.PutUint64(v[0:8], uint64(start.UnixMilli()))
	binary.LittleEndian.PutUint64(v[8:16], uint64(end.UnixMilli()))
	return v
}

func unpackInterval(v [32]byte) (start, end time.Time) {
	start = time.UnixMilli(int64(binary.LittleEndian.Uint64(v[0:8])))
	end = time.UnixMilli(int64(binary.LittleEndian.Uint64(v[8:16])))
	return
}

func packHandle(h CommitHandle) [32]byte {
	var v [32]byte
	copy(v[:], h.Bytes())
	return v
}

func packShortString(s string) [32]byte {
	var v [32]byte
	copy(v[:], s)
	return v
}

func unpackShortString(v [32]byte) string {
	n := 0
	for n < len(v) && v[n] != 0 {
		n++
	}
	return string(v[:n])
}

// buildCommitMeta assembles the commit-metadata tribleset: parent
// edges, an optional content handle, an optional message, the
// authoring interval and the ed25519 signature. The signature is over
// contentPayload, the SimpleArchive encoding of the commit's content
// tribleset, so verifying it also verifies the content handle; a
// commit with no content, such as a merge commit, signs the
// concatenation of its parent handles instead — there is nothing else
// stable to sign.
func buildCommitMeta(key ed25519.PrivateKey, parents []CommitHandle, message string, content *CommitHandle, contentPayload []byte, start, end time.Time) *tribleset.TribleSet {
	out := tribleset.New()
	entity := id.NewUFOID()

	for _, p := range parents {
		out.Insert(trible.New(entity, trible.AttrParent, packHandle(p)))
	}
	if content != nil {
		out.Insert(trible.New(entity, trible.AttrContent, packHandle(*content)))
	}
	if message != "" {
		out.Insert(trible.New(entity, trible.AttrShortMessage, packShortString(message)))
	}
	out.Insert(trible.New(entity, trible.AttrTimestamp, packInterval(start, end)))

	var signed []byte
	if content != nil {
		signed = contentPayload
	} else {
		for _, p := range parents {
			signed = append(signed, p.Bytes()...)
		}
	}
	sig := ed25519.Sign(key, signed)
	var r, s [32]byte
	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	pub := key.Public().(ed25519.PublicKey)
	var pubArr [32]byte
	copy(pubArr[:], pub)

	out.Insert(trible.New(entity, trible.AttrSignedBy, pubArr))
	out.Insert(trible.New(entity, trible.AttrSignatureR, r))
	out.Insert(trible.New(entity, trible.AttrSignatureS, s))

	return out
}

func commitParents(meta *tribleset.TribleSet) []CommitHandle {
	var out []CommitHandle
	meta.Each(func(t trible.T) {
		if t.Attribute() == trible.AttrParent {
			out = append(out, CommitHandle(t.Value()))
		}
	})
	return out
}

func commitContent(meta *tribleset.TribleSet) (CommitHandle, bool) {
	var out CommitHandle
	found := false
	meta.Each(func(t trible.T) {
		if t.Attribute() == trible.AttrContent {
			out = CommitHandle(t.Value())
			found = true
		}
	})
	return out, found
}

func commitTimestamp(meta *tribleset.TribleSet) (start, end time.Time, ok bool) {
	meta.Each(func(t trible.T) {
		if t.Attribute() == trible.AttrTimestamp {
			start, end = unpackInterval(t.Value())
			ok = true
		}
	})
	return
}
