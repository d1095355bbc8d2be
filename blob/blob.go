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

// Package blob defines the content-addressed blob abstraction the pile
// and repository layers are built on: a Handle is the BLAKE3 hash of a
// byte payload, and a Store resolves handles to payloads and back.
package blob

import (
	"errors"

	"lukechampine.com/blake3"

	"github.com/triblespace/tribles-go/value"
)

// Hash is a bare content hash, with no schema tag: the unit the pile's
// WAL and the reachability walk over reach package both operate on,
// since they never need to know what a blob's bytes decode to.
type Hash = value.Value[value.Blake3]

// Handle is a schema-tagged content hash: the hash of a blob of schema
// S, addressed under the BLAKE3 protocol. It is a defined type rather
// than an alias of value.Handle, since Go does not support generic
// type aliases until 1.24 and this module targets 1.21; Bytes below
// recovers the same byte view value.Handle would have given directly.
type Handle[S any] value.Handle[value.Blake3, S]

// Bytes returns the handle's raw hash bytes.
func (h Handle[S]) Bytes() []byte { return h[:] }

// HashOf returns the BLAKE3 content hash of payload.
func HashOf(payload []byte) Hash {
	sum := blake3.Sum256(payload)
	return value.FromBytes[value.Blake3](sum[:])
}

// HandleOf returns the schema-tagged content handle of payload.
func HandleOf[S any](payload []byte) Handle[S] {
	return Handle[S](HashOf(payload))
}

// ErrNotFound is returned by Get and GetBytes when no blob under the
// requested handle is known to the store.
var ErrNotFound = errors.New("blob: not found")

// ValidationError reports that a blob was found but its payload does
// not hash to the handle it was stored under. Bytes carries the
// offending payload for triage; validation runs at most once per
// blob, so the mismatching hash itself is not recomputed for the
// error.
type ValidationError struct {
	Want  Hash
	Bytes []byte
}

func (e *ValidationError) Error() string {
	return "blob: content hash mismatch, store is corrupt or was tampered with"
}
