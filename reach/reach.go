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

// Package reach implements the cross-repository blob-import
// primitives: a BFS walk that discovers every handle transitively
// referenced from a set of roots, and an explicit copy of a handle set
// from one store to another. Neither is invoked automatically by
// Workspace.Merge; importing another repository's blobs is always a
// deliberate, explicit step.
package reach

import (
	"golang.org/x/sync/errgroup"

	"github.com/triblespace/tribles-go/blob"
)

// Reachable returns, in BFS order, every handle whose payload is
// present in source and is reachable from roots. For each visited
// blob, its payload is scanned in 32-byte strides; any stride that
// both looks like a handle and actually resolves in source is
// enqueued. This is a heuristic over schema-free bytes, not a typed
// walk: a payload that happens to contain 32 bytes identical to some
// other blob's hash is indistinguishable from a genuine reference, so
// callers that need precision should filter the result against their
// own schema's reference shape.
func Reachable(source blob.Store, roots []blob.Hash) []blob.Hash {
	seen := make(map[blob.Hash]bool, len(roots))
	var order []blob.Hash
	queue := append([]blob.Hash(nil), roots...)

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if seen[h] {
			continue
		}
		if !source.HasBytes(h) {
			continue
		}
		seen[h] = true
		order = append(order, h)

		payload, err := source.GetBytes(h)
		if err != nil {
			continue
		}
		for i := 0; i+32 <= len(payload); i += 32 {
			var candidate blob.Hash
			copy(candidate[:], payload[i:i+32])
			if !seen[candidate] && source.HasBytes(candidate) {
				queue = append(queue, candidate)
			}
		}
	}
	return order
}

// Pair is one (source handle, target handle) result of a Transfer.
// The two are always equal here, since every blob.Store in this module
// content-addresses with BLAKE3, but a remote backend hashing under a
// different protocol would make them diverge, which is why Transfer
// reports both rather than just one.
type Pair struct {
	Source blob.Hash
	Target blob.Hash
}

// Transfer copies each of handles' blobs from source to target,
// reporting the resulting (source, target) handle pairs. Copies run
// concurrently; a failure on any one handle fails the whole Transfer,
// since a partial import would leave target referencing content it
// doesn't actually have.
func Transfer(source, target blob.Store, handles []blob.Hash) ([]Pair, error) {
	out := make([]Pair, len(handles))
	var g errgroup.Group
	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			payload, err := source.GetBytes(h)
			if err != nil {
				return err
			}
			newHash, err := target.PutBytes(payload)
			if err != nil {
				return err
			}
			out[i] = Pair{Source: h, Target: newHash}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
