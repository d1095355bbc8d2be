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
	"github.com/VictoriaMetrics/fastcache"

	"github.com/triblespace/tribles-go/blob"
)

// blobCacheBytes bounds the process-wide blob byte cache. It
// is sized small deliberately: commit and branch metadata blobs are
// tiny compared to content triblesets, and the cache only needs to
// absorb the repeated re-reads a single Checkout's selector resolution
// does against the same handful of commits (ancestorsOf is called
// once per selector that needs it, and TimeRange/HistoryOf both walk
// the same ancestor set their Checkout will immediately re-walk).
const blobCacheBytes = 32 * 1024 * 1024

// blobCache is a process-wide cache of content-addressed blob bytes,
// shared by every Repository in the process. Entries are safe to
// share across Repository instances and goroutines because a
// handle's bytes never change once written: the whole point of
// content addressing.
var blobCache = fastcache.New(blobCacheBytes)

// cachedStore wraps a blob.Store, serving GetBytes out of the
// process-wide blobCache before falling through to base. Puts and
// lists always go straight to base; only reads are cached, since a
// cache is only ever a read-through optimization here.
type cachedStore struct {
	base blob.Store
}

func newCachedStore(base blob.Store) *cachedStore { return &cachedStore{base: base} }

func (s *cachedStore) HasBytes(h blob.Hash) bool {
	if blobCache.Has(h[:]) {
		return true
	}
	return s.base.HasBytes(h)
}

func (s *cachedStore) GetBytes(h blob.Hash) ([]byte, error) {
	if v, ok := blobCache.HasGet(nil, h[:]); ok {
		return v, nil
	}
	payload, err := s.base.GetBytes(h)
	if err != nil {
		return nil, err
	}
	blobCache.Set(h[:], payload)
	return payload, nil
}

func (s *cachedStore) PutBytes(payload []byte) (blob.Hash, error) {
	h, err := s.base.PutBytes(payload)
	if err != nil {
		return blob.Hash{}, err
	}
	blobCache.Set(h[:], payload)
	return h, nil
}

func (s *cachedStore) ListBytes(fn func(blob.Hash)) { s.base.ListBytes(fn) }

// cachedStorage layers cachedStore's read-through blob cache onto a
// full blob.Storage, while leaving branch-head reads and CAS updates
// uncached: those must always observe the store's latest value.
type cachedStorage struct {
	*cachedStore
	branches blob.BranchStore
}

func newCachedStorage(base blob.Storage) *cachedStorage {
	return &cachedStorage{cachedStore: newCachedStore(base), branches: base}
}

func (s *cachedStorage) Branches(fn func(id [16]byte)) { s.branches.Branches(fn) }
func (s *cachedStorage) Head(id [16]byte) (blob.Hash, error) { return s.branches.Head(id) }
func (s *cachedStorage) Update(id [16]byte, old, new *blob.Hash) (blob.PushResult, error) {
	return s.branches.Update(id, old, new)
}
