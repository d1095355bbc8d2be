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

package blob

// Store is the low-level, schema-agnostic blob backend: every pile,
// memory store or remote client implements it over raw bytes, and the
// generic Put/Get helpers below recover the schema tag at the call
// site. Keeping the interface untyped (rather than generic over S)
// lets pile and repo share one vocabulary without an import cycle
// between them.
type Store interface {
	// HasBytes reports whether a blob is known under h.
	HasBytes(h Hash) bool
	// GetBytes returns the payload stored under h, or ErrNotFound. The
	// returned slice may alias the store's internal storage (a pile
	// returns references into its memory map); callers must treat it
	// as read-only.
	GetBytes(h Hash) ([]byte, error)
	// PutBytes stores payload, returning its content hash. Storing the
	// same payload twice is a no-op the second time.
	PutBytes(payload []byte) (Hash, error)
	// ListBytes visits every handle known to the store, in unspecified
	// order.
	ListBytes(fn func(Hash))
}

// BranchStore is the compare-and-swap branch-head vocabulary the
// repository layer commits against: a branch is a 16-byte id mapped to
// the handle of its metadata blob.
type BranchStore interface {
	// Branches visits every known branch id.
	Branches(fn func(id [16]byte))
	// Head returns the current metadata handle for id, or ErrNotFound.
	Head(id [16]byte) (Hash, error)
	// Update performs a compare-and-swap: it sets id's head to new only
	// if the store's current value equals old (a nil old means "id must
	// not yet exist"). It returns the value actually stored, which may
	// differ from new if the CAS lost a race.
	Update(id [16]byte, old, new *Hash) (PushResult, error)
}

// Storage is the full backend a Repository is built on: content
// storage plus branch CAS.
type Storage interface {
	Store
	BranchStore
}

// PushResult reports the outcome of a branch CAS attempt.
type PushResult struct {
	// Applied is true when the CAS succeeded and the store's head is
	// now the value that was proposed.
	Applied bool
	// Head is the branch's resulting head handle, win or lose.
	Head Hash
}

// Put stores payload in s and returns its handle, tagged with schema
// S.
func Put[S any](s Store, payload []byte) (Handle[S], error) {
	h, err := s.PutBytes(payload)
	if err != nil {
		return Handle[S]{}, err
	}
	return handleFromHash[S](h), nil
}

// Get fetches the payload addressed by h.
func Get[S any](s Store, h Handle[S]) ([]byte, error) {
	return s.GetBytes(hashFromHandle(h))
}

// Has reports whether h is known to s.
func Has[S any](s Store, h Handle[S]) bool {
	return s.HasBytes(hashFromHandle(h))
}

func hashFromHandle[S any](h Handle[S]) Hash {
	return Hash(h)
}

func handleFromHash[S any](h Hash) Handle[S] {
	return Handle[S](h)
}
