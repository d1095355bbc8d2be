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

// Package repo layers a git-like content-addressed version-control
// model on top of a blob.Storage backend: branches are compare-and-
// swap pointers at signed, Ed25519-authenticated commit metadata, and
// a Workspace stages new commits locally before they are pushed.
package repo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/triblespace/tribles-go/blob"
	"github.com/triblespace/tribles-go/id"
)

// ErrBranchExists is returned by CreateBranch and CreateBranchFrom
// when the branch id they generated (vanishingly unlikely) or, more
// realistically in a test harness forcing an id, a branch already
// collides with an existing one.
var ErrBranchExists = errors.New("repo: branch already exists")

// ErrBranchNotFound is returned by Pull when no branch with the
// requested id exists.
var ErrBranchNotFound = errors.New("repo: branch not found")

// CheckoutError wraps a failure encountered while materializing a
// Checkout selector: an unreadable commit metadata blob, an unreadable
// content blob, or a SimpleArchive that does not parse.
type CheckoutError struct {
	Commit CommitHandle
	Err    error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("repo: checkout failed at commit %x: %v", e.Commit.Bytes(), e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// ErrMergeDifferentRepos is returned by Workspace.Merge when the two
// workspaces were not pulled from the same Repository: their staged
// blobs could reference content the other's base store cannot see.
var ErrMergeDifferentRepos = errors.New("repo: cannot merge workspaces from different repositories")

// Repository wraps a blob.Storage backend plus the Ed25519 key new
// commits and branch updates are signed with.
type Repository struct {
	storage blob.Storage
	key     ed25519.PrivateKey

	forgottenMu sync.Mutex
	forgotten   map[CommitHandle]struct{}
}

// New returns a Repository over storage, signing with key. Reads of
// content-addressed blobs are served through a process-wide cache
// (see cachedStorage); branch-head reads and CAS updates always go
// straight to storage.
func New(storage blob.Storage, key ed25519.PrivateKey) *Repository {
	return &Repository{storage: newCachedStorage(storage), key: key}
}

// CreateBranch creates a new, empty branch named name, with no initial
// commit.
func (r *Repository) CreateBranch(name string) (id.ID, error) {
	return r.CreateBranchFrom(name, nil)
}

// CreateBranchFrom creates a new branch named name, initially pointing
// at head (which may be nil for an empty branch). A non-nil head must
// already be resolvable in the repository's storage: its metadata
// bytes are what the branch signature is computed over.
func (r *Repository) CreateBranchFrom(name string, head *CommitHandle) (id.ID, error) {
	branchID := id.NewUFOID()
	var headPayload []byte
	if head != nil {
		payload, err := blob.Get[blob.SimpleArchive](r.storage, *head)
		if err != nil {
			return id.Nil, err
		}
		headPayload = payload
	}
	meta := buildBranchMeta(r.key, branchID, name, head, headPayload)
	payload := blob.EncodeTribleSet(meta)
	metaHandle, err := blob.Put[blob.SimpleArchive](r.storage, payload)
	if err != nil {
		return id.Nil, err
	}

	var rawID [16]byte
	copy(rawID[:], branchID[:])
	res, err := r.storage.Update(rawID, nil, hashPtr(blob.Hash(metaHandle)))
	if err != nil {
		return id.Nil, err
	}
	if !res.Applied {
		return id.Nil, ErrBranchExists
	}
	return branchID, nil
}

// Each visits every branch id known to the repository's storage.
func (r *Repository) Each(fn func(id.ID)) {
	r.storage.Branches(func(raw [16]byte) {
		fn(id.ID(raw))
	})
}

// Pull loads the current metadata of branch branchID and returns a
// Workspace seeded from it, ready for local commits.
func (r *Repository) Pull(branchID id.ID) (*Workspace, error) {
	var rawID [16]byte
	copy(rawID[:], branchID[:])
	metaHash, err := r.storage.Head(rawID)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, err
	}
	metaHandle := blob.Handle[blob.SimpleArchive](metaHash)
	metaPayload, err := blob.Get[blob.SimpleArchive](r.storage, metaHandle)
	if err != nil {
		return nil, err
	}
	meta, err := blob.DecodeTribleSet(metaPayload)
	if err != nil {
		return nil, err
	}
	head, hasHead := readHead(meta)

	return &Workspace{
		repo:           r,
		branchID:       branchID,
		baseBranchMeta: metaHandle,
		baseHead:       head,
		hasHead:        hasHead,
		head:           head,
		local:          blob.NewMemory(),
		pulledAt:       time.Now(),
	}, nil
}

// Forget marks h as no longer of interest to future checkouts:
// Ancestors-based selectors stop descending past a forgotten commit's
// parents, letting a long-lived process bound how much history it
// keeps re-walking without deleting any of the underlying facts.
func (r *Repository) Forget(h CommitHandle) {
	r.forgottenMu.Lock()
	defer r.forgottenMu.Unlock()
	if r.forgotten == nil {
		r.forgotten = map[CommitHandle]struct{}{}
	}
	r.forgotten[h] = struct{}{}
}

func (r *Repository) isForgotten(h CommitHandle) bool {
	r.forgottenMu.Lock()
	defer r.forgottenMu.Unlock()
	_, ok := r.forgotten[h]
	return ok
}

func hashPtr(h blob.Hash) *blob.Hash { return &h }
