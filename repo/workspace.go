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
	"time"

	"github.com/triblespace/tribles-go/blob"
	"github.com/triblespace/tribles-go/id"
	"github.com/triblespace/tribles-go/tribleset"
)

// Workspace stages commits against one branch of a Repository before
// they are pushed. Content staged in a Workspace is visible to its own
// Checkout immediately, but invisible to any other reader of the
// Repository until a successful TryPush or Push.
type Workspace struct {
	repo     *Repository
	branchID id.ID

	// baseBranchMeta is the branch metadata handle observed at Pull
	// time: the CAS witness TryPush compares against.
	baseBranchMeta CommitHandle
	// baseHead and hasHead snapshot the branch's head at Pull time.
	baseHead CommitHandle
	hasHead  bool

	// head is the workspace's current commit, advanced locally by
	// Commit and Merge. TryPush leaves it unchanged; Push, on a
	// conflict, replaces the workspace with a merged one whose head is
	// the merge commit.
	head         CommitHandle
	hasHeadLocal bool

	local *blob.Memory

	pulledAt time.Time
}

// BranchID returns the id of the branch this workspace tracks.
func (w *Workspace) BranchID() id.ID { return w.branchID }

// Head returns the workspace's current commit and whether it has one
// (a freshly created, empty branch has none).
func (w *Workspace) Head() (CommitHandle, bool) {
	if w.hasHeadLocal {
		return w.head, true
	}
	return w.head, w.hasHead
}

// layeredStore resolves Get against a Workspace's local staging area
// first, falling back to the repository's storage; it is what
// Checkout reads commit and content blobs through so staged-but-
// unpushed work is checkoutable.
type layeredStore struct {
	local *blob.Memory
	base  blob.Store
}

func (s *layeredStore) HasBytes(h blob.Hash) bool {
	return s.local.HasBytes(h) || s.base.HasBytes(h)
}

func (s *layeredStore) GetBytes(h blob.Hash) ([]byte, error) {
	if s.local.HasBytes(h) {
		return s.local.GetBytes(h)
	}
	return s.base.GetBytes(h)
}

func (s *layeredStore) PutBytes(payload []byte) (blob.Hash, error) {
	return s.local.PutBytes(payload)
}

func (s *layeredStore) ListBytes(fn func(blob.Hash)) {
	seen := map[blob.Hash]bool{}
	s.local.ListBytes(func(h blob.Hash) { seen[h] = true; fn(h) })
	s.base.ListBytes(func(h blob.Hash) {
		if !seen[h] {
			fn(h)
		}
	})
}

func (w *Workspace) store() blob.Store {
	return &layeredStore{local: w.local, base: w.repo.storage}
}

// Put stages payload in the workspace's local store and returns its
// content handle, without touching the repository.
func Put[S any](w *Workspace, payload []byte) (blob.Handle[S], error) {
	return blob.Put[S](w.local, payload)
}

// Commit builds a commit with the workspace's current head (if any) as
// its single parent, optionally carrying content and a short message,
// stages its content and metadata blobs locally, and advances head.
func (w *Workspace) Commit(content *tribleset.TribleSet, message string) (CommitHandle, error) {
	var parents []CommitHandle
	if h, ok := w.Head(); ok {
		parents = []CommitHandle{h}
	}

	var contentHandle *CommitHandle
	var contentPayload []byte
	if content != nil {
		contentPayload = blob.EncodeTribleSet(content)
		h, err := blob.Put[blob.SimpleArchive](w.local, contentPayload)
		if err != nil {
			return CommitHandle{}, err
		}
		contentHandle = &h
	}

	now := time.Now()
	start := w.pulledAt
	if start.IsZero() {
		start = now
	}
	meta := buildCommitMeta(w.repo.key, parents, message, contentHandle, contentPayload, start, now)
	metaPayload := blob.EncodeTribleSet(meta)
	metaHandle, err := blob.Put[blob.SimpleArchive](w.local, metaPayload)
	if err != nil {
		return CommitHandle{}, err
	}

	w.head = metaHandle
	w.hasHeadLocal = true
	return metaHandle, nil
}

// Merge copies other's staged blobs into this workspace (blobs only;
// other's base history is not transitively imported — call Push or
// Checkout against it first if that history needs to be durable) and
// creates a merge commit with parents [w.head, other.head] and no
// content.
func (w *Workspace) Merge(other *Workspace) (CommitHandle, error) {
	if w.repo != other.repo {
		return CommitHandle{}, ErrMergeDifferentRepos
	}
	other.local.ListBytes(func(h blob.Hash) {
		payload, err := other.local.GetBytes(h)
		if err != nil {
			return
		}
		w.local.PutBytes(payload)
	})

	var parents []CommitHandle
	if h, ok := w.Head(); ok {
		parents = append(parents, h)
	}
	if h, ok := other.Head(); ok {
		parents = append(parents, h)
	}

	now := time.Now()
	meta := buildCommitMeta(w.repo.key, parents, "", nil, nil, now, now)
	metaPayload := blob.EncodeTribleSet(meta)
	metaHandle, err := blob.Put[blob.SimpleArchive](w.local, metaPayload)
	if err != nil {
		return CommitHandle{}, err
	}
	w.head = metaHandle
	w.hasHeadLocal = true
	return metaHandle, nil
}

// TryPush makes a single attempt to publish the workspace's staged
// commits: it uploads every staged blob, then CAS-updates the branch
// pointer. On success it returns (nil, nil) and resets the workspace
// to track the newly pushed state. On a lost race it returns a fresh
// Workspace seeded from the branch's new head, for the caller to Merge
// against and retry.
func (w *Workspace) TryPush() (*Workspace, error) {
	var uploadErr error
	w.local.ListBytes(func(h blob.Hash) {
		if uploadErr != nil {
			return
		}
		payload, err := w.local.GetBytes(h)
		if err != nil {
			uploadErr = err
			return
		}
		if _, err := w.repo.storage.PutBytes(payload); err != nil {
			uploadErr = err
		}
	})
	if uploadErr != nil {
		return nil, uploadErr
	}

	head, hasHead := w.Head()
	unchanged := hasHead == w.hasHead && (!hasHead || head == w.baseHead)
	if unchanged {
		return nil, nil
	}

	name, _ := w.branchName()
	// The staged blobs were just uploaded, so the head commit's
	// metadata bytes are resolvable from the repository store.
	headPayload, err := blob.Get[blob.SimpleArchive](w.repo.storage, head)
	if err != nil {
		return nil, err
	}
	meta := buildBranchMeta(w.repo.key, w.branchID, name, &head, headPayload)
	metaPayload := blob.EncodeTribleSet(meta)
	metaHandle, err := blob.Put[blob.SimpleArchive](w.repo.storage, metaPayload)
	if err != nil {
		return nil, err
	}

	var rawID [16]byte
	copy(rawID[:], w.branchID[:])
	oldHash := blob.Hash(w.baseBranchMeta)
	res, err := w.repo.storage.Update(rawID, &oldHash, hashPtr(blob.Hash(metaHandle)))
	if err != nil {
		return nil, err
	}
	if res.Applied {
		w.baseBranchMeta = metaHandle
		w.baseHead = head
		w.hasHead = true
		w.local = blob.NewMemory()
		return nil, nil
	}

	conflictHandle := blob.Handle[blob.SimpleArchive](res.Head)
	conflictPayload, err := blob.Get[blob.SimpleArchive](w.repo.storage, conflictHandle)
	if err != nil {
		return nil, err
	}
	conflictMeta, err := blob.DecodeTribleSet(conflictPayload)
	if err != nil {
		return nil, err
	}
	conflictHead, hasConflictHead := readHead(conflictMeta)

	return &Workspace{
		repo:           w.repo,
		branchID:       w.branchID,
		baseBranchMeta: conflictHandle,
		baseHead:       conflictHead,
		hasHead:        hasConflictHead,
		head:           conflictHead,
		local:          blob.NewMemory(),
	}, nil
}

// Push retries TryPush, merging the conflicting remote state into this
// workspace each time it loses the race, until a push succeeds.
func (w *Workspace) Push() error {
	for {
		conflict, err := w.TryPush()
		if err != nil {
			return err
		}
		if conflict == nil {
			return nil
		}
		if _, err := conflict.Merge(w); err != nil {
			return err
		}
		*w = *conflict
	}
}

func (w *Workspace) branchName() (string, bool) {
	payload, err := blob.Get[blob.SimpleArchive](w.repo.storage, w.baseBranchMeta)
	if err != nil {
		return "", false
	}
	meta, err := blob.DecodeTribleSet(payload)
	if err != nil {
		return "", false
	}
	return readBranchName(meta)
}

// Checkout resolves sel against this workspace's layered view of the
// repository (base storage plus locally staged blobs) and returns the
// union of the content triblesets of every resolved commit that has
// content.
func (w *Workspace) Checkout(sel Selector) (*tribleset.TribleSet, error) {
	store := w.store()
	set, err := sel.resolve(w)
	if err != nil {
		return nil, err
	}
	out := tribleset.New()
	var walkErr error
	set.each(func(h CommitHandle) {
		if walkErr != nil {
			return
		}
		meta, err := loadMeta(store, h)
		if err != nil {
			walkErr = &CheckoutError{Commit: h, Err: err}
			return
		}
		contentHandle, ok := commitContent(meta)
		if !ok {
			return
		}
		content, err := blob.Get[blob.SimpleArchive](store, contentHandle)
		if err != nil {
			walkErr = &CheckoutError{Commit: h, Err: err}
			return
		}
		contentSet, err := blob.DecodeTribleSet(content)
		if err != nil {
			walkErr = &CheckoutError{Commit: h, Err: err}
			return
		}
		out = tribleset.Union(out, contentSet)
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return out, nil
}

func loadMeta(store blob.Store, h CommitHandle) (*tribleset.TribleSet, error) {
	payload, err := blob.Get[blob.SimpleArchive](store, h)
	if err != nil {
		return nil, err
	}
	return blob.DecodeTribleSet(payload)
}
