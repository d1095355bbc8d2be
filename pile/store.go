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

package pile

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/triblespace/tribles-go/blob"
)

// Pile implements blob.Storage.
var (
	_ blob.Store       = (*Pile)(nil)
	_ blob.BranchStore = (*Pile)(nil)
)

// HasBytes reports whether h is a known blob, re-hashing its payload
// the first time it is asked about.
func (p *Pile) HasBytes(h blob.Hash) bool {
	_, err := p.GetBytes(h)
	return err == nil
}

// GetBytes returns the payload stored under h as a slice into the
// pile's memory map, validating it against its own hash on first
// access and caching the result. No copy is made: the returned bytes
// stay valid until the pile is closed and must be treated as
// read-only.
func (p *Pile) GetBytes(h blob.Hash) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.blobs.Get(h.Bytes())
	if !ok {
		return nil, blob.ErrNotFound
	}
	entry := v.(*indexEntry)
	if entry.state == stateUnknown {
		if p.hashPayload(entry) == h {
			entry.state = stateValidated
		} else {
			entry.state = stateInvalid
		}
	}
	payload := p.mm[entry.offset : entry.offset+int(entry.length) : entry.offset+int(entry.length)]
	if entry.state == stateInvalid {
		return nil, &blob.ValidationError{Want: h, Bytes: payload}
	}
	return payload, nil
}

// PutBytes appends payload as a new blob record, unless it is already
// present and validated, and returns its content hash. The write is
// visible to this Pile (and, after Refresh, to others) immediately but
// is not crash-durable until Flush is called.
func (p *Pile) PutBytes(payload []byte) (blob.Hash, error) {
	if err := p.lock.RLock(); err != nil {
		return blob.Hash{}, err
	}
	defer p.lock.Unlock()

	p.mu.Lock()
	if err := p.refreshLocked(); err != nil {
		p.mu.Unlock()
		return blob.Hash{}, err
	}

	hash := blob.HashOf(payload)
	if v, ok := p.blobs.Get(hash.Bytes()); ok {
		entry := v.(*indexEntry)
		if entry.state == stateUnknown {
			if p.hashPayload(entry) == hash {
				entry.state = stateValidated
			} else {
				entry.state = stateInvalid
			}
		}
		if entry.state == stateValidated {
			p.mu.Unlock()
			return hash, nil
		}
	}
	p.mu.Unlock()

	pad := paddingFor(len(payload))
	record := make([]byte, blobHeaderLen+len(payload)+pad)
	copy(record[0:16], magicMarkerBlob[:])
	binary.LittleEndian.PutUint64(record[16:24], uint64(time.Now().UnixMilli()))
	binary.LittleEndian.PutUint64(record[24:32], uint64(len(payload)))
	copy(record[32:64], hash.Bytes())
	copy(record[64:64+len(payload)], payload)

	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.file.Write(record)
	if err != nil {
		return blob.Hash{}, err
	}
	if n != len(record) {
		return blob.Hash{}, fmt.Errorf("pile: short write appending blob record")
	}
	blobsInserted.Inc()
	bytesAppended.Add(float64(n))

	for {
		applied, err := p.applyNext()
		if err != nil {
			return blob.Hash{}, err
		}
		if !applied {
			return blob.Hash{}, fmt.Errorf("pile: blob record vanished after being written")
		}
		if v, ok := p.blobs.Get(hash.Bytes()); ok {
			entry := v.(*indexEntry)
			if entry.state != stateInvalid {
				return hash, nil
			}
		}
	}
}

// ListBytes visits every blob handle currently indexed.
func (p *Pile) ListBytes(fn func(blob.Hash)) {
	p.mu.Lock()
	var hashes []blob.Hash
	p.blobs.Each(func(key []byte, _ any) {
		var h blob.Hash
		copy(h[:], key)
		hashes = append(hashes, h)
	})
	p.mu.Unlock()
	for _, h := range hashes {
		fn(h)
	}
}

// Branches visits every branch id with a recorded head.
func (p *Pile) Branches(fn func(id [16]byte)) {
	p.mu.Lock()
	var ids [][16]byte
	p.branches.Each(func(key []byte, _ any) {
		var id [16]byte
		copy(id[:], key)
		ids = append(ids, id)
	})
	p.mu.Unlock()
	for _, id := range ids {
		fn(id)
	}
}

// Head returns id's current metadata handle.
func (p *Pile) Head(id [16]byte) (blob.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.branches.Get(id[:])
	if !ok {
		return blob.Hash{}, blob.ErrNotFound
	}
	return v.(blob.Hash), nil
}

// Update performs a compare-and-swap on id's head, appending a branch
// record once old matches the store's current value. It does not
// verify that new refers to a blob this pile actually holds: a pile
// can serve as a head-only store over content that lives elsewhere.
func (p *Pile) Update(id [16]byte, old, new *blob.Hash) (blob.PushResult, error) {
	if new == nil {
		return blob.PushResult{}, fmt.Errorf("pile: branch deletion is not supported by an append-only store")
	}
	if id == [16]byte{} {
		return blob.PushResult{}, fmt.Errorf("pile: nil branch id")
	}
	if err := p.lock.Lock(); err != nil {
		return blob.PushResult{}, err
	}
	defer p.lock.Unlock()

	p.mu.Lock()
	if err := p.refreshLocked(); err != nil {
		p.mu.Unlock()
		return blob.PushResult{}, err
	}
	cur, exists := p.branches.Get(id[:])
	var curHash blob.Hash
	if exists {
		curHash = cur.(blob.Hash)
	}
	matches := (old == nil && !exists) || (old != nil && exists && *old == curHash)
	if !matches {
		p.mu.Unlock()
		branchCASConflicts.Inc()
		return blob.PushResult{Applied: false, Head: curHash}, nil
	}
	p.mu.Unlock()

	var record [branchHeaderLen]byte
	copy(record[0:16], magicMarkerBranch[:])
	copy(record[16:32], id[:])
	copy(record[32:64], new.Bytes())

	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.file.Write(record[:])
	if err != nil {
		return blob.PushResult{}, err
	}
	if n != len(record) {
		return blob.PushResult{}, fmt.Errorf("pile: short write appending branch record")
	}
	bytesAppended.Add(float64(n))
	for {
		applied, err := p.applyNext()
		if err != nil {
			return blob.PushResult{}, err
		}
		if !applied {
			return blob.PushResult{}, fmt.Errorf("pile: branch record vanished after being written")
		}
		if v, ok := p.branches.Get(id[:]); ok && v.(blob.Hash) == *new {
			return blob.PushResult{Applied: true, Head: *new}, nil
		}
	}
}
