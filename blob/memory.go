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

import "sync"

// Memory is an in-process Store, used as a Workspace's local staging
// area and in tests. It never persists anything to disk.
type Memory struct {
	mu    sync.RWMutex
	blobs map[Hash][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{blobs: make(map[Hash][]byte)}
}

func (m *Memory) HasBytes(h Hash) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[h]
	return ok
}

func (m *Memory) GetBytes(h Hash) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.blobs[h]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

func (m *Memory) PutBytes(payload []byte) (Hash, error) {
	h := HashOf(payload)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[h]; !ok {
		cp := make([]byte, len(payload))
		copy(cp, payload)
		m.blobs[h] = cp
	}
	return h, nil
}

func (m *Memory) ListBytes(fn func(Hash)) {
	m.mu.RLock()
	hashes := make([]Hash, 0, len(m.blobs))
	for h := range m.blobs {
		hashes = append(hashes, h)
	}
	m.mu.RUnlock()
	for _, h := range hashes {
		fn(h)
	}
}

// MemoryBranches is an in-process BranchStore, used for the base
// branch snapshot a Workspace keeps of its parent Repository.
type MemoryBranches struct {
	mu    sync.Mutex
	heads map[[16]byte]Hash
}

// NewMemoryBranches returns an empty MemoryBranches store.
func NewMemoryBranches() *MemoryBranches {
	return &MemoryBranches{heads: make(map[[16]byte]Hash)}
}

func (b *MemoryBranches) Branches(fn func(id [16]byte)) {
	b.mu.Lock()
	ids := make([][16]byte, 0, len(b.heads))
	for id := range b.heads {
		ids = append(ids, id)
	}
	b.mu.Unlock()
	for _, id := range ids {
		fn(id)
	}
}

func (b *MemoryBranches) Head(id [16]byte) (Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.heads[id]
	if !ok {
		return Hash{}, ErrNotFound
	}
	return h, nil
}

func (b *MemoryBranches) Update(id [16]byte, old, new *Hash) (PushResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cur, exists := b.heads[id]
	matches := (old == nil && !exists) || (old != nil && exists && *old == cur)
	if !matches {
		return PushResult{Applied: false, Head: cur}, nil
	}
	if new == nil {
		delete(b.heads, id)
		return PushResult{Applied: true}, nil
	}
	b.heads[id] = *new
	return PushResult{Applied: true, Head: *new}, nil
}
