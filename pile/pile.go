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

// Package pile implements the single-file, append-only blob and
// branch store every on-disk repository is built on. The file's
// write-ahead log is the database: every index is reconstructed from
// it by Refresh or Restore after Open, and the only mutation a Pile ever performs on existing
// bytes is truncating a corrupt, unapplied tail back to the last
// confirmed record boundary.
package pile

import (
	"encoding/binary"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/gofrs/flock"

	"github.com/triblespace/tribles-go/blob"
	"github.com/triblespace/tribles-go/log"
	"github.com/triblespace/tribles-go/patch"
)

var (
	magicMarkerBlob   = [16]byte{0x1E, 0x08, 0xB0, 0x22, 0xFF, 0x2F, 0x47, 0xB6, 0xEB, 0xAC, 0xF1, 0xD6, 0x8E, 0xB3, 0x5D, 0x96}
	magicMarkerBranch = [16]byte{0x2B, 0xC9, 0x91, 0xA7, 0xF5, 0xD5, 0xD2, 0xA3, 0xA4, 0x68, 0xC5, 0x3B, 0x0A, 0xA0, 0x35, 0x04}
)

// blobHeaderLen is the size of a blob record's fixed header: 16-byte
// magic, 8-byte millisecond timestamp, 8-byte length, 32-byte content
// hash.
const blobHeaderLen = 16 + 8 + 8 + 32

// blobAlignment is the stride every blob record, header plus padded
// payload, occupies: the header's own length, so that headers always
// begin on a blobHeaderLen-aligned file offset.
const blobAlignment = blobHeaderLen

// branchHeaderLen is the size of a branch record: 16-byte magic,
// 16-byte branch id, 32-byte head hash. Branch records carry no body
// and are already a whole alignment stride, so the next record starts
// right after them.
const branchHeaderLen = 16 + 16 + 32

func paddingFor(payloadLen int) int {
	return (blobAlignment - ((blobHeaderLen + payloadLen) % blobAlignment)) % blobAlignment
}

// validationState is the lazily-computed outcome of re-hashing a
// blob's stored bytes against the hash its header claims.
type validationState int

const (
	stateUnknown validationState = iota
	stateValidated
	stateInvalid
)

// indexEntry locates one blob's payload within the mapped file and
// caches whether its bytes have been confirmed to hash to its key.
// The cache is safe under the pile's single mutex: once a pile's
// applied_length has passed a record, that record's bytes are assumed
// immutable for the process lifetime, so recomputing is only ever
// done once.
type indexEntry struct {
	offset    int
	length    uint64
	timestamp uint64
	state     validationState
}

// ErrCorrupt reports that a Pile's unapplied tail contains a record
// that does not parse, or whose magic marker is unrecognized. Open and
// Refresh never truncate on their own; callers that want this handled
// automatically should call Restore instead.
type ErrCorrupt struct {
	ValidLength int64
}

func (e *ErrCorrupt) Error() string {
	return fmt.Sprintf("pile: corrupt or partial record at offset %d", e.ValidLength)
}

// Pile is a single-file, append-only store of content-addressed blobs
// and branch pointers, safe for concurrent use from multiple goroutines
// and, via its advisory file lock, multiple processes.
type Pile struct {
	mu   sync.Mutex
	path string
	file *os.File
	lock *flock.Flock

	// mm is the current read-only mapping of the file. Blob reads are
	// handed out as slices into it, valid for the pile's lifetime, so
	// when the mapping grows the superseded region is parked on retired
	// rather than unmapped; everything is unmapped together at Close.
	mm      mmap.MMap
	retired []mmap.MMap

	blobs    *patch.Patch // 32-byte IdentityOrder key -> *indexEntry
	branches *patch.Patch // 16-byte IdentityOrder key -> blob.Hash

	appliedLength int64
	closed        bool
}

// Open opens or creates the pile file at path without scanning its
// contents. The returned Pile has no in-memory index yet: callers
// should call Refresh to load existing data, or Restore to load and
// repair a possibly crash-damaged tail.
func Open(path string) (*Pile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	p := &Pile{
		path:     path,
		file:     f,
		lock:     flock.New(path),
		blobs:    patch.New(patch.IdentityOrder(32)),
		branches: patch.New(patch.IdentityOrder(16)),
	}
	runtime.SetFinalizer(p, finalizePile)
	return p, nil
}

// finalizePile backstops a Pile a caller forgot to Close: it cannot
// recover a lost Flush, so all it can do is warn, matching the
// documented drop contract (an unclosed Pile's durability guarantees,
// not its data, are what's at risk).
func finalizePile(p *Pile) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if !closed {
		log.Warn("pile dropped without Close", "path", p.path)
	}
}

// Close unmaps the file, including every mapping superseded by growth,
// and releases the OS file handle. Blob slices handed out by GetBytes
// dangle after Close; it is the caller's responsibility that none are
// still in use.
func (p *Pile) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	runtime.SetFinalizer(p, nil)
	for _, old := range p.retired {
		if err := old.Unmap(); err != nil {
			return err
		}
	}
	p.retired = nil
	if p.mm != nil {
		if err := p.mm.Unmap(); err != nil {
			return err
		}
		p.mm = nil
	}
	return p.file.Close()
}

// AppliedLength reports the file offset up to which records have been
// validated and indexed; everything at or beyond it is unapplied tail.
func (p *Pile) AppliedLength() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.appliedLength
}

// Flush persists every write issued so far to stable storage. Branch
// and blob writes are visible to Refresh immediately but are not
// durable across a crash until Flush returns.
func (p *Pile) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.file.Sync()
}

// Refresh applies every record appended to the file since the last
// refresh, under a shared advisory lock so it cannot race a concurrent
// Restore's truncation.
func (p *Pile) Refresh() error {
	if err := p.lock.RLock(); err != nil {
		return err
	}
	p.mu.Lock()
	err := p.refreshLocked()
	p.mu.Unlock()
	unlockErr := p.lock.Unlock()
	if err != nil {
		return err
	}
	return unlockErr
}

// refreshLocked applies every pending record; callers must already
// hold both the advisory file lock (shared is enough, since it only
// ever reads and extends appliedLength forward) and p.mu.
func (p *Pile) refreshLocked() error {
	for {
		applied, err := p.applyNext()
		if err != nil {
			return err
		}
		if !applied {
			return nil
		}
	}
}

// applyNext maps in and applies the single next record past
// appliedLength, reporting whether one was found.
func (p *Pile) applyNext() (bool, error) {
	info, err := p.file.Stat()
	if err != nil {
		return false, err
	}
	fileLen := info.Size()
	if fileLen < p.appliedLength {
		log.Crit("pile file shrank below its already-applied prefix, previously mapped bytes would dangle",
			"path", p.path, "appliedLength", p.appliedLength, "fileLength", fileLen)
	}
	if fileLen == p.appliedLength {
		return false, nil
	}
	if err := p.ensureMapped(fileLen); err != nil {
		return false, err
	}

	start := p.appliedLength
	tail := p.mm[start:fileLen]
	if len(tail) < 16 {
		return false, &ErrCorrupt{ValidLength: start}
	}
	var magic [16]byte
	copy(magic[:], tail[:16])

	switch magic {
	case magicMarkerBlob:
		return true, p.applyBlobRecord(start, tail)
	case magicMarkerBranch:
		return true, p.applyBranchRecord(start, tail)
	default:
		return false, &ErrCorrupt{ValidLength: start}
	}
}

func (p *Pile) applyBlobRecord(start int64, tail []byte) error {
	if len(tail) < blobHeaderLen {
		return &ErrCorrupt{ValidLength: start}
	}
	length := binary.LittleEndian.Uint64(tail[24:32])
	timestamp := binary.LittleEndian.Uint64(tail[16:24])
	var hash blob.Hash
	copy(hash[:], tail[32:64])

	// A length the tail cannot possibly hold covers both a partial
	// append and a header whose length field is garbage large enough
	// to overflow the offset arithmetic below.
	if length > uint64(len(tail)-blobHeaderLen) {
		return &ErrCorrupt{ValidLength: start}
	}
	pad := paddingFor(int(length))
	total := blobHeaderLen + int(length) + pad
	if len(tail) < total {
		return &ErrCorrupt{ValidLength: start}
	}

	dataOffset := int(start) + blobHeaderLen
	if existing, ok := p.blobs.Get(hash.Bytes()); ok {
		entry := existing.(*indexEntry)
		if entry.state == stateUnknown {
			if p.hashPayload(entry) == hash {
				entry.state = stateValidated
			} else {
				entry.state = stateInvalid
			}
		}
		if entry.state == stateInvalid {
			p.blobs.Remove(hash.Bytes())
			p.blobs.Insert(hash.Bytes(), &indexEntry{offset: dataOffset, length: length, timestamp: timestamp, state: stateUnknown})
		}
	} else {
		p.blobs.Insert(hash.Bytes(), &indexEntry{offset: dataOffset, length: length, timestamp: timestamp, state: stateUnknown})
	}

	p.appliedLength = start + int64(total)
	return nil
}

func (p *Pile) applyBranchRecord(start int64, tail []byte) error {
	if len(tail) < branchHeaderLen {
		return &ErrCorrupt{ValidLength: start}
	}
	var id [16]byte
	copy(id[:], tail[16:32])
	if id == [16]byte{} {
		return &ErrCorrupt{ValidLength: start}
	}
	var hash blob.Hash
	copy(hash[:], tail[32:64])

	p.branches.Remove(id[:])
	p.branches.Insert(id[:], hash)

	p.appliedLength = start + branchHeaderLen
	return nil
}

func (p *Pile) hashPayload(e *indexEntry) blob.Hash {
	return blob.HashOf(p.mm[e.offset : e.offset+int(e.length)])
}

// ensureMapped grows the memory mapping to cover at least fileLen
// bytes, doubling its size each time rather than mapping exactly
// fileLen so that a steady stream of small appends does not remap on
// every single one. The superseded mapping is retired, never unmapped
// here: slices into it may still be held by callers of GetBytes, and
// doubling bounds the number of stale regions a pile can accumulate by
// the log of its final size.
func (p *Pile) ensureMapped(fileLen int64) error {
	if int64(len(p.mm)) >= fileLen {
		return nil
	}
	size := int64(len(p.mm))
	if size == 0 {
		size = blobAlignment
	}
	for size < fileLen {
		size *= 2
	}
	mm, err := mmap.MapRegion(p.file, int(size), mmap.RDONLY, 0, 0)
	if err != nil {
		return err
	}
	if p.mm != nil {
		p.retired = append(p.retired, p.mm)
	}
	p.mm = mm
	return nil
}

// Restore attempts a normal Refresh; if it finds a corrupt or partial
// tail record, it escalates to an exclusive lock, confirms the
// corruption is still present (another process may have completed the
// write first) and, if so, truncates the file back to the last
// fully-applied offset. Restore never discards a record Refresh has
// already applied.
func (p *Pile) Restore() error {
	err := p.Refresh()
	if err == nil {
		return nil
	}
	corrupt, ok := err.(*ErrCorrupt)
	if !ok {
		return err
	}
	if err := p.lock.Lock(); err != nil {
		return err
	}
	defer p.lock.Unlock()

	p.mu.Lock()
	rerr := p.refreshLocked()
	p.mu.Unlock()
	if rerr == nil {
		return nil
	}
	corrupt, ok = rerr.(*ErrCorrupt)
	if !ok {
		return rerr
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.file.Truncate(corrupt.ValidLength); err != nil {
		return err
	}
	if err := p.file.Sync(); err != nil {
		return err
	}
	p.appliedLength = corrupt.ValidLength
	log.Warn("pile truncated to last valid record", "path", p.path, "validLength", corrupt.ValidLength)
	return nil
}
