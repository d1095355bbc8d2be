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

// Package bytetable implements the 2-way bucketed cuckoo hash table that
// backs every patch branch node: a fixed-shape table of 2..256 slots
// mapping a single byte key to a child slot, sized as the smallest power
// of two greater than or equal to its occupant count.
//
// Two hash functions drive placement: a "cheap" identity hash, which
// guarantees that once a table is fully grown every entry lands in its
// own k/2-th bucket, and a random bijective byte permutation that
// absorbs collisions at intermediate sizes. Both are process-wide,
// lazily seeded behind a sync.Once rather than per-instance (see also
// patch's siphash key).
package bytetable

import (
	"crypto/rand"
	"math/bits"
	"sync"
)

const (
	bucketEntries = 2
	minSlots      = 2
	maxSlots      = 256
	maxRetries    = 4
)

var (
	initOnce     sync.Once
	randPermHash [256]byte
	randPermRand [256]byte
)

func ensureInit() {
	initOnce.Do(func() {
		for i := range randPermHash {
			randPermHash[i] = byte(i)
		}
		shuffle(randPermHash[:])
		for i := range randPermRand {
			randPermRand[i] = byte(i)
		}
		shuffle(randPermRand[:])
	})
}

func shuffle(b []byte) {
	var buf [1]byte
	for i := len(b) - 1; i > 0; i-- {
		if _, err := rand.Read(buf[:]); err != nil {
			panic("bytetable: failed to read randomness: " + err.Error())
		}
		j := int(buf[0]) % (i + 1)
		b[i], b[j] = b[j], b[i]
	}
}

func cheapHash(key byte) byte { return key }

func randHash(key byte) byte {
	ensureInit()
	return randPermHash[key]
}

func compressHash(slotCount int, hash byte) byte {
	bucketCount := byte(slotCount / bucketEntries)
	mask := bucketCount - 1
	return hash & mask
}

// rngState is the process-wide "random-byte register" used to pick a
// victim slot during cuckoo displacement. It is intentionally a simple
// permutation walk rather than a call into a full PRNG per displacement:
// displacement is on the hot insert path and only needs to be
// unpredictable, not cryptographically random.
var rngState struct {
	mu   sync.Mutex
	byte byte
}

func init() {
	rngState.byte = 4 // chosen by fair dice roll.
}

func nextRand(byteKey byte) byte {
	ensureInit()
	rngState.mu.Lock()
	rngState.byte = randPermRand[rngState.byte^byteKey]
	v := rngState.byte
	rngState.mu.Unlock()
	return v
}

// Entry is any fixed-shape value a Table can store. ByteKey returns the
// key the table places it by; IsEmpty reports whether a value is an
// empty slot rather than a real entry, and Empty produces that empty
// value. The table asks the caller how to recognize "empty" instead of
// requiring T to be nilable.
type Entry[T any] interface {
	ByteKey(T) byte
	Empty() T
	IsEmpty(T) bool
}

// Table is a 2-way bucketed cuckoo hash table of slots holding values of
// type T, sized as a power of two between 2 and 256.
type Table[T any] struct {
	ops   Entry[T]
	slots []T
}

// New creates a table with the minimum size (2 slots, 1 bucket).
func New[T any](ops Entry[T]) *Table[T] {
	ensureInit()
	slots := make([]T, minSlots)
	for i := range slots {
		slots[i] = ops.Empty()
	}
	return &Table[T]{ops: ops, slots: slots}
}

// Len returns the number of slots (the table's size), a power of two in
// [2, 256].
func (t *Table[T]) Len() int { return len(t.slots) }

// Clone returns a deep copy of the table (used by branch copy-on-write).
func (t *Table[T]) Clone() *Table[T] {
	slots := make([]T, len(t.slots))
	copy(slots, t.slots)
	return &Table[T]{ops: t.ops, slots: slots}
}

func (t *Table[T]) bucket(index byte) []T {
	lo := int(index) * bucketEntries
	return t.slots[lo : lo+bucketEntries]
}

// Get returns the entry stored under byteKey, if any.
func (t *Table[T]) Get(byteKey byte) (T, bool) {
	cheap := compressHash(len(t.slots), cheapHash(byteKey))
	for _, e := range t.bucket(cheap) {
		if !t.ops.IsEmpty(e) && t.ops.ByteKey(e) == byteKey {
			return e, true
		}
	}
	rnd := compressHash(len(t.slots), randHash(byteKey))
	for _, e := range t.bucket(rnd) {
		if !t.ops.IsEmpty(e) && t.ops.ByteKey(e) == byteKey {
			return e, true
		}
	}
	var zero T
	return zero, false
}

// Delete removes and returns the entry stored under byteKey, if any.
func (t *Table[T]) Delete(byteKey byte) (T, bool) {
	cheap := compressHash(len(t.slots), cheapHash(byteKey))
	bucket := t.bucket(cheap)
	for i, e := range bucket {
		if !t.ops.IsEmpty(e) && t.ops.ByteKey(e) == byteKey {
			old := e
			bucket[i] = t.ops.Empty()
			return old, true
		}
	}
	rnd := compressHash(len(t.slots), randHash(byteKey))
	bucket = t.bucket(rnd)
	for i, e := range bucket {
		if !t.ops.IsEmpty(e) && t.ops.ByteKey(e) == byteKey {
			old := e
			bucket[i] = t.ops.Empty()
			return old, true
		}
	}
	var zero T
	return zero, false
}

// Replace overwrites the entry stored under the same byte key as
// newValue, which must already be present. Used to update a child slot
// in place without touching the cuckoo placement.
func (t *Table[T]) Replace(newValue T) {
	byteKey := t.ops.ByteKey(newValue)
	cheap := compressHash(len(t.slots), cheapHash(byteKey))
	bucket := t.bucket(cheap)
	for i, e := range bucket {
		if !t.ops.IsEmpty(e) && t.ops.ByteKey(e) == byteKey {
			bucket[i] = newValue
			return
		}
	}
	rnd := compressHash(len(t.slots), randHash(byteKey))
	bucket = t.bucket(rnd)
	for i, e := range bucket {
		if !t.ops.IsEmpty(e) && t.ops.ByteKey(e) == byteKey {
			bucket[i] = newValue
			return
		}
	}
	panic("bytetable: Replace called for a key not present")
}

// Insert places a new entry (whose key must not already be present) into
// the table. On success it returns ok=true. If the table cannot absorb
// the insert without growing, it returns ok=false together with the
// entry displaced by the cuckoo shoves so far — not necessarily the one
// passed in — which the caller must Insert again after a Grow. Entries
// already swapped into place during the shoves stay in the table.
func (t *Table[T]) Insert(entry T) (displacedOut T, ok bool) {
	byteKey := t.ops.ByteKey(entry)
	tableSize := len(t.slots)
	maxGrown := tableSize == maxSlots
	minGrown := tableSize == minSlots

	useCheap := true
	retries := 0
	for {
		_ = nextRand(byteKey)

		var hash byte
		if useCheap {
			hash = cheapHash(byteKey)
		} else {
			hash = randHash(byteKey)
		}
		bucketIndex := compressHash(tableSize, hash)
		bucket := t.bucket(bucketIndex)

		if _, shoved := shoveEmpty(t.ops, bucket, entry); shoved {
			var zero T
			return zero, true
		}

		if minGrown || retries == maxRetries {
			return entry, false
		}

		if maxGrown {
			displaced, found := shoveExpensive(t.ops, bucket, tableSize, bucketIndex, entry)
			if !found {
				var zero T
				return zero, true
			}
			entry = displaced
			byteKey = t.ops.ByteKey(entry)
		} else {
			retries++
			entry = shoveRandom(bucket, entry)
			byteKey = t.ops.ByteKey(entry)
			useCheap = bucketIndex != compressHash(tableSize, cheapHash(byteKey))
		}
	}
}

// shoveEmpty places entry into the first empty slot of bucket, returning
// (entry, false) unchanged if the bucket is full.
func shoveEmpty[T any](ops Entry[T], bucket []T, entry T) (T, bool) {
	for i, e := range bucket {
		if ops.IsEmpty(e) {
			bucket[i] = entry
			return entry, true
		}
	}
	return entry, false
}

// shoveRandom unconditionally displaces a pseudo-random slot in bucket,
// returning the evicted entry.
func shoveRandom[T any](bucket []T, entry T) T {
	rngState.mu.Lock()
	idx := int(rngState.byte) & (bucketEntries - 1)
	rngState.mu.Unlock()
	old := bucket[idx]
	bucket[idx] = entry
	return old
}

// shoveExpensive displaces the one slot (there must be one, once the
// table is maximally grown) whose cheap hash does not match this bucket,
// returning (evicted, true), or places entry in a genuinely empty slot
// and returns (entry, false) to signal completion.
func shoveExpensive[T any](ops Entry[T], bucket []T, slotCount int, bucketIndex byte, entry T) (T, bool) {
	for i, e := range bucket {
		if ops.IsEmpty(e) {
			bucket[i] = entry
			return entry, false
		}
		entryHash := compressHash(slotCount, cheapHash(ops.ByteKey(e)))
		if bucketIndex != entryHash {
			old := e
			bucket[i] = entry
			return old, true
		}
	}
	// Unreachable if the branch byte-table invariant holds (every bucket
	// has a non-cheap-hashed occupant once fully grown).
	return entry, false
}

// Grow returns a new table of double the size with every entry
// redistributed. Per entry, only the compressed hash needs recomputing:
// an entry either keeps its lower-half bucket or moves to the same
// bucket offset in the upper half.
func (t *Table[T]) Grow() *Table[T] {
	grownSize := len(t.slots) * 2
	grown := make([]T, grownSize)
	for i := range grown {
		grown[i] = t.ops.Empty()
	}
	bucketsLen := len(t.slots) / bucketEntries
	for bucketIndex := 0; bucketIndex < bucketsLen; bucketIndex++ {
		for _, e := range t.bucket(byte(bucketIndex)) {
			if t.ops.IsEmpty(e) {
				continue
			}
			byteKey := t.ops.ByteKey(e)
			cheapIdx := compressHash(grownSize, cheapHash(byteKey))
			randIdx := compressHash(grownSize, randHash(byteKey))

			var target []T
			if int(cheapIdx) == bucketIndex || int(randIdx) == bucketIndex {
				target = grown[bucketIndex*bucketEntries : (bucketIndex+1)*bucketEntries]
			} else {
				upperBase := len(t.slots)
				target = grown[upperBase+bucketIndex*bucketEntries : upperBase+(bucketIndex+1)*bucketEntries]
			}
			if _, ok := shoveEmpty(t.ops, target, e); !ok {
				panic("bytetable: grow invariant violated, no empty slot in target bucket")
			}
		}
	}
	return &Table[T]{ops: t.ops, slots: grown}
}

// Tag returns log2(size), matching the patch head tag encoding
// (Branch2..Branch256 stores log2(table size)).
func (t *Table[T]) Tag() uint8 {
	return uint8(bits.Len(uint(len(t.slots))) - 1)
}

// Each calls fn for every occupied slot, in underlying slot order
// (unordered with respect to key value).
func (t *Table[T]) Each(fn func(T)) {
	for _, e := range t.slots {
		if !t.ops.IsEmpty(e) {
			fn(e)
		}
	}
}

// Count returns the number of occupied slots.
func (t *Table[T]) Count() int {
	n := 0
	for _, e := range t.slots {
		if !t.ops.IsEmpty(e) {
			n++
		}
	}
	return n
}
