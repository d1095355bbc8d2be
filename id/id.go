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

// Package id implements the 16-byte entity and attribute identifiers
// tribles are keyed by, and the generators that mint them.
package id

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ID is a 16-byte non-nil identifier. The all-zero value is reserved as
// the nil sentinel and must never be minted by a generator.
type ID [16]byte

// Nil is the reserved all-zero sentinel identifier.
var Nil ID

// IsNil reports whether id is the all-zero sentinel.
func (id ID) IsNil() bool { return id == Nil }

func (id ID) String() string {
	return fmt.Sprintf("%032x", [16]byte(id))
}

// held tracks which ids currently have a live ExclusiveId in this
// process, mirroring the "at most one ExclusiveId per id" invariant:
// minting a second exclusive token for an id already held is a logic
// error, not a recoverable one.
var held sync.Map // ID -> struct{}

// ExclusiveId is a pointer-sized token authorizing trible and
// workspace construction against a specific id. At most one
// ExclusiveId per id exists at a time in this process.
type ExclusiveId struct {
	id       ID
	released int32
}

// Acquire mints the exclusive token for id. It panics if id is nil or
// already held: both are invariant violations, not ordinary errors.
func Acquire(id ID) *ExclusiveId {
	if id.IsNil() {
		panic("id: cannot exclusively hold the nil id")
	}
	if _, alreadyHeld := held.LoadOrStore(id, struct{}{}); alreadyHeld {
		panic(fmt.Sprintf("id: %s is already exclusively held", id))
	}
	return &ExclusiveId{id: id}
}

// ID returns the identifier this token authorizes.
func (e *ExclusiveId) ID() ID { return e.id }

// Release frees id for a future Acquire. Releasing a token twice is a
// no-op.
func (e *ExclusiveId) Release() {
	if atomic.CompareAndSwapInt32(&e.released, 0, 1) {
		held.Delete(e.id)
	}
}

// New mints a pure-random id via google/uuid, suitable when no
// monotonic or process-local structure is wanted.
func New() ID {
	u := uuid.New()
	var out ID
	copy(out[:], u[:])
	return out
}

// NewUFOID mints a "monotonic-time + random" id: a 4-byte big-endian
// second-resolution timestamp followed by 12 random bytes, so ids
// minted later sort after ids minted earlier while remaining collision
// resistant within a second.
func NewUFOID() ID {
	var out ID
	binary.BigEndian.PutUint32(out[0:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(out[4:16]); err != nil {
		panic("id: failed to read randomness for UFOID: " + err.Error())
	}
	return out
}

// fucidCounter and fucidSalt back NewFUCID: a process-wide monotonic
// counter XORed with a salt chosen once at process start, so ids
// minted by this process are both distinct from each other and
// unlinkable to ids minted by another process sharing the same counter
// start value.
var (
	fucidCounter  uint64
	fucidSaltOnce sync.Once
	fucidSalt     [16]byte
)

func ensureFucidSalt() {
	fucidSaltOnce.Do(func() {
		if _, err := rand.Read(fucidSalt[:]); err != nil {
			panic("id: failed to seed FUCID salt: " + err.Error())
		}
	})
}

// NewFUCID mints a "process-counter + salt" id.
func NewFUCID() ID {
	ensureFucidSalt()
	counter := atomic.AddUint64(&fucidCounter, 1)
	var counterBytes [16]byte
	binary.BigEndian.PutUint64(counterBytes[8:16], counter)
	var out ID
	for i := range out {
		out[i] = counterBytes[i] ^ fucidSalt[i]
	}
	return out
}
