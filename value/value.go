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

// Package value implements the fixed-width, schema-tagged payload type
// every trible's 32-byte value field holds, and the content-addressed
// Handle built on top of it.
package value

// Value is a 32-byte payload phantom-typed by a marker schema S: every
// bit pattern is a storable Value, and S exists purely so the Go type
// checker keeps values of unrelated schemas from being mixed up. S
// carries no data of its own; it is instantiated only as a type
// parameter, never as a value.
type Value[S any] [32]byte

// Bytes returns the value's raw 32 bytes.
func (v Value[S]) Bytes() []byte { return v[:] }

// FromBytes builds a Value[S] from the first 32 bytes of b.
func FromBytes[S any](b []byte) Value[S] {
	var v Value[S]
	copy(v[:], b)
	return v
}

// Validator is an optional schema-level predicate a Value must satisfy
// to be considered well-formed under S; most schemas have none, since
// every bit pattern of a Value is technically storable.
type Validator[S any] func(Value[S]) bool

// Handle is a Value whose bytes are the content hash, under hash
// protocol H, of a blob of schema S. Handles are transmutable to and
// from raw Values of the same underlying width.
type Handle[H any, S any] Value[S]

// Bytes returns the handle's raw hash bytes.
func (h Handle[H, S]) Bytes() []byte { return h[:] }

// AsValue reinterprets h as a plain Value[S], the schema of the blob it
// addresses rather than of the handle itself.
func (h Handle[H, S]) AsValue() Value[S] { return Value[S](h) }

// HandleFromValue reinterprets a raw Value[S] as a Handle[H, S] without
// copying, e.g. after reading one back out of a trible.
func HandleFromValue[H any, S any](v Value[S]) Handle[H, S] { return Handle[H, S](v) }

// Blake3 marks a Handle's hash protocol as BLAKE3, the content hash
// used throughout the pile and repository layers.
type Blake3 struct{}
