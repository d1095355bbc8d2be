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

// Package siphash128 implements the SipHash-2-4 keyed pseudorandom
// function with the 128-bit ("sip128") finalization described by the
// reference siphash C implementation. It backs patch's incrementally
// maintained subtree hash (see Patch.Hash) and is never used outside
// a single process: no compatibility with any other SipHash
// implementation or language binding is implied or required.
package siphash128

import "encoding/binary"

// Key is the 128-bit key seeded once per process at first use.
type Key struct {
	K0, K1 uint64
}

const (
	initV0 = 0x736f6d6570736575
	initV1 = 0x646f72616e646f6d
	initV2 = 0x6c7967656e657261
	initV3 = 0x7465646279746573
)

func rotl(x uint64, b uint) uint64 {
	return (x << b) | (x >> (64 - b))
}

func sipRound(v0, v1, v2, v3 *uint64) {
	*v0 += *v1
	*v1 = rotl(*v1, 13)
	*v1 ^= *v0
	*v0 = rotl(*v0, 32)

	*v2 += *v3
	*v3 = rotl(*v3, 16)
	*v3 ^= *v2

	*v0 += *v3
	*v3 = rotl(*v3, 21)
	*v3 ^= *v0

	*v2 += *v1
	*v1 = rotl(*v1, 17)
	*v1 ^= *v2
	*v2 = rotl(*v2, 32)
}

// Sum128 computes the keyed 128-bit SipHash-2-4 of data, returning the
// (low, high) 64-bit halves as produced by the sip128 construction: the
// low half comes from finalizing after v2 ^= 0xee, the high half
// continues finalizing the same state after v1 ^= 0xdd.
func Sum128(key Key, data []byte) (lo, hi uint64) {
	v0 := initV0 ^ key.K0
	v1 := initV1 ^ key.K1
	v2 := initV2 ^ key.K0
	v3 := initV3 ^ key.K1

	// Mark the 128-bit variant, per the reference sip128 construction.
	v1 ^= 0xee

	length := len(data)
	end := length - (length % 8)

	for i := 0; i < end; i += 8 {
		m := binary.LittleEndian.Uint64(data[i : i+8])
		v3 ^= m
		sipRound(&v0, &v1, &v2, &v3)
		sipRound(&v0, &v1, &v2, &v3)
		v0 ^= m
	}

	var last [8]byte
	copy(last[:], data[end:])
	last[7] = byte(length)
	m := binary.LittleEndian.Uint64(last[:])
	v3 ^= m
	sipRound(&v0, &v1, &v2, &v3)
	sipRound(&v0, &v1, &v2, &v3)
	v0 ^= m

	// First finalization: produces the low 64 bits.
	v2 ^= 0xee
	sipRound(&v0, &v1, &v2, &v3)
	sipRound(&v0, &v1, &v2, &v3)
	sipRound(&v0, &v1, &v2, &v3)
	sipRound(&v0, &v1, &v2, &v3)
	lo = v0 ^ v1 ^ v2 ^ v3

	// Second finalization: continues the state to produce the high bits.
	v1 ^= 0xdd
	sipRound(&v0, &v1, &v2, &v3)
	sipRound(&v0, &v1, &v2, &v3)
	sipRound(&v0, &v1, &v2, &v3)
	sipRound(&v0, &v1, &v2, &v3)
	hi = v0 ^ v1 ^ v2 ^ v3

	return lo, hi
}
