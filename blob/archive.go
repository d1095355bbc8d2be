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

import (
	"fmt"

	"github.com/triblespace/tribles-go/trible"
	"github.com/triblespace/tribles-go/tribleset"
)

// SimpleArchive marks a Handle and a byte payload as the flat,
// deterministic encoding of a TribleSet: every stored trible's 64
// bytes, back to back, in ascending EAV tree order. It carries no
// index and no compression, trading size for being as simple as
// possible to produce and to verify against its own content hash; it
// is what every commit and branch metadata blob is encoded as.
type SimpleArchive struct{}

// EncodeTribleSet serializes set as a SimpleArchive payload.
func EncodeTribleSet(set *tribleset.TribleSet) []byte {
	out := make([]byte, 0, set.Len()*64)
	set.EachSorted(func(t trible.T) {
		out = append(out, t[:]...)
	})
	return out
}

// DecodeTribleSet parses a SimpleArchive payload back into a
// TribleSet.
func DecodeTribleSet(payload []byte) (*tribleset.TribleSet, error) {
	if len(payload)%64 != 0 {
		return nil, fmt.Errorf("blob: SimpleArchive payload length %d is not a multiple of 64", len(payload))
	}
	out := tribleset.New()
	for i := 0; i+64 <= len(payload); i += 64 {
		var t trible.T
		copy(t[:], payload[i:i+64])
		out.Insert(t)
	}
	return out, nil
}
