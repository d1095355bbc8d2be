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

package reach

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/triblespace/tribles-go/blob"
)

// remoteRequest/remoteResponse and remoteStore below are a minimal,
// in-process stand-in for a networked blob.Store: a method call turned
// into a request value sent down a channel to a handler goroutine,
// rather than a direct function call, since every Transfer target in
// production is reached that way, not by a shared in-process pointer.
// It is illustrative only; a real remote backend lives outside this
// module.
type remoteRequest struct {
	hash  blob.Hash
	value []byte
	reply chan remoteResponse
}

type remoteResponse struct {
	value []byte
	hash  blob.Hash
	err   error
}

type remoteStore struct {
	requests chan remoteRequest
}

func newRemoteStore(backing *blob.Memory) *remoteStore {
	s := &remoteStore{requests: make(chan remoteRequest)}
	go func() {
		for req := range s.requests {
			if req.value != nil {
				h, err := backing.PutBytes(req.value)
				req.reply <- remoteResponse{hash: h, err: err}
				continue
			}
			v, err := backing.GetBytes(req.hash)
			req.reply <- remoteResponse{value: v, err: err}
		}
	}()
	return s
}

func (s *remoteStore) HasBytes(h blob.Hash) bool {
	_, err := s.GetBytes(h)
	return err == nil
}

func (s *remoteStore) GetBytes(h blob.Hash) ([]byte, error) {
	reply := make(chan remoteResponse, 1)
	s.requests <- remoteRequest{hash: h, reply: reply}
	resp := <-reply
	return resp.value, resp.err
}

func (s *remoteStore) PutBytes(payload []byte) (blob.Hash, error) {
	reply := make(chan remoteResponse, 1)
	s.requests <- remoteRequest{value: payload, reply: reply}
	resp := <-reply
	return resp.hash, resp.err
}

func (s *remoteStore) ListBytes(fn func(blob.Hash)) {}

func TestTransferAcrossStoreImplementations(t *testing.T) {
	source := blob.NewMemory()
	target := newRemoteStore(blob.NewMemory())

	var handles []blob.Hash
	for i := 0; i < 5; i++ {
		h, err := source.PutBytes([]byte(fmt.Sprintf("payload-%d", i)))
		require.NoError(t, err)
		handles = append(handles, h)
	}

	pairs, err := Transfer(source, target, handles)
	require.NoError(t, err)
	require.Len(t, pairs, len(handles))

	for _, pair := range pairs {
		require.Equal(t, pair.Source, pair.Target, "both stores hash under BLAKE3, handles must agree")
		want, err := source.GetBytes(pair.Source)
		require.NoError(t, err)
		got, err := target.GetBytes(pair.Target)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestReachableWalksEmbeddedHandles(t *testing.T) {
	store := blob.NewMemory()
	leaf, err := store.PutBytes([]byte("leaf payload"))
	require.NoError(t, err)

	parentPayload := leaf.Bytes()
	parent, err := store.PutBytes(parentPayload)
	require.NoError(t, err)

	got := Reachable(store, []blob.Hash{parent})
	require.ElementsMatch(t, []blob.Hash{parent, leaf}, got)
}
