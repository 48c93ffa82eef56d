// Package memory provides an in-memory content-addressed blob store.
//
// Blobs are addressed by the hex merkle root of their content (see the
// merkle package). The store is primarily useful in tests and as a
// staging tier.
package memory

import (
	"context"
	"sync"

	"github.com/meigma/far/merkle"
	"github.com/meigma/far/store"
)

// Store holds blobs in memory, keyed by content root.
type Store struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// Interface compliance.
var _ store.Store = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put stores content and returns its content root. The slice is
// retained; callers must not modify it afterwards.
func (s *Store) Put(content []byte) string {
	root := merkle.RootHex(merkle.RootFromBytes(content))
	s.mu.Lock()
	s.blobs[root] = content
	s.mu.Unlock()
	return root
}

// Open returns the blob for root.
func (s *Store) Open(_ context.Context, root string) (store.Blob, error) {
	if _, err := merkle.ParseRoot(root); err != nil {
		return nil, store.ErrInvalidRoot
	}
	s.mu.RLock()
	content, ok := s.blobs[root]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrNotFound
	}
	return store.BytesBlob(root, content), nil
}

// Has reports whether a blob for root is present.
func (s *Store) Has(_ context.Context, root string) (bool, error) {
	s.mu.RLock()
	_, ok := s.blobs[root]
	s.mu.RUnlock()
	return ok, nil
}

// Len returns the number of stored blobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
