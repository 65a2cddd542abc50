package merkle

import (
	"context"
	"sync"

	"github.com/privacypool/engine/pkg/types"
)

type nodeKey struct {
	tree  uint32
	level uint8
	index uint64
}

// MemStore is an in-process Store — useful for tests and for the
// volatile storage backend.
type MemStore struct {
	mu      sync.RWMutex
	nodes   map[nodeKey]types.FE
	roots   map[uint32]types.FE
	lengths map[uint32]uint64
}

// NewMemStore constructs an empty in-memory Store.
func NewMemStore() *MemStore {
	return &MemStore{
		nodes:   make(map[nodeKey]types.FE),
		roots:   make(map[uint32]types.FE),
		lengths: make(map[uint32]uint64),
	}
}

func (s *MemStore) Node(_ context.Context, tree uint32, level uint8, index uint64) (types.FE, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.nodes[nodeKey{tree, level, index}]
	return v, ok, nil
}

func (s *MemStore) SetNode(_ context.Context, tree uint32, level uint8, index uint64, value types.FE) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes[nodeKey{tree, level, index}] = value
	return nil
}

func (s *MemStore) Root(_ context.Context, tree uint32) (types.FE, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.roots[tree]
	return v, ok, nil
}

func (s *MemStore) SetRoot(_ context.Context, tree uint32, root types.FE) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roots[tree] = root
	return nil
}

func (s *MemStore) Length(_ context.Context, tree uint32) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lengths[tree], nil
}

func (s *MemStore) SetLength(_ context.Context, tree uint32, length uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lengths[tree] = length
	return nil
}
