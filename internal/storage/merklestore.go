package storage

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/pkg/types"
)

// KVMerkleStore adapts any Database into a merkle.Store, using the UTXO tree
// node key format "{tree}:{level}:{index}".
type KVMerkleStore struct {
	db Database
}

// NewKVMerkleStore wraps db as a merkle.Store.
func NewKVMerkleStore(db Database) *KVMerkleStore {
	return &KVMerkleStore{db: db}
}

var _ merkle.Store = (*KVMerkleStore)(nil)

func nodeKey(tree uint32, level uint8, index uint64) string {
	return fmt.Sprintf("%d:%d:%d", tree, level, index)
}

func rootKey(tree uint32) string {
	return fmt.Sprintf("%d:root", tree)
}

func lengthKey(tree uint32) string {
	return fmt.Sprintf("%d:length", tree)
}

func (s *KVMerkleStore) Node(ctx context.Context, tree uint32, level uint8, index uint64) (types.FE, bool, error) {
	v, ok, err := s.db.Get(ctx, nodeKey(tree, level, index))
	if err != nil || !ok {
		return types.FE{}, ok, err
	}
	return types.FEFromBytes(v), true, nil
}

func (s *KVMerkleStore) SetNode(ctx context.Context, tree uint32, level uint8, index uint64, value types.FE) error {
	return s.db.Put(ctx, nodeKey(tree, level, index), value.Bytes())
}

func (s *KVMerkleStore) Root(ctx context.Context, tree uint32) (types.FE, bool, error) {
	v, ok, err := s.db.Get(ctx, rootKey(tree))
	if err != nil || !ok {
		return types.FE{}, ok, err
	}
	return types.FEFromBytes(v), true, nil
}

func (s *KVMerkleStore) SetRoot(ctx context.Context, tree uint32, root types.FE) error {
	return s.db.Put(ctx, rootKey(tree), root.Bytes())
}

func (s *KVMerkleStore) Length(ctx context.Context, tree uint32) (uint64, error) {
	v, ok, err := s.db.Get(ctx, lengthKey(tree))
	if err != nil || !ok {
		return 0, err
	}
	return binary.BigEndian.Uint64(v), nil
}

func (s *KVMerkleStore) SetLength(ctx context.Context, tree uint32, length uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], length)
	return s.db.Put(ctx, lengthKey(tree), b[:])
}
