// Package storage implements the key/value database abstraction:
// a single Database contract with three behavior-equivalent backends
// (durable, session-scoped, volatile), plus adapters that let the Merkle-tree
// packages use any backend as their node store. Keys are colon-separated
// strings, most with a network-qualified prefix (KVMerkleStore's node keys
// and internal/sentoutput's wallet-address keys are not); this package does not interpret key contents, it only stores and
// retrieves them.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound names a missing key. None of this package's backends returns
// it: their Get reports a missing key as ok=false with a nil error.
// ErrNotFound exists for callers that wrap a Database and want an error value
// for that case (e.g. for errors.Is chains).
var ErrNotFound = errors.New("storage: key not found")

// OpType distinguishes the two operations a Batch can contain.
type OpType uint8

const (
	OpPut OpType = iota
	OpDelete
)

// Op is one write in an atomically-applied batch.
type Op struct {
	Type  OpType
	Key   string
	Value []byte
}

// PutOp builds a put operation.
func PutOp(key string, value []byte) Op { return Op{Type: OpPut, Key: key, Value: value} }

// DeleteOp builds a delete operation.
func DeleteOp(key string) Op { return Op{Type: OpDelete, Key: key} }

// Database is the storage contract every backend implements.
// All three backends are behavior-equivalent modulo durability: the same
// sequence of calls against any of them must observe the same key/value
// state.
type Database interface {
	// Get returns the value stored at k, or ok=false if k is unset.
	Get(ctx context.Context, k string) (value []byte, ok bool, err error)
	// Put writes a single key unconditionally.
	Put(ctx context.Context, k string, v []byte) error
	// Batch applies ops atomically, in order, on this backend.
	Batch(ctx context.Context, ops []Op) error
	// Keys returns every key currently under prefix. This may be expensive on
	// the durable backend; callers must not call it inside hot loops.
	Keys(ctx context.Context, prefix string) ([]string, error)
	// Close releases any resources the backend holds open.
	Close() error
}
