// Package merkle implements the UTXO commitment accumulator: a forest of
// fixed-depth, Poseidon-hashed, append-only trees, inserted into via queued
// batches and flushed level-by-level, generalized from an earlier
// sha256/depth-32 single-tree design to Poseidon/depth-16 over a numbered
// forest.
package merkle

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/pkg/types"
)

// Depth is the fixed UTXO tree depth.
const Depth = 16

// Capacity is the number of leaves a single numbered tree can hold.
const Capacity = 1 << Depth

var (
	// ErrBehindHead is returned by QueueLeaves when startIndex is below the
	// tree's already-flushed length.
	ErrBehindHead = errors.New("merkle: batch starting index is behind tree head")
	// ErrConflict is returned when a batch tries to overwrite an already
	// materially-written leaf with a different value.
	ErrConflict = errors.New("merkle: conflicting leaf value at already-written position")
	// ErrMissingSibling is returned only if a store read fails outright
	// (as opposed to a legitimate miss, which resolves to the zero constant).
	ErrMissingSibling = errors.New("merkle: store read failed while resolving sibling")
	// ErrTreeFull is returned when a batch would exceed a tree's capacity.
	ErrTreeFull = errors.New("merkle: batch exceeds tree capacity")
	// ErrInvalidProof describes a structurally malformed proof. No function in
	// this package returns it: Proof.Siblings is a fixed-size array.
	ErrInvalidProof = errors.New("merkle: proof has wrong number of siblings")
)

// Store persists tree nodes, roots, and per-tree lengths. Implementations are
// expected to key nodes by (tree, level, index) and may be backed by any of
// the three internal/storage backends.
type Store interface {
	Node(ctx context.Context, tree uint32, level uint8, index uint64) (types.FE, bool, error)
	SetNode(ctx context.Context, tree uint32, level uint8, index uint64, value types.FE) error
	Root(ctx context.Context, tree uint32) (types.FE, bool, error)
	SetRoot(ctx context.Context, tree uint32, root types.FE) error
	Length(ctx context.Context, tree uint32) (uint64, error)
	SetLength(ctx context.Context, tree uint32, length uint64) error
}

// Proof is an inclusion proof for one leaf of one tree.
type Proof struct {
	Leaf        types.FE
	Siblings    [Depth]types.FE
	IndicesBits types.FE // index serialized as a 32-byte big-endian integer
	Root        types.FE
}

type batch struct {
	startIndex uint64
	leaves     []types.FE
}

// Tree is a forest of numbered, depth-16 Poseidon Merkle trees sharing one
// backing store and one set of precomputed zero values.
type Tree struct {
	mu      sync.Mutex
	store   Store
	zero    [Depth + 1]types.FE
	pending map[uint32][]batch
}

// New constructs a Tree over store, precomputing the Z[0..Depth] zero values.
func New(store Store) (*Tree, error) {
	zero, err := computeZeroValues()
	if err != nil {
		return nil, err
	}
	return &Tree{
		store:   store,
		zero:    zero,
		pending: make(map[uint32][]batch),
	}, nil
}

func computeZeroValues() ([Depth + 1]types.FE, error) {
	var z [Depth + 1]types.FE
	z[0] = merkleZeroConstant()
	for i := 1; i <= Depth; i++ {
		h, err := crypto.PoseidonFE(z[i-1], z[i-1])
		if err != nil {
			return z, err
		}
		z[i] = h
	}
	return z, nil
}

// merkleZeroConstant derives Z[0], the leaf-level empty value, by reducing a
// fixed domain-separated hash into the BN254 scalar field — the same
// construction RAILGUN-shaped engines use to avoid an arbitrary small-integer
// zero value that might collide with a real commitment.
func merkleZeroConstant() types.FE {
	h := sha256.Sum256([]byte("railgun-engine/utxo-merkle-zero"))
	n := new(big.Int).SetBytes(h[:])
	n.Mod(n, fr.Modulus())
	return types.FEFromBigInt(n)
}

// ZeroLeafConstant exposes Z[0] for callers (e.g. the PPOI prover) that need
// to reproduce an empty-tree root of a different depth without constructing
// a Tree.
func ZeroLeafConstant() types.FE {
	return merkleZeroConstant()
}

// ZeroValue returns Z[level], the canonical value of a never-written node at
// the given level (0 = leaf).
func (t *Tree) ZeroValue(level int) types.FE {
	return t.zero[level]
}

// QueueLeaves queues a batch of leaves starting at startIndex for insertion
// into tree on the next Flush. Re-queuing the same startIndex before a flush
// replaces the earlier queued batch (idempotent); a startIndex already below
// the tree's flushed length is rejected.
func (t *Tree) QueueLeaves(ctx context.Context, tree uint32, startIndex uint64, leaves []types.FE) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(leaves) == 0 {
		return nil
	}
	if startIndex+uint64(len(leaves)) > Capacity {
		return ErrTreeFull
	}

	length, err := t.store.Length(ctx, tree)
	if err != nil {
		return err
	}
	if startIndex < length {
		return ErrBehindHead
	}

	queued := t.pending[tree]
	for i, b := range queued {
		if b.startIndex == startIndex {
			queued[i] = batch{startIndex: startIndex, leaves: leaves}
			return nil
		}
	}
	t.pending[tree] = append(queued, batch{startIndex: startIndex, leaves: leaves})
	return nil
}

// Flush processes every tree with pending batches, in ascending startIndex
// order per tree, writing nodes level 0..Depth to the store before moving to
// the next level.
func (t *Tree) Flush(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for tree, batches := range t.pending {
		sort.Slice(batches, func(i, j int) bool { return batches[i].startIndex < batches[j].startIndex })

		remaining := batches
		for len(remaining) > 0 {
			b := remaining[0]
			if err := t.applyBatch(ctx, tree, b); err != nil {
				t.pending[tree] = remaining
				return err
			}
			remaining = remaining[1:]
		}
		delete(t.pending, tree)
	}
	return nil
}

func (t *Tree) applyBatch(ctx context.Context, tree uint32, b batch) error {
	startIndex := b.startIndex
	endIndex := startIndex + uint64(len(b.leaves))

	for i, leaf := range b.leaves {
		idx := startIndex + uint64(i)
		existing, found, err := t.store.Node(ctx, tree, 0, idx)
		if err != nil {
			return err
		}
		if found && existing != leaf {
			return ErrConflict
		}
		if err := t.store.SetNode(ctx, tree, 0, idx, leaf); err != nil {
			return err
		}
	}

	curStart, curEnd := startIndex, endIndex
	for level := uint8(0); level < Depth; level++ {
		pairStart := curStart - curStart%2
		for p := pairStart; p < curEnd; p += 2 {
			left, err := t.readNode(ctx, tree, level, p)
			if err != nil {
				return err
			}
			right, err := t.readNode(ctx, tree, level, p+1)
			if err != nil {
				return err
			}
			parent, err := crypto.PoseidonFE(left, right)
			if err != nil {
				return err
			}
			if err := t.store.SetNode(ctx, tree, level+1, p/2, parent); err != nil {
				return err
			}
		}
		curStart, curEnd = pairStart/2, (curEnd+1)/2
	}

	root, err := t.readNode(ctx, tree, Depth, 0)
	if err != nil {
		return err
	}
	if err := t.store.SetRoot(ctx, tree, root); err != nil {
		return err
	}

	length, err := t.store.Length(ctx, tree)
	if err != nil {
		return err
	}
	if endIndex > length {
		if err := t.store.SetLength(ctx, tree, endIndex); err != nil {
			return err
		}
	}
	return nil
}

// readNode reads a node, substituting the level's zero constant for a miss.
// A hard store error (as opposed to a legitimate miss) is wrapped as
// ErrMissingSibling: the caller cannot tell whether the sibling was ever
// written, so the batch or proof this node belongs to is unsafe to trust.
func (t *Tree) readNode(ctx context.Context, tree uint32, level uint8, index uint64) (types.FE, error) {
	v, found, err := t.store.Node(ctx, tree, level, index)
	if err != nil {
		return types.FE{}, fmt.Errorf("%w: %v", ErrMissingSibling, err)
	}
	if !found {
		return t.zero[level], nil
	}
	return v, nil
}

// GetRoot returns tree's current root, or the empty-tree root if the tree has
// never been written to.
func (t *Tree) GetRoot(ctx context.Context, tree uint32) (types.FE, error) {
	root, found, err := t.store.Root(ctx, tree)
	if err != nil {
		return types.FE{}, err
	}
	if !found {
		return t.zero[Depth], nil
	}
	return root, nil
}

// GetInclusionProof returns the inclusion proof for the leaf at index in
// tree, substituting zero values for any node that was never written.
func (t *Tree) GetInclusionProof(ctx context.Context, tree uint32, index uint64) (*Proof, error) {
	leaf, err := t.readNode(ctx, tree, 0, index)
	if err != nil {
		return nil, err
	}

	var siblings [Depth]types.FE
	idx := index
	for level := 0; level < Depth; level++ {
		siblingIdx := idx ^ 1
		s, err := t.readNode(ctx, tree, uint8(level), siblingIdx)
		if err != nil {
			return nil, err
		}
		siblings[level] = s
		idx /= 2
	}

	root, err := t.GetRoot(ctx, tree)
	if err != nil {
		return nil, err
	}

	return &Proof{
		Leaf:        leaf,
		Siblings:    siblings,
		IndicesBits: types.FEFromBigInt(new(big.Int).SetUint64(index)),
		Root:        root,
	}, nil
}

// Verify recomputes the root from proof and reports whether it matches
// expectedRoot. It is stateless (does not depend on a Tree instance) because
// Poseidon combination needs no per-tree configuration.
func Verify(proof *Proof, expectedRoot types.FE) (bool, error) {
	index := proof.IndicesBits.BigInt().Uint64()
	cur := proof.Leaf
	for i := 0; i < Depth; i++ {
		bit := (index >> uint(i)) & 1
		var err error
		if bit == 1 {
			cur, err = crypto.PoseidonFE(proof.Siblings[i], cur)
		} else {
			cur, err = crypto.PoseidonFE(cur, proof.Siblings[i])
		}
		if err != nil {
			return false, err
		}
	}
	return cur == expectedRoot, nil
}
