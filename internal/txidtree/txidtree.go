// Package txidtree implements the ordered, append-only TxID Merkle forest:
// every RAILGUN transaction we ever observe is appended as a leaf, trees roll
// over at capacity, and both "current" and "historical" (as-of-insertion)
// inclusion proofs are served. It shares its batch/store
// mechanics with internal/merkle (same depth, same Poseidon combiner) but
// differs in leaf-index endianness, append-only ordering, and the extra
// txid/ethTxHash lookup indexes a wallet needs.
package txidtree

import (
	"context"
	"errors"
	"sync"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/pkg/types"
)

// Depth and Capacity match the UTXO tree's shape: same batch/depth shape.
const (
	Depth    = merkle.Depth
	Capacity = merkle.Capacity
)

// State is a single tree's fill state.
type State int

const (
	Empty State = iota
	Filling
	Full
)

var (
	// ErrHistoricalRootMissing is returned when a historical proof is
	// requested for an index past what this tree has ever processed.
	ErrHistoricalRootMissing = errors.New("txidtree: historical root missing for tree/index")
	// ErrTxidNotFound is returned for an unknown txid or ethTxHash lookup.
	ErrTxidNotFound = errors.New("txidtree: unknown lookup key")
)

// Proof is an inclusion proof for one leaf. Index is the authoritative
// numeric leaf position used for verification; IndicesBits is the
// little-endian wire encoding the TxID-side circuit expects at the external
// interface.
type Proof struct {
	Leaf        types.FE
	Siblings    [Depth]types.FE
	Index       uint64
	IndicesBits types.FE
	Root        types.FE
}

// Leaf is one queued TxID-tree insertion.
type Leaf struct {
	RailgunTxid types.FE
	LeafHash    types.FE
	EthTxHash   string
	HasUnshield bool
}

// Index persists the txid→position and ethTxHash→hasUnshield lookups plus
// the sync cursor; it is implemented alongside a merkle.Store by each
// internal/storage backend.
type Index interface {
	TxidPosition(ctx context.Context, txid types.FE) (tree uint32, index uint64, found bool, err error)
	SetTxidPosition(ctx context.Context, txid types.FE, tree uint32, index uint64) error
	HasUnshieldForTxHash(ctx context.Context, ethTxHash string) (bool, error)
	SetHasUnshieldForTxHash(ctx context.Context, ethTxHash string, has bool) error
	LatestSyncedBlock(ctx context.Context) (uint64, bool, error)
	SetLatestSyncedBlock(ctx context.Context, block uint64) error
	HistoricalRoot(ctx context.Context, tree uint32, index uint64) (types.FE, bool, error)
	SetHistoricalRoot(ctx context.Context, tree uint32, index uint64, root types.FE) error
	HistoricalSiblings(ctx context.Context, tree uint32, index uint64) ([Depth]types.FE, bool, error)
	SetHistoricalSiblings(ctx context.Context, tree uint32, index uint64, siblings [Depth]types.FE) error
	Clear(ctx context.Context) error
}

type incrementalState struct {
	filled [Depth]types.FE
	count  uint64
}

// Tree is the TxID forest: a merkle.Tree for store-backed "current" proofs,
// plus an incremental per-tree cache for "historical" proofs and the extra
// lookup indexes.
type Tree struct {
	mu    sync.Mutex
	store *merkle.Tree
	index Index

	currentTree uint32
	incremental map[uint32]*incrementalState
}

// New constructs a Tree. currentTree is the tree new leaves append to; pass 0
// for a fresh forest, or the tree recovered from Tree.LatestTreeAndIndex at
// startup.
func New(store merkle.Store, index Index, currentTree uint32) (*Tree, error) {
	mt, err := merkle.New(store)
	if err != nil {
		return nil, err
	}
	return &Tree{
		store:       mt,
		index:       index,
		currentTree: currentTree,
		incremental: make(map[uint32]*incrementalState),
	}, nil
}

func (t *Tree) stateFor(tree uint32) *incrementalState {
	s, ok := t.incremental[tree]
	if !ok {
		s = &incrementalState{}
		for i := 0; i < Depth; i++ {
			s.filled[i] = t.store.ZeroValue(i)
		}
		t.incremental[tree] = s
	}
	return s
}

// Queue appends leaves in order, automatically rolling over to the next tree
// once the current one reaches capacity.
func (t *Tree) Queue(ctx context.Context, leaves []Leaf) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, leaf := range leaves {
		if err := t.appendOne(ctx, leaf); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tree) appendOne(ctx context.Context, leaf Leaf) error {
	if t.stateFor(t.currentTree).count >= Capacity {
		t.currentTree++
	}
	tree := t.currentTree
	st := t.stateFor(tree)
	position := st.count

	if err := t.store.QueueLeaves(ctx, tree, position, []types.FE{leaf.LeafHash}); err != nil {
		return err
	}
	if err := t.store.Flush(ctx); err != nil {
		return err
	}

	root, siblings, err := t.insertIncremental(tree, st, position, leaf.LeafHash)
	if err != nil {
		return err
	}
	if err := t.index.SetHistoricalRoot(ctx, tree, position, root); err != nil {
		return err
	}
	if err := t.index.SetHistoricalSiblings(ctx, tree, position, siblings); err != nil {
		return err
	}
	if err := t.index.SetTxidPosition(ctx, leaf.RailgunTxid, tree, position); err != nil {
		return err
	}
	if leaf.EthTxHash != "" {
		if err := t.index.SetHasUnshieldForTxHash(ctx, leaf.EthTxHash, leaf.HasUnshield); err != nil {
			return err
		}
	}
	return nil
}

// insertIncremental runs the classic incremental-Merkle-tree update: O(Depth)
// work using the cached filled-subtree value per level, producing the root
// and sibling path as they existed the instant this leaf was inserted.
func (t *Tree) insertIncremental(tree uint32, st *incrementalState, position uint64, leafHash types.FE) (types.FE, [Depth]types.FE, error) {
	var siblings [Depth]types.FE
	cur := leafHash
	idx := position
	for level := 0; level < Depth; level++ {
		var err error
		if idx%2 == 0 {
			siblings[level] = t.store.ZeroValue(level)
			st.filled[level] = cur
			cur, err = crypto.PoseidonFE(cur, t.store.ZeroValue(level))
		} else {
			siblings[level] = st.filled[level]
			cur, err = crypto.PoseidonFE(st.filled[level], cur)
		}
		if err != nil {
			return types.FE{}, siblings, err
		}
		idx /= 2
	}
	st.count = position + 1
	return cur, siblings, nil
}

// Flush is a no-op beyond what Queue already did (each leaf is flushed as it
// is appended, preserving strict append order); exposed to mirror the
// interface shape of internal/merkle.
func (t *Tree) Flush(ctx context.Context) error {
	return nil
}

// GetInclusionProof returns the "current" proof for a leaf, as in §4.3, with
// a little-endian IndicesBits encoding.
func (t *Tree) GetInclusionProof(ctx context.Context, tree uint32, index uint64) (*Proof, error) {
	inner, err := t.store.GetInclusionProof(ctx, tree, index)
	if err != nil {
		return nil, err
	}
	return &Proof{
		Leaf:        inner.Leaf,
		Siblings:    inner.Siblings,
		Index:       index,
		IndicesBits: feFromUint64LE(index),
		Root:        inner.Root,
	}, nil
}

// GetHistoricalInclusionProof returns the proof for index as it existed the
// moment that leaf was inserted.
func (t *Tree) GetHistoricalInclusionProof(ctx context.Context, tree uint32, index uint64) (*Proof, error) {
	root, found, err := t.index.HistoricalRoot(ctx, tree, index)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrHistoricalRootMissing
	}
	siblings, found, err := t.index.HistoricalSiblings(ctx, tree, index)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrHistoricalRootMissing
	}
	leaf, _, err := t.storeRawNode(ctx, tree, index)
	if err != nil {
		return nil, err
	}
	return &Proof{
		Leaf:        leaf,
		Siblings:    siblings,
		Index:       index,
		IndicesBits: feFromUint64LE(index),
		Root:        root,
	}, nil
}

func (t *Tree) storeRawNode(ctx context.Context, tree uint32, index uint64) (types.FE, bool, error) {
	proof, err := t.store.GetInclusionProof(ctx, tree, index)
	if err != nil {
		return types.FE{}, false, err
	}
	return proof.Leaf, true, nil
}

// GetTransactionByTxid resolves a railgunTxid to its tree/position.
func (t *Tree) GetTransactionByTxid(ctx context.Context, txid types.FE) (tree uint32, index uint64, err error) {
	tree, index, found, err := t.index.TxidPosition(ctx, txid)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, ErrTxidNotFound
	}
	return tree, index, nil
}

// HasUnshieldForTxHash reports whether a given Ethereum transaction hash
// contained a RAILGUN unshield, via the index populated at queue time.
func (t *Tree) HasUnshieldForTxHash(ctx context.Context, ethTxHash string) (bool, error) {
	has, err := t.index.HasUnshieldForTxHash(ctx, ethTxHash)
	if err != nil {
		return false, err
	}
	return has, nil
}

// LatestTreeAndIndex returns the current append tree and the index of the
// last inserted leaf, or index -1 if the tree is empty.
func (t *Tree) LatestTreeAndIndex() (tree uint32, index int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.stateFor(t.currentTree)
	if st.count == 0 {
		return t.currentTree, -1
	}
	return t.currentTree, int64(st.count) - 1
}

// StateOf reports a tree's fill state.
func (t *Tree) StateOf(tree uint32) State {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := t.stateFor(tree).count
	switch {
	case count == 0:
		return Empty
	case count >= Capacity:
		return Full
	default:
		return Filling
	}
}

// SetLatestSyncedBlock and GetLatestSyncedBlock track the indexer cursor this
// tree has ingested up to.
func (t *Tree) SetLatestSyncedBlock(ctx context.Context, block uint64) error {
	return t.index.SetLatestSyncedBlock(ctx, block)
}

func (t *Tree) GetLatestSyncedBlock(ctx context.Context) (uint64, bool, error) {
	return t.index.LatestSyncedBlock(ctx)
}

// Clear wipes all persisted state, used when a sync regression is detected
// (lastProcessedIndex > targetLastIndex) and the caller decides to replay
// from block 0.
func (t *Tree) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.incremental = make(map[uint32]*incrementalState)
	t.currentTree = 0
	t.mu.Unlock()
	return t.index.Clear(ctx)
}

// Verify recomputes the root from a Proof's Index/Siblings/Leaf and reports
// whether it matches expectedRoot — the same algorithm as internal/merkle.Verify.
func Verify(proof *Proof, expectedRoot types.FE) (bool, error) {
	cur := proof.Leaf
	idx := proof.Index
	for i := 0; i < Depth; i++ {
		bit := (idx >> uint(i)) & 1
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

// feFromUint64LE encodes index as 32 little-endian bytes, the wire form the
// TxID-side circuit consumes.
func feFromUint64LE(index uint64) types.FE {
	var fe types.FE
	for i := 0; i < 8; i++ {
		fe[i] = byte(index >> (8 * uint(i)))
	}
	return fe
}

