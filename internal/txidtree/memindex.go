package txidtree

import (
	"context"
	"sync"

	"github.com/privacypool/engine/pkg/types"
)

type txidPos struct {
	tree  uint32
	index uint64
}

type historicalKey struct {
	tree  uint32
	index uint64
}

// MemIndex is an in-process Index, used by tests; the storage backends use
// storage.KVTxidIndex instead.
type MemIndex struct {
	mu sync.RWMutex

	txidPositions map[types.FE]txidPos
	hasUnshield   map[string]bool
	latestBlock   uint64
	hasLatest     bool
	historicalRoot     map[historicalKey]types.FE
	historicalSiblings map[historicalKey][Depth]types.FE
}

// NewMemIndex constructs an empty in-memory Index.
func NewMemIndex() *MemIndex {
	return &MemIndex{
		txidPositions:      make(map[types.FE]txidPos),
		hasUnshield:        make(map[string]bool),
		historicalRoot:     make(map[historicalKey]types.FE),
		historicalSiblings: make(map[historicalKey][Depth]types.FE),
	}
}

func (m *MemIndex) TxidPosition(_ context.Context, txid types.FE) (uint32, uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.txidPositions[txid]
	return p.tree, p.index, ok, nil
}

func (m *MemIndex) SetTxidPosition(_ context.Context, txid types.FE, tree uint32, index uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txidPositions[txid] = txidPos{tree, index}
	return nil
}

func (m *MemIndex) HasUnshieldForTxHash(_ context.Context, ethTxHash string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasUnshield[ethTxHash], nil
}

func (m *MemIndex) SetHasUnshieldForTxHash(_ context.Context, ethTxHash string, has bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasUnshield[ethTxHash] = has
	return nil
}

func (m *MemIndex) LatestSyncedBlock(_ context.Context) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestBlock, m.hasLatest, nil
}

func (m *MemIndex) SetLatestSyncedBlock(_ context.Context, block uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latestBlock = block
	m.hasLatest = true
	return nil
}

func (m *MemIndex) HistoricalRoot(_ context.Context, tree uint32, index uint64) (types.FE, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.historicalRoot[historicalKey{tree, index}]
	return v, ok, nil
}

func (m *MemIndex) SetHistoricalRoot(_ context.Context, tree uint32, index uint64, root types.FE) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historicalRoot[historicalKey{tree, index}] = root
	return nil
}

func (m *MemIndex) HistoricalSiblings(_ context.Context, tree uint32, index uint64) ([Depth]types.FE, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.historicalSiblings[historicalKey{tree, index}]
	return v, ok, nil
}

func (m *MemIndex) SetHistoricalSiblings(_ context.Context, tree uint32, index uint64, siblings [Depth]types.FE) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.historicalSiblings[historicalKey{tree, index}] = siblings
	return nil
}

func (m *MemIndex) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txidPositions = make(map[types.FE]txidPos)
	m.hasUnshield = make(map[string]bool)
	m.latestBlock = 0
	m.hasLatest = false
	m.historicalRoot = make(map[historicalKey]types.FE)
	m.historicalSiblings = make(map[historicalKey][Depth]types.FE)
	return nil
}
