package storage

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/privacypool/engine/internal/txidtree"
	"github.com/privacypool/engine/pkg/types"
)

// KVTxidIndex adapts a Database into a txidtree.Index using key formats
// all namespaced under "railgun-txid:{network}:...".
type KVTxidIndex struct {
	db      Database
	network string
}

// NewKVTxidIndex wraps db as a txidtree.Index scoped to network.
func NewKVTxidIndex(db Database, network string) *KVTxidIndex {
	return &KVTxidIndex{db: db, network: network}
}

var _ txidtree.Index = (*KVTxidIndex)(nil)

func (x *KVTxidIndex) nodeKey(tree uint32, level uint8, index uint64) string {
	return fmt.Sprintf("railgun-txid:%s:node:%d:%d:%d", x.network, tree, level, index)
}

func (x *KVTxidIndex) txidLookupKey(normalizedTxid string) string {
	return fmt.Sprintf("railgun-txid:%s:txid-lookup:%s", x.network, normalizedTxid)
}

func (x *KVTxidIndex) txHashUnshieldKey(lowerHexNoPrefix string) string {
	return fmt.Sprintf("railgun-txid:%s:txhash-unshield:%s", x.network, lowerHexNoPrefix)
}

func (x *KVTxidIndex) merklerootKey(tree uint32, index uint64) string {
	return fmt.Sprintf("railgun-txid:%s:merkleroot:%d:%d", x.network, tree, index)
}

func (x *KVTxidIndex) siblingsKey(tree uint32, index uint64) string {
	return fmt.Sprintf("railgun-txid:%s:siblings:%d:%d", x.network, tree, index)
}

func (x *KVTxidIndex) latestBlockKey() string {
	return fmt.Sprintf("railgun-txid:%s:latest-block", x.network)
}

func normalizeTxid(txid types.FE) string {
	return strings.ToLower(hex.EncodeToString(txid.Bytes()))
}

func (x *KVTxidIndex) TxidPosition(ctx context.Context, txid types.FE) (uint32, uint64, bool, error) {
	v, ok, err := x.db.Get(ctx, x.txidLookupKey(normalizeTxid(txid)))
	if err != nil || !ok {
		return 0, 0, ok, err
	}
	if len(v) != 12 {
		return 0, 0, false, fmt.Errorf("storage: corrupt txid-lookup value for %x", txid)
	}
	return binary.BigEndian.Uint32(v[0:4]), binary.BigEndian.Uint64(v[4:12]), true, nil
}

func (x *KVTxidIndex) SetTxidPosition(ctx context.Context, txid types.FE, tree uint32, index uint64) error {
	var v [12]byte
	binary.BigEndian.PutUint32(v[0:4], tree)
	binary.BigEndian.PutUint64(v[4:12], index)
	return x.db.Put(ctx, x.txidLookupKey(normalizeTxid(txid)), v[:])
}

func (x *KVTxidIndex) HasUnshieldForTxHash(ctx context.Context, ethTxHash string) (bool, error) {
	key := x.txHashUnshieldKey(strings.ToLower(strings.TrimPrefix(ethTxHash, "0x")))
	v, ok, err := x.db.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	return len(v) == 1 && v[0] == 1, nil
}

func (x *KVTxidIndex) SetHasUnshieldForTxHash(ctx context.Context, ethTxHash string, has bool) error {
	key := x.txHashUnshieldKey(strings.ToLower(strings.TrimPrefix(ethTxHash, "0x")))
	v := byte(0)
	if has {
		v = 1
	}
	return x.db.Put(ctx, key, []byte{v})
}

func (x *KVTxidIndex) LatestSyncedBlock(ctx context.Context) (uint64, bool, error) {
	v, ok, err := x.db.Get(ctx, x.latestBlockKey())
	if err != nil || !ok {
		return 0, ok, err
	}
	return binary.BigEndian.Uint64(v), true, nil
}

func (x *KVTxidIndex) SetLatestSyncedBlock(ctx context.Context, block uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], block)
	return x.db.Put(ctx, x.latestBlockKey(), b[:])
}

func (x *KVTxidIndex) HistoricalRoot(ctx context.Context, tree uint32, index uint64) (types.FE, bool, error) {
	v, ok, err := x.db.Get(ctx, x.merklerootKey(tree, index))
	if err != nil || !ok {
		return types.FE{}, ok, err
	}
	return types.FEFromBytes(v), true, nil
}

func (x *KVTxidIndex) SetHistoricalRoot(ctx context.Context, tree uint32, index uint64, root types.FE) error {
	return x.db.Put(ctx, x.merklerootKey(tree, index), root.Bytes())
}

func (x *KVTxidIndex) HistoricalSiblings(ctx context.Context, tree uint32, index uint64) ([txidtree.Depth]types.FE, bool, error) {
	var out [txidtree.Depth]types.FE
	v, ok, err := x.db.Get(ctx, x.siblingsKey(tree, index))
	if err != nil || !ok {
		return out, ok, err
	}
	if len(v) != txidtree.Depth*types.FESize {
		return out, false, fmt.Errorf("storage: corrupt siblings value for tree %d index %d", tree, index)
	}
	for i := 0; i < txidtree.Depth; i++ {
		out[i] = types.FEFromBytes(v[i*types.FESize : (i+1)*types.FESize])
	}
	return out, true, nil
}

func (x *KVTxidIndex) SetHistoricalSiblings(ctx context.Context, tree uint32, index uint64, siblings [txidtree.Depth]types.FE) error {
	v := make([]byte, 0, txidtree.Depth*types.FESize)
	for _, s := range siblings {
		v = append(v, s.Bytes()...)
	}
	return x.db.Put(ctx, x.siblingsKey(tree, index), v)
}

func (x *KVTxidIndex) Clear(ctx context.Context) error {
	prefix := fmt.Sprintf("railgun-txid:%s:", x.network)
	keys, err := x.db.Keys(ctx, prefix)
	if err != nil {
		return err
	}
	ops := make([]Op, len(keys))
	for i, k := range keys {
		ops[i] = DeleteOp(k)
	}
	return x.db.Batch(ctx, ops)
}
