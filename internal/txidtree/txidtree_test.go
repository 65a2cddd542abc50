package txidtree

import (
	"context"
	"math/big"
	"testing"

	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/pkg/types"
)

func leafHash(v int64) types.FE {
	return types.FEFromBigInt(big.NewInt(v))
}

func newTestTree(t *testing.T) *Tree {
	t.Helper()
	tr, err := New(merkle.NewMemStore(), NewMemIndex(), 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tr
}

func TestQueueAppendsInOrderAndTracksLatest(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree(t)

	leaves := []Leaf{
		{RailgunTxid: leafHash(100), LeafHash: leafHash(1), EthTxHash: "0xaaa", HasUnshield: false},
		{RailgunTxid: leafHash(101), LeafHash: leafHash(2), EthTxHash: "0xbbb", HasUnshield: true},
	}
	if err := tr.Queue(ctx, leaves); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	tree, index := tr.LatestTreeAndIndex()
	if tree != 0 || index != 1 {
		t.Fatalf("LatestTreeAndIndex = (%d, %d), want (0, 1)", tree, index)
	}

	gotTree, gotIndex, err := tr.GetTransactionByTxid(ctx, leafHash(101))
	if err != nil {
		t.Fatalf("GetTransactionByTxid: %v", err)
	}
	if gotTree != 0 || gotIndex != 1 {
		t.Fatalf("GetTransactionByTxid = (%d, %d), want (0, 1)", gotTree, gotIndex)
	}

	has, err := tr.HasUnshieldForTxHash(ctx, "0xbbb")
	if err != nil {
		t.Fatalf("HasUnshieldForTxHash: %v", err)
	}
	if !has {
		t.Error("expected HasUnshieldForTxHash to be true for 0xbbb")
	}
}

func TestHistoricalProofMatchesRootAtInsertionTime(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree(t)

	if err := tr.Queue(ctx, []Leaf{{RailgunTxid: leafHash(1), LeafHash: leafHash(11)}}); err != nil {
		t.Fatalf("Queue first: %v", err)
	}
	proof0, err := tr.GetHistoricalInclusionProof(ctx, 0, 0)
	if err != nil {
		t.Fatalf("GetHistoricalInclusionProof(0): %v", err)
	}
	ok, err := Verify(proof0, proof0.Root)
	if err != nil {
		t.Fatalf("Verify(0): %v", err)
	}
	if !ok {
		t.Error("historical proof for leaf 0 should verify against its own recorded root")
	}
	rootAfterFirst := proof0.Root

	if err := tr.Queue(ctx, []Leaf{{RailgunTxid: leafHash(2), LeafHash: leafHash(22)}}); err != nil {
		t.Fatalf("Queue second: %v", err)
	}

	// The historical proof/root for leaf 0 must be unchanged by later inserts.
	proof0Again, err := tr.GetHistoricalInclusionProof(ctx, 0, 0)
	if err != nil {
		t.Fatalf("GetHistoricalInclusionProof(0) again: %v", err)
	}
	if proof0Again.Root != rootAfterFirst {
		t.Error("historical root for an earlier leaf must not change after later insertions")
	}
}

func TestHistoricalRootMissingForUnprocessedIndex(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree(t)
	if _, err := tr.GetHistoricalInclusionProof(ctx, 0, 5); err != ErrHistoricalRootMissing {
		t.Errorf("expected ErrHistoricalRootMissing, got %v", err)
	}
}

func TestUnknownTxidLookup(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree(t)
	if _, _, err := tr.GetTransactionByTxid(ctx, leafHash(999)); err != ErrTxidNotFound {
		t.Errorf("expected ErrTxidNotFound, got %v", err)
	}
}

func TestClearResetsState(t *testing.T) {
	ctx := context.Background()
	tr := newTestTree(t)
	if err := tr.Queue(ctx, []Leaf{{RailgunTxid: leafHash(1), LeafHash: leafHash(11)}}); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if err := tr.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, _, err := tr.GetTransactionByTxid(ctx, leafHash(1)); err != ErrTxidNotFound {
		t.Errorf("expected ErrTxidNotFound after Clear, got %v", err)
	}
	tree, index := tr.LatestTreeAndIndex()
	if tree != 0 || index != -1 {
		t.Errorf("LatestTreeAndIndex after Clear = (%d, %d), want (0, -1)", tree, index)
	}
}
