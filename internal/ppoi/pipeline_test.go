package ppoi

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/internal/ppoinode"
	"github.com/privacypool/engine/internal/prover"
	"github.com/privacypool/engine/internal/storage"
	"github.com/privacypool/engine/internal/txidtree"
	"github.com/privacypool/engine/pkg/types"
)

func feB(b byte) types.FE {
	var fe types.FE
	fe[31] = b
	return fe
}

// fakeNode is an in-memory ppoinode.Node. Every input proof it hands back is
// for a single-leaf-at-index-0 tree whose siblings are all the empty PPOI
// root constant, so merkle.Verify can recompute the claimed root exactly.
type fakeNode struct {
	validatedIndex uint32
}

func (f *fakeNode) MerkleProofs(ctx context.Context, req ppoinode.MerkleProofRequest) ([]ppoinode.MerkleProof, error) {
	out := make([]ppoinode.MerkleProof, len(req.BlindedCommitments))
	for i, bcHex := range req.BlindedCommitments {
		bc, err := types.FEFromHex(bcHex)
		if err != nil {
			return nil, err
		}
		siblings := make([]string, merkle.Depth)
		root := bc
		for d := 0; d < merkle.Depth; d++ {
			siblings[d] = "0x" + hex.EncodeToString(prover.EmptyPoiTreeMerkleroot.Bytes())
			next, err := crypto.PoseidonFE(root, prover.EmptyPoiTreeMerkleroot)
			if err != nil {
				return nil, err
			}
			root = next
		}
		out[i] = ppoinode.MerkleProof{
			Leaf:        "0x" + hex.EncodeToString(bc.Bytes()),
			Siblings:    siblings,
			IndicesBits: "0x" + hex.EncodeToString(types.ZeroFE.Bytes()),
			Root:        "0x" + hex.EncodeToString(root.Bytes()),
		}
	}
	return out, nil
}

func (f *fakeNode) ValidateTxidMerkleroot(ctx context.Context, req ppoinode.ValidateTxidMerklerootRequest) (bool, error) {
	return true, nil
}

func (f *fakeNode) ValidatedTxid(ctx context.Context, chainType uint8, chainID uint64, txidVersion string) (ppoinode.ValidatedTxidStatus, error) {
	return ppoinode.ValidatedTxidStatus{ValidatedTxidIndex: f.validatedIndex}, nil
}

func (f *fakeNode) SubmitTransactProof(ctx context.Context, submission ppoinode.TransactProofSubmission) error {
	return nil
}

func (f *fakeNode) StatusesByBlindedCommitment(ctx context.Context, chainType uint8, chainID uint64, txidVersion string, blindedCommitments []string) (ppoinode.StatusMap, error) {
	return ppoinode.StatusMap{}, nil
}

func newTestTxidTree(t *testing.T) *txidtree.Tree {
	t.Helper()
	tr, err := txidtree.New(merkle.NewMemStore(), txidtree.NewMemIndex(), 0)
	if err != nil {
		t.Fatalf("txidtree.New: %v", err)
	}
	return tr
}

// TestPipelineBuildSingleInputSingleOutput exercises the full nine-step flow
// for the simplest shape: one shield input exactly covering one output.
func TestPipelineBuildSingleInputSingleOutput(t *testing.T) {
	ctx := context.Background()

	commitmentOut := feB(11)
	tokenData := types.TokenData{TokenAddress: types.EthAddress{0xAB}}

	utxo := types.UTXO{
		Tree:            0,
		Position:        0,
		CommitmentHash:  feB(1),
		TokenData:       tokenData,
		Value:           types.Uint128{Lo: 500},
		NotePublicKey:   feB(2),
		Nullifier:       feB(3),
		CommitmentType:  types.CommitmentTypeShield,
	}

	tx := types.RailgunTransaction{
		Nullifiers:                []types.FE{utxo.Nullifier},
		Commitments:                []types.FE{commitmentOut},
		BoundParamsHash:            feB(4),
		UTXOTreeOut:                0,
		UTXOBatchStartPositionOut: 0,
		HasUnshield:                false,
	}

	tr := newTestTxidTree(t)
	railgunTxid := feB(5)
	if err := tr.Queue(ctx, []txidtree.Leaf{{RailgunTxid: railgunTxid, LeafHash: feB(6)}}); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	p := &Pipeline{
		Node:        &fakeNode{validatedIndex: 5},
		Prover:      prover.New(),
		TxidTree:    tr,
		StatusCache: NewStatusCache(storage.NewVolatileBackend()),
	}

	result, err := p.Build(ctx, Request{
		Network:     "ethereum",
		ChainType:   0,
		ChainID:     1,
		TxidVersion: "v2",
		ListKey:     DefaultListKey,
		Transaction: tx,
		RailgunTxid: railgunTxid,
		TxidTree:    0,
		TxidIndex:   0,
		WalletUTXOs: []types.UTXO{utxo},
		Sources: OutputSources{
			KnownBuildTime: map[types.FE]KnownBuildTimeOutput{
				commitmentOut: {
					ReceiverMasterPublicKey: feB(9),
					Random:                  [types.RandomSize]byte{},
					Value:                   types.Uint128{Lo: 500},
					TokenData:               tokenData,
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Submission.TxidMerklerootIndex != 0 {
		t.Errorf("expected txid merkleroot index 0, got %d", result.Submission.TxidMerklerootIndex)
	}
	if len(result.Submission.BlindedCommitmentsOut) != 1 {
		t.Fatalf("expected 1 blinded output commitment, got %d", len(result.Submission.BlindedCommitmentsOut))
	}
}

// TestPipelineBuildFailsValueConservation confirms an output exceeding its
// input is rejected before a proof is even attempted.
func TestPipelineBuildFailsValueConservation(t *testing.T) {
	ctx := context.Background()

	commitmentOut := feB(11)
	tokenData := types.TokenData{TokenAddress: types.EthAddress{0xAB}}

	utxo := types.UTXO{
		Tree:           0,
		Position:       0,
		CommitmentHash: feB(1),
		TokenData:      tokenData,
		Value:          types.Uint128{Lo: 100},
		NotePublicKey:  feB(2),
		Nullifier:      feB(3),
		CommitmentType: types.CommitmentTypeShield,
	}
	tx := types.RailgunTransaction{
		Nullifiers:  []types.FE{utxo.Nullifier},
		Commitments: []types.FE{commitmentOut},
	}

	tr := newTestTxidTree(t)
	railgunTxid := feB(5)
	if err := tr.Queue(ctx, []txidtree.Leaf{{RailgunTxid: railgunTxid, LeafHash: feB(6)}}); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	p := &Pipeline{
		Node:        &fakeNode{},
		Prover:      prover.New(),
		TxidTree:    tr,
		StatusCache: NewStatusCache(storage.NewVolatileBackend()),
	}

	_, err := p.Build(ctx, Request{
		ChainType:   0,
		ChainID:     1,
		TxidVersion: "v2",
		ListKey:     DefaultListKey,
		Transaction: tx,
		RailgunTxid: railgunTxid,
		WalletUTXOs: []types.UTXO{utxo},
		Sources: OutputSources{
			KnownBuildTime: map[types.FE]KnownBuildTimeOutput{
				commitmentOut: {
					ReceiverMasterPublicKey: feB(9),
					Value:                   types.Uint128{Lo: 500},
					TokenData:               tokenData,
				},
			},
		},
	})
	if err != ErrValueConservation {
		t.Fatalf("expected ErrValueConservation, got %v", err)
	}
}

// TestPipelineBuildDetectsHighBitValueConservationViolation confirms the
// conservation check compares full 128-bit values rather than just the low
// 64 bits: an output whose Hi word alone dwarfs the input must still be
// rejected.
func TestPipelineBuildDetectsHighBitValueConservationViolation(t *testing.T) {
	ctx := context.Background()

	commitmentOut := feB(11)
	tokenData := types.TokenData{TokenAddress: types.EthAddress{0xAB}}

	utxo := types.UTXO{
		Tree:           0,
		Position:       0,
		CommitmentHash: feB(1),
		TokenData:      tokenData,
		Value:          types.Uint128{Lo: 100},
		NotePublicKey:  feB(2),
		Nullifier:      feB(3),
		CommitmentType: types.CommitmentTypeShield,
	}
	tx := types.RailgunTransaction{
		Nullifiers:  []types.FE{utxo.Nullifier},
		Commitments: []types.FE{commitmentOut},
	}

	tr := newTestTxidTree(t)
	railgunTxid := feB(5)
	if err := tr.Queue(ctx, []txidtree.Leaf{{RailgunTxid: railgunTxid, LeafHash: feB(6)}}); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	p := &Pipeline{
		Node:        &fakeNode{},
		Prover:      prover.New(),
		TxidTree:    tr,
		StatusCache: NewStatusCache(storage.NewVolatileBackend()),
	}

	_, err := p.Build(ctx, Request{
		ChainType:   0,
		ChainID:     1,
		TxidVersion: "v2",
		ListKey:     DefaultListKey,
		Transaction: tx,
		RailgunTxid: railgunTxid,
		WalletUTXOs: []types.UTXO{utxo},
		Sources: OutputSources{
			KnownBuildTime: map[types.FE]KnownBuildTimeOutput{
				commitmentOut: {
					ReceiverMasterPublicKey: feB(9),
					Value:                   types.Uint128{Hi: 1, Lo: 50},
					TokenData:               tokenData,
				},
			},
		},
	})
	if err != ErrValueConservation {
		t.Fatalf("expected ErrValueConservation, got %v", err)
	}
}
