package builder

import (
	"context"
	"testing"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/internal/notes"
	"github.com/privacypool/engine/internal/prover"
	"github.com/privacypool/engine/pkg/types"
)

func feFilled(b byte) types.FE {
	var fe types.FE
	for i := range fe {
		fe[i] = b
	}
	return fe
}

type testWallet struct {
	spendingPriv types.FE
	viewingPriv  types.FE
	mpk          types.FE
	nullifyKey   types.FE
}

func newTestWallet(seed byte) testWallet {
	viewingPriv := feFilled(seed + 1)
	nullifyKey, err := notes.DeriveNullifyingKey(viewingPriv)
	if err != nil {
		panic(err)
	}
	return testWallet{
		spendingPriv: feFilled(seed),
		viewingPriv:  viewingPriv,
		mpk:          feFilled(seed + 2),
		nullifyKey:   nullifyKey,
	}
}

func (w testWallet) wallet() types.Wallet {
	return types.Wallet{
		MasterPublicKey:    w.mpk,
		ViewingPrivateKey:  w.viewingPriv,
		NullifyingKey:      w.nullifyKey,
		SpendingPrivateKey: w.spendingPriv,
	}
}

// seedUTXO queues commitmentHash as the tree's only leaf at position 0,
// flushes it, and returns the matching spendable UTXO record.
func seedUTXO(t *testing.T, ctx context.Context, tree *merkle.Tree, treeNum uint32, owner testWallet, token types.TokenData, value types.Uint128) types.UTXO {
	t.Helper()

	var random [types.RandomSize]byte
	random[0] = 0x42

	notePublicKey, err := notes.DeriveNotePublicKey(owner.mpk, random)
	if err != nil {
		t.Fatalf("DeriveNotePublicKey: %v", err)
	}
	tokenHash, err := notes.DeriveTokenHash(token)
	if err != nil {
		t.Fatalf("DeriveTokenHash: %v", err)
	}
	commitmentHash, err := notes.DeriveCommitmentHash(notePublicKey, tokenHash, value)
	if err != nil {
		t.Fatalf("DeriveCommitmentHash: %v", err)
	}
	nullifier, err := notes.DeriveNullifier(owner.nullifyKey, 0)
	if err != nil {
		t.Fatalf("DeriveNullifier: %v", err)
	}

	if err := tree.QueueLeaves(ctx, treeNum, 0, []types.FE{commitmentHash}); err != nil {
		t.Fatalf("QueueLeaves: %v", err)
	}
	if err := tree.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	return types.UTXO{
		Tree:           treeNum,
		Position:       0,
		CommitmentHash: commitmentHash,
		TokenData:      token,
		Value:          value,
		Random:         random,
		NotePublicKey:  notePublicKey,
		Nullifier:      nullifier,
		CommitmentType: types.CommitmentTypeShield,
	}
}

func testToken() types.TokenData {
	return types.TokenData{TokenType: types.TokenTypeFungible, TokenAddress: types.EthAddress{0xAA}}
}

func TestBuildTransferProducesBalancedTransaction(t *testing.T) {
	ctx := context.Background()
	tree, err := merkle.New(merkle.NewMemStore())
	if err != nil {
		t.Fatalf("merkle.New: %v", err)
	}

	sender := newTestWallet(1)
	receiver := newTestWallet(10)
	token := testToken()

	utxo := seedUTXO(t, ctx, tree, 0, sender, token, types.Uint128{Lo: 1000})

	b := New(sender.wallet(), tree, prover.New())
	req := Request{
		Token:      token,
		Candidates: []types.UTXO{utxo},
		Outputs: []TransactOutput{{
			ReceiverMasterPublicKey:  receiver.mpk,
			ReceiverViewingPublicKey: crypto.DerivePublicKey(receiver.viewingPriv),
			Value:                    types.Uint128{Lo: 400},
			OutputType:               types.OutputTypeTransfer,
			ShowSender:               true,
			Memo:                     "thanks",
		}},
	}

	res, err := b.Build(ctx, req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if len(res.Nullifiers) != 1 {
		t.Fatalf("expected 1 nullifier, got %d", len(res.Nullifiers))
	}
	if res.Nullifiers[0] != utxo.Nullifier {
		t.Error("nullifier does not match the spent UTXO's own nullifier")
	}
	// transfer output + change output
	if len(res.CommitmentsOut) != 2 {
		t.Fatalf("expected 2 commitments out (transfer + change), got %d", len(res.CommitmentsOut))
	}
	if len(res.BoundParams.CommitmentCiphertexts) != 2 {
		t.Fatalf("expected 2 ciphertexts, got %d", len(res.BoundParams.CommitmentCiphertexts))
	}
	if len(res.SpentUTXOs) != 1 || res.SpentUTXOs[0].Position != utxo.Position {
		t.Error("expected the seeded UTXO to be recorded as spent")
	}

	// The receiver must be able to recover the shared key from the blinded
	// viewing key the builder published on the transfer output, and it must
	// match the sender-side derivation from that output's blinded receiver key.
	transferCiphertext := res.BoundParams.CommitmentCiphertexts[0]
	receiverSharedKey, err := crypto.SharedKey(receiver.viewingPriv, transferCiphertext.BlindedSenderViewingKey)
	if err != nil {
		t.Fatalf("SharedKey: %v", err)
	}
	senderSharedKey, err := crypto.SharedKey(sender.viewingPriv, transferCiphertext.BlindedReceiverViewingKey)
	if err != nil {
		t.Fatalf("SharedKey: %v", err)
	}
	if receiverSharedKey != senderSharedKey {
		t.Error("receiver and sender must agree on the shared key despite viewing-key blinding")
	}

	if _, _, _, _, _, err := notes.DecryptTransactNote(receiverSharedKey, transferCiphertext.IV, transferCiphertext.Tag, transferCiphertext.Ciphertext); err != nil {
		t.Errorf("receiver could not decrypt the transfer note: %v", err)
	}
}

func TestBuildWithUnshieldIncludesUnshieldCommitment(t *testing.T) {
	ctx := context.Background()
	tree, err := merkle.New(merkle.NewMemStore())
	if err != nil {
		t.Fatalf("merkle.New: %v", err)
	}

	sender := newTestWallet(1)
	token := testToken()
	utxo := seedUTXO(t, ctx, tree, 0, sender, token, types.Uint128{Lo: 1000})

	b := New(sender.wallet(), tree, prover.New())
	req := Request{
		Token:      token,
		Candidates: []types.UTXO{utxo},
		Unshield: &UnshieldOutput{
			RecipientEthAddress: types.EthAddress{0x01, 0x02},
			Value:               types.Uint128{Lo: 1000},
		},
	}

	res, err := b.Build(ctx, req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.CommitmentsOut) != 1 {
		t.Fatalf("expected 1 commitment (unshield only, no change), got %d", len(res.CommitmentsOut))
	}
	if len(res.BoundParams.CommitmentCiphertexts) != 0 {
		t.Error("unshield output should not produce a ciphertext")
	}
	if res.BoundParams.Unshield != types.UnshieldStandard {
		t.Errorf("expected UnshieldStandard, got %v", res.BoundParams.Unshield)
	}
}

func TestBuildFailsWithInsufficientSpendable(t *testing.T) {
	ctx := context.Background()
	tree, err := merkle.New(merkle.NewMemStore())
	if err != nil {
		t.Fatalf("merkle.New: %v", err)
	}

	sender := newTestWallet(1)
	receiver := newTestWallet(10)
	token := testToken()
	utxo := seedUTXO(t, ctx, tree, 0, sender, token, types.Uint128{Lo: 100})

	b := New(sender.wallet(), tree, prover.New())
	req := Request{
		Token:      token,
		Candidates: []types.UTXO{utxo},
		Outputs: []TransactOutput{{
			ReceiverMasterPublicKey:  receiver.mpk,
			ReceiverViewingPublicKey: crypto.DerivePublicKey(receiver.viewingPriv),
			Value:                    types.Uint128{Lo: 5000},
			ShowSender:               true,
		}},
	}

	if _, err := b.Build(ctx, req); err != ErrInsufficientSpendable {
		t.Errorf("expected ErrInsufficientSpendable, got %v", err)
	}
}

func TestBuildFailsWithTooManyOutputs(t *testing.T) {
	ctx := context.Background()
	tree, err := merkle.New(merkle.NewMemStore())
	if err != nil {
		t.Fatalf("merkle.New: %v", err)
	}

	sender := newTestWallet(1)
	receiver := newTestWallet(10)
	token := testToken()
	utxo := seedUTXO(t, ctx, tree, 0, sender, token, types.Uint128{Lo: 1000})

	outputs := make([]TransactOutput, 5)
	for i := range outputs {
		outputs[i] = TransactOutput{
			ReceiverMasterPublicKey:  receiver.mpk,
			ReceiverViewingPublicKey: crypto.DerivePublicKey(receiver.viewingPriv),
			Value:                    types.Uint128{Lo: 100},
			ShowSender:               true,
		}
	}

	b := New(sender.wallet(), tree, prover.New())
	req := Request{Token: token, Candidates: []types.UTXO{utxo}, Outputs: outputs}

	if _, err := b.Build(ctx, req); err != ErrTooManyOutputs {
		t.Errorf("expected ErrTooManyOutputs, got %v", err)
	}
}

func TestBuildDummyPathSkipsProving(t *testing.T) {
	ctx := context.Background()
	tree, err := merkle.New(merkle.NewMemStore())
	if err != nil {
		t.Fatalf("merkle.New: %v", err)
	}

	sender := newTestWallet(1)
	receiver := newTestWallet(10)
	token := testToken()
	utxo := seedUTXO(t, ctx, tree, 0, sender, token, types.Uint128{Lo: 1000})

	b := New(sender.wallet(), tree, prover.New())
	req := Request{
		Token:      token,
		Candidates: []types.UTXO{utxo},
		Outputs: []TransactOutput{{
			ReceiverMasterPublicKey:  receiver.mpk,
			ReceiverViewingPublicKey: crypto.DerivePublicKey(receiver.viewingPriv),
			Value:                    types.Uint128{Lo: 1000},
			ShowSender:               true,
		}},
		Dummy: true,
	}

	res, err := b.Build(ctx, req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if res.Proof != (types.Proof{}) {
		t.Error("dummy path should return a well-formed zero proof")
	}
}
