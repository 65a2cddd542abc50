// Package builder assembles a shielded transaction for one token: selecting
// UTXOs, computing change, encrypting outputs, hashing bound params, signing,
// and driving the Groth16 prover. It generalizes an earlier
// sha256/Pedersen note model into the Poseidon/ECDH/AES-GCM model the rest of
// this engine uses.
package builder

import (
	"context"
	"fmt"
	"math/big"
	"sort"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/internal/notes"
	"github.com/privacypool/engine/internal/prover"
	"github.com/privacypool/engine/pkg/types"
)

// Builder assembles transactions on behalf of one unlocked wallet.
type Builder struct {
	wallet types.Wallet
	tree   *merkle.Tree
	prover *prover.Prover
}

// New constructs a Builder bound to wallet's key material, tree's UTXO
// Merkle forest, and p's compiled circuit cache.
func New(wallet types.Wallet, tree *merkle.Tree, p *prover.Prover) *Builder {
	return &Builder{wallet: wallet, tree: tree, prover: p}
}

// Build runs the full ten-step transaction-assembly algorithm against req
// and returns the assembled, signed, proven transaction.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	if len(req.Outputs) == 0 && req.Unshield == nil {
		return nil, ErrNoOutputs
	}

	tokenHash, err := notes.DeriveTokenHash(req.Token)
	if err != nil {
		return nil, fmt.Errorf("builder: derive token hash: %w", err)
	}

	required := new(big.Int)
	for _, o := range req.Outputs {
		required.Add(required, uint128ToBig(o.Value))
	}
	if req.Unshield != nil {
		required.Add(required, uint128ToBig(req.Unshield.Value))
	}

	// 1. Select UTXOs.
	selected, err := selectUTXOs(req.Candidates, req.Token, required)
	if err != nil {
		return nil, err
	}
	spentTotal := new(big.Int)
	for _, u := range selected {
		spentTotal.Add(spentTotal, uint128ToBig(u.Value))
	}

	// 2. Compute change.
	internalOutputs := append([]TransactOutput{}, req.Outputs...)
	changeAmount := new(big.Int).Sub(spentTotal, required)
	if changeAmount.Sign() > 0 {
		internalOutputs = append(internalOutputs, TransactOutput{
			ReceiverMasterPublicKey:  b.wallet.MasterPublicKey,
			ReceiverViewingPublicKey: crypto.DerivePublicKey(b.wallet.ViewingPrivateKey),
			Value:                    bigToUint128(changeAmount),
			OutputType:               types.OutputTypeChange,
			ShowSender:               true,
		})
	}

	totalOutputs := len(internalOutputs)
	if req.Unshield != nil {
		totalOutputs++
	}
	if totalOutputs > prover.MaxOutputs {
		return nil, ErrTooManyOutputs
	}

	// 3. Merkle proofs; all must share a root.
	proofs := make([]*merkle.Proof, len(selected))
	var root types.FE
	for i, u := range selected {
		p, err := b.tree.GetInclusionProof(ctx, u.Tree, u.Position)
		if err != nil {
			return nil, fmt.Errorf("builder: inclusion proof for utxo %d: %w", u.Position, err)
		}
		if i == 0 {
			root = p.Root
		} else if p.Root != root {
			return nil, ErrRootMismatch
		}
		proofs[i] = p
	}

	// 4. Nullifiers.
	nullifiers := make([]types.FE, len(selected))
	for i, u := range selected {
		n, err := notes.DeriveNullifier(b.wallet.NullifyingKey, u.Position)
		if err != nil {
			return nil, fmt.Errorf("builder: derive nullifier: %w", err)
		}
		nullifiers[i] = n
	}

	// 5-6. Blind keys, encrypt outputs.
	commitmentsOut := make([]types.FE, 0, totalOutputs)
	npkOut := make([]types.FE, 0, totalOutputs)
	valueOut := make([]types.Uint128, 0, totalOutputs)
	ciphertexts := make([]types.CommitmentCiphertext, 0, len(internalOutputs))
	sentOutputs := make([]SentOutput, 0, totalOutputs)

	senderViewingPub := crypto.DerivePublicKey(b.wallet.ViewingPrivateKey)

	for _, out := range internalOutputs {
		var random [types.RandomSize]byte
		randBytes, err := crypto.RandomBytes(types.RandomSize)
		if err != nil {
			return nil, fmt.Errorf("builder: generate random: %w", err)
		}
		copy(random[:], randBytes)

		senderRandom := types.SenderRandomNull
		if !out.ShowSender {
			senderRandom, err = randomSenderRandom()
			if err != nil {
				return nil, err
			}
		}

		blindedSender, blindedReceiver, err := notes.DeriveBlindedViewingKeys(senderViewingPub, out.ReceiverViewingPublicKey, random, senderRandom)
		if err != nil {
			return nil, fmt.Errorf("builder: derive blinded viewing keys: %w", err)
		}
		sharedKey, err := crypto.SharedKey(b.wallet.ViewingPrivateKey, blindedReceiver)
		if err != nil {
			return nil, fmt.Errorf("builder: derive shared key: %w", err)
		}

		encodedMPK := notes.EncodeMPK(out.ReceiverMasterPublicKey, b.wallet.MasterPublicKey, senderRandom)
		memoBytes := notes.EncodeMemoText(out.Memo)

		ciphertext, iv, tag, err := notes.EncryptTransactNote(sharedKey, encodedMPK, tokenHash, random, out.Value, memoBytes)
		if err != nil {
			return nil, fmt.Errorf("builder: encrypt note: %w", err)
		}
		annotation, err := notes.EncryptAnnotation(b.wallet.ViewingPrivateKey, out.OutputType, senderRandom)
		if err != nil {
			return nil, fmt.Errorf("builder: encrypt annotation: %w", err)
		}

		notePublicKey, err := notes.DeriveNotePublicKey(out.ReceiverMasterPublicKey, random)
		if err != nil {
			return nil, fmt.Errorf("builder: derive note public key: %w", err)
		}
		commitmentHash, err := notes.DeriveCommitmentHash(notePublicKey, tokenHash, out.Value)
		if err != nil {
			return nil, fmt.Errorf("builder: derive commitment hash: %w", err)
		}

		ciphertexts = append(ciphertexts, types.CommitmentCiphertext{
			IV:                        iv,
			Tag:                       tag,
			Ciphertext:                ciphertext,
			BlindedSenderViewingKey:   blindedSender,
			BlindedReceiverViewingKey: blindedReceiver,
			AnnotationData:            annotation,
			Memo:                      memoBytes,
		})
		commitmentsOut = append(commitmentsOut, commitmentHash)
		npkOut = append(npkOut, notePublicKey)
		valueOut = append(valueOut, out.Value)
		sentOutputs = append(sentOutputs, SentOutput{
			CommitmentHash: commitmentHash,
			NotePublicKey:  notePublicKey,
			Value:          out.Value,
			TokenData:      req.Token,
		})
	}

	unshieldKind := types.UnshieldNone
	if req.Unshield != nil {
		notePublicKey := notes.UnshieldNotePublicKey(req.Unshield.RecipientEthAddress)
		commitmentHash, err := notes.DeriveCommitmentHash(notePublicKey, tokenHash, req.Unshield.Value)
		if err != nil {
			return nil, fmt.Errorf("builder: derive unshield commitment hash: %w", err)
		}
		commitmentsOut = append(commitmentsOut, commitmentHash)
		npkOut = append(npkOut, notePublicKey)
		valueOut = append(valueOut, req.Unshield.Value)
		sentOutputs = append(sentOutputs, SentOutput{
			CommitmentHash: commitmentHash,
			NotePublicKey:  notePublicKey,
			Value:          req.Unshield.Value,
			TokenData:      req.Token,
			IsUnshield:     true,
		})
		unshieldKind = types.UnshieldStandard
		if req.Unshield.Override {
			unshieldKind = types.UnshieldOverride
		}
	}

	// 7. Bound params hash.
	boundParams := types.BoundParams{
		TreeNumber:            uint16(selected[0].Tree),
		MinGasPrice:           req.MinGasPrice,
		Unshield:              unshieldKind,
		ChainID:               req.ChainID,
		AdaptContract:         req.AdaptID.Contract,
		AdaptParams:           req.AdaptID.Parameters,
		CommitmentCiphertexts: ciphertexts,
	}
	boundParamsHash, err := notes.DeriveBoundParamsHash(boundParams)
	if err != nil {
		return nil, fmt.Errorf("builder: derive bound params hash: %w", err)
	}

	// 9. EdDSA sign over the non-padding entries.
	signed := make([]types.FE, 0, 2+len(nullifiers)+len(commitmentsOut))
	signed = append(signed, root, boundParamsHash)
	signed = append(signed, actualFEs(nullifiers)...)
	signed = append(signed, actualFEs(commitmentsOut)...)
	message, err := crypto.PoseidonFE(signed...)
	if err != nil {
		return nil, fmt.Errorf("builder: hash signing message: %w", err)
	}
	signature, err := crypto.Sign(b.wallet.SpendingPrivateKey, message)
	if err != nil {
		return nil, fmt.Errorf("builder: sign: %w", err)
	}

	// 10. Prove.
	randomIn := make([][types.RandomSize]byte, len(selected))
	valueIn := make([]types.Uint128, len(selected))
	leavesIndices := make([]uint64, len(selected))
	pathElements := make([][merkle.Depth]types.FE, len(selected))
	for i, u := range selected {
		randomIn[i] = u.Random
		valueIn[i] = u.Value
		leavesIndices[i] = u.Position
		pathElements[i] = proofs[i].Siblings
	}

	pub := prover.PublicInputs{
		MerkleRoot:      root,
		BoundParamsHash: boundParamsHash,
		Nullifiers:      nullifiers,
		CommitmentsOut:  commitmentsOut,
	}
	priv := prover.PrivateInputs{
		Token:         tokenHash,
		PublicKey:     b.wallet.MasterPublicKey,
		NullifyingKey: b.wallet.NullifyingKey,
		Signature:     signature,
		RandomIn:      randomIn,
		ValueIn:       valueIn,
		LeavesIndices: leavesIndices,
		PathElements:  pathElements,
		NpkOut:        npkOut,
		ValueOut:      valueOut,
	}

	var proof types.Proof
	if req.Dummy {
		proof = prover.DummyProof()
	} else {
		proof, err = b.prover.Prove(ctx, pub, priv)
		if err != nil {
			return nil, fmt.Errorf("builder: prove: %w", err)
		}
	}

	return &Result{
		MerkleRoot:      root,
		BoundParamsHash: boundParamsHash,
		Nullifiers:      nullifiers,
		CommitmentsOut:  commitmentsOut,
		BoundParams:     boundParams,
		Signature:       signature,
		Proof:           proof,
		SpentUTXOs:      selected,
		SentOutputs:     sentOutputs,
	}, nil
}

func selectUTXOs(candidates []types.UTXO, token types.TokenData, required *big.Int) ([]types.UTXO, error) {
	pool := make([]types.UTXO, 0, len(candidates))
	for _, u := range candidates {
		if u.IsSpent || u.TokenData != token {
			continue
		}
		pool = append(pool, u)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		return uint128ToBig(pool[i].Value).Cmp(uint128ToBig(pool[j].Value)) > 0
	})

	var selected []types.UTXO
	sum := new(big.Int)
	for _, u := range pool {
		if sum.Cmp(required) >= 0 {
			break
		}
		selected = append(selected, u)
		sum.Add(sum, uint128ToBig(u.Value))
	}
	if sum.Cmp(required) < 0 {
		return nil, ErrInsufficientSpendable
	}
	for _, u := range selected[1:] {
		if u.Tree != selected[0].Tree {
			return nil, ErrMixedTrees
		}
	}
	return selected, nil
}

// randomSenderRandom draws a 15-byte value distinct from the NULL sentinel;
// the odds of drawing the sentinel itself are 2^-120, but re-rolling until
// the draw differs from it keeps the "sender hidden" path from ever silently
// decoding as "sender visible" downstream.
func randomSenderRandom() ([types.SenderRandomSize]byte, error) {
	for {
		var out [types.SenderRandomSize]byte
		b, err := crypto.RandomBytes(types.SenderRandomSize)
		if err != nil {
			return out, fmt.Errorf("builder: generate sender random: %w", err)
		}
		copy(out[:], b)
		if out != types.SenderRandomNull {
			return out, nil
		}
	}
}

func actualFEs(all []types.FE) []types.FE {
	out := make([]types.FE, 0, len(all))
	for _, fe := range all {
		if !fe.IsZero() {
			out = append(out, fe)
		}
	}
	return out
}

func uint128ToBig(v types.Uint128) *big.Int {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(v.Lo))
	return n
}

func bigToUint128(n *big.Int) types.Uint128 {
	mask := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(n, mask).Uint64()
	hi := new(big.Int).Rsh(n, 64)
	hi.And(hi, mask)
	return types.Uint128{Hi: hi.Uint64(), Lo: lo}
}
