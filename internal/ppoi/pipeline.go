package ppoi

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/internal/notes"
	"github.com/privacypool/engine/internal/ppoinode"
	"github.com/privacypool/engine/internal/prover"
	"github.com/privacypool/engine/internal/txidtree"
	"github.com/privacypool/engine/pkg/types"
)

// Request is everything the pipeline needs to prove provenance for one sent
// transaction. RailgunTxid and the TxID tree position are
// supplied by the caller rather than re-derived here: they were already
// computed once, when the transaction was queued into the TxID tree.
type Request struct {
	Network     string
	ChainType   uint8
	ChainID     uint64
	TxidVersion string
	ListKey     ListKey

	Transaction types.RailgunTransaction
	RailgunTxid types.FE
	TxidTree    uint32
	TxidIndex   uint32

	WalletUTXOs []types.UTXO
	Sources     OutputSources
}

// Result is the proof and the exact payload the PPOI node expects.
type Result struct {
	Proof      types.Proof
	Submission ppoinode.TransactProofSubmission
}

// Pipeline wires the collaborators the nine §4.9 steps depend on.
type Pipeline struct {
	Node        ppoinode.Node
	Prover      *prover.Prover
	TxidTree    *txidtree.Tree
	StatusCache *StatusCache
}

type spentInput struct {
	utxo              types.UTXO
	blindedCommitment types.FE
}

// orderSpentInputs matches tx.Nullifiers, in on-chain order, against
// walletUTXOs by nullifier, and computes each input's blinded commitment.
func orderSpentInputs(tx types.RailgunTransaction, walletUTXOs []types.UTXO) ([]spentInput, error) {
	byNullifier := make(map[types.FE]types.UTXO, len(walletUTXOs))
	for _, u := range walletUTXOs {
		byNullifier[u.Nullifier] = u
	}

	out := make([]spentInput, 0, len(tx.Nullifiers))
	for _, n := range tx.Nullifiers {
		u, ok := byNullifier[n]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNullifierNotFound, n.String())
		}
		gtp := notes.GlobalTreePosition(u.Tree, u.Position, merkle.Depth)
		bc, err := notes.BlindedCommitment(u.CommitmentHash, u.NotePublicKey, gtp)
		if err != nil {
			return nil, err
		}
		out = append(out, spentInput{utxo: u, blindedCommitment: bc})
	}
	return out, nil
}

// outputCommitments returns the transaction's non-unshield output commitment
// hashes, preserving on-chain order.
func outputCommitments(tx types.RailgunTransaction) []types.FE {
	if !tx.HasUnshield || len(tx.Commitments) == 0 {
		return tx.Commitments
	}
	// The unshield commitment, when present, is always the transaction's
	// last output; it has no blinded
	// commitment of its own to recover npk/value for, so it's excluded here
	// and handled separately by the zero-substitution rule in step 4.
	return tx.Commitments[:len(tx.Commitments)-1]
}

func uint128BigInt(v types.Uint128) *big.Int {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(v.Lo))
	return n
}

func feToHex0x(fe types.FE) string {
	return "0x" + hex.EncodeToString(fe.Bytes())
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

func wireProofToMerkleProof(w ppoinode.MerkleProof) (*merkle.Proof, error) {
	if len(w.Siblings) != merkle.Depth {
		return nil, fmt.Errorf("ppoi: input proof has %d siblings, want %d", len(w.Siblings), merkle.Depth)
	}
	leaf, err := types.FEFromHex(w.Leaf)
	if err != nil {
		return nil, fmt.Errorf("ppoi: input proof leaf: %w", err)
	}
	indices, err := types.FEFromHex(w.IndicesBits)
	if err != nil {
		return nil, fmt.Errorf("ppoi: input proof indices: %w", err)
	}
	root, err := types.FEFromHex(w.Root)
	if err != nil {
		return nil, fmt.Errorf("ppoi: input proof root: %w", err)
	}
	var siblings [merkle.Depth]types.FE
	for i, s := range w.Siblings {
		fe, err := types.FEFromHex(s)
		if err != nil {
			return nil, fmt.Errorf("ppoi: input proof sibling %d: %w", i, err)
		}
		siblings[i] = fe
	}
	return &merkle.Proof{Leaf: leaf, Siblings: siblings, IndicesBits: indices, Root: root}, nil
}

// Build runs the full nine-step pipeline and returns a
// locally self-verified proof plus the exact wire submission, without
// calling SubmitTransactProof — that last network call, and the cache
// invalidation that follows success, is left to the caller so a failed
// submission never silently invalidates status this pipeline never proved.
func (p *Pipeline) Build(ctx context.Context, req Request) (*Result, error) {
	inputs, err := orderSpentInputs(req.Transaction, req.WalletUTXOs)
	if err != nil {
		return nil, err
	}

	outHashes := outputCommitments(req.Transaction)
	resolved := make([]ResolvedOutput, 0, len(outHashes))
	for _, h := range outHashes {
		ro, err := ResolveOutput(ctx, h, req.Sources)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, ro)
	}

	blindedIn := make([]types.FE, len(inputs))
	poiRoots := make([]types.FE, len(inputs))
	pathElements := make([][prover.PoiDepth]types.FE, len(inputs))
	leavesIndices := make([]uint64, len(inputs))
	valueIn := make([]types.Uint128, len(inputs))
	blindedStrs := make([]string, len(inputs))
	for i, in := range inputs {
		blindedIn[i] = in.blindedCommitment
		blindedStrs[i] = feToHex0x(in.blindedCommitment)
		valueIn[i] = in.utxo.Value
	}

	proofReq := ppoinode.MerkleProofRequest{
		ChainType:          req.ChainType,
		ChainID:            req.ChainID,
		TxidVersion:        req.TxidVersion,
		ListKey:            string(req.ListKey),
		BlindedCommitments: blindedStrs,
	}
	wireProofs, err := p.Node.MerkleProofs(ctx, proofReq)
	if err != nil {
		return nil, fmt.Errorf("ppoi: fetch input proofs: %w", err)
	}
	if len(wireProofs) != len(inputs) {
		for _, in := range inputs {
			if in.utxo.CommitmentType != types.CommitmentTypeShield {
				return nil, ErrInputProofMissing
			}
		}
		return nil, fmt.Errorf("ppoi: expected %d input proofs, got %d", len(inputs), len(wireProofs))
	}
	for i, wp := range wireProofs {
		mp, err := wireProofToMerkleProof(wp)
		if err != nil {
			return nil, err
		}
		ok, err := merkle.Verify(mp, mp.Root)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrInputProofInvalid
		}
		poiRoots[i] = mp.Root
		pathElements[i] = mp.Siblings
		leavesIndices[i] = mp.IndicesBits.BigInt().Uint64()
	}

	blindedOut := make([]types.FE, len(resolved))
	valueOut := make([]types.Uint128, len(resolved))
	blindedOutStrs := make([]string, len(resolved))
	for i, ro := range resolved {
		if ro.Value.Hi == 0 && ro.Value.Lo == 0 {
			blindedOut[i] = prover.DomainZeroConstant
		} else {
			gtp := notes.GlobalTreePosition(req.Transaction.UTXOTreeOut, req.Transaction.UTXOBatchStartPositionOut+uint64(i), merkle.Depth)
			bc, err := notes.BlindedCommitment(ro.CommitmentHash, ro.NotePublicKey, gtp)
			if err != nil {
				return nil, err
			}
			blindedOut[i] = bc
		}
		blindedOutStrs[i] = feToHex0x(blindedOut[i])
		valueOut[i] = ro.Value
	}

	sumIn, sumOut := new(big.Int), new(big.Int)
	for _, v := range valueIn {
		sumIn.Add(sumIn, uint128BigInt(v))
	}
	for _, v := range valueOut {
		sumOut.Add(sumOut, uint128BigInt(v))
	}
	if sumIn.Cmp(sumOut) < 0 {
		return nil, ErrValueConservation
	}

	txidProof, err := p.TxidTree.GetHistoricalInclusionProof(ctx, req.TxidTree, uint64(req.TxidIndex))
	if err != nil {
		return nil, fmt.Errorf("ppoi: fetch own txid historical proof: %w", err)
	}
	localOK, err := txidtree.Verify(txidProof, txidProof.Root)
	if err != nil {
		return nil, err
	}
	if !localOK {
		return nil, fmt.Errorf("ppoi: local txid inclusion proof failed self-check")
	}

	valid, err := p.Node.ValidateTxidMerkleroot(ctx, ppoinode.ValidateTxidMerklerootRequest{
		ChainType:   req.ChainType,
		ChainID:     req.ChainID,
		TxidVersion: req.TxidVersion,
		Tree:        uint16(req.TxidTree),
		Index:       req.TxidIndex,
		Merkleroot:  feToHex0x(txidProof.Root),
	})
	if err != nil {
		return nil, fmt.Errorf("ppoi: validate txid merkleroot: %w", err)
	}
	if !valid {
		status, err := p.Node.ValidatedTxid(ctx, req.ChainType, req.ChainID, req.TxidVersion)
		if err != nil {
			return nil, fmt.Errorf("ppoi: query validated txid: %w", err)
		}
		if status.ValidatedTxidIndex < req.TxidIndex {
			return nil, ErrNodeIndexing
		}
		return nil, ErrTxidMerklerootMismatch
	}

	pub := prover.PPOIPublicInputs{
		BlindedCommitmentsIn:  blindedIn,
		BlindedCommitmentsOut: blindedOut,
		PoiMerkleroots:        poiRoots,
		TxidMerkleroot:        txidProof.Root,
	}
	priv := prover.PPOIPrivateInputs{
		ValueIn:       valueIn,
		ValueOut:      valueOut,
		LeavesIndices: leavesIndices,
		PathElements:  pathElements,
	}
	proof, err := p.Prover.ProvePPOI(ctx, pub, priv)
	if err != nil {
		return nil, fmt.Errorf("ppoi: prove: %w", err)
	}

	railgunTxidIfHasUnshield := ""
	if req.Transaction.HasUnshield {
		railgunTxidIfHasUnshield = feToHex0x(req.RailgunTxid)
	}

	submission := ppoinode.TransactProofSubmission{
		ChainType:                req.ChainType,
		ChainID:                  req.ChainID,
		TxidVersion:              req.TxidVersion,
		ListKey:                  string(req.ListKey),
		Proof:                    toWireProof(proof),
		PoiMerkleroots:           stripAll(poiRoots),
		TxidMerkleroot:           stripHexPrefix(feToHex0x(txidProof.Root)),
		TxidMerklerootIndex:      req.TxidIndex,
		BlindedCommitmentsOut:    blindedOutStrs,
		RailgunTxidIfHasUnshield: railgunTxidIfHasUnshield,
	}

	return &Result{Proof: proof, Submission: submission}, nil
}

func stripAll(fes []types.FE) []string {
	out := make([]string, len(fes))
	for i, fe := range fes {
		out[i] = hex.EncodeToString(fe.Bytes())
	}
	return out
}

func toWireProof(p types.Proof) ppoinode.Groth16Proof {
	var w ppoinode.Groth16Proof
	w.A[0] = feToHex0x(p.A[0])
	w.A[1] = feToHex0x(p.A[1])
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			w.B[i][j] = feToHex0x(p.B[i][j])
		}
	}
	w.C[0] = feToHex0x(p.C[0])
	w.C[1] = feToHex0x(p.C[1])
	return w
}
