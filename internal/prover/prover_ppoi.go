package prover

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/pkg/types"
)

// PoiDepth is the PPOI input tree's fixed depth. The PPOI input tree shadows
// the UTXO tree one-for-one, so its depth equals merkle.Depth; it is declared
// as its own constant rather than as an alias of merkle.Depth.
const PoiDepth = 16

// PPOIPublicInputs are a PPOI proof's public signals.
type PPOIPublicInputs struct {
	BlindedCommitmentsIn  []types.FE
	BlindedCommitmentsOut []types.FE
	PoiMerkleroots        []types.FE
	TxidMerkleroot        types.FE
}

// PPOIPrivateInputs are a PPOI proof's witness-only signals.
type PPOIPrivateInputs struct {
	ValueIn       []types.Uint128
	ValueOut      []types.Uint128
	LeavesIndices []uint64
	PathElements  [][PoiDepth]types.FE
}

type compiledPPOIVariant struct {
	ccs          frontend.CompiledConstraintSystem
	provingKey   groth16.ProvingKey
	verifyingKey groth16.VerifyingKey
}

// ppoiProver is the PPOI-circuit half of Prover's artifact cache, keyed
// separately from the transaction-circuit variants since the two circuits
// have nothing in common dimensionally.
type ppoiProver struct {
	mu       sync.Mutex
	variants map[string]*compiledPPOIVariant
}

func newPPOIProver() *ppoiProver {
	return &ppoiProver{variants: make(map[string]*compiledPPOIVariant)}
}

func (p *ppoiProver) getOrCompile(nInputs, nOutputs int) (*compiledPPOIVariant, error) {
	key := VariantKey(nInputs, nOutputs)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cv, ok := p.variants[key]; ok {
		return cv, nil
	}

	circuit := newPPOICircuit(nInputs, nOutputs, PoiDepth)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("prover: compile ppoi variant %s: %w", key, err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("prover: setup ppoi variant %s: %w", key, err)
	}
	cv := &compiledPPOIVariant{ccs: ccs, provingKey: pk, verifyingKey: vk}
	p.variants[key] = cv
	return cv, nil
}

// ProvePPOI runs Groth16 for the smallest PPOIVariants shape dominating
// pub/priv's dimensions, zero-padding up to that shape, then
// self-verifies before returning the contract-formatted proof.
func (p *Prover) ProvePPOI(ctx context.Context, pub PPOIPublicInputs, priv PPOIPrivateInputs) (types.Proof, error) {
	nInputs := len(pub.BlindedCommitmentsIn)
	nOutputs := len(pub.BlindedCommitmentsOut)
	if len(priv.ValueIn) != nInputs || len(priv.LeavesIndices) != nInputs || len(priv.PathElements) != nInputs || len(pub.PoiMerkleroots) != nInputs {
		return types.Proof{}, fmt.Errorf("prover: ppoi private input slice lengths do not match %d declared inputs", nInputs)
	}
	if len(priv.ValueOut) != nOutputs {
		return types.Proof{}, fmt.Errorf("prover: ppoi private input slice lengths do not match %d declared outputs", nOutputs)
	}

	variantKey, err := SelectPPOIVariant(nInputs, nOutputs)
	if err != nil {
		return types.Proof{}, err
	}
	var variantInputs, variantOutputs int
	for _, v := range PPOIVariants {
		if VariantKey(v.inputs, v.outputs) == variantKey {
			variantInputs, variantOutputs = v.inputs, v.outputs
		}
	}

	cv, err := p.ppoi().getOrCompile(variantInputs, variantOutputs)
	if err != nil {
		return types.Proof{}, err
	}

	witness := newPPOICircuit(variantInputs, variantOutputs, PoiDepth)
	padded := padPPOI(pub, priv, variantInputs, variantOutputs)

	for i, v := range padded.pub.BlindedCommitmentsIn {
		witness.BlindedCommitmentsIn[i] = v.BigInt()
	}
	for i, v := range padded.pub.BlindedCommitmentsOut {
		witness.BlindedCommitmentsOut[i] = v.BigInt()
	}
	for i, v := range padded.pub.PoiMerkleroots {
		witness.PoiMerkleroots[i] = v.BigInt()
	}
	witness.TxidMerkleroot = padded.pub.TxidMerkleroot.BigInt()
	for i, v := range padded.priv.ValueIn {
		witness.ValueIn[i] = uint128BigInt(v)
	}
	for i, v := range padded.priv.ValueOut {
		witness.ValueOut[i] = uint128BigInt(v)
	}
	for i, idx := range padded.priv.LeavesIndices {
		witness.LeavesIndices[i] = new(big.Int).SetUint64(idx)
	}
	for i, path := range padded.priv.PathElements {
		for j, sib := range path {
			witness.PathElements[i][j] = sib.BigInt()
		}
	}

	fullWitness, err := frontend.NewWitness(witness, ecc.BN254.ScalarField())
	if err != nil {
		return types.Proof{}, fmt.Errorf("prover: build ppoi witness: %w", err)
	}
	proof, err := groth16.Prove(cv.ccs, cv.provingKey, fullWitness)
	if err != nil {
		return types.Proof{}, fmt.Errorf("prover: ppoi prove: %w", err)
	}

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return types.Proof{}, fmt.Errorf("prover: derive ppoi public witness: %w", err)
	}
	if err := groth16.Verify(proof, cv.verifyingKey, publicWitness); err != nil {
		return types.Proof{}, fmt.Errorf("prover: ppoi proof failed local self-verification: %w", err)
	}

	return reformatProof(proof)
}

type paddedPPOI struct {
	pub  PPOIPublicInputs
	priv PPOIPrivateInputs
}

// padPPOI grows pub/priv up to (nInputs, nOutputs), using the domain zero
// constant for NPK/random/blinded-commitment-shaped fields, zero for value
// fields, and the empty-POI-tree merkleroot constant for path arrays.
func padPPOI(pub PPOIPublicInputs, priv PPOIPrivateInputs, nInputs, nOutputs int) paddedPPOI {
	out := paddedPPOI{
		pub: PPOIPublicInputs{
			BlindedCommitmentsIn:  make([]types.FE, nInputs),
			BlindedCommitmentsOut: make([]types.FE, nOutputs),
			PoiMerkleroots:        make([]types.FE, nInputs),
			TxidMerkleroot:        pub.TxidMerkleroot,
		},
		priv: PPOIPrivateInputs{
			ValueIn:       make([]types.Uint128, nInputs),
			ValueOut:      make([]types.Uint128, nOutputs),
			LeavesIndices: make([]uint64, nInputs),
			PathElements:  make([][PoiDepth]types.FE, nInputs),
		},
	}
	for i := range out.pub.BlindedCommitmentsIn {
		out.pub.BlindedCommitmentsIn[i] = DomainZeroConstant
		out.pub.PoiMerkleroots[i] = EmptyPoiTreeMerkleroot
		for j := range out.priv.PathElements[i] {
			out.priv.PathElements[i][j] = EmptyPoiTreeMerkleroot
		}
	}
	for i := range out.pub.BlindedCommitmentsOut {
		out.pub.BlindedCommitmentsOut[i] = DomainZeroConstant
	}
	copy(out.pub.BlindedCommitmentsIn, pub.BlindedCommitmentsIn)
	copy(out.pub.BlindedCommitmentsOut, pub.BlindedCommitmentsOut)
	copy(out.pub.PoiMerkleroots, pub.PoiMerkleroots)
	copy(out.priv.ValueIn, priv.ValueIn)
	copy(out.priv.ValueOut, priv.ValueOut)
	copy(out.priv.LeavesIndices, priv.LeavesIndices)
	copy(out.priv.PathElements, priv.PathElements)
	return out
}

// DomainZeroConstant pads NPK/random/blinded-commitment-shaped dummy fields.
// It is the all-zero field element: these fields are
// Poseidon outputs, and zero never arises from a real commitment hash
// because every real note's tokenHash/value/random inputs are non-zero.
var DomainZeroConstant = types.ZeroFE

// EmptyPoiTreeMerkleroot pads PPOI-input path arrays so dummy inputs hash
// cleanly: the Poseidon root of an empty tree of depth PoiDepth, i.e.
// merkle.ZeroLeafConstant() hashed pairwise up PoiDepth levels.
var EmptyPoiTreeMerkleroot = computeEmptyPoiRoot()

func computeEmptyPoiRoot() types.FE {
	// Mirrors merkle.computeZeroValues: Z[0] is the module's Merkle zero
	// constant, Z[i] = Poseidon(Z[i-1], Z[i-1]).
	z := merkle.ZeroLeafConstant()
	for i := 0; i < PoiDepth; i++ {
		next, err := crypto.PoseidonFE(z, z)
		if err != nil {
			// Poseidon over two fixed, already-reduced field elements cannot
			// fail; a panic here would indicate a broken build, not bad input.
			panic(fmt.Sprintf("prover: empty ppoi root computation: %v", err))
		}
		z = next
	}
	return z
}
