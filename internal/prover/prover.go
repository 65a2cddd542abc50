package prover

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"github.com/privacypool/engine/internal/merkle"
	"github.com/privacypool/engine/pkg/types"
)

// PublicInputs are the transaction's public signals.
type PublicInputs struct {
	MerkleRoot      types.FE
	BoundParamsHash types.FE
	Nullifiers      []types.FE
	CommitmentsOut  []types.FE
}

// PrivateInputs are the transaction's witness-only signals.
type PrivateInputs struct {
	Token         types.FE
	PublicKey     types.FE
	NullifyingKey types.FE
	Signature     types.ZKSignature

	RandomIn      [][types.RandomSize]byte
	ValueIn       []types.Uint128
	LeavesIndices []uint64
	PathElements  [][merkle.Depth]types.FE

	NpkOut   []types.FE
	ValueOut []types.Uint128
}

type compiledVariant struct {
	ccs            frontend.CompiledConstraintSystem
	provingKey     groth16.ProvingKey
	verifyingKey   groth16.VerifyingKey
	nInputs        int
	nOutputs       int
}

// Prover compiles and caches TransactionCircuit artifacts by variant key,
// entirely in-process (no external wasm/zkey/vkey files are fetched; each
// variant is set up once, lazily, and reused for every subsequent Prove
// call with the same shape).
type Prover struct {
	mu       sync.Mutex
	variants map[string]*compiledVariant

	ppoiOnce   sync.Once
	ppoiProver *ppoiProver
}

// New constructs an empty Prover; variants compile lazily on first use.
func New() *Prover {
	return &Prover{variants: make(map[string]*compiledVariant)}
}

// ppoi lazily initializes the PPOI-circuit artifact cache, kept separate
// from the transaction-circuit variants map since ProvePPOI is only ever
// called by a PPOI pipeline, never by the transaction builder.
func (p *Prover) ppoi() *ppoiProver {
	p.ppoiOnce.Do(func() { p.ppoiProver = newPPOIProver() })
	return p.ppoiProver
}

func (p *Prover) getOrCompile(nInputs, nOutputs int) (*compiledVariant, error) {
	key := VariantKey(nInputs, nOutputs)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cv, ok := p.variants[key]; ok {
		return cv, nil
	}

	circuit := newCircuit(nInputs, nOutputs, merkle.Depth)
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, circuit)
	if err != nil {
		return nil, fmt.Errorf("prover: compile variant %s: %w", key, err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("prover: setup variant %s: %w", key, err)
	}
	cv := &compiledVariant{ccs: ccs, provingKey: pk, verifyingKey: vk, nInputs: nInputs, nOutputs: nOutputs}
	p.variants[key] = cv
	return cv, nil
}

func randomToFE(r [types.RandomSize]byte) types.FE {
	var fe types.FE
	copy(fe[types.FESize-types.RandomSize:], r[:])
	return fe
}

// Prove builds the witness for pub/priv, runs Groth16 proving for the variant
// matching their dimensions, self-verifies the proof against the compiled
// verifying key, and reformats it to the contract's compact wire form (drop
// the homogeneous coordinate, swap the b-coordinate order).
func (p *Prover) Prove(ctx context.Context, pub PublicInputs, priv PrivateInputs) (types.Proof, error) {
	nInputs, nOutputs := len(pub.Nullifiers), len(pub.CommitmentsOut)
	if nOutputs > MaxOutputs {
		return types.Proof{}, ErrTooManyOutputs
	}
	if len(priv.ValueIn) != nInputs || len(priv.RandomIn) != nInputs || len(priv.LeavesIndices) != nInputs || len(priv.PathElements) != nInputs {
		return types.Proof{}, fmt.Errorf("prover: private input slice lengths do not match %d declared inputs", nInputs)
	}
	if len(priv.ValueOut) != nOutputs || len(priv.NpkOut) != nOutputs {
		return types.Proof{}, fmt.Errorf("prover: private input slice lengths do not match %d declared outputs", nOutputs)
	}

	cv, err := p.getOrCompile(nInputs, nOutputs)
	if err != nil {
		return types.Proof{}, err
	}

	witness := newCircuit(nInputs, nOutputs, merkle.Depth)
	witness.MerkleRoot = pub.MerkleRoot.BigInt()
	witness.BoundParamsHash = pub.BoundParamsHash.BigInt()
	for i, n := range pub.Nullifiers {
		witness.Nullifiers[i] = n.BigInt()
	}
	for i, c := range pub.CommitmentsOut {
		witness.CommitmentsOut[i] = c.BigInt()
	}
	witness.Token = priv.Token.BigInt()
	witness.PublicKey = priv.PublicKey.BigInt()
	witness.NullifyingKey = priv.NullifyingKey.BigInt()
	witness.SignatureR8X = priv.Signature.R8X.BigInt()
	witness.SignatureR8Y = priv.Signature.R8Y.BigInt()
	witness.SignatureS = priv.Signature.S.BigInt()
	for i, r := range priv.RandomIn {
		witness.RandomIn[i] = randomToFE(r).BigInt()
	}
	for i, v := range priv.ValueIn {
		witness.ValueIn[i] = uint128BigInt(v)
	}
	for i, idx := range priv.LeavesIndices {
		witness.LeavesIndices[i] = new(big.Int).SetUint64(idx)
	}
	for i, path := range priv.PathElements {
		for j, sib := range path {
			witness.PathElements[i][j] = sib.BigInt()
		}
	}
	for i, npk := range priv.NpkOut {
		witness.NpkOut[i] = npk.BigInt()
	}
	for i, v := range priv.ValueOut {
		witness.ValueOut[i] = uint128BigInt(v)
	}

	fullWitness, err := frontend.NewWitness(witness, ecc.BN254.ScalarField())
	if err != nil {
		return types.Proof{}, fmt.Errorf("prover: build witness: %w", err)
	}
	proof, err := groth16.Prove(cv.ccs, cv.provingKey, fullWitness)
	if err != nil {
		return types.Proof{}, fmt.Errorf("prover: prove: %w", err)
	}

	publicWitness, err := fullWitness.Public()
	if err != nil {
		return types.Proof{}, fmt.Errorf("prover: derive public witness: %w", err)
	}
	if err := groth16.Verify(proof, cv.verifyingKey, publicWitness); err != nil {
		return types.Proof{}, fmt.Errorf("prover: proof failed local self-verification: %w", err)
	}

	return reformatProof(proof)
}

func uint128BigInt(v types.Uint128) *big.Int {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(v.Lo))
	return n
}

// reformatProof drops the Groth16 proof's homogeneous (Z) coordinate — gnark
// proofs are already given in affine form, so this is just a field-by-field
// copy — and swaps the G2 B-coordinate limb order the contract's pairing
// precompile expects.
func reformatProof(proof groth16.Proof) (types.Proof, error) {
	bn254Proof, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return types.Proof{}, fmt.Errorf("prover: unexpected proof implementation %T", proof)
	}

	var out types.Proof
	out.A[0] = types.FEFromBigInt(bn254Proof.Ar.X.BigInt(new(big.Int)))
	out.A[1] = types.FEFromBigInt(bn254Proof.Ar.Y.BigInt(new(big.Int)))

	// B is a G2 point; each coordinate is an Fp2 element (A0, A1). The
	// contract's pairing precompile wants the two limbs in swapped order.
	out.B[0][0] = types.FEFromBigInt(bn254Proof.Bs.X.A1.BigInt(new(big.Int)))
	out.B[0][1] = types.FEFromBigInt(bn254Proof.Bs.X.A0.BigInt(new(big.Int)))
	out.B[1][0] = types.FEFromBigInt(bn254Proof.Bs.Y.A1.BigInt(new(big.Int)))
	out.B[1][1] = types.FEFromBigInt(bn254Proof.Bs.Y.A0.BigInt(new(big.Int)))

	out.C[0] = types.FEFromBigInt(bn254Proof.Krs.X.BigInt(new(big.Int)))
	out.C[1] = types.FEFromBigInt(bn254Proof.Krs.Y.BigInt(new(big.Int)))
	return out, nil
}

// DummyProof returns a well-formed zero proof for the gas-estimation path
//: every coordinate is the zero field
// element, which the contract never accepts for a real submission but which
// round-trips through ABI encoding identically to a real proof.
func DummyProof() types.Proof {
	return types.Proof{}
}
