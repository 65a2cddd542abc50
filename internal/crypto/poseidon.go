// Package crypto implements the engine's cryptographic primitives: Poseidon
// hashing, AES-GCM/CTR, BabyJubJub ECDH and EdDSA, and random byte generation.
// The Groth16 circuits in internal/prover constrain only value conservation;
// they do not recompute any of these primitives in-circuit.
package crypto

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/privacypool/engine/pkg/types"
)

// MaxPoseidonInputs is circomlib's Poseidon width ceiling; callers that need
// more must tree-hash (see PoseidonMerkleRoot).
const MaxPoseidonInputs = 16

// PoseidonFE hashes one or more field elements with the circom/circomlib-
// compatible Poseidon permutation, returning a canonicalized FE.
func PoseidonFE(inputs ...types.FE) (types.FE, error) {
	bigInts := make([]*big.Int, len(inputs))
	for i, fe := range inputs {
		bigInts[i] = fe.BigInt()
	}
	h, err := poseidon.Hash(bigInts)
	if err != nil {
		return types.FE{}, err
	}
	return types.FEFromBigInt(h), nil
}

// PoseidonMerkleRoot folds a padded list of leaves into a single root using
// repeated pairwise Poseidon hashing, the same combiner the TxID leaf formula
// uses for its inner nullifier/commitment roots.
func PoseidonMerkleRoot(leaves []types.FE, zero types.FE) (types.FE, error) {
	if len(leaves) == 0 {
		return zero, nil
	}
	level := make([]types.FE, len(leaves))
	copy(level, leaves)
	for len(level) > 1 {
		next := make([]types.FE, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			var right types.FE
			if i+1 < len(level) {
				right = level[i+1]
			} else {
				right = zero
			}
			h, err := PoseidonFE(left, right)
			if err != nil {
				return types.FE{}, err
			}
			next = append(next, h)
		}
		level = next
	}
	return level[0], nil
}
