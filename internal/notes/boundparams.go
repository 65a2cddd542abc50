package notes

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/pkg/types"
)

// DeriveCommitmentCiphertextHash folds one on-chain commitment ciphertext
// into a single field element so it can take part in a Poseidon hash
// alongside the rest of a transaction's bound params.
func DeriveCommitmentCiphertextHash(c types.CommitmentCiphertext) (types.FE, error) {
	inputs := []types.FE{
		types.FEFromBytes(c.IV[:]),
		types.FEFromBytes(c.Tag[:]),
		c.Ciphertext[0], c.Ciphertext[1], c.Ciphertext[2], c.Ciphertext[3],
		c.BlindedSenderViewingKey.X, c.BlindedSenderViewingKey.Y,
		c.BlindedReceiverViewingKey.X, c.BlindedReceiverViewingKey.Y,
		types.FEFromBytes(c.AnnotationData[:]),
		types.FEFromBytes(c.Memo[:]),
	}
	// Ciphertext and annotation bytes are arbitrary 256-bit values; reduce
	// each input into the scalar field so Poseidon accepts it.
	for i := range inputs {
		inputs[i] = types.FEFromBigInt(new(big.Int).Mod(inputs[i].BigInt(), fr.Modulus()))
	}
	return crypto.PoseidonFE(inputs...)
}

// EncodeChainID packs a ChainID the way the bound-params struct expects: one
// byte of chain type followed by the low 56 bits of the numeric chain id.
func EncodeChainID(c types.ChainID) types.FE {
	var b [8]byte
	b[0] = c.ChainType
	id := c.ID & 0x00ffffffffffffff
	for i := 0; i < 7; i++ {
		b[7-i] = byte(id >> (8 * uint(i)))
	}
	return types.FEFromBytes(b[:])
}

// DeriveBoundParamsHash computes boundParamsHash = Poseidon(treeNumber,
// minGasPrice, unshield, chainID, adaptContract, adaptParams,
// commitmentCiphertextHashes...). The
// commitment ciphertexts are folded in array order, so callers must keep
// CommitmentCiphertexts in the same order as the outputs that produced them.
func DeriveBoundParamsHash(bp types.BoundParams) (types.FE, error) {
	inputs := []types.FE{
		types.FEFromBigInt(big.NewInt(int64(bp.TreeNumber))),
		Uint128ToFE(bp.MinGasPrice),
		types.FEFromBigInt(big.NewInt(int64(bp.Unshield))),
		EncodeChainID(bp.ChainID),
		types.FEFromBytes(bp.AdaptContract[:]),
		bp.AdaptParams,
	}
	for _, c := range bp.CommitmentCiphertexts {
		h, err := DeriveCommitmentCiphertextHash(c)
		if err != nil {
			return types.FE{}, err
		}
		inputs = append(inputs, h)
	}
	return crypto.PoseidonFE(inputs...)
}
