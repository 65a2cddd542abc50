// Package notes implements transact/unshield note derivation: note public
// keys, commitment hashes, token hashes, nullifiers, and blinded commitments.
// It sits directly on top of internal/crypto's Poseidon
// primitive, generalizing an earlier ad hoc sha256 note representation into
// the Poseidon/FE model the rest of the engine uses.
package notes

import (
	"math/big"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/pkg/types"
)

// DeriveTokenHash computes tokenHash = Poseidon(encode(TokenData)).
func DeriveTokenHash(td types.TokenData) (types.FE, error) {
	return crypto.PoseidonFE(
		types.FEFromBigInt(big.NewInt(int64(td.TokenType))),
		types.FEFromBytes(td.TokenAddress[:]),
		td.TokenSubID,
	)
}

// DeriveNotePublicKey computes notePublicKey = Poseidon(receiverMPK, random)
// for a transact note.
func DeriveNotePublicKey(receiverMPK types.FE, random [types.RandomSize]byte) (types.FE, error) {
	return crypto.PoseidonFE(receiverMPK, types.FEFromBytes(random[:]))
}

// UnshieldNotePublicKey reinterprets a 20-byte recipient address as a
// left-padded FE, the note-public-key rule for unshield outputs.
func UnshieldNotePublicKey(recipient types.EthAddress) types.FE {
	return types.FEFromBytes(recipient[:])
}

// DeriveCommitmentHash computes commitmentHash = Poseidon(notePublicKey,
// tokenHash, value).
func DeriveCommitmentHash(notePublicKey, tokenHash types.FE, value types.Uint128) (types.FE, error) {
	return crypto.PoseidonFE(notePublicKey, tokenHash, Uint128ToFE(value))
}

// DeriveNullifyingKey computes nullifyingKey = Poseidon(viewingPrivateKey).
func DeriveNullifyingKey(viewingPrivateKey types.FE) (types.FE, error) {
	return crypto.PoseidonFE(viewingPrivateKey)
}

// DeriveMasterPublicKey computes masterPublicKey = Poseidon(spendingPublicKey.X,
// spendingPublicKey.Y, nullifyingKey), binding a wallet's spend authorization
// key and its viewing-derived nullifying key into the single identity every
// note addresses a receiver by.
func DeriveMasterPublicKey(spendingPublicKey types.CurvePoint, nullifyingKey types.FE) (types.FE, error) {
	return crypto.PoseidonFE(spendingPublicKey.X, spendingPublicKey.Y, nullifyingKey)
}

// DeriveNullifier computes nullifier = Poseidon(nullifyingKey, position).
func DeriveNullifier(nullifyingKey types.FE, position uint64) (types.FE, error) {
	return crypto.PoseidonFE(nullifyingKey, types.FEFromBigInt(new(big.Int).SetUint64(position)))
}

// BlindedCommitment computes the PPOI allow-list key for a Shield/Transact
// output: Poseidon(commitmentHash, notePublicKey, globalTreePosition).
func BlindedCommitment(commitmentHash, notePublicKey types.FE, globalTreePosition uint64) (types.FE, error) {
	return crypto.PoseidonFE(commitmentHash, notePublicKey, types.FEFromBigInt(new(big.Int).SetUint64(globalTreePosition)))
}

// GlobalTreePosition computes utxoTreeOut * 2^Depth + utxoBatchStartPositionOut.
// depth is passed in rather than imported from
// internal/merkle to keep this package free of a dependency on the tree
// packages.
func GlobalTreePosition(utxoTreeOut uint32, utxoBatchStartPositionOut uint64, depth uint) uint64 {
	return uint64(utxoTreeOut)<<depth + utxoBatchStartPositionOut
}

// Uint128ToFE packs a 128-bit value into a canonical FE.
func Uint128ToFE(v types.Uint128) types.FE {
	n := new(big.Int).SetUint64(v.Hi)
	n.Lsh(n, 64)
	n.Or(n, new(big.Int).SetUint64(v.Lo))
	return types.FEFromBigInt(n)
}

// FEToUint128 unpacks the low 128 bits of an FE into a Uint128.
func FEToUint128(fe types.FE) types.Uint128 {
	n := fe.BigInt()
	mask64 := new(big.Int).SetUint64(^uint64(0))
	lo := new(big.Int).And(n, mask64).Uint64()
	hi := new(big.Int).Rsh(n, 64)
	hi.And(hi, mask64)
	return types.Uint128{Hi: hi.Uint64(), Lo: lo}
}
