package crypto

import (
	"math/big"

	"github.com/iden3/go-iden3-crypto/babyjub"
	"github.com/iden3/go-iden3-crypto/poseidon"

	"github.com/privacypool/engine/pkg/types"
)

// babyjubPoint converts a wire CurvePoint into the iden3 babyjub representation.
func babyjubPoint(p types.CurvePoint) *babyjub.Point {
	return &babyjub.Point{X: p.X.BigInt(), Y: p.Y.BigInt()}
}

func fromBabyjubPoint(p *babyjub.Point) types.CurvePoint {
	return types.CurvePoint{X: types.FEFromBigInt(p.X), Y: types.FEFromBigInt(p.Y)}
}

// DerivePublicKey computes the BabyJubJub public key for a private scalar,
// used for both the spending key (EdDSA) and the viewing key (ECDH).
func DerivePublicKey(privateKey types.FE) types.CurvePoint {
	var sk babyjub.PrivateKey
	copy(sk[:], privateKey[:])
	pub := sk.Public()
	pt := babyjub.Point(*pub)
	return fromBabyjubPoint(&pt)
}

// SharedKey derives the ECDH shared symmetric key between a private scalar
// and a counterparty's (possibly blinded) public point: both sides compute
// privateScalar * publicPoint and hash the resulting coordinates with
// Poseidon to obtain 32 bytes of uniformly-distributed key material.
// Blinding a public key before calling this is transparent
// to the function — it only ever sees curve points.
func SharedKey(privateKey types.FE, counterparty types.CurvePoint) ([32]byte, error) {
	var sk babyjub.PrivateKey
	copy(sk[:], privateKey[:])
	scalar := sk.Scalar().BigInt()

	shared := new(babyjub.Point).Mul(scalar, babyjubPoint(counterparty))

	h, err := poseidon.Hash([]*big.Int{shared.X, shared.Y})
	if err != nil {
		return [32]byte{}, err
	}
	return types.FEFromBigInt(h), nil
}

// BlindPublicKey scales pub by a shared blinding scalar. Applying the same
// scalar to both parties' viewing public keys before publishing them keeps
// ECDH agreement intact (scalar*(a*B) == a*(scalar*B) == b*(scalar*A)) while
// preventing an observer from linking transactions via a fixed viewing key.
func BlindPublicKey(pub types.CurvePoint, blindingScalar types.FE) types.CurvePoint {
	scaled := new(babyjub.Point).Mul(blindingScalar.BigInt(), babyjubPoint(pub))
	return fromBabyjubPoint(scaled)
}

// CompressPublicKey packs a BabyJubJub point into iden3's 32-byte compressed
// public-key form (the Y coordinate with the X sign folded into its top
// bit), used for the wallet's 0zk address encoding.
func CompressPublicKey(pub types.CurvePoint) [32]byte {
	pk := babyjub.PublicKey(*babyjubPoint(pub))
	return [32]byte(pk.Compress())
}

// DecompressPublicKey reverses CompressPublicKey.
func DecompressPublicKey(data [32]byte) (types.CurvePoint, error) {
	var comp babyjub.PublicKeyComp
	copy(comp[:], data[:])
	pk, err := comp.Decompress()
	if err != nil {
		return types.CurvePoint{}, err
	}
	pt := babyjub.Point(*pk)
	return fromBabyjubPoint(&pt), nil
}

// Sign produces an EdDSA-Poseidon signature over a single field-element
// message (the Poseidon hash of the transaction's public inputs) using
// the BabyJubJub curve.
func Sign(spendingPrivateKey types.FE, message types.FE) (types.ZKSignature, error) {
	var sk babyjub.PrivateKey
	copy(sk[:], spendingPrivateKey[:])
	sig := sk.SignPoseidon(message.BigInt())
	return types.ZKSignature{
		R8X: types.FEFromBigInt(sig.R8.X),
		R8Y: types.FEFromBigInt(sig.R8.Y),
		S:   types.FEFromBigInt(sig.S),
	}, nil
}

// Verify checks an EdDSA-Poseidon signature against a public key and message.
func Verify(publicKey types.CurvePoint, message types.FE, sig types.ZKSignature) bool {
	pub := babyjub.PublicKey(*babyjubPoint(publicKey))
	bjSig := &babyjub.Signature{
		R8: babyjubPoint(types.CurvePoint{X: sig.R8X, Y: sig.R8Y}),
		S:  sig.S.BigInt(),
	}
	return pub.VerifyPoseidon(message.BigInt(), bjSig)
}
