package notes

import (
	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/pkg/types"
)

// EncodeMPK computes the on-chain encodedMPK field for a transact note's
// ciphertext data[0]: XORed with the sender's MPK when the
// sender chooses to be visible (senderRandom is the all-zero sentinel),
// otherwise passed through unobscured.
func EncodeMPK(receiverMPK, senderMPK types.FE, senderRandom [types.SenderRandomSize]byte) types.FE {
	if senderRandom == types.SenderRandomNull {
		return xorFE(receiverMPK, senderMPK)
	}
	return receiverMPK
}

// DecodeCounterpartyMPK recovers the other party's master public key from a
// decrypted ciphertext's encodedMPK field. knownMPK is the caller's own
// master public key, the XOR operand needed to undo EncodeMPK's sender-random
// sentinel case: a receiver passes their own receiverMPK to recover the
// sender's, and a sender decrypting their own sent note passes their own
// senderMPK to recover the receiver's.
func DecodeCounterpartyMPK(encodedMPK, knownMPK types.FE, senderRandom [types.SenderRandomSize]byte) types.FE {
	if senderRandom != types.SenderRandomNull {
		return encodedMPK
	}
	return xorFE(encodedMPK, knownMPK)
}

// DeriveBlindingScalar computes the per-note curve scalar used to blind both
// parties' viewing public keys before they are embedded in a commitment's
// ciphertext: Poseidon(random, senderRandom). Binding
// the scalar to the note's own randomness means every commitment blinds its
// viewing keys independently, so an observer cannot correlate two
// commitments by their blinded keys alone.
func DeriveBlindingScalar(random [types.RandomSize]byte, senderRandom [types.SenderRandomSize]byte) (types.FE, error) {
	return crypto.PoseidonFE(types.FEFromBytes(random[:]), types.FEFromBytes(senderRandom[:]))
}

// DeriveBlindedViewingKeys scales both parties' viewing public keys by the
// same blinding scalar. Because crypto.SharedKey's ECDH agreement commutes
// with a shared scalar multiplier, the receiver can still recover the
// correct shared key from senderPub blinded with this scalar, and the sender
// from receiverPub blinded with it, without either party learning the other
// side's unblinded viewing key off-chain.
func DeriveBlindedViewingKeys(senderPub, receiverPub types.CurvePoint, random [types.RandomSize]byte, senderRandom [types.SenderRandomSize]byte) (blindedSender, blindedReceiver types.CurvePoint, err error) {
	scalar, err := DeriveBlindingScalar(random, senderRandom)
	if err != nil {
		return types.CurvePoint{}, types.CurvePoint{}, err
	}
	blindedSender = crypto.BlindPublicKey(senderPub, scalar)
	blindedReceiver = crypto.BlindPublicKey(receiverPub, scalar)
	return blindedSender, blindedReceiver, nil
}

func xorFE(a, b types.FE) types.FE {
	var out types.FE
	for i := range out {
		out[i] = a[i] ^ b[i]
	}
	return out
}
