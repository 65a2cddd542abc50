package wallet

import (
	"github.com/btcsuite/btcutil/bech32"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/pkg/types"
)

// addressHRP is the bech32 human-readable part for every 0zk address,
// regardless of network — a wallet's address is chain-agnostic, the stable
// cross-session identity rather than a per-chain one.
const addressHRP = "0zk"

// addressVersion is the only address encoding this build understands.
const addressVersion = 1

// EncodeAddress packs masterPublicKey and viewingPublicKey into the
// bech32-encoded "0zk1..." form used as a wallet's stable identity.
func EncodeAddress(masterPublicKey types.FE, viewingPublicKey types.CurvePoint) (string, error) {
	compressedViewing := crypto.CompressPublicKey(viewingPublicKey)

	payload := make([]byte, 0, 1+types.FESize+32)
	payload = append(payload, addressVersion)
	payload = append(payload, masterPublicKey[:]...)
	payload = append(payload, compressedViewing[:]...)

	data5, err := bech32.ConvertBits(payload, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(addressHRP, data5)
}

// DecodeAddress reverses EncodeAddress.
func DecodeAddress(address string) (masterPublicKey types.FE, viewingPublicKey types.CurvePoint, err error) {
	hrp, data5, decodeErr := bech32.Decode(address)
	if decodeErr != nil || hrp != addressHRP {
		return masterPublicKey, viewingPublicKey, ErrInvalidAddress
	}
	payload, convErr := bech32.ConvertBits(data5, 5, 8, false)
	if convErr != nil || len(payload) != 1+types.FESize+32 {
		return masterPublicKey, viewingPublicKey, ErrInvalidAddress
	}
	if payload[0] != addressVersion {
		return masterPublicKey, viewingPublicKey, ErrUnsupportedVersion
	}

	masterPublicKey = types.FEFromBytes(payload[1 : 1+types.FESize])
	var compressedViewing [32]byte
	copy(compressedViewing[:], payload[1+types.FESize:1+types.FESize+32])

	viewingPublicKey, err = crypto.DecompressPublicKey(compressedViewing)
	if err != nil {
		return masterPublicKey, types.CurvePoint{}, err
	}
	return masterPublicKey, viewingPublicKey, nil
}
