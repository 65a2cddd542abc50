package crypto

import (
	"crypto/rand"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/privacypool/engine/pkg/types"
)

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

// RandomHex returns n cryptographically random bytes hex-encoded with a
// leading "0x".
func RandomHex(n int) (string, error) {
	b, err := RandomBytes(n)
	if err != nil {
		return "", err
	}
	const hexChars = "0123456789abcdef"
	out := make([]byte, 2+2*n)
	out[0], out[1] = '0', 'x'
	for i, v := range b {
		out[2+i*2] = hexChars[v>>4]
		out[2+i*2+1] = hexChars[v&0x0f]
	}
	return string(out), nil
}

// RandomFE returns a uniformly random, field-reduced FE, suitable for key
// material (spending/viewing private keys) where a raw unreduced 32-byte
// value would risk falling outside the BN254 scalar field.
func RandomFE() (types.FE, error) {
	b, err := RandomBytes(types.FESize)
	if err != nil {
		return types.FE{}, err
	}
	n := new(big.Int).SetBytes(b)
	n.Mod(n, fr.Modulus())
	return types.FEFromBigInt(n), nil
}
