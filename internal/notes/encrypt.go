package notes

import (
	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/pkg/types"
)

// EncryptTransactNote GCM-encrypts a transact note's four logical fields
// (encodedMPK, tokenHash, random||value, memo) into the on-chain ciphertext
// layout. Internally this is eight 16-byte AES blocks packed
// into four 32-byte wire fields, since two of the four logical fields
// (encodedMPK, tokenHash) are themselves full field elements.
func EncryptTransactNote(sharedKey [32]byte, encodedMPK, tokenHash types.FE, random [types.RandomSize]byte, value types.Uint128, memo [types.MaxMemoBytes]byte) (ciphertext [4]types.FE, iv [12]byte, tag [16]byte, err error) {
	blocks := buildPlaintextBlocks(encodedMPK, tokenHash, random, value, memo)
	ivOut, tagOut, ctBlocks, err := crypto.EncryptGCM(sharedKey, blocks[:])
	if err != nil {
		return ciphertext, iv, tag, err
	}
	var ctArr [8][16]byte
	copy(ctArr[:], ctBlocks)
	return packFEs(ctArr), ivOut, tagOut, nil
}

// DecryptTransactNote reverses EncryptTransactNote. It returns
// crypto.ErrAuthTagInvalid if the ciphertext does not belong to sharedKey.
func DecryptTransactNote(sharedKey [32]byte, iv [12]byte, tag [16]byte, ciphertext [4]types.FE) (encodedMPK, tokenHash types.FE, random [types.RandomSize]byte, value types.Uint128, memo [types.MaxMemoBytes]byte, err error) {
	ctBlocks := unpackFEs(ciphertext)
	plaintext, err := crypto.DecryptGCM(sharedKey, iv, tag, ctBlocks[:])
	if err != nil {
		return encodedMPK, tokenHash, random, value, memo, err
	}

	copy(encodedMPK[:16], plaintext[0][:])
	copy(encodedMPK[16:], plaintext[1][:])
	copy(tokenHash[:16], plaintext[2][:])
	copy(tokenHash[16:], plaintext[3][:])
	copy(random[:], plaintext[4][:])
	value = bytesToUint128(plaintext[5])
	copy(memo[:16], plaintext[6][:])
	copy(memo[16:types.MaxMemoBytes], plaintext[7][:types.MaxMemoBytes-16])

	return encodedMPK, tokenHash, random, value, memo, nil
}

func buildPlaintextBlocks(encodedMPK, tokenHash types.FE, random [types.RandomSize]byte, value types.Uint128, memo [types.MaxMemoBytes]byte) [8][16]byte {
	var blocks [8][16]byte
	copy(blocks[0][:], encodedMPK[:16])
	copy(blocks[1][:], encodedMPK[16:])
	copy(blocks[2][:], tokenHash[:16])
	copy(blocks[3][:], tokenHash[16:])
	copy(blocks[4][:], random[:])
	blocks[5] = uint128ToBytes(value)
	copy(blocks[6][:], memo[:16])
	copy(blocks[7][:types.MaxMemoBytes-16], memo[16:types.MaxMemoBytes])
	return blocks
}

func packFEs(blocks [8][16]byte) [4]types.FE {
	var out [4]types.FE
	for i := 0; i < 4; i++ {
		copy(out[i][:16], blocks[2*i][:])
		copy(out[i][16:], blocks[2*i+1][:])
	}
	return out
}

func unpackFEs(fes [4]types.FE) [8][16]byte {
	var out [8][16]byte
	for i := 0; i < 4; i++ {
		copy(out[2*i][:], fes[i][:16])
		copy(out[2*i+1][:], fes[i][16:])
	}
	return out
}

func uint128ToBytes(v types.Uint128) [16]byte {
	var out [16]byte
	for i := 0; i < 8; i++ {
		out[7-i] = byte(v.Hi >> (8 * uint(i)))
		out[15-i] = byte(v.Lo >> (8 * uint(i)))
	}
	return out
}

func bytesToUint128(b [16]byte) types.Uint128 {
	var hi, lo uint64
	for i := 0; i < 8; i++ {
		hi = hi<<8 | uint64(b[i])
		lo = lo<<8 | uint64(b[8+i])
	}
	return types.Uint128{Hi: hi, Lo: lo}
}

// EncryptAnnotation CTR-encrypts the outputType/senderRandom annotation data
// using the sender's viewing private key directly as the AES key — not an
// ECDH-derived key.
func EncryptAnnotation(viewingPrivateKey types.FE, outputType types.OutputType, senderRandom [types.SenderRandomSize]byte) ([48]byte, error) {
	var key [32]byte
	copy(key[:], viewingPrivateKey[:])

	var block0, block1 [16]byte
	block0[0] = byte(outputType)
	copy(block0[1:], senderRandom[:])

	return crypto.EncryptCTR(key, block0, block1)
}

// DecryptAnnotation reverses EncryptAnnotation. AES-CTR has no authentication
// tag, so a wrong key never errors here — callers must validate the decoded
// outputType/senderRandom make sense in context.
func DecryptAnnotation(viewingPrivateKey types.FE, data [48]byte) (outputType types.OutputType, senderRandom [types.SenderRandomSize]byte, err error) {
	var key [32]byte
	copy(key[:], viewingPrivateKey[:])

	block0, _, err := crypto.DecryptCTR(key, data)
	if err != nil {
		return 0, senderRandom, err
	}
	outputType = types.OutputType(block0[0])
	copy(senderRandom[:], block0[1:16])
	return outputType, senderRandom, nil
}
