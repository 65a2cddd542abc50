package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
)

// ErrAuthTagInvalid is returned by every decryption primitive here when the GCM
// tag fails to verify. Callers treat this as "this ciphertext does not belong
// to the key being tried" rather than as a hard failure.
var ErrAuthTagInvalid = errors.New("crypto: authentication tag invalid")

const (
	gcmIVSize  = 12
	gcmTagSize = 16
	ctrIVSize  = 16
	blockSize  = 16
)

// EncryptGCM encrypts n 16-byte plaintext blocks under AES-256-GCM with a
// fresh random 12-byte IV, returning iv, the 16-byte authentication tag, and
// the ciphertext blocks (same count and size as the input).
func EncryptGCM(key [32]byte, plaintextBlocks [][blockSize]byte) (iv [gcmIVSize]byte, tag [gcmTagSize]byte, ciphertext [][blockSize]byte, err error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return iv, tag, nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return iv, tag, nil, err
	}
	if _, err = rand.Read(iv[:]); err != nil {
		return iv, tag, nil, err
	}

	plaintext := make([]byte, 0, len(plaintextBlocks)*blockSize)
	for _, b := range plaintextBlocks {
		plaintext = append(plaintext, b[:]...)
	}

	sealed := gcm.Seal(nil, iv[:], plaintext, nil)
	ctBytes := sealed[:len(sealed)-gcmTagSize]
	copy(tag[:], sealed[len(sealed)-gcmTagSize:])

	ciphertext = make([][blockSize]byte, len(plaintextBlocks))
	for i := range ciphertext {
		copy(ciphertext[i][:], ctBytes[i*blockSize:(i+1)*blockSize])
	}
	return iv, tag, ciphertext, nil
}

// DecryptGCM is the inverse of EncryptGCM. It returns ErrAuthTagInvalid
// (never a generic error) when the tag does not verify.
func DecryptGCM(key [32]byte, iv [gcmIVSize]byte, tag [gcmTagSize]byte, ciphertextBlocks [][blockSize]byte) ([][blockSize]byte, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return nil, err
	}

	ct := make([]byte, 0, len(ciphertextBlocks)*blockSize+gcmTagSize)
	for _, b := range ciphertextBlocks {
		ct = append(ct, b[:]...)
	}
	ct = append(ct, tag[:]...)

	plaintext, err := gcm.Open(nil, iv[:], ct, nil)
	if err != nil {
		return nil, ErrAuthTagInvalid
	}

	out := make([][blockSize]byte, len(ciphertextBlocks))
	for i := range out {
		copy(out[i][:], plaintext[i*blockSize:(i+1)*blockSize])
	}
	return out, nil
}

// EncryptShieldBundle encrypts the two 32-byte shield preimage blocks using
// an overlapping IV/tag layout: the 12-byte
// IV (zero-padded to 16 bytes) and 16-byte GCM tag are packed into the first
// 32-byte block (iv in the low half, tag in the high half), and the second
// 32-byte block carries the
// ciphertext. This keeps the whole bundle at a fixed 64 bytes on-chain.
func EncryptShieldBundle(key [32]byte, preimage [32]byte) (bundle [64]byte, err error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return bundle, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return bundle, err
	}
	var iv [gcmIVSize]byte
	if _, err = rand.Read(iv[:]); err != nil {
		return bundle, err
	}
	sealed := gcm.Seal(nil, iv[:], preimage[:], nil)
	ct := sealed[:len(sealed)-gcmTagSize]
	tag := sealed[len(sealed)-gcmTagSize:]

	copy(bundle[0:12], iv[:])
	copy(bundle[16:32], tag)
	copy(bundle[32:64], ct)
	return bundle, nil
}

// DecryptShieldBundle reverses EncryptShieldBundle. On auth failure it
// returns ErrAuthTagInvalid: the commitment is simply not ours.
func DecryptShieldBundle(key [32]byte, bundle [64]byte) ([32]byte, error) {
	var iv [gcmIVSize]byte
	copy(iv[:], bundle[0:12])
	tag := bundle[16:32]
	ct := bundle[32:64]

	block, err := aes.NewCipher(key[:])
	if err != nil {
		return [32]byte{}, err
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, gcmIVSize)
	if err != nil {
		return [32]byte{}, err
	}

	sealed := append(append([]byte{}, ct...), tag...)
	plaintext, err := gcm.Open(nil, iv[:], sealed, nil)
	if err != nil {
		return [32]byte{}, ErrAuthTagInvalid
	}
	var out [32]byte
	copy(out[:], plaintext)
	return out, nil
}

// EncryptCTR encrypts exactly two 16-byte annotation-data blocks under
// AES-256-CTR with a fresh random 16-byte IV, returning iv||data0||data1.
func EncryptCTR(key [32]byte, block0, block1 [blockSize]byte) (out [ctrIVSize + 2*blockSize]byte, err error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return out, err
	}
	var iv [ctrIVSize]byte
	if _, err = rand.Read(iv[:]); err != nil {
		return out, err
	}
	stream := cipher.NewCTR(block, iv[:])
	plaintext := append(append([]byte{}, block0[:]...), block1[:]...)
	ciphertext := make([]byte, len(plaintext))
	stream.XORKeyStream(ciphertext, plaintext)

	copy(out[0:ctrIVSize], iv[:])
	copy(out[ctrIVSize:], ciphertext)
	return out, nil
}

// DecryptCTR reverses EncryptCTR. AES-CTR has no authentication tag, so this
// never fails on wrong keys; callers authenticate the result by checking the
// decoded fields make sense.
func DecryptCTR(key [32]byte, data [ctrIVSize + 2*blockSize]byte) (block0, block1 [blockSize]byte, err error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return block0, block1, err
	}
	iv := data[0:ctrIVSize]
	ciphertext := data[ctrIVSize:]
	stream := cipher.NewCTR(block, iv)
	plaintext := make([]byte, len(ciphertext))
	stream.XORKeyStream(plaintext, ciphertext)
	copy(block0[:], plaintext[0:blockSize])
	copy(block1[:], plaintext[blockSize:2*blockSize])
	return block0, block1, nil
}
