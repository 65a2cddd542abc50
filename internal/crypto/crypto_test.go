package crypto

import (
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/privacypool/engine/pkg/types"
)

func TestPoseidonDeterministic(t *testing.T) {
	a := types.FEFromBigInt(big.NewInt(1))
	b := types.FEFromBigInt(big.NewInt(2))

	h1, err := PoseidonFE(a, b)
	if err != nil {
		t.Fatalf("PoseidonFE: %v", err)
	}
	h2, err := PoseidonFE(a, b)
	if err != nil {
		t.Fatalf("PoseidonFE: %v", err)
	}
	if h1 != h2 {
		t.Error("Poseidon hash should be deterministic")
	}

	h3, err := PoseidonFE(b, a)
	if err != nil {
		t.Fatalf("PoseidonFE: %v", err)
	}
	if h1 == h3 {
		t.Error("Poseidon hash should not be commutative across argument order")
	}
}

func TestGCMRoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	blocks := make([][16]byte, 4)
	for i := range blocks {
		for j := range blocks[i] {
			blocks[i][j] = byte(i*16 + j)
		}
	}

	iv, tag, ct, err := EncryptGCM(key, blocks)
	if err != nil {
		t.Fatalf("EncryptGCM: %v", err)
	}
	pt, err := DecryptGCM(key, iv, tag, ct)
	if err != nil {
		t.Fatalf("DecryptGCM: %v", err)
	}
	if pt != nil {
		for i := range pt {
			if pt[i] != blocks[i] {
				t.Fatalf("block %d mismatch: got %x want %x", i, pt[i], blocks[i])
			}
		}
	}

	var wrongKey [32]byte
	copy(wrongKey[:], key[:])
	wrongKey[0] ^= 0xff
	if _, err := DecryptGCM(wrongKey, iv, tag, ct); err != ErrAuthTagInvalid {
		t.Errorf("expected ErrAuthTagInvalid, got %v", err)
	}
}

func TestShieldBundleRoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(255 - i)
	}
	var preimage [32]byte
	for i := range preimage {
		preimage[i] = byte(i)
	}

	bundle, err := EncryptShieldBundle(key, preimage)
	if err != nil {
		t.Fatalf("EncryptShieldBundle: %v", err)
	}
	got, err := DecryptShieldBundle(key, bundle)
	if err != nil {
		t.Fatalf("DecryptShieldBundle: %v", err)
	}
	if got != preimage {
		t.Fatalf("preimage mismatch: got %x want %x", got, preimage)
	}

	var wrongKey [32]byte
	copy(wrongKey[:], key[:])
	wrongKey[5] ^= 0xff
	if _, err := DecryptShieldBundle(wrongKey, bundle); err != ErrAuthTagInvalid {
		t.Errorf("expected ErrAuthTagInvalid, got %v", err)
	}
}

func TestEdDSASignVerify(t *testing.T) {
	var sk types.FE
	for i := range sk {
		sk[i] = byte(i + 1)
	}
	pub := DerivePublicKey(sk)
	msg := types.FEFromBigInt(big.NewInt(123456789))

	sig, err := Sign(sk, msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if !Verify(pub, msg, sig) {
		t.Error("signature should verify against its own public key and message")
	}

	otherMsg := types.FEFromBigInt(big.NewInt(987654321))
	if Verify(pub, otherMsg, sig) {
		t.Error("signature should not verify against a different message")
	}
}

func TestSharedKeyAgreement(t *testing.T) {
	var skA, skB types.FE
	for i := range skA {
		skA[i] = byte(i + 10)
	}
	for i := range skB {
		skB[i] = byte(i + 50)
	}
	pubA := DerivePublicKey(skA)
	pubB := DerivePublicKey(skB)

	keyAB, err := SharedKey(skA, pubB)
	if err != nil {
		t.Fatalf("SharedKey A: %v", err)
	}
	keyBA, err := SharedKey(skB, pubA)
	if err != nil {
		t.Fatalf("SharedKey B: %v", err)
	}
	if keyAB != keyBA {
		t.Error("both parties should arrive at the same shared key")
	}
}

func TestRandomFEIsReducedAndDiffers(t *testing.T) {
	a, err := RandomFE()
	if err != nil {
		t.Fatalf("RandomFE: %v", err)
	}
	b, err := RandomFE()
	if err != nil {
		t.Fatalf("RandomFE: %v", err)
	}
	if a == b {
		t.Error("two independent RandomFE calls should not collide")
	}
	if a.BigInt().Cmp(fr.Modulus()) >= 0 {
		t.Error("RandomFE must be reduced below the scalar field modulus")
	}
}
