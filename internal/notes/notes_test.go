package notes

import (
	"testing"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/pkg/types"
)

func TestMemoRoundTrip(t *testing.T) {
	got, ok := DecodeMemoText(EncodeMemoText("hello"))
	if !ok {
		t.Fatal("expected ok=true for non-empty memo")
	}
	if got != "hello" {
		t.Errorf("got %q, want %q", got, "hello")
	}
}

func TestMemoEmptyMeansNone(t *testing.T) {
	if _, ok := DecodeMemoText(EncodeMemoText("")); ok {
		t.Error("empty memo should decode to none")
	}
}

func TestMemoTruncatesLongInput(t *testing.T) {
	long := "01234567890123456789012345678901" // 32 bytes, 2 over the cap
	encoded := EncodeMemoText(long)
	got, ok := DecodeMemoText(encoded)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if got != long[:types.MaxMemoBytes] {
		t.Errorf("got %q, want truncated %q", got, long[:types.MaxMemoBytes])
	}
}

func TestTransactNoteEncryptDecryptRoundTrip(t *testing.T) {
	var sharedKey [32]byte
	for i := range sharedKey {
		sharedKey[i] = byte(i + 3)
	}

	var mpk, tokenHash types.FE
	for i := range mpk {
		mpk[i] = byte(i)
	}
	for i := range tokenHash {
		tokenHash[i] = byte(255 - i)
	}
	var random [types.RandomSize]byte
	for i := range random {
		random[i] = 0x11
	}
	value := types.Uint128{Hi: 0, Lo: 1_000_000}
	memo := EncodeMemoText("hello")

	ciphertext, iv, tag, err := EncryptTransactNote(sharedKey, mpk, tokenHash, random, value, memo)
	if err != nil {
		t.Fatalf("EncryptTransactNote: %v", err)
	}

	gotMPK, gotTokenHash, gotRandom, gotValue, gotMemo, err := DecryptTransactNote(sharedKey, iv, tag, ciphertext)
	if err != nil {
		t.Fatalf("DecryptTransactNote: %v", err)
	}
	if gotMPK != mpk {
		t.Error("encodedMPK mismatch")
	}
	if gotTokenHash != tokenHash {
		t.Error("tokenHash mismatch")
	}
	if gotRandom != random {
		t.Error("random mismatch")
	}
	if gotValue != value {
		t.Errorf("value mismatch: got %+v want %+v", gotValue, value)
	}
	gotMemoText, _ := DecodeMemoText(gotMemo)
	if gotMemoText != "hello" {
		t.Errorf("memo mismatch: got %q", gotMemoText)
	}

	var wrongKey [32]byte
	copy(wrongKey[:], sharedKey[:])
	wrongKey[0] ^= 0xff
	if _, _, _, _, _, err := DecryptTransactNote(wrongKey, iv, tag, ciphertext); err != crypto.ErrAuthTagInvalid {
		t.Errorf("expected ErrAuthTagInvalid with wrong key, got %v", err)
	}
}

func TestAnnotationRoundTrip(t *testing.T) {
	var viewingKey types.FE
	for i := range viewingKey {
		viewingKey[i] = byte(i * 7)
	}
	var senderRandom [types.SenderRandomSize]byte
	for i := range senderRandom {
		senderRandom[i] = byte(i + 1)
	}

	data, err := EncryptAnnotation(viewingKey, types.OutputTypeTransfer, senderRandom)
	if err != nil {
		t.Fatalf("EncryptAnnotation: %v", err)
	}
	outputType, gotRandom, err := DecryptAnnotation(viewingKey, data)
	if err != nil {
		t.Fatalf("DecryptAnnotation: %v", err)
	}
	if outputType != types.OutputTypeTransfer {
		t.Errorf("outputType mismatch: got %v", outputType)
	}
	if gotRandom != senderRandom {
		t.Error("senderRandom mismatch")
	}
}

func TestEncodeDecodeCounterpartyMPKSenderVisible(t *testing.T) {
	var receiverMPK, senderMPK types.FE
	for i := range receiverMPK {
		receiverMPK[i] = byte(i)
	}
	for i := range senderMPK {
		senderMPK[i] = byte(200 - i)
	}

	encoded := EncodeMPK(receiverMPK, senderMPK, types.SenderRandomNull)
	recoveredSenderMPK := DecodeCounterpartyMPK(encoded, receiverMPK, types.SenderRandomNull)
	if recoveredSenderMPK != senderMPK {
		t.Error("receiver should recover the sender's MPK when the sender chose to be visible")
	}
}

func TestEncodeDecodeCounterpartyMPKSenderHidden(t *testing.T) {
	var receiverMPK, senderMPK types.FE
	for i := range receiverMPK {
		receiverMPK[i] = byte(i)
	}
	for i := range senderMPK {
		senderMPK[i] = byte(200 - i)
	}
	var hiddenRandom [types.SenderRandomSize]byte
	hiddenRandom[0] = 1 // any non-null value

	encoded := EncodeMPK(receiverMPK, senderMPK, hiddenRandom)
	if encoded != receiverMPK {
		t.Error("hidden-sender encoding should pass receiverMPK through unobscured")
	}
	recoveredReceiverMPK := DecodeCounterpartyMPK(encoded, types.FE{}, hiddenRandom)
	if recoveredReceiverMPK != receiverMPK {
		t.Error("sender decrypting their own sent note should recover the receiver's MPK directly")
	}
}

func TestDeriveNotePublicKeyAndCommitmentHash(t *testing.T) {
	var mpk types.FE
	mpk[31] = 7
	var random [types.RandomSize]byte
	random[0] = 9

	npk, err := DeriveNotePublicKey(mpk, random)
	if err != nil {
		t.Fatalf("DeriveNotePublicKey: %v", err)
	}
	tokenHash, err := DeriveTokenHash(types.TokenData{TokenType: types.TokenTypeFungible})
	if err != nil {
		t.Fatalf("DeriveTokenHash: %v", err)
	}
	value := types.Uint128{Lo: 42}
	h1, err := DeriveCommitmentHash(npk, tokenHash, value)
	if err != nil {
		t.Fatalf("DeriveCommitmentHash: %v", err)
	}
	h2, err := DeriveCommitmentHash(npk, tokenHash, value)
	if err != nil {
		t.Fatalf("DeriveCommitmentHash: %v", err)
	}
	if h1 != h2 {
		t.Error("commitmentHash must be a pure function of (notePublicKey, tokenHash, value)")
	}
}

func TestNullifierUniquenessAcrossPositions(t *testing.T) {
	var viewingKey types.FE
	viewingKey[31] = 5
	nk, err := DeriveNullifyingKey(viewingKey)
	if err != nil {
		t.Fatalf("DeriveNullifyingKey: %v", err)
	}

	seen := make(map[types.FE]bool)
	for pos := uint64(0); pos < 64; pos++ {
		n, err := DeriveNullifier(nk, pos)
		if err != nil {
			t.Fatalf("DeriveNullifier(%d): %v", pos, err)
		}
		if seen[n] {
			t.Fatalf("nullifier collision at position %d", pos)
		}
		seen[n] = true
	}
}

func TestUint128RoundTrip(t *testing.T) {
	v := types.Uint128{Hi: 0x0102030405060708, Lo: 0x1112131415161718}
	fe := Uint128ToFE(v)
	got := FEToUint128(fe)
	if got != v {
		t.Errorf("got %+v, want %+v", got, v)
	}
}
