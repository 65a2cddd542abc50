package wallet

import (
	"testing"

	"github.com/privacypool/engine/pkg/types"
)

func feFilled(b byte) types.FE {
	var fe types.FE
	for i := range fe {
		fe[i] = b
	}
	return fe
}

func TestNewWalletFromKeysIsDeterministic(t *testing.T) {
	spendingPriv := feFilled(1)
	viewingPriv := feFilled(2)

	w1, err := NewWalletFromKeys("w1", spendingPriv, viewingPriv, types.EthAddress{})
	if err != nil {
		t.Fatalf("NewWalletFromKeys: %v", err)
	}
	w2, err := NewWalletFromKeys("w2", spendingPriv, viewingPriv, types.EthAddress{})
	if err != nil {
		t.Fatalf("NewWalletFromKeys: %v", err)
	}

	if w1.MasterPublicKey != w2.MasterPublicKey {
		t.Error("same key material should derive the same master public key")
	}
	if w1.Address != w2.Address {
		t.Error("same key material should derive the same address")
	}
	if w1.NullifyingKey != w2.NullifyingKey {
		t.Error("same key material should derive the same nullifying key")
	}
}

func TestNewWalletFromKeysDiffersBySeed(t *testing.T) {
	w1, err := NewWalletFromKeys("w1", feFilled(1), feFilled(2), types.EthAddress{})
	if err != nil {
		t.Fatalf("NewWalletFromKeys: %v", err)
	}
	w2, err := NewWalletFromKeys("w2", feFilled(3), feFilled(4), types.EthAddress{})
	if err != nil {
		t.Fatalf("NewWalletFromKeys: %v", err)
	}
	if w1.MasterPublicKey == w2.MasterPublicKey {
		t.Error("different key material should derive different master public keys")
	}
	if w1.Address == w2.Address {
		t.Error("different key material should derive different addresses")
	}
}

func TestAddressRoundTrip(t *testing.T) {
	w, err := NewWalletFromKeys("w1", feFilled(5), feFilled(6), types.EthAddress{})
	if err != nil {
		t.Fatalf("NewWalletFromKeys: %v", err)
	}

	mpk, viewingPub, err := DecodeAddress(w.Address)
	if err != nil {
		t.Fatalf("DecodeAddress: %v", err)
	}
	if mpk != w.MasterPublicKey {
		t.Error("decoded master public key does not match original")
	}
	if viewingPub != ViewingPublicKey(w) {
		t.Error("decoded viewing public key does not match original")
	}
}

func TestDecodeAddressRejectsWrongHRP(t *testing.T) {
	if _, _, err := DecodeAddress("bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"); err != ErrInvalidAddress {
		t.Errorf("expected ErrInvalidAddress for a foreign HRP, got %v", err)
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeAddress("not-a-bech32-string"); err == nil {
		t.Error("expected an error decoding a non-bech32 string")
	}
}
