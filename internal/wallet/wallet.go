// Package wallet constructs a RAILGUN-style wallet from its key material and
// implements its bech32-style 0zk address encoding. Everything beyond the
// spending and viewing keys is derived rather than stored, avoiding
// redundant fields that could drift out of sync with the key material.
package wallet

import (
	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/notes"
	"github.com/privacypool/engine/pkg/types"
)

// NewWalletFromKeys derives a full Wallet record from a spending private key
// and a viewing private key: the two secrets a 0zk wallet is backed up by.
// Every other field — the nullifying key, the master public key, and the
// 0zk address itself — is deterministically derived from these.
func NewWalletFromKeys(id types.WalletID, spendingPrivateKey, viewingPrivateKey types.FE, ethereumAddress types.EthAddress) (types.Wallet, error) {
	nullifyingKey, err := notes.DeriveNullifyingKey(viewingPrivateKey)
	if err != nil {
		return types.Wallet{}, err
	}

	spendingPublicKey := crypto.DerivePublicKey(spendingPrivateKey)
	masterPublicKey, err := notes.DeriveMasterPublicKey(spendingPublicKey, nullifyingKey)
	if err != nil {
		return types.Wallet{}, err
	}

	viewingPublicKey := crypto.DerivePublicKey(viewingPrivateKey)
	address, err := EncodeAddress(masterPublicKey, viewingPublicKey)
	if err != nil {
		return types.Wallet{}, err
	}

	return types.Wallet{
		ID:                 id,
		Address:            address,
		MasterPublicKey:    masterPublicKey,
		ViewingPrivateKey:  viewingPrivateKey,
		NullifyingKey:      nullifyingKey,
		SpendingPrivateKey: spendingPrivateKey,
		EthereumAddress:    ethereumAddress,
	}, nil
}

// ViewingPublicKey returns the wallet's viewing public key, recomputed from
// its private key rather than stored redundantly.
func ViewingPublicKey(w types.Wallet) types.CurvePoint {
	return crypto.DerivePublicKey(w.ViewingPrivateKey)
}
