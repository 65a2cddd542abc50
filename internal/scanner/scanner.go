package scanner

import (
	"context"
	"fmt"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/notes"
	"github.com/privacypool/engine/internal/storage"
	"github.com/privacypool/engine/pkg/types"
)

// Summary reports per-feed results without surfacing per-commitment decrypt
// failures to the caller: decrypt errors are not user-facing, they are
// counted and a summary is emitted.
type Summary struct {
	Scanned     int
	Owned       int
	NotOurs     int
	LegacySkips int
}

// Scanner maintains one wallet's TXO set against an indexer commitment feed,
// generalized to a sharedKey/shielded-commitment decryption model.
type Scanner struct {
	store             *store
	masterPublicKey   types.FE
	viewingPrivateKey types.FE
	nullifyingKey     types.FE
}

// New constructs a Scanner for one wallet on one network, backed by db.
func New(db storage.Database, network string, masterPublicKey, viewingPrivateKey types.FE) (*Scanner, error) {
	nk, err := notes.DeriveNullifyingKey(viewingPrivateKey)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		store:             newStore(db, network),
		masterPublicKey:   masterPublicKey,
		viewingPrivateKey: viewingPrivateKey,
		nullifyingKey:     nk,
	}, nil
}

// EnsureCacheVersion checks the persisted cache version against want, wiping
// and forcing a full rescan on mismatch.
func (s *Scanner) EnsureCacheVersion(ctx context.Context, want string) (wiped bool, err error) {
	return s.store.CheckCacheVersion(ctx, want)
}

// ScanCommitments processes a feed of commitments in the order given
// (ascending block, then tree-position), merging owned notes into the
// wallet's TXO set.
func (s *Scanner) ScanCommitments(ctx context.Context, feed []types.FeedCommitment) (Summary, error) {
	var sum Summary
	for _, c := range feed {
		sum.Scanned++
		owned, err := s.scanOne(ctx, c)
		if err != nil {
			return sum, err
		}
		switch {
		case owned:
			sum.Owned++
		default:
			sum.NotOurs++
		}
	}
	return sum, nil
}

func (s *Scanner) scanOne(ctx context.Context, c types.FeedCommitment) (bool, error) {
	switch c.Type {
	case types.FeedCommitmentShield:
		return s.scanShield(ctx, c)
	case types.FeedCommitmentTransact:
		return s.scanTransact(ctx, c)
	default:
		return s.scanLegacy(ctx, c)
	}
}

// scanShield decrypts and applies one Shield commitment.
func (s *Scanner) scanShield(ctx context.Context, c types.FeedCommitment) (bool, error) {
	if c.Shield == nil {
		return false, fmt.Errorf("scanner: commitment %s marked Shield with no Shield payload", c.ID)
	}
	sharedKey, err := crypto.SharedKey(s.viewingPrivateKey, c.Shield.ShieldKey)
	if err != nil {
		return false, err
	}

	preimage, err := crypto.DecryptShieldBundle(sharedKey, c.Shield.EncryptedBundle)
	if err == crypto.ErrAuthTagInvalid {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var random [types.RandomSize]byte
	copy(random[:], preimage[:types.RandomSize])

	npk, err := notes.DeriveNotePublicKey(s.masterPublicKey, random)
	if err != nil {
		return false, err
	}
	if npk != c.Shield.NotePublicKey {
		return false, nil
	}

	tokenHash, err := notes.DeriveTokenHash(c.Shield.TokenData)
	if err != nil {
		return false, err
	}
	commitmentHash, err := notes.DeriveCommitmentHash(npk, tokenHash, c.Shield.Value)
	if err != nil {
		return false, err
	}
	if commitmentHash != c.Hash {
		return false, nil
	}

	if err := s.store.PutTokenData(ctx, tokenHash, c.Shield.TokenData); err != nil {
		return false, err
	}

	nullifier, err := notes.DeriveNullifier(s.nullifyingKey, c.TreePosition)
	if err != nil {
		return false, err
	}

	utxo := types.UTXO{
		Tree:           c.Tree,
		Position:       c.TreePosition,
		CommitmentHash: commitmentHash,
		TokenData:      c.Shield.TokenData,
		Value:          c.Shield.Value,
		Random:         random,
		NotePublicKey:  npk,
		Nullifier:      nullifier,
		CommitmentType: types.CommitmentTypeShield,
		BlockNumber:    c.BlockNumber,
	}
	if err := s.store.PutUTXO(ctx, commitmentIDFor(utxo), utxo); err != nil {
		return false, err
	}
	return true, nil
}

// scanTransact decrypts and applies one Transact commitment.
func (s *Scanner) scanTransact(ctx context.Context, c types.FeedCommitment) (bool, error) {
	if c.Transact == nil {
		return false, fmt.Errorf("scanner: commitment %s marked Transact with no Transact payload", c.ID)
	}
	p := c.Transact

	receiverKey, errReceiver := crypto.SharedKey(s.viewingPrivateKey, p.BlindedSenderViewingKey)
	senderKey, errSender := crypto.SharedKey(s.viewingPrivateKey, p.BlindedReceiverViewingKey)

	var (
		asSender, found       bool
		encodedMPK, tokenHash types.FE
		random                [types.RandomSize]byte
		value                 types.Uint128
		memo                  [types.MaxMemoBytes]byte
	)
	if errReceiver == nil {
		if mpk, th, r, v, m, err := notes.DecryptTransactNote(receiverKey, p.IV, p.Tag, p.Ciphertext); err == nil {
			asSender, found = false, true
			encodedMPK, tokenHash, random, value, memo = mpk, th, r, v, m
		}
	}
	if !found && errSender == nil {
		if mpk, th, r, v, m, err := notes.DecryptTransactNote(senderKey, p.IV, p.Tag, p.Ciphertext); err == nil {
			asSender, found = true, true
			encodedMPK, tokenHash, random, value, memo = mpk, th, r, v, m
		}
	}
	if !found {
		return false, nil
	}

	// The annotation data is CTR-encrypted with the sender's own viewing
	// private key, not an ECDH-shared one. It only decodes to something
	// meaningful when we ARE that sender (asSender==true, including the
	// self-sent/change case): a normal receiver lacks that key entirely, so
	// it always falls back to the plain XOR reconstruction of senderMPK
	// rather than trusting a senderRandom it has no way to have derived.
	var effectiveMPK types.FE
	var senderMPKPtr *types.FE
	if asSender {
		_, senderRandom, err := notes.DecryptAnnotation(s.viewingPrivateKey, p.AnnotationData)
		if err != nil {
			return false, err
		}
		receiverMPK := notes.DecodeCounterpartyMPK(encodedMPK, s.masterPublicKey, senderRandom)
		effectiveMPK = receiverMPK
		senderMPK := s.masterPublicKey
		senderMPKPtr = &senderMPK
	} else {
		effectiveMPK = s.masterPublicKey
		senderMPK := notes.DecodeCounterpartyMPK(encodedMPK, s.masterPublicKey, types.SenderRandomNull)
		senderMPKPtr = &senderMPK
	}

	npk, err := notes.DeriveNotePublicKey(effectiveMPK, random)
	if err != nil {
		return false, err
	}
	commitmentHash, err := notes.DeriveCommitmentHash(npk, tokenHash, value)
	if err != nil {
		return false, err
	}
	if commitmentHash != c.Hash {
		return false, nil
	}

	tokenData, err := s.resolveTokenData(ctx, tokenHash)
	if err != nil {
		return false, err
	}

	nullifier, err := notes.DeriveNullifier(s.nullifyingKey, c.TreePosition)
	if err != nil {
		return false, err
	}

	memoText, _ := notes.DecodeMemoText(memo)

	utxo := types.UTXO{
		Tree:                  c.Tree,
		Position:              c.TreePosition,
		CommitmentHash:        commitmentHash,
		TokenData:             tokenData,
		Value:                 value,
		Random:                random,
		NotePublicKey:         npk,
		Nullifier:             nullifier,
		CommitmentType:        types.CommitmentTypeTransact,
		BlockNumber:           c.BlockNumber,
		MemoText:              memoText,
		SenderMasterPublicKey: senderMPKPtr,
	}
	if err := s.store.PutUTXO(ctx, commitmentIDFor(utxo), utxo); err != nil {
		return false, err
	}
	return true, nil
}

// resolveTokenData reverses a commitment's tokenHash back to full token
// data: consult the tokenHash
// index built from Shield preimages; for fungible tokens, fall back to
// extracting the address from the low 20 bytes of the hash when it has the
// 12-byte leading-zero structure of a 32-byte-padded address.
// ResolveTokenData exposes resolveTokenData for callers outside this
// package (the PPOI pipeline's sender-side decrypt fallback needs to turn a
// recovered tokenHash back into full TokenData the same way the scanner
// itself does).
func (s *Scanner) ResolveTokenData(ctx context.Context, tokenHash types.FE) (types.TokenData, error) {
	return s.resolveTokenData(ctx, tokenHash)
}

func (s *Scanner) resolveTokenData(ctx context.Context, tokenHash types.FE) (types.TokenData, error) {
	if td, ok, err := s.store.TokenData(ctx, tokenHash); err != nil {
		return types.TokenData{}, err
	} else if ok {
		return td, nil
	}

	for i := 0; i < 12; i++ {
		if tokenHash[i] != 0 {
			return types.TokenData{}, nil
		}
	}
	var td types.TokenData
	td.TokenType = types.TokenTypeFungible
	copy(td.TokenAddress[:], tokenHash[12:32])
	return td, nil
}

// scanLegacy recognizes pre-v2 commitment variants without producing them;
// see legacy.go.
func (s *Scanner) scanLegacy(ctx context.Context, c types.FeedCommitment) (bool, error) {
	return recognizeLegacy(c), nil
}

// ApplyNullifiers merges a batch of observed nullifiers into the per-network
// cache and marks matching owned TXOs spent.
func (s *Scanner) ApplyNullifiers(ctx context.Context, feed []types.FeedNullifier, upToBlock uint64) error {
	nullifiers := make([]types.FE, len(feed))
	for i, n := range feed {
		nullifiers[i] = n.Nullifier
	}
	if err := s.store.AddNullifiers(ctx, nullifiers); err != nil {
		return err
	}

	utxos, err := s.store.AllUTXOs(ctx)
	if err != nil {
		return err
	}
	for _, u := range utxos {
		if u.IsSpent {
			continue
		}
		spent, err := s.store.HasNullifier(ctx, u.Nullifier)
		if err != nil {
			return err
		}
		if spent {
			if err := s.store.MarkSpent(ctx, commitmentIDFor(u)); err != nil {
				return err
			}
		}
	}
	return s.store.SetLastNullifierBlock(ctx, upToBlock)
}

// commitmentIDFor recovers the storage key a UTXO was persisted under. Real
// callers track (tree, position) -> commitment ID at scan time; this mirrors
// the feed's own id convention for a forest position.
func commitmentIDFor(u types.UTXO) string {
	return fmt.Sprintf("%d:%d", u.Tree, u.Position)
}

// WalletUTXOs returns every TXO currently known for this wallet/network.
func (s *Scanner) WalletUTXOs(ctx context.Context) ([]types.UTXO, error) {
	return s.store.AllUTXOs(ctx)
}
