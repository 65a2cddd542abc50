package scanner

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/privacypool/engine/internal/storage"
	"github.com/privacypool/engine/pkg/types"
)

// store is the persisted-state layer the scanner uses on top of a generic
// storage.Database: the wallet TXO set, a per-network
// nullifier cache, a tokenHash->TokenData index built from Shield preimages,
// and a cache-version key that invalidates everything on mismatch.
type store struct {
	db      storage.Database
	network string
}

func newStore(db storage.Database, network string) *store {
	return &store{db: db, network: network}
}

func (s *store) prefix() string { return fmt.Sprintf("scanner:%s:", s.network) }

func (s *store) txoKey(commitmentID string) string {
	return s.prefix() + "txo:" + commitmentID
}

func (s *store) nullifierKey(n types.FE) string {
	return s.prefix() + "nullifier:" + hex.EncodeToString(n.Bytes())
}

func (s *store) tokenHashKey(h types.FE) string {
	return s.prefix() + "tokenhash:" + hex.EncodeToString(h.Bytes())
}

func (s *store) cacheVersionKey() string { return s.prefix() + "cache-version" }

func (s *store) lastNullifierBlockKey() string { return s.prefix() + "last-nullifier-block" }

// CacheVersion returns the persisted cache version, or "" if never set.
func (s *store) CacheVersion(ctx context.Context) (string, error) {
	v, ok, err := s.db.Get(ctx, s.cacheVersionKey())
	if err != nil || !ok {
		return "", err
	}
	return string(v), nil
}

// CheckCacheVersion compares want against the persisted version. If they
// differ (including "never set"), it wipes every scanner-owned key in this
// network's scope, sets the version to want, and returns wiped=true so the
// caller knows a full rescan is required.
func (s *store) CheckCacheVersion(ctx context.Context, want string) (wiped bool, err error) {
	got, err := s.CacheVersion(ctx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	if got == want {
		return false, nil
	}
	keys, err := s.db.Keys(ctx, s.prefix())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	ops := make([]storage.Op, 0, len(keys)+1)
	for _, k := range keys {
		ops = append(ops, storage.DeleteOp(k))
	}
	ops = append(ops, storage.PutOp(s.cacheVersionKey(), []byte(want)))
	if err := s.db.Batch(ctx, ops); err != nil {
		return false, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	return true, nil
}

// PutUTXO persists (or overwrites) a discovered TXO.
func (s *store) PutUTXO(ctx context.Context, commitmentID string, utxo types.UTXO) error {
	return s.db.Put(ctx, s.txoKey(commitmentID), encodeUTXO(utxo))
}

// UTXO fetches a previously-persisted TXO.
func (s *store) UTXO(ctx context.Context, commitmentID string) (types.UTXO, bool, error) {
	v, ok, err := s.db.Get(ctx, s.txoKey(commitmentID))
	if err != nil || !ok {
		return types.UTXO{}, ok, err
	}
	u, err := decodeUTXO(v)
	return u, true, err
}

// AllUTXOs returns every TXO currently persisted for this network.
func (s *store) AllUTXOs(ctx context.Context) ([]types.UTXO, error) {
	keys, err := s.db.Keys(ctx, s.prefix()+"txo:")
	if err != nil {
		return nil, err
	}
	out := make([]types.UTXO, 0, len(keys))
	for _, k := range keys {
		v, ok, err := s.db.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		u, err := decodeUTXO(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
		}
		out = append(out, u)
	}
	return out, nil
}

// MarkSpent persists isSpent=true for a UTXO found to match a seen nullifier.
func (s *store) MarkSpent(ctx context.Context, commitmentID string) error {
	u, ok, err := s.UTXO(ctx, commitmentID)
	if err != nil {
		return err
	}
	if !ok || u.IsSpent {
		return nil
	}
	u.IsSpent = true
	return s.PutUTXO(ctx, commitmentID, u)
}

// AddNullifiers records a batch of observed nullifiers into the cache.
func (s *store) AddNullifiers(ctx context.Context, nullifiers []types.FE) error {
	ops := make([]storage.Op, len(nullifiers))
	for i, n := range nullifiers {
		ops[i] = storage.PutOp(s.nullifierKey(n), []byte{1})
	}
	return s.db.Batch(ctx, ops)
}

// HasNullifier reports whether n has been observed as spent.
func (s *store) HasNullifier(ctx context.Context, n types.FE) (bool, error) {
	_, ok, err := s.db.Get(ctx, s.nullifierKey(n))
	return ok, err
}

// PutTokenData indexes a TokenData under its tokenHash, learned from a Shield
// preimage.
func (s *store) PutTokenData(ctx context.Context, tokenHash types.FE, td types.TokenData) error {
	return s.db.Put(ctx, s.tokenHashKey(tokenHash), encodeTokenData(td))
}

// TokenData resolves a tokenHash to previously-seen TokenData.
func (s *store) TokenData(ctx context.Context, tokenHash types.FE) (types.TokenData, bool, error) {
	v, ok, err := s.db.Get(ctx, s.tokenHashKey(tokenHash))
	if err != nil || !ok {
		return types.TokenData{}, ok, err
	}
	return decodeTokenData(v), true, nil
}

func (s *store) LastNullifierBlock(ctx context.Context) (uint64, bool, error) {
	v, ok, err := s.db.Get(ctx, s.lastNullifierBlockKey())
	if err != nil || !ok {
		return 0, ok, err
	}
	return binary.BigEndian.Uint64(v), true, nil
}

func (s *store) SetLastNullifierBlock(ctx context.Context, block uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], block)
	return s.db.Put(ctx, s.lastNullifierBlockKey(), b[:])
}

func encodeUTXO(u types.UTXO) []byte {
	buf := make([]byte, 0, 256)
	var tmp4 [4]byte
	var tmp8 [8]byte

	binary.BigEndian.PutUint32(tmp4[:], u.Tree)
	buf = append(buf, tmp4[:]...)
	binary.BigEndian.PutUint64(tmp8[:], u.Position)
	buf = append(buf, tmp8[:]...)
	buf = append(buf, u.CommitmentHash[:]...)
	buf = append(buf, byte(u.TokenData.TokenType))
	buf = append(buf, u.TokenData.TokenAddress[:]...)
	buf = append(buf, u.TokenData.TokenSubID[:]...)
	binary.BigEndian.PutUint64(tmp8[:], u.Value.Hi)
	buf = append(buf, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], u.Value.Lo)
	buf = append(buf, tmp8[:]...)
	buf = append(buf, u.Random[:]...)
	buf = append(buf, u.NotePublicKey[:]...)
	buf = append(buf, u.Nullifier[:]...)
	buf = append(buf, byte(u.CommitmentType))
	spent := byte(0)
	if u.IsSpent {
		spent = 1
	}
	buf = append(buf, spent)
	binary.BigEndian.PutUint64(tmp8[:], u.BlockNumber)
	buf = append(buf, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], u.Timestamp)
	buf = append(buf, tmp8[:]...)

	memo := []byte(u.MemoText)
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(memo)))
	buf = append(buf, tmp4[:]...)
	buf = append(buf, memo...)

	if u.SenderMasterPublicKey != nil {
		buf = append(buf, 1)
		buf = append(buf, u.SenderMasterPublicKey[:]...)
	} else {
		buf = append(buf, 0)
	}
	if u.ReceiverAddress != nil {
		addr := []byte(*u.ReceiverAddress)
		buf = append(buf, 1)
		binary.BigEndian.PutUint32(tmp4[:], uint32(len(addr)))
		buf = append(buf, tmp4[:]...)
		buf = append(buf, addr...)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func decodeUTXO(b []byte) (types.UTXO, error) {
	var u types.UTXO
	r := &byteReader{b: b}

	u.Tree = binary.BigEndian.Uint32(r.take(4))
	u.Position = binary.BigEndian.Uint64(r.take(8))
	copy(u.CommitmentHash[:], r.take(types.FESize))
	u.TokenData.TokenType = types.TokenType(r.take(1)[0])
	copy(u.TokenData.TokenAddress[:], r.take(types.AddressSize))
	copy(u.TokenData.TokenSubID[:], r.take(types.FESize))
	u.Value.Hi = binary.BigEndian.Uint64(r.take(8))
	u.Value.Lo = binary.BigEndian.Uint64(r.take(8))
	copy(u.Random[:], r.take(types.RandomSize))
	copy(u.NotePublicKey[:], r.take(types.FESize))
	copy(u.Nullifier[:], r.take(types.FESize))
	u.CommitmentType = types.CommitmentType(r.take(1)[0])
	u.IsSpent = r.take(1)[0] == 1
	u.BlockNumber = binary.BigEndian.Uint64(r.take(8))
	u.Timestamp = binary.BigEndian.Uint64(r.take(8))

	memoLen := binary.BigEndian.Uint32(r.take(4))
	u.MemoText = string(r.take(int(memoLen)))

	if r.take(1)[0] == 1 {
		var mpk types.FE
		copy(mpk[:], r.take(types.FESize))
		u.SenderMasterPublicKey = &mpk
	}
	if r.take(1)[0] == 1 {
		addrLen := binary.BigEndian.Uint32(r.take(4))
		addr := string(r.take(int(addrLen)))
		u.ReceiverAddress = &addr
	}
	if r.err != nil {
		return types.UTXO{}, r.err
	}
	return u, nil
}

func encodeTokenData(td types.TokenData) []byte {
	buf := make([]byte, 0, 1+types.AddressSize+types.FESize)
	buf = append(buf, byte(td.TokenType))
	buf = append(buf, td.TokenAddress[:]...)
	buf = append(buf, td.TokenSubID[:]...)
	return buf
}

func decodeTokenData(b []byte) types.TokenData {
	var td types.TokenData
	r := &byteReader{b: b}
	td.TokenType = types.TokenType(r.take(1)[0])
	copy(td.TokenAddress[:], r.take(types.AddressSize))
	copy(td.TokenSubID[:], r.take(types.FESize))
	return td
}

// byteReader is a tiny cursor over a fixed-layout byte slice; it records the
// first out-of-bounds read rather than panicking, since a truncated record
// means the cache is corrupt, not a programmer error.
type byteReader struct {
	b   []byte
	pos int
	err error
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.pos+n > len(r.b) {
		r.err = fmt.Errorf("scanner: truncated record at offset %d (need %d, have %d)", r.pos, n, len(r.b)-r.pos)
		return make([]byte, n)
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}
