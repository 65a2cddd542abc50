// Package sentoutput persists the plaintext fields of our own outbound notes
// at build time, keyed by the wallet's deterministic 0zk address rather than
// its runtime wallet id: the PPOI pipeline falls back to this
// store when it cannot recover an output's (npk, value, random, tokenData)
// any other way.
package sentoutput

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/privacypool/engine/internal/storage"
	"github.com/privacypool/engine/pkg/types"
)

// Record is one output's plaintext bookkeeping. Random is required by the
// PPOI recovery priority chain, which needs (npk, value, random, tokenData)
// for every output; without it this store could not serve its own stated
// purpose, so it is kept here alongside the rest of the note's plaintext.
type Record struct {
	CommitmentHash   types.FE
	NotePublicKey    types.FE
	Value            types.Uint128
	TokenData        types.TokenData
	Random           [types.RandomSize]byte
	RecipientAddress string
	TransactionHash  string
	RailgunTxid      *types.FE
	Timestamp        uint64
}

// Store is a thin keyspace over a generic storage.Database.
type Store struct {
	db storage.Database
}

// New wraps db as a sent-output store.
func New(db storage.Database) *Store {
	return &Store{db: db}
}

func normalizeTxHash(h string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(h, "0x"), "0X"))
}

func (s *Store) ethTxKey(walletAddress, ethTxHash string, commitmentHash types.FE) string {
	return fmt.Sprintf("sentoutput:%s:ethtx:%s:%s", walletAddress, normalizeTxHash(ethTxHash), hex.EncodeToString(commitmentHash.Bytes()))
}

func (s *Store) txidKey(walletAddress string, railgunTxid, commitmentHash types.FE) string {
	return fmt.Sprintf("sentoutput:%s:txid:%s:%s", walletAddress, hex.EncodeToString(railgunTxid.Bytes()), hex.EncodeToString(commitmentHash.Bytes()))
}

// Put persists rec under walletAddress, indexed by its Ethereum transaction
// hash and, when known, its RAILGUN txid.
func (s *Store) Put(ctx context.Context, walletAddress string, rec Record) error {
	data := encodeRecord(rec)
	ops := []storage.Op{storage.PutOp(s.ethTxKey(walletAddress, rec.TransactionHash, rec.CommitmentHash), data)}
	if rec.RailgunTxid != nil {
		ops = append(ops, storage.PutOp(s.txidKey(walletAddress, *rec.RailgunTxid, rec.CommitmentHash), data))
	}
	return s.db.Batch(ctx, ops)
}

// ByRailgunTxid returns every output this wallet sent as part of railgunTxid.
func (s *Store) ByRailgunTxid(ctx context.Context, walletAddress string, railgunTxid types.FE) ([]Record, error) {
	prefix := fmt.Sprintf("sentoutput:%s:txid:%s:", walletAddress, hex.EncodeToString(railgunTxid.Bytes()))
	return s.scan(ctx, prefix)
}

// ByEthTxHash returns every output this wallet sent as part of the
// transaction with the given Ethereum transaction hash.
func (s *Store) ByEthTxHash(ctx context.Context, walletAddress, ethTxHash string) ([]Record, error) {
	prefix := fmt.Sprintf("sentoutput:%s:ethtx:%s:", walletAddress, normalizeTxHash(ethTxHash))
	return s.scan(ctx, prefix)
}

func (s *Store) scan(ctx context.Context, prefix string) ([]Record, error) {
	keys, err := s.db.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		v, ok, err := s.db.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		rec, err := decodeRecord(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func encodeRecord(r Record) []byte {
	buf := make([]byte, 0, 256)
	var tmp8 [8]byte

	buf = append(buf, r.CommitmentHash[:]...)
	buf = append(buf, r.NotePublicKey[:]...)
	binary.BigEndian.PutUint64(tmp8[:], r.Value.Hi)
	buf = append(buf, tmp8[:]...)
	binary.BigEndian.PutUint64(tmp8[:], r.Value.Lo)
	buf = append(buf, tmp8[:]...)
	buf = append(buf, byte(r.TokenData.TokenType))
	buf = append(buf, r.TokenData.TokenAddress[:]...)
	buf = append(buf, r.TokenData.TokenSubID[:]...)
	buf = append(buf, r.Random[:]...)

	buf = appendLenPrefixed(buf, []byte(r.RecipientAddress))
	buf = appendLenPrefixed(buf, []byte(r.TransactionHash))

	if r.RailgunTxid != nil {
		buf = append(buf, 1)
		buf = append(buf, r.RailgunTxid[:]...)
	} else {
		buf = append(buf, 0)
	}
	binary.BigEndian.PutUint64(tmp8[:], r.Timestamp)
	buf = append(buf, tmp8[:]...)
	return buf
}

func decodeRecord(b []byte) (Record, error) {
	var r Record
	c := &cursor{b: b}

	copy(r.CommitmentHash[:], c.take(types.FESize))
	copy(r.NotePublicKey[:], c.take(types.FESize))
	r.Value.Hi = binary.BigEndian.Uint64(c.take(8))
	r.Value.Lo = binary.BigEndian.Uint64(c.take(8))
	r.TokenData.TokenType = types.TokenType(c.take(1)[0])
	copy(r.TokenData.TokenAddress[:], c.take(types.AddressSize))
	copy(r.TokenData.TokenSubID[:], c.take(types.FESize))
	copy(r.Random[:], c.take(types.RandomSize))

	r.RecipientAddress = string(c.takeLenPrefixed())
	r.TransactionHash = string(c.takeLenPrefixed())

	if c.take(1)[0] == 1 {
		var txid types.FE
		copy(txid[:], c.take(types.FESize))
		r.RailgunTxid = &txid
	}
	r.Timestamp = binary.BigEndian.Uint64(c.take(8))

	if c.err != nil {
		return Record{}, c.err
	}
	return r, nil
}

func appendLenPrefixed(buf, v []byte) []byte {
	var tmp4 [4]byte
	binary.BigEndian.PutUint32(tmp4[:], uint32(len(v)))
	buf = append(buf, tmp4[:]...)
	return append(buf, v...)
}

// cursor is a tiny reader over a fixed-layout byte slice; it records the
// first out-of-bounds read rather than panicking, since a truncated record
// means the store is corrupt, not a programmer error.
type cursor struct {
	b   []byte
	pos int
	err error
}

func (c *cursor) take(n int) []byte {
	if c.err != nil {
		return make([]byte, n)
	}
	if c.pos+n > len(c.b) {
		c.err = fmt.Errorf("sentoutput: truncated record at offset %d (need %d, have %d)", c.pos, n, len(c.b)-c.pos)
		return make([]byte, n)
	}
	out := c.b[c.pos : c.pos+n]
	c.pos += n
	return out
}

func (c *cursor) takeLenPrefixed() []byte {
	n := binary.BigEndian.Uint32(c.take(4))
	return c.take(int(n))
}
