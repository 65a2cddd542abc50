package ppoi

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/privacypool/engine/internal/storage"
	"github.com/privacypool/engine/pkg/types"
)

// statusTTLSeconds is the cache lifetime for a PPOI status entry (24 hours).
const statusTTLSeconds = 24 * 60 * 60

// StatusCache persists PPOI node responses keyed
// "{network}->{blindedCommitmentNormalized}->{status,timestamp}".
// listKey is folded into the key alongside network and blinded
// commitment — a single cache key with no list qualifier would collide, so without
// this a second list's status would silently overwrite the first's.
type StatusCache struct {
	db storage.Database
}

// NewStatusCache wraps db as a PPOI status cache.
func NewStatusCache(db storage.Database) *StatusCache {
	return &StatusCache{db: db}
}

func normalizeBlindedCommitment(bc types.FE) string {
	return hex.EncodeToString(bc.Bytes())
}

func (c *StatusCache) key(network string, listKey ListKey, bc types.FE) string {
	return fmt.Sprintf("ppoi-status:%s:%s:%s", network, listKey, normalizeBlindedCommitment(bc))
}

// Put records status for bc as observed at nowUnix.
func (c *StatusCache) Put(ctx context.Context, network string, listKey ListKey, bc types.FE, status types.PPOIStatusValue, nowUnix uint64) error {
	var buf [9]byte
	buf[0] = byte(status)
	binary.BigEndian.PutUint64(buf[1:], nowUnix)
	return c.db.Batch(ctx, []storage.Op{storage.PutOp(c.key(network, listKey, bc), buf[:])})
}

// Get returns the cached status for bc if present and not expired as of
// nowUnix.
func (c *StatusCache) Get(ctx context.Context, network string, listKey ListKey, bc types.FE, nowUnix uint64) (status types.PPOIStatusValue, fresh bool, err error) {
	v, ok, err := c.db.Get(ctx, c.key(network, listKey, bc))
	if err != nil || !ok {
		return types.PPOIStatusMissing, false, err
	}
	if len(v) != 9 {
		return types.PPOIStatusMissing, false, fmt.Errorf("ppoi: corrupt status cache entry")
	}
	status = types.PPOIStatusValue(v[0])
	ts := binary.BigEndian.Uint64(v[1:])
	if nowUnix > ts && nowUnix-ts > statusTTLSeconds {
		return types.PPOIStatusMissing, false, nil
	}
	return status, true, nil
}

// Invalidate drops the cached status for bc. Called after a successful
// proof submission invalidates the submitted blinded commitments.
func (c *StatusCache) Invalidate(ctx context.Context, network string, listKey ListKey, bc types.FE) error {
	return c.db.Batch(ctx, []storage.Op{storage.DeleteOp(c.key(network, listKey, bc))})
}
