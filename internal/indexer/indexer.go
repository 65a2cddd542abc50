// Package indexer declares the external collaborator contract for the
// on-chain commitment/nullifier/transaction feed. No HTTP
// client is implemented here: callers from outside this engine own the
// transport, and everything downstream (internal/scanner, internal/builder,
// internal/ppoi) depends only on this interface.
package indexer

import (
	"context"

	"github.com/privacypool/engine/pkg/types"
)

// Indexer is the on-chain commitment/nullifier/transaction feed a scanner
// or PPOI pipeline pulls from.
type Indexer interface {
	// FetchCommitments returns every commitment emitted on network at or
	// after fromBlock, in block-ascending, tree-position-ascending order.
	FetchCommitments(ctx context.Context, network string, fromBlock uint64) ([]types.FeedCommitment, error)

	// FetchNullifiers returns every nullifier emitted on network at or
	// after fromBlock.
	FetchNullifiers(ctx context.Context, network string, fromBlock uint64) ([]types.FeedNullifier, error)

	// FetchTransactions returns every RAILGUN transaction recorded on
	// network in the half-open block range [fromBlock, toBlock).
	FetchTransactions(ctx context.Context, network string, fromBlock, toBlock uint64) ([]types.RailgunTransaction, error)
}
