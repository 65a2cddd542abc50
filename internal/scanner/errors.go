// Package scanner implements the commitment scanner: given an indexer
// commitment feed, it trial-decrypts Shield and Transact commitments against
// a wallet's viewing key, resolves token data, tracks spent status via the
// nullifier cache, and maintains a versioned cache that can be wiped and
// fully rescanned.
package scanner

import "errors"

// ErrIndexerUnreachable is surfaced to the caller: ScannerError::IndexerUnreachable.
var ErrIndexerUnreachable = errors.New("scanner: indexer unreachable")

// ErrCorruptCache is surfaced to the caller when persisted scanner state
// cannot be read, decoded or rewritten: ScannerError::CorruptCache. Returning
// it does not bump the cache version or start a rescan.
var ErrCorruptCache = errors.New("scanner: corrupt cache")
