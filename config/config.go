// Package config holds a table mapping a human network name to its chain
// identity. No canonical network list is assumed, so this package
// supplies a small built-in table and treats an unrecognized name as a hard
// error rather than silently defaulting to chain zero.
package config

import "github.com/privacypool/engine/pkg/types"

// ChainEntry is one network's chain identity, e.g. as used in bound-params
// hashing and in selecting an indexer/ppoinode endpoint.
type ChainEntry struct {
	Name    string
	ChainID types.ChainID
}

// ChainTable looks up a network name to its ChainEntry.
type ChainTable map[string]ChainEntry

// DefaultChainTable is the built-in set of networks this engine recognizes
// out of the box. Operators extend it with -network/-chain-type/-chain-id
// flags at cmd/engined startup (a non-zero -chain-id registers -network);
// see cmd/engined/main.go.
func DefaultChainTable() ChainTable {
	return ChainTable{
		"ethereum": {Name: "ethereum", ChainID: types.ChainID{ChainType: 0, ID: 1}},
		"polygon":  {Name: "polygon", ChainID: types.ChainID{ChainType: 0, ID: 137}},
		"bsc":      {Name: "bsc", ChainID: types.ChainID{ChainType: 0, ID: 56}},
		"arbitrum": {Name: "arbitrum", ChainID: types.ChainID{ChainType: 0, ID: 42161}},
	}
}

// Lookup returns network's ChainEntry, or ok=false if network is not in the
// table — callers must treat that as a hard error, not a zero-value default.
func (t ChainTable) Lookup(network string) (ChainEntry, bool) {
	e, ok := t[network]
	return e, ok
}

// Add inserts or overwrites an entry, used by cmd/engined to register a
// network absent from DefaultChainTable.
func (t ChainTable) Add(name string, chainType uint8, chainID uint64) {
	t[name] = ChainEntry{Name: name, ChainID: types.ChainID{ChainType: chainType, ID: chainID}}
}
