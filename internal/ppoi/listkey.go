// Package ppoi drives the Proof-of-Innocence pipeline: for each transaction
// we sent, prove provenance of its spent inputs against a named allow-list so
// the PPOI node will add the transaction's output blinded-commitments to that
// list. It sits above internal/ppoinode (transport contract),
// internal/merkle and internal/txidtree (local proof verification),
// internal/sentoutput and internal/scanner (output recovery), and
// internal/prover (the PPOI circuit).
package ppoi

// ListKey names one PPOI allow-list a node tracks. A node may track several
// (e.g. a default list plus jurisdiction-specific lists); every proof is
// submitted and cached per list, not globally.
type ListKey string

// DefaultListKey is the list every wallet proves against unless a caller
// names another.
const DefaultListKey ListKey = "default"
