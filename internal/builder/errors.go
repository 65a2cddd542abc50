package builder

import "errors"

var (
	// ErrInsufficientSpendable is returned when the candidate UTXO set cannot
	// cover the requested outputs even after spending everything available.
	ErrInsufficientSpendable = errors.New("builder: insufficient spendable balance for requested outputs")
	// ErrRootMismatch is returned when the selected UTXOs' inclusion proofs
	// do not all resolve to the same Merkle root.
	ErrRootMismatch = errors.New("builder: selected UTXO inclusion proofs do not share a root")
	// ErrMixedTrees is returned when UTXO selection would otherwise span more
	// than one UTXO tree; a single transaction's inputs must come from one.
	ErrMixedTrees = errors.New("builder: selected UTXOs span more than one tree")
	// ErrTooManyOutputs is returned when the combined Transact + Unshield +
	// change outputs exceed the circuit's five-output ceiling.
	ErrTooManyOutputs = errors.New("builder: more than 5 total outputs requested")
	// ErrNoOutputs is returned when a build request has no outputs at all.
	ErrNoOutputs = errors.New("builder: at least one output or unshield is required")
)
