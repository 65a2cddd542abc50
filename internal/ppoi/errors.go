package ppoi

import "errors"

var (
	// ErrMissingOutputNPK is returned when none of the recovery sources
	// can resolve an output's note public key.
	ErrMissingOutputNPK = errors.New("ppoi: could not resolve output npk from any source")
	// ErrInputProofMissing means the PPOI node has not yet indexed a proof
	// for a Transact input (a Shield input is always auto-provable).
	ErrInputProofMissing = errors.New("ppoi: upstream poi not yet submitted for a transact input")
	// ErrInputProofInvalid is returned when a fetched PPOI input proof does
	// not verify locally against the claimed root.
	ErrInputProofInvalid = errors.New("ppoi: input merkle proof failed local verification")
	// ErrTxidMerklerootMismatch is returned when the node's historical root
	// at our transaction's index does not match our own, and the node is not
	// behind us.
	ErrTxidMerklerootMismatch = errors.New("ppoi: txid historical merkleroot mismatch")
	// ErrNodeIndexing is returned when the node's validated index trails our
	// transaction's index: the caller should retry later, not fail the user.
	ErrNodeIndexing = errors.New("ppoi: node is still indexing, retry later")
	// ErrValueConservation is returned when sum(valuesIn) < sum(valuesOut).
	ErrValueConservation = errors.New("ppoi: sum of input values is less than sum of output values")
	// ErrNullifierNotFound is returned when an on-chain nullifier cannot be
	// matched to any of our wallet's spent UTXOs.
	ErrNullifierNotFound = errors.New("ppoi: on-chain nullifier does not match any known spent utxo")
)
