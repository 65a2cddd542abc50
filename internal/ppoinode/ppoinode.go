// Package ppoinode declares the external collaborator contract for a
// Proof-of-Innocence node. As with internal/indexer, no
// JSON-RPC/REST client is implemented here: internal/ppoi depends only on
// this interface, and a caller elsewhere in the binary supplies the
// transport.
package ppoinode

import (
	"context"

	"github.com/privacypool/engine/pkg/types"
)

// MerkleProofRequest asks a PPOI node for the PPOI input-tree inclusion
// proof of each listed blinded commitment.
type MerkleProofRequest struct {
	ChainType          uint8    `json:"chainType"`
	ChainID            uint64   `json:"chainID"`
	TxidVersion        string   `json:"txidVersion"`
	ListKey            string   `json:"listKey"`
	BlindedCommitments []string `json:"blindedCommitments"`
}

// MerkleProof is one PPOI input-tree inclusion proof, hex-encoded for the
// wire. Field elements round-trip through pkg/types.FEFromHex on the caller
// side; this package stays transport-only and never imports the prover or
// Merkle packages.
type MerkleProof struct {
	Leaf        string   `json:"leaf"`
	Siblings    []string `json:"siblings"`
	IndicesBits string   `json:"indices"`
	Root        string   `json:"root"`
}

// ValidateTxidMerklerootRequest checks whether merkleroot is the node's
// recorded historical root at (tree, index).
type ValidateTxidMerklerootRequest struct {
	ChainType   uint8  `json:"chainType"`
	ChainID     uint64 `json:"chainID"`
	TxidVersion string `json:"txidVersion"`
	Tree        uint16 `json:"tree"`
	Index       uint32 `json:"index"`
	Merkleroot  string `json:"merkleroot"`
}

// ValidatedTxidStatus reports the node's most recently validated TxID-tree
// position, used to distinguish "node is behind us" from a genuine
// merkleroot mismatch.
type ValidatedTxidStatus struct {
	ValidatedTxidIndex  uint32 `json:"validatedTxidIndex"`
	ValidatedMerkleroot string `json:"validatedMerkleroot"`
}

// TransactProofSubmission is the payload for ppoi_submit_transact_proof.
// PPOI and TXID merkleroots are submitted without a "0x" prefix; blinded
// commitment outputs and RailgunTxidIfHasUnshield are submitted with one.
// internal/ppoi is responsible for that formatting
// before constructing this value; this package does not reformat it.
type TransactProofSubmission struct {
	ChainType                uint8        `json:"chainType"`
	ChainID                  uint64       `json:"chainID"`
	TxidVersion              string       `json:"txidVersion"`
	ListKey                  string       `json:"listKey"`
	Proof                    Groth16Proof `json:"snarkProof"`
	PoiMerkleroots           []string     `json:"poiMerkleroots"`
	TxidMerkleroot           string       `json:"txidMerkleroot"`
	TxidMerklerootIndex      uint32       `json:"txidMerklerootIndex"`
	BlindedCommitmentsOut    []string     `json:"blindedCommitmentsOut"`
	RailgunTxidIfHasUnshield string       `json:"railgunTxidIfHasUnshield"`
}

// Groth16Proof mirrors the on-chain proof-contract wire format:
// {a: G1, b: G2, c: G1}, with b's coordinate pairs swapped per element.
type Groth16Proof struct {
	A [2]string    `json:"a"`
	B [2][2]string `json:"b"`
	C [2]string    `json:"c"`
}

// StatusMap is the response shape of the pois-per-blinded-commitment
// REST/RPC call: either a single status per blinded commitment, or, when a
// node tracks multiple lists, a status per listKey.
type StatusMap map[string]ListKeyStatus

// ListKeyStatus is either a single status string or a per-list map; decoded
// by the caller depending on which the node actually returned. Raw strings
// are mapped onto types.PPOIStatusValue by types.NodeStatusToPPOIStatus.
type ListKeyStatus struct {
	Status    string            `json:"status,omitempty"`
	ByListKey map[string]string `json:"byListKey,omitempty"`
}

// Resolve returns the status for listKey, falling back to Status when the
// node did not break results down per list.
func (s ListKeyStatus) Resolve(listKey string) types.PPOIStatusValue {
	if s.ByListKey != nil {
		if raw, ok := s.ByListKey[listKey]; ok {
			return types.NodeStatusToPPOIStatus(raw)
		}
	}
	return types.NodeStatusToPPOIStatus(s.Status)
}

// Node is the PPOI node contract an internal/ppoi pipeline depends on.
type Node interface {
	MerkleProofs(ctx context.Context, req MerkleProofRequest) ([]MerkleProof, error)
	ValidateTxidMerkleroot(ctx context.Context, req ValidateTxidMerklerootRequest) (bool, error)
	ValidatedTxid(ctx context.Context, chainType uint8, chainID uint64, txidVersion string) (ValidatedTxidStatus, error)
	SubmitTransactProof(ctx context.Context, submission TransactProofSubmission) error
	StatusesByBlindedCommitment(ctx context.Context, chainType uint8, chainID uint64, txidVersion string, blindedCommitments []string) (StatusMap, error)
}
