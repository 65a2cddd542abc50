package builder

import "github.com/privacypool/engine/pkg/types"

// TransactOutput describes one internal (shielded-to-shielded) note a
// caller wants to create. ShowSender controls the §4.6 sender-visibility
// choice: true encodes senderRandom as the NULL sentinel so the receiver's
// wallet can recover the sender's address, false hides it behind a random
// senderRandom value.
type TransactOutput struct {
	ReceiverMasterPublicKey  types.FE
	ReceiverViewingPublicKey types.CurvePoint
	Value                    types.Uint128
	OutputType               types.OutputType
	ShowSender               bool
	Memo                     string
}

// UnshieldOutput describes a withdrawal to a public Ethereum address.
type UnshieldOutput struct {
	RecipientEthAddress types.EthAddress
	Value               types.Uint128
	Override            bool // selects BoundParams.Unshield == UnshieldOverride
}

// Request is everything needed to build one transaction for a single token
//: the candidate spendable set, the desired outputs, and the
// transaction-wide bound parameters.
type Request struct {
	Token       types.TokenData
	Candidates  []types.UTXO
	Outputs     []TransactOutput
	Unshield    *UnshieldOutput
	AdaptID     types.AdaptID
	MinGasPrice types.Uint128
	ChainID     types.ChainID
	Dummy       bool // true selects the dummy-proof gas-estimation path
}

// Result is the fully-assembled transaction ready for submission, plus the
// bookkeeping the caller needs to persist a sent-output record and to
// drive the PPOI pipeline later.
type Result struct {
	MerkleRoot      types.FE
	BoundParamsHash types.FE
	Nullifiers      []types.FE
	CommitmentsOut  []types.FE
	BoundParams     types.BoundParams
	Signature       types.ZKSignature
	Proof           types.Proof

	SpentUTXOs []types.UTXO
	// SentOutputs mirrors CommitmentsOut, carrying the plaintext fields a
	// sender needs to reconstruct an output it cannot later decrypt itself.
	SentOutputs []SentOutput
}

// SentOutput is one output's plaintext record, the builder-time input to
// internal/sentoutput.
type SentOutput struct {
	CommitmentHash types.FE
	NotePublicKey  types.FE
	Value          types.Uint128
	TokenData      types.TokenData
	IsUnshield     bool
}
