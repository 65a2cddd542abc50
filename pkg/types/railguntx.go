package types

// UnshieldKind selects whether a transaction's bound params declare an
// unshield and whether the contract may override the unshield amount.
type UnshieldKind uint8

const (
	UnshieldNone     UnshieldKind = 0
	UnshieldStandard UnshieldKind = 1
	UnshieldOverride UnshieldKind = 2
)

// ChainID packs a 1-byte chain type and 7-byte numeric chain id into the
// encoding the bound-params hash expects.
type ChainID struct {
	ChainType uint8
	ID        uint64 // only the low 56 bits are used
}

// AdaptID names the calling contract and its opaque parameters for an
// adapt-module transaction (e.g. a relay or cross-contract call).
type AdaptID struct {
	Contract   EthAddress
	Parameters FE
}

// BoundParams is the struct hashed into BoundParamsHash.
type BoundParams struct {
	TreeNumber            uint16
	MinGasPrice           Uint128
	Unshield              UnshieldKind
	ChainID               ChainID
	AdaptContract         EthAddress
	AdaptParams           FE
	CommitmentCiphertexts []CommitmentCiphertext
}

// CommitmentCiphertext is the on-chain encrypted payload for one Transact
// output, plus the metadata needed to recover the blinded shared key. IV and
// Tag are the AES-256-GCM nonce and authentication tag for Ciphertext;
// this is the builder-produced counterpart of the indexer feed's
// TransactPayload, and the two must stay bit-for-bit compatible.
type CommitmentCiphertext struct {
	IV                        [12]byte
	Tag                       [16]byte
	Ciphertext                [4]FE // data[0..3]
	BlindedSenderViewingKey   CurvePoint
	BlindedReceiverViewingKey CurvePoint
	AnnotationData            [48]byte
	Memo                      [MaxMemoBytes]byte
}

// RailgunTransaction is one on-chain RAILGUN transaction as returned by the
// indexer's fetchTransactions operation.
type RailgunTransaction struct {
	ID                        string
	Nullifiers                []FE
	Commitments               []FE
	BoundParamsHash           FE
	TransactionHash           string
	BlockNumber               uint64
	Timestamp                 uint64
	UTXOTreeIn                uint32
	UTXOTreeOut               uint32
	UTXOBatchStartPositionOut uint64
	VerificationHash          FE
	HasUnshield               bool
	Unshield                  *UnshieldNote
}

// TxidLeaf is the wire container for one TxID-tree leaf: a RailgunTxid
// together with its tree positions. It computes nothing itself.
type TxidLeaf struct {
	RailgunTxid        FE
	UTXOTreeIn         uint32
	GlobalTreePosition uint64
	LeafHash           FE
}

// Proof is the Groth16 proof in the contract's compact on-wire format
//: homogeneous coordinate dropped, b-coordinates swapped.
type Proof struct {
	A [2]FE
	B [2][2]FE
	C [2]FE
}

// ZKSignature is an EdDSA signature over the transaction's public inputs.
type ZKSignature struct {
	R8X FE
	R8Y FE
	S   FE
}
