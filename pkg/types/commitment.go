package types

// FeedCommitmentType classifies an indexer-reported commitment.
type FeedCommitmentType uint8

const (
	FeedCommitmentShield FeedCommitmentType = iota
	FeedCommitmentTransact
	FeedCommitmentLegacyGenerate
	FeedCommitmentLegacyEncrypt
)

// ShieldPayload is the Shield-specific payload of a feed commitment.
// NotePublicKey, TokenData, and Value are public on the Shield event itself
//; only
// the note's random field is kept private, inside EncryptedBundle.
type ShieldPayload struct {
	ShieldKey       CurvePoint
	EncryptedBundle [64]byte // iv||pad||tag||ciphertext, see internal/crypto.EncryptShieldBundle
	NotePublicKey   FE
	TokenData       TokenData
	Value           Uint128
}

// TransactPayload is the Transact-specific payload of a feed commitment.
// IV and Tag are the AES-256-GCM nonce and authentication tag
// for Ciphertext; Ciphertext itself packs the four logical plaintext fields
// (encodedMPK, tokenHash, random||value, memo) the way internal/notes does.
type TransactPayload struct {
	IV                        [12]byte
	Tag                       [16]byte
	Ciphertext                [4]FE
	BlindedSenderViewingKey   CurvePoint
	BlindedReceiverViewingKey CurvePoint
	AnnotationData            [48]byte
	Memo                      [MaxMemoBytes]byte
}

// FeedCommitment is one entry from the indexer's fetchCommitments operation.
type FeedCommitment struct {
	ID                      string
	Tree                    uint32
	TreePosition            uint64
	BatchStartTreePosition  uint64
	BlockNumber             uint64
	TransactionHash         string
	Type                    FeedCommitmentType
	Hash                    FE
	Shield                  *ShieldPayload
	Transact                *TransactPayload
}

// FeedNullifier is one entry from the indexer's fetchNullifiers operation.
type FeedNullifier struct {
	ID              string
	Nullifier       FE
	BlockNumber     uint64
	TransactionHash string
}
