package ppoi

import (
	"context"

	"github.com/privacypool/engine/internal/crypto"
	"github.com/privacypool/engine/internal/notes"
	"github.com/privacypool/engine/internal/sentoutput"
	"github.com/privacypool/engine/pkg/types"
)

// TokenResolver turns a tokenHash back into full TokenData, mirroring
// internal/scanner's own resolution rule. *scanner.Scanner satisfies this via
// its exported ResolveTokenData method.
type TokenResolver interface {
	ResolveTokenData(ctx context.Context, tokenHash types.FE) (types.TokenData, error)
}

// OutputCiphertext is the on-chain encrypted payload for one non-unshield
// output commitment, keyed by commitment hash by the caller (assembled from
// an indexer.FetchCommitments result) for the sender-side decrypt fallback.
// AnnotationData is the sender's own CTR-encrypted outputType/senderRandom
// blob, needed to recover senderRandom and correctly XOR-decode the
// receiver's master public key out of the note's encoded one.
type OutputCiphertext struct {
	IV                        [12]byte
	Tag                       [16]byte
	Ciphertext                [4]types.FE
	BlindedReceiverViewingKey types.CurvePoint
	AnnotationData            [48]byte
}

// KnownBuildTimeOutput is the build-time fallback for an output this wallet
// sent: the receiver's master public key and the random value chosen when
// the note was created, from which npk re-derives deterministically even if
// every other recovery source has been lost — the last-resort fallback
// when nothing else can recover an output's note public key.
type KnownBuildTimeOutput struct {
	ReceiverMasterPublicKey types.FE
	Random                  [types.RandomSize]byte
	Value                   types.Uint128
	TokenData               types.TokenData
}

// ResolvedOutput is a non-unshield output's recovered plaintext fields,
// sufficient to compute its blinded commitment and feed the PPOI circuit.
type ResolvedOutput struct {
	CommitmentHash types.FE
	NotePublicKey  types.FE
	Value          types.Uint128
	TokenData      types.TokenData
}

// OutputSources bundles every recovery-priority input, in priority order.
// Any of them may be nil/empty when unavailable.
type OutputSources struct {
	WalletUTXOs           []types.UTXO // in-cache wallet TXOs, checked for change back to us
	SentOutputs           []sentoutput.Record
	Ciphertexts           map[types.FE]OutputCiphertext // by commitment hash
	SenderViewingKey      types.FE
	SenderMasterPublicKey types.FE // this wallet's own MPK, needed to XOR-decode the receiver's
	TokenResolver         TokenResolver
	KnownBuildTime        map[types.FE]KnownBuildTimeOutput // by commitment hash
}

// ResolveOutput applies the §4.9 step 2 priority chain for one output
// commitment hash. Returns ErrMissingOutputNPK if every source is exhausted.
func ResolveOutput(ctx context.Context, commitmentHash types.FE, src OutputSources) (ResolvedOutput, error) {
	for _, u := range src.WalletUTXOs {
		if u.CommitmentHash == commitmentHash {
			return ResolvedOutput{
				CommitmentHash: commitmentHash,
				NotePublicKey:  u.NotePublicKey,
				Value:          u.Value,
				TokenData:      u.TokenData,
			}, nil
		}
	}

	for _, rec := range src.SentOutputs {
		if rec.CommitmentHash == commitmentHash {
			return ResolvedOutput{
				CommitmentHash: commitmentHash,
				NotePublicKey:  rec.NotePublicKey,
				Value:          rec.Value,
				TokenData:      rec.TokenData,
			}, nil
		}
	}

	if ct, ok := src.Ciphertexts[commitmentHash]; ok && src.TokenResolver != nil {
		sharedKey, err := crypto.SharedKey(src.SenderViewingKey, ct.BlindedReceiverViewingKey)
		if err == nil {
			encodedMPK, tokenHash, random, value, _, err := notes.DecryptTransactNote(sharedKey, ct.IV, ct.Tag, ct.Ciphertext)
			if err == nil {
				_, senderRandom, err := notes.DecryptAnnotation(src.SenderViewingKey, ct.AnnotationData)
				if err == nil {
					receiverMPK := notes.DecodeCounterpartyMPK(encodedMPK, src.SenderMasterPublicKey, senderRandom)
					npk, err := notes.DeriveNotePublicKey(receiverMPK, random)
					if err == nil {
						td, err := src.TokenResolver.ResolveTokenData(ctx, tokenHash)
						if err == nil {
							return ResolvedOutput{
								CommitmentHash: commitmentHash,
								NotePublicKey:  npk,
								Value:          value,
								TokenData:      td,
							}, nil
						}
					}
				}
			}
		}
	}

	if known, ok := src.KnownBuildTime[commitmentHash]; ok {
		npk, err := notes.DeriveNotePublicKey(known.ReceiverMasterPublicKey, known.Random)
		if err == nil {
			return ResolvedOutput{
				CommitmentHash: commitmentHash,
				NotePublicKey:  npk,
				Value:          known.Value,
				TokenData:      known.TokenData,
			}, nil
		}
	}

	return ResolvedOutput{}, ErrMissingOutputNPK
}
