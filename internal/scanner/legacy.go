package scanner

import "github.com/privacypool/engine/pkg/types"

// recognizeLegacy reports whether the wallet owns a feed commitment of a
// pre-v2 wire format (or any other type the scanner does not decode). Legacy
// notes are never decrypted, so it always reports false: such a commitment
// counts as not ours (Summary.LegacySkips is not incremented) and the scan
// goes on without error.
func recognizeLegacy(c types.FeedCommitment) bool {
	switch c.Type {
	case types.FeedCommitmentLegacyGenerate, types.FeedCommitmentLegacyEncrypt:
		return false
	default:
		return false
	}
}
