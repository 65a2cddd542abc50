package notes

import (
	"encoding/hex"
	"strings"
	"unicode/utf8"

	"github.com/privacypool/engine/pkg/types"
)

// EncodeMemoText packs memo's UTF-8 bytes into a 30-byte field, truncating
// anything past types.MaxMemoBytes and right-zero-padding the remainder.
// The all-zero result means "no memo".
func EncodeMemoText(memo string) [types.MaxMemoBytes]byte {
	b := []byte(memo)
	if len(b) > types.MaxMemoBytes {
		b = b[:types.MaxMemoBytes]
	}
	var out [types.MaxMemoBytes]byte
	copy(out[:], b)
	return out
}

// DecodeMemoText reverses EncodeMemoText: the field is viewed as a 60-hex-char
// string, trailing '0' hex characters are trimmed, and the remainder is
// decoded as UTF-8. An odd leftover nibble count is padded back to a whole
// byte with one '0'. An all-zero field or invalid UTF-8 means "no memo".
func DecodeMemoText(data [types.MaxMemoBytes]byte) (string, bool) {
	hexStr := hex.EncodeToString(data[:])
	trimmed := strings.TrimRight(hexStr, "0")
	if len(trimmed) == 0 {
		return "", false
	}
	if len(trimmed)%2 != 0 {
		trimmed += "0"
	}
	b, err := hex.DecodeString(trimmed)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(b) {
		return "", false
	}
	return string(b), true
}

// EncodeMemoHex is EncodeMemoText normalized to the "0x"-prefixed external
// hex form.
func EncodeMemoHex(memo string) string {
	data := EncodeMemoText(memo)
	return "0x" + hex.EncodeToString(data[:])
}

// DecodeMemoHex parses a (possibly "0x"-prefixed) 60-hex-char memo field and
// decodes it the same way DecodeMemoText does.
func DecodeMemoHex(s string) (string, bool) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	b, err := hex.DecodeString(s)
	if err != nil {
		return "", false
	}
	var data [types.MaxMemoBytes]byte
	if len(b) >= types.MaxMemoBytes {
		copy(data[:], b[:types.MaxMemoBytes])
	} else {
		copy(data[:], b)
	}
	return DecodeMemoText(data)
}
