package wallet

import "errors"

var (
	// ErrInvalidAddress is returned for a 0zk address that fails bech32
	// decoding or is not the expected byte length once decoded.
	ErrInvalidAddress = errors.New("wallet: invalid 0zk address")
	// ErrUnsupportedVersion is returned for a decoded address whose version
	// byte this build does not understand.
	ErrUnsupportedVersion = errors.New("wallet: unsupported address version")
)
