package types

// TokenType enumerates the on-chain token standards a note can hold. Only
// Fungible is implemented; NFT/1155-style token types are a spec non-goal.
type TokenType uint8

const (
	// TokenTypeFungible is the only supported token type.
	TokenTypeFungible TokenType = 0
)

// AddressSize is the byte width of an Ethereum-style token/account address.
const AddressSize = 20

// EthAddress is a 20-byte Ethereum-style address.
type EthAddress [AddressSize]byte

// IsZero reports whether the address is all zeros.
func (a EthAddress) IsZero() bool {
	return a == EthAddress{}
}

// TokenData identifies a spendable asset: its standard, contract address, and
// (for multi-token standards) a sub-identifier. tokenHash = Poseidon(encode(TokenData)),
// computed by internal/notes since it requires the crypto primitives layer.
type TokenData struct {
	TokenType    TokenType
	TokenAddress EthAddress
	TokenSubID   FE
}
