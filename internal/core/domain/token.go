package domain

import "time"

// TokenType discriminates the supported token standards.
type TokenType string

const (
	TokenTypeERC20   TokenType = "erc20"
	TokenTypeERC721  TokenType = "erc721"
	TokenTypeERC1155 TokenType = "erc1155"
)

// Token is a token contract discovered from its transfer events.
// Metadata fields are nil until (and unless) the contract answers the
// corresponding calls.
type Token struct {
	Address       string
	Type          TokenType
	Name          *string
	Symbol        *string
	Decimals      *uint8
	TotalSupply   *string
	HolderCount   uint64
	TransferCount uint64
	FirstSeenAt   uint64
	UpdatedAt     time.Time
}

// TokenTransfer is one decoded transfer event. Value is set for
// fungible transfers, TokenID for NFT transfers; ERC-1155 single
// transfers set both. BatchIndex distinguishes the elements of an
// ERC-1155 TransferBatch event, which decodes into one transfer per
// array element under the same log index.
type TokenTransfer struct {
	TxHash       string
	LogIndex     uint
	BatchIndex   uint
	BlockNumber  uint64
	TokenAddress string
	TokenType    TokenType
	From         string
	To           string
	Value        *string
	TokenID      *string
	Timestamp    uint64
}

// TokenHolder is the current balance of one address for one token.
// TokenID is nil for fungible tokens.
type TokenHolder struct {
	TokenAddress string
	Holder       string
	TokenType    TokenType
	TokenID      *string
	Balance      string
	UpdatedAt    time.Time
}
