package domain

import "time"

// NftToken is one NFT instance with whatever metadata its URI yielded.
// A row with nil metadata fields and a non-zero FetchError is a
// placeholder for an instance whose metadata could not be resolved.
type NftToken struct {
	ContractAddress string
	TokenID         string
	Owner           string
	MetadataURI     *string
	Name            *string
	Description     *string
	ImageURL        *string
	Attributes      []byte
	FetchError      string
	UpdatedAt       time.Time
}
