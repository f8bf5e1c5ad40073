package tokens

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
)

// ContractCaller executes read-only contract calls against the latest
// block.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
}

// MetadataFetcher reads token metadata views off the contract. Every
// read is best-effort: contracts that lack a view simply leave the
// corresponding field nil.
type MetadataFetcher struct {
	caller ContractCaller
}

// NewMetadataFetcher creates a metadata fetcher on top of a contract
// caller.
func NewMetadataFetcher(caller ContractCaller) *MetadataFetcher {
	return &MetadataFetcher{caller: caller}
}

// Populate fills the metadata fields of a token in place. Individual
// view failures are ignored; the token keeps nil for those fields.
func (f *MetadataFetcher) Populate(ctx context.Context, token *domain.Token) {
	if name, ok := f.callString(ctx, token.Address, selName); ok {
		token.Name = &name
	}
	if symbol, ok := f.callString(ctx, token.Address, selSymbol); ok {
		token.Symbol = &symbol
	}
	if token.Type == domain.TokenTypeERC20 {
		if dec, ok := f.callUint(ctx, token.Address, selDecimals); ok && dec.IsUint64() && dec.Uint64() <= 255 {
			d := uint8(dec.Uint64())
			token.Decimals = &d
		}
		if supply, ok := f.callUint(ctx, token.Address, selTotalSupply); ok {
			s := supply.String()
			token.TotalSupply = &s
		}
	}
	outcome := "miss"
	if token.Name != nil || token.Symbol != nil {
		outcome = "hit"
	}
	metrics.TokenMetadataFetches.WithLabelValues(outcome).Inc()
}

// TokenURI returns the metadata URI of one token instance. ERC-721
// exposes tokenURI(uint256), ERC-1155 exposes uri(uint256); for 1155
// the {id} placeholder is substituted with the zero-padded hex id.
func (f *MetadataFetcher) TokenURI(ctx context.Context, contract, tokenID string, tokenType domain.TokenType) (string, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", fmt.Errorf("invalid token id %q", tokenID)
	}

	selector := selTokenURI
	if tokenType == domain.TokenTypeERC1155 {
		selector = selURI
	}

	ret, err := f.call(ctx, contract, encodeCall(selector, uintArg(id)))
	if err != nil {
		return "", err
	}
	uri, ok := decodeReturnedString(ret)
	if !ok || uri == "" {
		return "", fmt.Errorf("contract %s returned no uri for token %s", contract, tokenID)
	}

	if tokenType == domain.TokenTypeERC1155 && strings.Contains(uri, "{id}") {
		uri = strings.ReplaceAll(uri, "{id}", fmt.Sprintf("%064x", id))
	}
	return uri, nil
}

func (f *MetadataFetcher) call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	to := common.HexToAddress(contract)
	return f.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data})
}

func (f *MetadataFetcher) callString(ctx context.Context, contract string, selector []byte) (string, bool) {
	ret, err := f.call(ctx, contract, encodeCall(selector))
	if err != nil || len(ret) == 0 {
		return "", false
	}
	return decodeReturnedString(ret)
}

func (f *MetadataFetcher) callUint(ctx context.Context, contract string, selector []byte) (*big.Int, bool) {
	ret, err := f.call(ctx, contract, encodeCall(selector))
	if err != nil || len(ret) == 0 {
		return nil, false
	}
	return decodeReturnedUint(ret)
}
