package tokens

import (
	"context"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// HolderUpdater maintains token holder balances. Balances are always
// re-read from chain state, never derived by summing transfer deltas,
// so missed or replayed events cannot drift the stored value.
type HolderUpdater struct {
	caller  ContractCaller
	holders storage.TokenHolderRepository
	tokens  storage.TokenRepository
	log     *slog.Logger
}

// NewHolderUpdater creates a holder updater.
func NewHolderUpdater(caller ContractCaller, holders storage.TokenHolderRepository, tokens storage.TokenRepository, log *slog.Logger) *HolderUpdater {
	if log == nil {
		log = slog.Default()
	}
	return &HolderUpdater{
		caller:  caller,
		holders: holders,
		tokens:  tokens,
		log:     log.With("component", "holder_updater"),
	}
}

// Refresh re-reads and stores the balances of both sides of a transfer,
// then recomputes the token's holder count. The zero address marks a
// mint or burn and is never stored as a holder. A failed chain read
// leaves the previously stored balance untouched.
func (u *HolderUpdater) Refresh(ctx context.Context, t *domain.TokenTransfer) {
	touched := false
	for _, holder := range []string{t.From, t.To} {
		if holder == zeroAddress || holder == "" {
			continue
		}
		if err := u.refreshHolder(ctx, t, holder); err != nil {
			u.log.Warn("balance read failed, keeping stored value",
				"token", t.TokenAddress, "holder", holder, "err", err)
			continue
		}
		touched = true
	}
	if !touched {
		return
	}

	count, err := u.holders.CountHolders(ctx, t.TokenAddress)
	if err != nil {
		u.log.Warn("holder count query failed", "token", t.TokenAddress, "err", err)
		return
	}
	if err := u.tokens.SetHolderCount(ctx, t.TokenAddress, count); err != nil {
		u.log.Warn("holder count update failed", "token", t.TokenAddress, "err", err)
	}
}

func (u *HolderUpdater) refreshHolder(ctx context.Context, t *domain.TokenTransfer, holder string) error {
	switch t.TokenType {
	case domain.TokenTypeERC721:
		return u.refreshOwnership(ctx, t, holder)
	default:
		return u.refreshBalance(ctx, t, holder)
	}
}

// refreshBalance handles the fungible standards. ERC-1155 balances are
// scoped to a token id, ERC-20 balances are not.
func (u *HolderUpdater) refreshBalance(ctx context.Context, t *domain.TokenTransfer, holder string) error {
	data := encodeCall(selBalanceOf, addressArg(holder))
	if t.TokenType == domain.TokenTypeERC1155 {
		if t.TokenID == nil {
			return nil
		}
		id, ok := new(big.Int).SetString(*t.TokenID, 10)
		if !ok {
			return nil
		}
		data = encodeCall(selBalanceOfID, addressArg(holder), uintArg(id))
	}

	ret, err := u.call(ctx, t.TokenAddress, data)
	if err != nil {
		return err
	}
	balance, ok := decodeReturnedUint(ret)
	if !ok {
		return nil
	}

	var tokenID *string
	if t.TokenType == domain.TokenTypeERC1155 {
		tokenID = t.TokenID
	}
	if balance.Sign() == 0 {
		return u.holders.Delete(ctx, t.TokenAddress, holder, tokenID)
	}
	return u.holders.Upsert(ctx, &domain.TokenHolder{
		TokenAddress: t.TokenAddress,
		Holder:       holder,
		TokenType:    t.TokenType,
		TokenID:      tokenID,
		Balance:      balance.String(),
	})
}

// refreshOwnership handles ERC-721: the holder owns the token id iff
// ownerOf returns their address.
func (u *HolderUpdater) refreshOwnership(ctx context.Context, t *domain.TokenTransfer, holder string) error {
	if t.TokenID == nil {
		return nil
	}
	id, ok := new(big.Int).SetString(*t.TokenID, 10)
	if !ok {
		return nil
	}

	ret, err := u.call(ctx, t.TokenAddress, encodeCall(selOwnerOf, uintArg(id)))
	if err != nil {
		return err
	}
	owner, ok := decodeReturnedAddress(ret)
	if !ok {
		return nil
	}

	if owner != holder {
		return u.holders.Delete(ctx, t.TokenAddress, holder, t.TokenID)
	}
	return u.holders.Upsert(ctx, &domain.TokenHolder{
		TokenAddress: t.TokenAddress,
		Holder:       holder,
		TokenType:    t.TokenType,
		TokenID:      t.TokenID,
		Balance:      "1",
	})
}

func (u *HolderUpdater) call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	to := common.HexToAddress(contract)
	return u.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data})
}
