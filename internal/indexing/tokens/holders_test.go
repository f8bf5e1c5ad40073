package tokens

import (
	"context"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
)

func fungibleTransfer(from, to string, value string) *domain.TokenTransfer {
	return &domain.TokenTransfer{
		TxHash:       "0xtx",
		TokenAddress: tokenAddr,
		TokenType:    domain.TokenTypeERC20,
		From:         from,
		To:           to,
		Value:        &value,
	}
}

func TestBalanceComesFromChainNotFromDeltas(t *testing.T) {
	// The transfer says 1000 moved, but the chain says the holder owns
	// 77. The stored balance must be 77.
	caller := &mockCaller{responses: map[string][]byte{
		hex.EncodeToString(selBalanceOf): uintReturn(77),
	}}
	tokenRepo := newMockTokenRepo()
	holderRepo := newMockHolderRepo()
	updater := NewHolderUpdater(caller, holderRepo, tokenRepo, nil)

	updater.Refresh(context.Background(), fungibleTransfer(alice, bob, "1000"))

	for _, holder := range []string{alice, bob} {
		if got := holderRepo.balances[holderMapKey(tokenAddr, holder, nil)]; got != "77" {
			t.Errorf("balance[%s] = %q, want 77", holder, got)
		}
	}
	if got := tokenRepo.holderCounts[tokenAddr]; got != 2 {
		t.Errorf("holderCount = %d, want 2", got)
	}
}

func TestZeroBalanceRemovesHolderRow(t *testing.T) {
	caller := &mockCaller{responses: map[string][]byte{
		hex.EncodeToString(selBalanceOf): uintReturn(0),
	}}
	tokenRepo := newMockTokenRepo()
	holderRepo := newMockHolderRepo()
	holderRepo.balances[holderMapKey(tokenAddr, alice, nil)] = "10"
	updater := NewHolderUpdater(caller, holderRepo, tokenRepo, nil)

	updater.Refresh(context.Background(), fungibleTransfer(alice, bob, "10"))

	if _, ok := holderRepo.balances[holderMapKey(tokenAddr, alice, nil)]; ok {
		t.Error("zero-balance holder row should be deleted")
	}
	if got := tokenRepo.holderCounts[tokenAddr]; got != 0 {
		t.Errorf("holderCount = %d, want 0", got)
	}
}

func TestZeroAddressNeverStoredAsHolder(t *testing.T) {
	caller := &mockCaller{responses: map[string][]byte{
		hex.EncodeToString(selBalanceOf): uintReturn(50),
	}}
	tokenRepo := newMockTokenRepo()
	holderRepo := newMockHolderRepo()
	updater := NewHolderUpdater(caller, holderRepo, tokenRepo, nil)

	// Mint: from is the zero address.
	updater.Refresh(context.Background(), fungibleTransfer(zeroAddress, bob, "50"))

	if _, ok := holderRepo.balances[holderMapKey(tokenAddr, zeroAddress, nil)]; ok {
		t.Error("zero address stored as holder")
	}
	if got := holderRepo.balances[holderMapKey(tokenAddr, bob, nil)]; got != "50" {
		t.Errorf("balance[bob] = %q, want 50", got)
	}
}

func TestReadFailureKeepsPriorBalance(t *testing.T) {
	caller := &mockCaller{err: errors.New("execution reverted")}
	tokenRepo := newMockTokenRepo()
	holderRepo := newMockHolderRepo()
	holderRepo.balances[holderMapKey(tokenAddr, alice, nil)] = "10"
	updater := NewHolderUpdater(caller, holderRepo, tokenRepo, nil)

	updater.Refresh(context.Background(), fungibleTransfer(alice, bob, "10"))

	if got := holderRepo.balances[holderMapKey(tokenAddr, alice, nil)]; got != "10" {
		t.Errorf("balance[alice] = %q, want untouched 10", got)
	}
}

func TestOwnershipTransferMovesTokenRow(t *testing.T) {
	// ownerOf(42) reports bob; alice's row for 42 must go away and
	// bob's must appear with balance 1.
	caller := &mockCaller{responses: map[string][]byte{
		hex.EncodeToString(selOwnerOf): append(make([]byte, 12), addressArg(bob)...),
	}}
	tokenRepo := newMockTokenRepo()
	holderRepo := newMockHolderRepo()
	id := "42"
	holderRepo.balances[holderMapKey(tokenAddr, alice, &id)] = "1"
	updater := NewHolderUpdater(caller, holderRepo, tokenRepo, nil)

	updater.Refresh(context.Background(), &domain.TokenTransfer{
		TxHash:       "0xtx",
		TokenAddress: tokenAddr,
		TokenType:    domain.TokenTypeERC721,
		From:         alice,
		To:           bob,
		TokenID:      &id,
	})

	if _, ok := holderRepo.balances[holderMapKey(tokenAddr, alice, &id)]; ok {
		t.Error("previous owner row should be deleted")
	}
	if got := holderRepo.balances[holderMapKey(tokenAddr, bob, &id)]; got != "1" {
		t.Errorf("balance[bob] = %q, want 1", got)
	}
}

func TestScopedBalanceForMultiTokenStandard(t *testing.T) {
	caller := &mockCaller{responses: map[string][]byte{
		hex.EncodeToString(selBalanceOfID): uintReturn(3),
	}}
	tokenRepo := newMockTokenRepo()
	holderRepo := newMockHolderRepo()
	updater := NewHolderUpdater(caller, holderRepo, tokenRepo, nil)

	id := "5"
	value := "3"
	updater.Refresh(context.Background(), &domain.TokenTransfer{
		TxHash:       "0xtx",
		TokenAddress: tokenAddr,
		TokenType:    domain.TokenTypeERC1155,
		From:         zeroAddress,
		To:           bob,
		TokenID:      &id,
		Value:        &value,
	})

	if got := holderRepo.balances[holderMapKey(tokenAddr, bob, &id)]; got != "3" {
		t.Errorf("balance[bob,5] = %q, want 3", got)
	}
}
