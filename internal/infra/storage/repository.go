package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
)

var (
	// ErrNotFound is returned when a requested row does not exist.
	ErrNotFound = errors.New("not found")
)

// BlockRepository handles block storage operations.
type BlockRepository interface {
	// Save upserts a block.
	Save(ctx context.Context, block *domain.Block) error

	// SaveBatch upserts multiple blocks.
	SaveBatch(ctx context.Context, blocks []*domain.Block) error

	// GetByNumber retrieves a block by number.
	GetByNumber(ctx context.Context, number uint64) (*domain.Block, error)

	// GetByHash retrieves a block by hash.
	GetByHash(ctx context.Context, hash string) (*domain.Block, error)

	// GetLatest retrieves the highest stored block.
	GetLatest(ctx context.Context) (*domain.Block, error)

	// CountSince counts blocks at or above the given number.
	CountSince(ctx context.Context, number uint64) (uint64, error)
}

// TransactionRepository handles transaction storage operations.
type TransactionRepository interface {
	// SaveBatch upserts multiple transactions.
	SaveBatch(ctx context.Context, txs []*domain.Transaction) error

	// GetByHash retrieves a transaction by hash.
	GetByHash(ctx context.Context, hash string) (*domain.Transaction, error)

	// GetByBlock retrieves all transactions in a block.
	GetByBlock(ctx context.Context, blockNumber uint64) ([]*domain.Transaction, error)

	// Count returns the total number of stored transactions.
	Count(ctx context.Context) (uint64, error)
}

// LogRepository handles event log storage.
type LogRepository interface {
	// SaveBatch upserts multiple logs.
	SaveBatch(ctx context.Context, logs []*domain.TransactionLog) error

	// GetByTx retrieves the logs of a transaction ordered by index.
	GetByTx(ctx context.Context, txHash string) ([]*domain.TransactionLog, error)
}

// TokenRepository handles token contract storage.
type TokenRepository interface {
	// Save upserts a token contract.
	Save(ctx context.Context, token *domain.Token) error

	// GetByAddress retrieves a token by contract address.
	GetByAddress(ctx context.Context, address string) (*domain.Token, error)

	// ListWithoutMetadata lists tokens whose metadata is still unset.
	ListWithoutMetadata(ctx context.Context, limit int) ([]*domain.Token, error)

	// UpdateMetadata sets the metadata fields of an existing token.
	UpdateMetadata(ctx context.Context, token *domain.Token) error

	// SetTransferCount records the recomputed transfer count.
	SetTransferCount(ctx context.Context, address string, count uint64) error

	// SetHolderCount records the recomputed holder count.
	SetHolderCount(ctx context.Context, address string, count uint64) error

	// Count returns the number of known token contracts.
	Count(ctx context.Context) (uint64, error)
}

// TokenTransferRepository handles decoded transfer event storage.
type TokenTransferRepository interface {
	// SaveBatch upserts multiple transfers.
	SaveBatch(ctx context.Context, transfers []*domain.TokenTransfer) error

	// GetByToken retrieves recent transfers of a token.
	GetByToken(ctx context.Context, tokenAddress string, limit int) ([]*domain.TokenTransfer, error)

	// CountByToken counts the stored transfers of a token.
	CountByToken(ctx context.Context, tokenAddress string) (uint64, error)
}

// TokenHolderRepository handles per-holder balance storage.
type TokenHolderRepository interface {
	// Upsert writes a holder balance row.
	Upsert(ctx context.Context, holder *domain.TokenHolder) error

	// Delete removes a holder row (balance reached zero).
	Delete(ctx context.Context, tokenAddress, holder string, tokenID *string) error

	// GetBalances retrieves all holder rows for a token.
	GetBalances(ctx context.Context, tokenAddress string) ([]*domain.TokenHolder, error)

	// GetByHolder retrieves every token balance held by one address.
	GetByHolder(ctx context.Context, holder string) ([]*domain.TokenHolder, error)

	// CountHolders counts distinct holders of a token.
	CountHolders(ctx context.Context, tokenAddress string) (uint64, error)
}

// NftRepository handles NFT instance storage.
type NftRepository interface {
	// Upsert writes an NFT instance row.
	Upsert(ctx context.Context, nft *domain.NftToken) error

	// Get retrieves one NFT instance.
	Get(ctx context.Context, contractAddress, tokenID string) (*domain.NftToken, error)

	// SetOwner updates only the ownership of an instance.
	SetOwner(ctx context.Context, contractAddress, tokenID, owner string) error
}

// InternalTxRepository handles traced call frame storage.
type InternalTxRepository interface {
	// SaveBatch upserts multiple internal transactions.
	SaveBatch(ctx context.Context, itxs []*domain.InternalTransaction) error

	// GetByTx retrieves the internal transactions of one transaction.
	GetByTx(ctx context.Context, txHash string) ([]*domain.InternalTransaction, error)
}

// AddressRepository handles tracked account storage.
type AddressRepository interface {
	// Upsert writes an address row.
	Upsert(ctx context.Context, addr *domain.Address) error

	// Get retrieves one address.
	Get(ctx context.Context, address string) (*domain.Address, error)

	// Count returns the number of tracked addresses.
	Count(ctx context.Context) (uint64, error)
}

// StateRepository handles the sync cursor.
type StateRepository interface {
	// Get retrieves the indexer state. Returns ErrNotFound before the
	// first block is committed.
	Get(ctx context.Context) (*domain.IndexerState, error)

	// Save upserts the indexer state.
	Save(ctx context.Context, state *domain.IndexerState) error

	// SetCursor advances the cursor without touching other fields.
	SetCursor(ctx context.Context, blockNumber uint64) error
}

// FailedBlockRepository handles the failed block retry queue.
type FailedBlockRepository interface {
	// Add records a failed block.
	Add(ctx context.Context, fb *domain.FailedBlock) error

	// GetPending retrieves pending failed blocks ordered by number.
	GetPending(ctx context.Context, limit int) ([]*domain.FailedBlock, error)

	// IncrementRetry bumps the retry counter and last-attempt time.
	IncrementRetry(ctx context.Context, id string) error

	// MarkRecovered marks a failed block as successfully reprocessed.
	MarkRecovered(ctx context.Context, id string) error

	// MarkAbandoned marks a failed block as given up on.
	MarkAbandoned(ctx context.Context, id string) error

	// Count returns the number of pending failed blocks.
	Count(ctx context.Context) (int, error)

	// DeleteResolvedBefore removes recovered and abandoned rows whose
	// last attempt is older than the cutoff.
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// StatsRepository handles aggregate statistics storage.
type StatsRepository interface {
	// SaveNetworkStats upserts the network-wide snapshot.
	SaveNetworkStats(ctx context.Context, stats *domain.NetworkStats) error

	// GetNetworkStats retrieves the latest snapshot.
	GetNetworkStats(ctx context.Context) (*domain.NetworkStats, error)

	// SaveDailyStats upserts one day's rollup.
	SaveDailyStats(ctx context.Context, stats *domain.DailyStats) error

	// AggregateDay computes one UTC day's rollup from stored rows.
	AggregateDay(ctx context.Context, day time.Time) (*domain.DailyStats, error)
}

// UnitOfWork executes repository operations inside one database
// transaction. Rollback of a reorg must delete blocks, transactions,
// logs, transfers and internal transactions at or above the divergence
// height and rewind the cursor atomically.
type UnitOfWork interface {
	// Execute runs fn within a transaction, committing on nil error.
	Execute(ctx context.Context, fn func(ctx context.Context, tx RollbackTx) error) error
}

// RollbackTx is the transactional surface used during reorg rollback.
type RollbackTx interface {
	// DeleteFromHeight removes all chain-derived rows at or above height.
	DeleteFromHeight(ctx context.Context, height uint64) error

	// SetCursor rewinds the sync cursor inside the transaction.
	SetCursor(ctx context.Context, blockNumber uint64) error
}
