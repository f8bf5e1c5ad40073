package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// BlockRepo implements storage.BlockRepository using PostgreSQL.
type BlockRepo struct {
	db *DB
}

// NewBlockRepo creates a new PostgreSQL block repository.
func NewBlockRepo(db *DB) *BlockRepo {
	return &BlockRepo{db: db}
}

const blockUpsert = `
	INSERT INTO blocks (number, hash, parent_hash, block_timestamp, miner, gas_used, gas_limit, base_fee_per_gas, size, tx_count)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (number) DO UPDATE SET
		hash = EXCLUDED.hash,
		parent_hash = EXCLUDED.parent_hash,
		block_timestamp = EXCLUDED.block_timestamp,
		miner = EXCLUDED.miner,
		gas_used = EXCLUDED.gas_used,
		gas_limit = EXCLUDED.gas_limit,
		base_fee_per_gas = EXCLUDED.base_fee_per_gas,
		size = EXCLUDED.size,
		tx_count = EXCLUDED.tx_count
`

// Save upserts a block.
func (r *BlockRepo) Save(ctx context.Context, block *domain.Block) error {
	_, err := r.db.ExecContext(ctx, blockUpsert,
		block.Number,
		block.Hash,
		block.ParentHash,
		block.Timestamp,
		block.Miner,
		block.GasUsed,
		block.GasLimit,
		block.BaseFeePerGas,
		block.Size,
		block.TxCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save block: %w", err)
	}
	return nil
}

// SaveBatch upserts multiple blocks inside one transaction.
func (r *BlockRepo) SaveBatch(ctx context.Context, blocks []*domain.Block) error {
	if len(blocks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, blockUpsert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, block := range blocks {
		_, err := stmt.ExecContext(ctx,
			block.Number,
			block.Hash,
			block.ParentHash,
			block.Timestamp,
			block.Miner,
			block.GasUsed,
			block.GasLimit,
			block.BaseFeePerGas,
			block.Size,
			block.TxCount,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type blockRow struct {
	Number     uint64         `db:"number"`
	Hash       string         `db:"hash"`
	ParentHash string         `db:"parent_hash"`
	Timestamp  uint64         `db:"block_timestamp"`
	Miner      string         `db:"miner"`
	GasUsed    uint64         `db:"gas_used"`
	GasLimit   uint64         `db:"gas_limit"`
	BaseFee    sql.NullString `db:"base_fee_per_gas"`
	Size       uint64         `db:"size"`
	TxCount    int            `db:"tx_count"`
}

func (b *blockRow) toDomain() *domain.Block {
	blk := &domain.Block{
		Number:     b.Number,
		Hash:       b.Hash,
		ParentHash: b.ParentHash,
		Timestamp:  b.Timestamp,
		Miner:      b.Miner,
		GasUsed:    b.GasUsed,
		GasLimit:   b.GasLimit,
		Size:       b.Size,
		TxCount:    b.TxCount,
	}
	if b.BaseFee.Valid {
		fee := b.BaseFee.String
		blk.BaseFeePerGas = &fee
	}
	return blk
}

const blockSelect = `
	SELECT number, hash, parent_hash, block_timestamp, miner, gas_used, gas_limit, base_fee_per_gas, size, tx_count
	FROM blocks
`

// GetByNumber retrieves a block by number.
func (r *BlockRepo) GetByNumber(ctx context.Context, number uint64) (*domain.Block, error) {
	var row blockRow
	err := r.db.GetContext(ctx, &row, blockSelect+` WHERE number = $1`, number)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return row.toDomain(), nil
}

// GetByHash retrieves a block by hash.
func (r *BlockRepo) GetByHash(ctx context.Context, hash string) (*domain.Block, error) {
	var row blockRow
	err := r.db.GetContext(ctx, &row, blockSelect+` WHERE hash = $1`, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get block: %w", err)
	}
	return row.toDomain(), nil
}

// GetLatest retrieves the highest stored block.
func (r *BlockRepo) GetLatest(ctx context.Context) (*domain.Block, error) {
	var row blockRow
	err := r.db.GetContext(ctx, &row, blockSelect+` ORDER BY number DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest block: %w", err)
	}
	return row.toDomain(), nil
}

// CountSince counts blocks at or above the given number.
func (r *BlockRepo) CountSince(ctx context.Context, number uint64) (uint64, error) {
	var count uint64
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM blocks WHERE number >= $1`, number)
	if err != nil {
		return 0, fmt.Errorf("failed to count blocks: %w", err)
	}
	return count, nil
}
