package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// TxRepo implements storage.TransactionRepository using PostgreSQL.
type TxRepo struct {
	db *DB
}

// NewTxRepo creates a new PostgreSQL transaction repository.
func NewTxRepo(db *DB) *TxRepo {
	return &TxRepo{db: db}
}

const txUpsert = `
	INSERT INTO transactions (hash, block_number, block_hash, tx_index, from_address, to_address,
		contract_address, value, gas, gas_used, gas_price, nonce, input_size, method_id, method_name, status, block_timestamp)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT (hash) DO UPDATE SET
		block_number = EXCLUDED.block_number,
		block_hash = EXCLUDED.block_hash,
		tx_index = EXCLUDED.tx_index,
		gas_used = EXCLUDED.gas_used,
		status = EXCLUDED.status,
		block_timestamp = EXCLUDED.block_timestamp
`

// SaveBatch upserts multiple transactions inside one transaction.
func (r *TxRepo) SaveBatch(ctx context.Context, txs []*domain.Transaction) error {
	if len(txs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, txUpsert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range txs {
		_, err := stmt.ExecContext(ctx,
			t.Hash,
			t.BlockNumber,
			t.BlockHash,
			t.Index,
			t.From,
			t.To,
			t.ContractAddress,
			t.Value,
			t.Gas,
			t.GasUsed,
			t.GasPrice,
			t.Nonce,
			t.InputSize,
			t.MethodID,
			t.MethodName,
			int16(t.Status),
			t.Timestamp,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type txRow struct {
	Hash            string `db:"hash"`
	BlockNumber     uint64 `db:"block_number"`
	BlockHash       string `db:"block_hash"`
	Index           uint   `db:"tx_index"`
	From            string `db:"from_address"`
	To              string `db:"to_address"`
	ContractAddress string `db:"contract_address"`
	Value           string `db:"value"`
	Gas             uint64 `db:"gas"`
	GasUsed         uint64 `db:"gas_used"`
	GasPrice        string `db:"gas_price"`
	Nonce           uint64 `db:"nonce"`
	InputSize       int    `db:"input_size"`
	MethodID        string `db:"method_id"`
	MethodName      string `db:"method_name"`
	Status          int16  `db:"status"`
	Timestamp       uint64 `db:"block_timestamp"`
}

func (t *txRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		Hash:            t.Hash,
		BlockNumber:     t.BlockNumber,
		BlockHash:       t.BlockHash,
		Index:           t.Index,
		From:            t.From,
		To:              t.To,
		ContractAddress: t.ContractAddress,
		Value:           t.Value,
		Gas:             t.Gas,
		GasUsed:         t.GasUsed,
		GasPrice:        t.GasPrice,
		Nonce:           t.Nonce,
		InputSize:       t.InputSize,
		MethodID:        t.MethodID,
		MethodName:      t.MethodName,
		Status:          domain.TxStatus(t.Status),
		Timestamp:       t.Timestamp,
	}
}

const txSelect = `
	SELECT hash, block_number, block_hash, tx_index, from_address, to_address, contract_address,
		value, gas, gas_used, gas_price, nonce, input_size, method_id, method_name, status, block_timestamp
	FROM transactions
`

// GetByHash retrieves a transaction by hash.
func (r *TxRepo) GetByHash(ctx context.Context, hash string) (*domain.Transaction, error) {
	var row txRow
	err := r.db.GetContext(ctx, &row, txSelect+` WHERE hash = $1`, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return row.toDomain(), nil
}

// GetByBlock retrieves all transactions in a block ordered by index.
func (r *TxRepo) GetByBlock(ctx context.Context, blockNumber uint64) ([]*domain.Transaction, error) {
	var rows []txRow
	err := r.db.SelectContext(ctx, &rows, txSelect+` WHERE block_number = $1 ORDER BY tx_index`, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	txs := make([]*domain.Transaction, len(rows))
	for i := range rows {
		txs[i] = rows[i].toDomain()
	}
	return txs, nil
}

// Count returns the total number of stored transactions.
func (r *TxRepo) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM transactions`); err != nil {
		return 0, fmt.Errorf("failed to count transactions: %w", err)
	}
	return count, nil
}
