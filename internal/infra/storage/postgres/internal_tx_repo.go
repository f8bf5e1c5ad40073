package postgres

import (
	"context"
	"fmt"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
)

// InternalTxRepo implements storage.InternalTxRepository using PostgreSQL.
type InternalTxRepo struct {
	db *DB
}

// NewInternalTxRepo creates a new PostgreSQL internal transaction repository.
func NewInternalTxRepo(db *DB) *InternalTxRepo {
	return &InternalTxRepo{db: db}
}

const internalTxUpsert = `
	INSERT INTO internal_transactions (tx_hash, block_number, trace_address, call_type,
		from_address, to_address, value, gas, gas_used, error)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	ON CONFLICT (tx_hash, trace_address) DO UPDATE SET
		block_number = EXCLUDED.block_number,
		call_type = EXCLUDED.call_type,
		from_address = EXCLUDED.from_address,
		to_address = EXCLUDED.to_address,
		value = EXCLUDED.value,
		gas = EXCLUDED.gas,
		gas_used = EXCLUDED.gas_used,
		error = EXCLUDED.error
`

// SaveBatch upserts multiple internal transactions inside one transaction.
func (r *InternalTxRepo) SaveBatch(ctx context.Context, itxs []*domain.InternalTransaction) error {
	if len(itxs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, internalTxUpsert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, it := range itxs {
		_, err := stmt.ExecContext(ctx,
			it.TxHash,
			it.BlockNumber,
			it.TraceAddress,
			string(it.Type),
			it.From,
			it.To,
			it.Value,
			it.Gas,
			it.GasUsed,
			it.Error,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type internalTxRow struct {
	TxHash       string `db:"tx_hash"`
	BlockNumber  uint64 `db:"block_number"`
	TraceAddress string `db:"trace_address"`
	Type         string `db:"call_type"`
	From         string `db:"from_address"`
	To           string `db:"to_address"`
	Value        string `db:"value"`
	Gas          uint64 `db:"gas"`
	GasUsed      uint64 `db:"gas_used"`
	Error        string `db:"error"`
}

func (it *internalTxRow) toDomain() *domain.InternalTransaction {
	return &domain.InternalTransaction{
		TxHash:       it.TxHash,
		BlockNumber:  it.BlockNumber,
		TraceAddress: it.TraceAddress,
		Type:         domain.CallType(it.Type),
		From:         it.From,
		To:           it.To,
		Value:        it.Value,
		Gas:          it.Gas,
		GasUsed:      it.GasUsed,
		Error:        it.Error,
	}
}

// GetByTx retrieves the internal transactions of one transaction.
func (r *InternalTxRepo) GetByTx(ctx context.Context, txHash string) ([]*domain.InternalTransaction, error) {
	query := `
		SELECT tx_hash, block_number, trace_address, call_type, from_address,
			to_address, value, gas, gas_used, error
		FROM internal_transactions
		WHERE tx_hash = $1
		ORDER BY trace_address
	`

	var rows []internalTxRow
	if err := r.db.SelectContext(ctx, &rows, query, txHash); err != nil {
		return nil, fmt.Errorf("failed to get internal transactions: %w", err)
	}

	itxs := make([]*domain.InternalTransaction, len(rows))
	for i := range rows {
		itxs[i] = rows[i].toDomain()
	}
	return itxs, nil
}
