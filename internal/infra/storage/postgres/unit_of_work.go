package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// UnitOfWork runs rollback operations inside a single database
// transaction, so a reorg either fully rewinds or leaves everything
// untouched.
type UnitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a transactional unit of work.
func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// Execute runs fn within a transaction, committing on nil error.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ctx context.Context, tx storage.RollbackTx) error) error {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, &rollbackTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type rollbackTx struct {
	tx *sqlx.Tx
}

// DeleteFromHeight removes all chain-derived rows at or above height.
// Token and address rows survive; only per-block data is rewound.
func (r *rollbackTx) DeleteFromHeight(ctx context.Context, height uint64) error {
	stmts := []struct {
		table string
		query string
	}{
		{"internal_transactions", `DELETE FROM internal_transactions WHERE block_number >= $1`},
		{"token_transfers", `DELETE FROM token_transfers WHERE block_number >= $1`},
		{"transaction_logs", `DELETE FROM transaction_logs WHERE block_number >= $1`},
		{"transactions", `DELETE FROM transactions WHERE block_number >= $1`},
		{"blocks", `DELETE FROM blocks WHERE number >= $1`},
	}

	for _, s := range stmts {
		res, err := r.tx.ExecContext(ctx, s.query, height)
		if err != nil {
			return fmt.Errorf("failed to delete from %s: %w", s.table, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			metrics.ReorgRowsDeleted.WithLabelValues(s.table).Add(float64(n))
		}
	}
	return nil
}

// SetCursor rewinds the sync cursor inside the transaction.
func (r *rollbackTx) SetCursor(ctx context.Context, blockNumber uint64) error {
	query := `
		INSERT INTO indexer_state (id, last_indexed_block, status, last_error, updated_at)
		VALUES (1, $1, 'syncing', '', NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_indexed_block = EXCLUDED.last_indexed_block,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.tx.ExecContext(ctx, query, blockNumber); err != nil {
		return fmt.Errorf("failed to rewind cursor: %w", err)
	}
	return nil
}
