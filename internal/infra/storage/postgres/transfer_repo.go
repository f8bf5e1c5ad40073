package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
)

// TransferRepo implements storage.TokenTransferRepository using PostgreSQL.
type TransferRepo struct {
	db *DB
}

// NewTransferRepo creates a new PostgreSQL token transfer repository.
func NewTransferRepo(db *DB) *TransferRepo {
	return &TransferRepo{db: db}
}

const transferUpsert = `
	INSERT INTO token_transfers (tx_hash, log_index, batch_index, block_number, token_address, token_type,
		from_address, to_address, value, token_id, block_timestamp)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (tx_hash, log_index, batch_index) DO UPDATE SET
		block_number = EXCLUDED.block_number,
		value = EXCLUDED.value,
		token_id = EXCLUDED.token_id,
		block_timestamp = EXCLUDED.block_timestamp
`

// SaveBatch upserts multiple transfers inside one transaction.
func (r *TransferRepo) SaveBatch(ctx context.Context, transfers []*domain.TokenTransfer) error {
	if len(transfers) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, transferUpsert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range transfers {
		_, err := stmt.ExecContext(ctx,
			t.TxHash,
			t.LogIndex,
			t.BatchIndex,
			t.BlockNumber,
			t.TokenAddress,
			string(t.TokenType),
			t.From,
			t.To,
			t.Value,
			t.TokenID,
			t.Timestamp,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type transferRow struct {
	TxHash       string         `db:"tx_hash"`
	LogIndex     uint           `db:"log_index"`
	BatchIndex   uint           `db:"batch_index"`
	BlockNumber  uint64         `db:"block_number"`
	TokenAddress string         `db:"token_address"`
	TokenType    string         `db:"token_type"`
	From         string         `db:"from_address"`
	To           string         `db:"to_address"`
	Value        sql.NullString `db:"value"`
	TokenID      sql.NullString `db:"token_id"`
	Timestamp    uint64         `db:"block_timestamp"`
}

func (t *transferRow) toDomain() *domain.TokenTransfer {
	transfer := &domain.TokenTransfer{
		TxHash:       t.TxHash,
		LogIndex:     t.LogIndex,
		BatchIndex:   t.BatchIndex,
		BlockNumber:  t.BlockNumber,
		TokenAddress: t.TokenAddress,
		TokenType:    domain.TokenType(t.TokenType),
		From:         t.From,
		To:           t.To,
		Timestamp:    t.Timestamp,
	}
	if t.Value.Valid {
		v := t.Value.String
		transfer.Value = &v
	}
	if t.TokenID.Valid {
		id := t.TokenID.String
		transfer.TokenID = &id
	}
	return transfer
}

// GetByToken retrieves recent transfers of a token, newest first.
func (r *TransferRepo) GetByToken(ctx context.Context, tokenAddress string, limit int) ([]*domain.TokenTransfer, error) {
	query := `
		SELECT tx_hash, log_index, batch_index, block_number, token_address, token_type,
			from_address, to_address, value, token_id, block_timestamp
		FROM token_transfers
		WHERE token_address = $1
		ORDER BY block_number DESC, log_index DESC, batch_index DESC
		LIMIT $2
	`

	var rows []transferRow
	if err := r.db.SelectContext(ctx, &rows, query, tokenAddress, limit); err != nil {
		return nil, fmt.Errorf("failed to get transfers: %w", err)
	}

	transfers := make([]*domain.TokenTransfer, len(rows))
	for i := range rows {
		transfers[i] = rows[i].toDomain()
	}
	return transfers, nil
}

// CountByToken counts the stored transfers of a token.
func (r *TransferRepo) CountByToken(ctx context.Context, tokenAddress string) (uint64, error) {
	var count uint64
	query := `SELECT COUNT(*) FROM token_transfers WHERE token_address = $1`
	if err := r.db.GetContext(ctx, &count, query, tokenAddress); err != nil {
		return 0, fmt.Errorf("failed to count transfers: %w", err)
	}
	return count, nil
}
