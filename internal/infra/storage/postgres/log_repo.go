package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
)

// LogRepo implements storage.LogRepository using PostgreSQL.
// Topics are stored as a comma-joined text column; a log carries at
// most four.
type LogRepo struct {
	db *DB
}

// NewLogRepo creates a new PostgreSQL log repository.
func NewLogRepo(db *DB) *LogRepo {
	return &LogRepo{db: db}
}

const logUpsert = `
	INSERT INTO transaction_logs (tx_hash, log_index, block_number, address, topics, data)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (tx_hash, log_index) DO UPDATE SET
		block_number = EXCLUDED.block_number,
		address = EXCLUDED.address,
		topics = EXCLUDED.topics,
		data = EXCLUDED.data
`

// SaveBatch upserts multiple logs inside one transaction.
func (r *LogRepo) SaveBatch(ctx context.Context, logs []*domain.TransactionLog) error {
	if len(logs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, logUpsert)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, l := range logs {
		_, err := stmt.ExecContext(ctx,
			l.TxHash,
			l.LogIndex,
			l.BlockNumber,
			l.Address,
			strings.Join(l.Topics, ","),
			l.Data,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type logRow struct {
	TxHash      string `db:"tx_hash"`
	LogIndex    uint   `db:"log_index"`
	BlockNumber uint64 `db:"block_number"`
	Address     string `db:"address"`
	Topics      string `db:"topics"`
	Data        string `db:"data"`
}

func (l *logRow) toDomain() *domain.TransactionLog {
	var topics []string
	if l.Topics != "" {
		topics = strings.Split(l.Topics, ",")
	}
	return &domain.TransactionLog{
		TxHash:      l.TxHash,
		LogIndex:    l.LogIndex,
		BlockNumber: l.BlockNumber,
		Address:     l.Address,
		Topics:      topics,
		Data:        l.Data,
	}
}

// GetByTx retrieves the logs of a transaction ordered by index.
func (r *LogRepo) GetByTx(ctx context.Context, txHash string) ([]*domain.TransactionLog, error) {
	query := `
		SELECT tx_hash, log_index, block_number, address, topics, data
		FROM transaction_logs
		WHERE tx_hash = $1
		ORDER BY log_index
	`

	var rows []logRow
	if err := r.db.SelectContext(ctx, &rows, query, txHash); err != nil {
		return nil, fmt.Errorf("failed to get logs: %w", err)
	}

	logs := make([]*domain.TransactionLog, len(rows))
	for i := range rows {
		logs[i] = rows[i].toDomain()
	}
	return logs, nil
}
