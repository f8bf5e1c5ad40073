package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// StatsRepo implements storage.StatsRepository using PostgreSQL.
type StatsRepo struct {
	db *DB
}

// NewStatsRepo creates a new PostgreSQL stats repository.
func NewStatsRepo(db *DB) *StatsRepo {
	return &StatsRepo{db: db}
}

// SaveNetworkStats upserts the network-wide snapshot.
func (r *StatsRepo) SaveNetworkStats(ctx context.Context, stats *domain.NetworkStats) error {
	query := `
		INSERT INTO network_stats (id, latest_block, total_transactions, total_addresses,
			total_tokens, avg_block_time, gas_price, updated_at)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			latest_block = EXCLUDED.latest_block,
			total_transactions = EXCLUDED.total_transactions,
			total_addresses = EXCLUDED.total_addresses,
			total_tokens = EXCLUDED.total_tokens,
			avg_block_time = EXCLUDED.avg_block_time,
			gas_price = EXCLUDED.gas_price,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		stats.LatestBlock,
		stats.TotalTransactions,
		stats.TotalAddresses,
		stats.TotalTokens,
		stats.AvgBlockTime,
		stats.GasPrice,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save network stats: %w", err)
	}
	return nil
}

type networkStatsRow struct {
	LatestBlock       uint64    `db:"latest_block"`
	TotalTransactions uint64    `db:"total_transactions"`
	TotalAddresses    uint64    `db:"total_addresses"`
	TotalTokens       uint64    `db:"total_tokens"`
	AvgBlockTime      float64   `db:"avg_block_time"`
	GasPrice          string    `db:"gas_price"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// GetNetworkStats retrieves the latest snapshot.
func (r *StatsRepo) GetNetworkStats(ctx context.Context) (*domain.NetworkStats, error) {
	query := `
		SELECT latest_block, total_transactions, total_addresses, total_tokens,
			avg_block_time, gas_price, updated_at
		FROM network_stats WHERE id = 1
	`

	var row networkStatsRow
	err := r.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get network stats: %w", err)
	}

	return &domain.NetworkStats{
		LatestBlock:       row.LatestBlock,
		TotalTransactions: row.TotalTransactions,
		TotalAddresses:    row.TotalAddresses,
		TotalTokens:       row.TotalTokens,
		AvgBlockTime:      row.AvgBlockTime,
		GasPrice:          row.GasPrice,
		UpdatedAt:         row.UpdatedAt,
	}, nil
}

// SaveDailyStats upserts one day's rollup.
func (r *StatsRepo) SaveDailyStats(ctx context.Context, stats *domain.DailyStats) error {
	query := `
		INSERT INTO daily_stats (date, block_count, tx_count, active_addresses, gas_used)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			block_count = EXCLUDED.block_count,
			tx_count = EXCLUDED.tx_count,
			active_addresses = EXCLUDED.active_addresses,
			gas_used = EXCLUDED.gas_used
	`

	_, err := r.db.ExecContext(ctx, query,
		stats.Date,
		stats.BlockCount,
		stats.TxCount,
		stats.ActiveAddresses,
		stats.GasUsed,
	)
	if err != nil {
		return fmt.Errorf("failed to save daily stats: %w", err)
	}
	return nil
}

// AggregateDay computes one UTC day's rollup from stored rows.
func (r *StatsRepo) AggregateDay(ctx context.Context, day time.Time) (*domain.DailyStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	stats := &domain.DailyStats{Date: start.Format("2006-01-02")}

	blockQuery := `
		SELECT COUNT(*), COALESCE(SUM(tx_count), 0), COALESCE(SUM(gas_used), 0)
		FROM blocks
		WHERE block_timestamp >= $1 AND block_timestamp < $2
	`
	err := r.db.QueryRowContext(ctx, blockQuery, start.Unix(), end.Unix()).
		Scan(&stats.BlockCount, &stats.TxCount, &stats.GasUsed)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily blocks: %w", err)
	}

	addrQuery := `
		SELECT COUNT(DISTINCT from_address)
		FROM transactions
		WHERE block_timestamp >= $1 AND block_timestamp < $2
	`
	err = r.db.QueryRowContext(ctx, addrQuery, start.Unix(), end.Unix()).
		Scan(&stats.ActiveAddresses)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily addresses: %w", err)
	}

	return stats, nil
}
