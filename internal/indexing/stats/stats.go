// Package stats recomputes the aggregate snapshots shown by the
// explorer. Refreshes run on the polling path once the sync loop has
// caught up, never per block.
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// avgBlockWindow is the number of trailing blocks used for the block
// time estimate.
const avgBlockWindow = 16

// GasPricer exposes the node's current gas price estimate.
type GasPricer interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Updater recomputes NetworkStats and the current DailyStats row.
type Updater struct {
	pricer    GasPricer
	blocks    storage.BlockRepository
	txs       storage.TransactionRepository
	addresses storage.AddressRepository
	tokens    storage.TokenRepository
	stats     storage.StatsRepository
	log       *slog.Logger
}

// NewUpdater creates a stats updater.
func NewUpdater(
	pricer GasPricer,
	blocks storage.BlockRepository,
	txs storage.TransactionRepository,
	addresses storage.AddressRepository,
	tokens storage.TokenRepository,
	statsRepo storage.StatsRepository,
	log *slog.Logger,
) *Updater {
	if log == nil {
		log = slog.Default()
	}
	return &Updater{
		pricer:    pricer,
		blocks:    blocks,
		txs:       txs,
		addresses: addresses,
		tokens:    tokens,
		stats:     statsRepo,
		log:       log.With("component", "stats"),
	}
}

// Refresh recomputes the network snapshot and today's rollup.
func (u *Updater) Refresh(ctx context.Context, head uint64) error {
	network := &domain.NetworkStats{LatestBlock: head}

	var err error
	if network.TotalTransactions, err = u.txs.Count(ctx); err != nil {
		return fmt.Errorf("count transactions: %w", err)
	}
	if network.TotalAddresses, err = u.addresses.Count(ctx); err != nil {
		return fmt.Errorf("count addresses: %w", err)
	}
	if network.TotalTokens, err = u.tokens.Count(ctx); err != nil {
		return fmt.Errorf("count tokens: %w", err)
	}

	network.AvgBlockTime = u.averageBlockTime(ctx, head)

	if price, err := u.pricer.SuggestGasPrice(ctx); err == nil && price != nil {
		network.GasPrice = price.String()
	} else if err != nil {
		u.log.Warn("gas price read failed", "error", err)
	}

	if err := u.stats.SaveNetworkStats(ctx, network); err != nil {
		return fmt.Errorf("save network stats: %w", err)
	}

	daily, err := u.stats.AggregateDay(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("aggregate daily stats: %w", err)
	}
	if err := u.stats.SaveDailyStats(ctx, daily); err != nil {
		return fmt.Errorf("save daily stats: %w", err)
	}

	return nil
}

// averageBlockTime estimates seconds per block over the trailing
// window. Returns 0 when not enough blocks are stored.
func (u *Updater) averageBlockTime(ctx context.Context, head uint64) float64 {
	if head < avgBlockWindow {
		return 0
	}

	newest, err := u.blocks.GetByNumber(ctx, head)
	if err != nil {
		return 0
	}
	oldest, err := u.blocks.GetByNumber(ctx, head-avgBlockWindow)
	if err != nil {
		return 0
	}
	if newest.Timestamp <= oldest.Timestamp {
		return 0
	}

	return float64(newest.Timestamp-oldest.Timestamp) / float64(avgBlockWindow)
}
