// Package worker holds background maintenance loops that run beside
// the sync pipeline.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// Pruner deletes resolved failed-block rows once they fall outside the
// retention window. Pending rows are never touched.
type Pruner struct {
	retention time.Duration
	failed    storage.FailedBlockRepository
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker. A retention of zero disables
// pruning.
func NewPruner(retention time.Duration, failed storage.FailedBlockRepository, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		retention: retention,
		failed:    failed,
		log:       log.With("component", "pruner"),
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return
	}

	interval := min(p.retention/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	deleted, err := p.failed.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		p.log.Error("failed block prune pass failed", "error", err)
		return
	}
	if deleted > 0 {
		p.log.Info("pruned resolved failed blocks", "deleted", deleted)
	}
}
