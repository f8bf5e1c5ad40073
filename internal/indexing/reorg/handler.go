package reorg

import (
	"context"
	"fmt"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// Handler executes reorg rollbacks.
type Handler struct {
	uow      storage.UnitOfWork
	callback func(event RollbackEvent)
}

// RollbackResult describes a completed rollback.
type RollbackResult struct {
	Divergence uint64
	SafeBlock  uint64
	Depth      int
	Duration   time.Duration
}

// RollbackEvent is emitted after a successful rollback.
type RollbackEvent struct {
	Divergence uint64
	SafeBlock  uint64
	Depth      int
	At         time.Time
}

// SetRollbackCallback sets a callback invoked after each rollback.
func (h *Handler) SetRollbackCallback(fn func(event RollbackEvent)) {
	h.callback = fn
}

// Rollback deletes everything derived from blocks at or above the
// divergence point and rewinds the cursor, atomically. A failure leaves
// the database untouched.
func (h *Handler) Rollback(ctx context.Context, info *ReorgInfo) (*RollbackResult, error) {
	if info == nil || !info.Detected {
		return nil, fmt.Errorf("rollback called without a detected reorg")
	}
	if info.Divergence == 0 {
		return nil, fmt.Errorf("refusing to roll back genesis")
	}

	start := time.Now()

	err := h.uow.Execute(ctx, func(ctx context.Context, tx storage.RollbackTx) error {
		if err := tx.DeleteFromHeight(ctx, info.Divergence); err != nil {
			return err
		}
		return tx.SetCursor(ctx, info.Divergence-1)
	})
	if err != nil {
		return nil, fmt.Errorf("rollback from block %d failed: %w", info.Divergence, err)
	}

	metrics.ReorgsTotal.Inc()
	metrics.ReorgDepth.Observe(float64(info.Depth))

	if h.callback != nil {
		h.callback(RollbackEvent{
			Divergence: info.Divergence,
			SafeBlock:  info.SafeBlock,
			Depth:      info.Depth,
			At:         time.Now(),
		})
	}

	return &RollbackResult{
		Divergence: info.Divergence,
		SafeBlock:  info.SafeBlock,
		Depth:      info.Depth,
		Duration:   time.Since(start),
	}, nil
}
