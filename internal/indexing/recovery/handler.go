package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// Reprocessor retries processing of a single block.
type Reprocessor func(ctx context.Context, blockNum uint64) error

// Handler processes the failed block queue without blocking the main
// sync loop.
type Handler struct {
	repo        storage.FailedBlockRepository
	reprocessor Reprocessor
	strategy    RetryStrategy
	log         *slog.Logger
}

// NewHandler creates a new failed block handler.
func NewHandler(
	repo storage.FailedBlockRepository,
	reprocessor Reprocessor,
	strategy RetryStrategy,
	log *slog.Logger,
) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		repo:        repo,
		reprocessor: reprocessor,
		strategy:    strategy,
		log:         log,
	}
}

// HandleFailure records a block whose processing failed. Called by the
// sync loop after in-place retries are exhausted.
func (h *Handler) HandleFailure(ctx context.Context, blockNum uint64, cause error) error {
	fb := &domain.FailedBlock{
		Number: blockNum,
		Reason: cause.Error(),
	}
	if err := h.repo.Add(ctx, fb); err != nil {
		return fmt.Errorf("failed to record failed block %d: %w", blockNum, err)
	}

	metrics.FailedBlocksTotal.Inc()
	h.log.Warn("block parked in failed queue", "block", blockNum, "error", cause)
	return nil
}

// Sweep retries pending failed blocks whose backoff has elapsed.
// Blocks past the attempt limit are abandoned.
func (h *Handler) Sweep(ctx context.Context, limit int) error {
	pending, err := h.repo.GetPending(ctx, limit)
	if err != nil {
		return fmt.Errorf("failed to list pending blocks: %w", err)
	}

	for _, fb := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !h.strategy.ShouldRetry(fmt.Errorf("%s", fb.Reason), fb.RetryCount) {
			if err := h.repo.MarkAbandoned(ctx, fb.ID); err != nil {
				return fmt.Errorf("failed to abandon block %d: %w", fb.Number, err)
			}
			h.log.Error("giving up on block", "block", fb.Number, "retries", fb.RetryCount, "reason", fb.Reason)
			continue
		}

		delay := h.strategy.GetDelay(fb.RetryCount)
		if time.Now().Before(fb.LastAttempt.Add(delay)) {
			continue
		}

		if err := h.reprocessor(ctx, fb.Number); err != nil {
			if retryErr := h.repo.IncrementRetry(ctx, fb.ID); retryErr != nil {
				return fmt.Errorf("failed to increment retry for block %d: %w", fb.Number, retryErr)
			}
			h.log.Warn("failed block retry unsuccessful", "block", fb.Number, "attempt", fb.RetryCount+1, "error", err)
			continue
		}

		if err := h.repo.MarkRecovered(ctx, fb.ID); err != nil {
			return fmt.Errorf("failed to mark block %d recovered: %w", fb.Number, err)
		}
		metrics.RecoveredBlocksTotal.Inc()
		h.log.Info("failed block recovered", "block", fb.Number, "retries", fb.RetryCount)
	}

	return nil
}
