// Package indexer drives the sync loop: it fetches ranges of blocks
// with adaptive batch sizing, guards each pass with reorg detection,
// and degrades into recovery waits when the node goes away instead of
// terminating.
package indexer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/recovery"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/reorg"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/throttle"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/chain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// Config controls the orchestrator loop.
type Config struct {
	// PollInterval is how long to wait between passes once caught up.
	PollInterval time.Duration `yaml:"poll_interval"`

	// RetryDelay is the pause after a non-network chunk failure.
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Parallelism is how many blocks of a chunk run concurrently.
	Parallelism int `yaml:"parallelism"`

	// Lookback bounds catch-up after long downtime: resume never starts
	// more than this many blocks behind the head.
	Lookback uint64 `yaml:"lookback"`

	// SweepLimit caps failed blocks retried per polling pass.
	SweepLimit int `yaml:"sweep_limit"`
}

// DefaultConfig returns the default orchestrator configuration.
func DefaultConfig() Config {
	return Config{
		PollInterval: 3 * time.Second,
		RetryDelay:   5 * time.Second,
		Parallelism:  5,
		Lookback:     100,
		SweepLimit:   25,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = def.RetryDelay
	}
	if c.Parallelism <= 0 {
		c.Parallelism = def.Parallelism
	}
	if c.Lookback == 0 {
		c.Lookback = def.Lookback
	}
	if c.SweepLimit <= 0 {
		c.SweepLimit = def.SweepLimit
	}
	return c
}

// AggregateUpdater refreshes derived statistics. Called on the polling
// path, never during catch-up.
type AggregateUpdater interface {
	Refresh(ctx context.Context, head uint64) error
}

// Status is a snapshot of the orchestrator for monitoring.
type Status struct {
	Running      bool
	State        domain.SyncStatus
	CurrentBlock uint64
	TargetBlock  uint64
	Lag          int64
}

// Orchestrator is the single long-lived sync driver.
type Orchestrator struct {
	cfg       Config
	head      *throttle.HeadCache
	processor *Processor
	batcher   *throttle.AdaptiveController
	detector  *reorg.Detector
	rollback  *reorg.Handler
	recoverer *recovery.Recoverer
	failures  *recovery.Handler
	state     storage.StateRepository
	stats     AggregateUpdater
	log       *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	running atomic.Bool
	current atomic.Uint64
	target  atomic.Uint64
	phase   atomic.Value // domain.SyncStatus

	// passFailures counts consecutive failed passes. Only touched from
	// the loop goroutine.
	passFailures int
}

// NewOrchestrator wires the sync loop. stats may be nil.
func NewOrchestrator(
	cfg Config,
	client chain.Client,
	processor *Processor,
	batcher *throttle.AdaptiveController,
	detector *reorg.Detector,
	rollback *reorg.Handler,
	recoverer *recovery.Recoverer,
	failures *recovery.Handler,
	state storage.StateRepository,
	stats AggregateUpdater,
	log *slog.Logger,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	cfg = cfg.withDefaults()
	o := &Orchestrator{
		cfg:       cfg,
		head:      throttle.NewHeadCache(client, cfg.PollInterval/2),
		processor: processor,
		batcher:   batcher,
		detector:  detector,
		rollback:  rollback,
		recoverer: recoverer,
		failures:  failures,
		state:     state,
		stats:     stats,
		log:       log.With("component", "orchestrator"),
	}
	o.phase.Store(domain.SyncStatusStopped)
	return o
}

// Start runs the sync loop until Stop is called or ctx is cancelled.
// Calling Start while already running is a no-op.
func (o *Orchestrator) Start(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return nil
	}
	defer o.running.Store(false)
	defer o.phase.Store(domain.SyncStatusStopped)

	o.mu.Lock()
	o.stop = make(chan struct{})
	stop := o.stop
	o.mu.Unlock()

	cursor, err := o.bootstrap(ctx)
	if err != nil {
		return err
	}
	o.log.Info("sync started", "cursor", cursor)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			o.log.Info("sync stopped", "cursor", cursor)
			return nil
		default:
		}

		cursor = o.runOnce(ctx, stop, cursor)
	}
}

// Stop signals the loop to exit after the in-flight chunk completes.
// Safe to call repeatedly and before Start.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop == nil {
		return
	}
	select {
	case <-o.stop:
	default:
		close(o.stop)
	}
}

// Status returns a point-in-time view of the loop.
func (o *Orchestrator) Status() Status {
	current := o.current.Load()
	target := o.target.Load()
	return Status{
		Running:      o.running.Load(),
		State:        o.phase.Load().(domain.SyncStatus),
		CurrentBlock: current,
		TargetBlock:  target,
		Lag:          int64(target) - int64(current),
	}
}

// bootstrap waits for the node to answer, then computes the resume
// point: the persisted cursor, but never more than Lookback blocks
// behind the live head.
func (o *Orchestrator) bootstrap(ctx context.Context) (uint64, error) {
	head, err := o.head.BlockNumber(ctx)
	for err != nil {
		o.log.Warn("node unreachable at startup", "err", err)
		o.setPhase(domain.SyncStatusRecovering)
		if werr := o.recoverer.WaitForNode(ctx); werr != nil {
			return 0, werr
		}
		head, err = o.head.BlockNumber(ctx)
	}
	o.setPhase(domain.SyncStatusSyncing)

	var cursor uint64
	if st, err := o.state.Get(ctx); err == nil {
		cursor = st.LastIndexedBlock
	}
	if head > o.cfg.Lookback && cursor < head-o.cfg.Lookback {
		cursor = head - o.cfg.Lookback
	}

	o.current.Store(cursor)
	o.target.Store(head)
	return cursor, nil
}

// runOnce executes one pass: either a batch of catch-up chunks or a
// single polling round when caught up. Returns the new cursor.
func (o *Orchestrator) runOnce(ctx context.Context, stop <-chan struct{}, cursor uint64) uint64 {
	head, err := o.head.BlockNumber(ctx)
	if err != nil {
		return o.recoverFrom(ctx, cursor, err)
	}
	o.target.Store(head)
	metrics.ChainHead.Set(float64(head))
	metrics.SyncLag.Set(float64(int64(head) - int64(cursor)))

	if cursor >= head {
		return o.poll(ctx, stop, cursor)
	}

	batch := uint64(o.batcher.BatchSize())
	end := min(cursor+batch, head)
	started := time.Now()

	for start := cursor + 1; start <= end; {
		select {
		case <-ctx.Done():
			return cursor
		case <-stop:
			return cursor
		default:
		}

		chunkEnd := min(start+uint64(o.cfg.Parallelism)-1, end)
		failed, err := o.processChunk(ctx, start, chunkEnd)
		if errors.Is(err, reorg.ErrParentMismatch) {
			o.log.Warn("fetched block does not extend stored chain", "cursor", cursor, "err", err)
			return o.checkReorg(ctx, cursor)
		}
		if err != nil {
			o.batcher.RecordFailure()
			metrics.BatchSize.Set(float64(o.batcher.BatchSize()))
			return o.recoverFrom(ctx, cursor, err)
		}

		cursor = chunkEnd
		o.current.Store(cursor)
		metrics.IndexerCursor.Set(float64(cursor))

		if failed > 0 {
			o.batcher.RecordFailure()
		} else {
			o.batcher.RecordSuccess()
		}
		metrics.BatchSize.Set(float64(o.batcher.BatchSize()))

		o.saveState(ctx, cursor, domain.SyncStatusSyncing, "")
		start = chunkEnd + 1
	}

	o.passFailures = 0
	metrics.BatchDuration.Observe(time.Since(started).Seconds())
	return cursor
}

// processChunk runs every block in [from, to] concurrently. Network
// errors abort the chunk; other per-block failures are recorded in the
// retry queue and counted, letting the cursor move past them.
func (o *Orchestrator) processChunk(ctx context.Context, from, to uint64) (int, error) {
	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)

	for n := from; n <= to; n++ {
		g.Go(func() error {
			err := o.processor.ProcessBlock(gctx, n)
			if err == nil {
				return nil
			}
			if recovery.IsNetworkError(err) || errors.Is(err, reorg.ErrParentMismatch) {
				return err
			}
			failed.Add(1)
			o.log.Error("block failed, queued for retry", "block", n, "err", err)
			if herr := o.failures.HandleFailure(ctx, n, err); herr != nil {
				o.log.Error("failed block not recorded", "block", n, "err", herr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(failed.Load()), err
	}
	return int(failed.Load()), nil
}

// poll is the caught-up path: reorg check, failed block sweep, stats
// refresh, then sleep.
func (o *Orchestrator) poll(ctx context.Context, stop <-chan struct{}, cursor uint64) uint64 {
	o.passFailures = 0
	cursor = o.checkReorg(ctx, cursor)

	if err := o.failures.Sweep(ctx, o.cfg.SweepLimit); err != nil {
		o.log.Warn("failed block sweep errored", "err", err)
	}
	if o.stats != nil {
		if err := o.stats.Refresh(ctx, o.target.Load()); err != nil {
			o.log.Warn("stats refresh failed", "err", err)
		}
	}

	o.saveState(ctx, cursor, domain.SyncStatusSyncing, "")

	select {
	case <-ctx.Done():
	case <-stop:
	case <-time.After(o.cfg.PollInterval):
	}
	return cursor
}

// consecutiveFailureLimit is how many pass failures in a row are
// retried in place before the loop escalates to a full node probe.
const consecutiveFailureLimit = 3

// recoverFrom reacts to a pass failure. Network errors wait for the
// node and re-check for reorgs that happened during the outage; other
// errors are retried after a fixed delay, escalating to the same full
// probe once they keep repeating.
func (o *Orchestrator) recoverFrom(ctx context.Context, cursor uint64, cause error) uint64 {
	o.saveState(ctx, cursor, domain.SyncStatusRecovering, cause.Error())

	o.passFailures++
	if recovery.IsNetworkError(cause) || o.passFailures >= consecutiveFailureLimit {
		if !recovery.IsNetworkError(cause) {
			o.log.Warn("repeated pass failures, probing node health",
				"cursor", cursor, "failures", o.passFailures, "err", cause)
		}
		o.setPhase(domain.SyncStatusRecovering)
		if err := o.recoverer.WaitForNode(ctx); err != nil {
			return cursor
		}
		o.setPhase(domain.SyncStatusSyncing)
		o.passFailures = 0
		o.head.Invalidate()
		// The chain may have reorganized while the node was away.
		return o.checkReorg(ctx, cursor)
	}

	o.log.Warn("pass failed, retrying", "cursor", cursor, "err", cause)
	select {
	case <-ctx.Done():
	case <-time.After(o.cfg.RetryDelay):
	}
	return cursor
}

// checkReorg walks back from the cursor and rolls back when the stored
// chain no longer matches the live one. Returns the possibly rewound
// cursor.
func (o *Orchestrator) checkReorg(ctx context.Context, cursor uint64) uint64 {
	if cursor == 0 {
		return cursor
	}

	info, err := o.detector.FindDivergence(ctx, cursor)
	if err != nil {
		o.log.Error("reorg scan failed", "cursor", cursor, "err", err)
		return cursor
	}
	if !info.Detected {
		return cursor
	}

	if _, err := o.rollback.Rollback(ctx, info); err != nil {
		o.log.Error("rollback failed", "divergence", info.Divergence, "err", err)
		return cursor
	}

	o.batcher.Reset()
	o.head.Invalidate()
	cursor = info.Divergence - 1
	o.current.Store(cursor)
	o.log.Warn("chain reorganized, cursor rewound", "cursor", cursor, "depth", info.Depth)
	return cursor
}

func (o *Orchestrator) setPhase(s domain.SyncStatus) {
	o.phase.Store(s)
}

func (o *Orchestrator) saveState(ctx context.Context, cursor uint64, status domain.SyncStatus, lastError string) {
	err := o.state.Save(ctx, &domain.IndexerState{
		LastIndexedBlock: cursor,
		Status:           status,
		LastError:        lastError,
	})
	if err != nil {
		o.log.Error("state save failed", "cursor", cursor, "err", err)
	}
}
