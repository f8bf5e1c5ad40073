// Package control wires the indexer components together and manages
// their lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/config"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/worker"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/health"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/indexer"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/nft"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/recovery"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/reorg"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/stats"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/throttle"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/tokens"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/tracer"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/chain/evm"
	redisclient "github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/redis"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage/memory"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage/postgres"
)

// metadataBackfillInterval is how often missing token metadata is
// retried. metadataBackfillLimit bounds one pass.
const (
	metadataBackfillInterval = time.Minute
	metadataBackfillLimit    = 50
)

// repos bundles the storage interfaces the components are wired with.
type repos struct {
	blocks    storage.BlockRepository
	txs       storage.TransactionRepository
	logs      storage.LogRepository
	tokens    storage.TokenRepository
	transfers storage.TokenTransferRepository
	holders   storage.TokenHolderRepository
	nfts      storage.NftRepository
	internal  storage.InternalTxRepository
	addresses storage.AddressRepository
	state     storage.StateRepository
	failed    storage.FailedBlockRepository
	stats     storage.StatsRepository
	uow       storage.UnitOfWork
}

// App is the main application struct that manages the indexer
// lifecycle.
type App struct {
	cfg          *config.AppConfig
	client       *evm.Client
	orchestrator *indexer.Orchestrator
	nftPipeline  *nft.Pipeline
	tokenService *tokens.Service
	pruner       *worker.Pruner
	healthServer *health.Server
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewApp creates a new App instance with all dependencies
// initialized. Without a database URL it falls back to in-memory
// storage, which only makes sense for local runs.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log := slog.Default()

	client, err := evm.NewClient(ctx, cfg.Chain.Endpoint, cfg.Chain.RPCTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to init rpc client: %w", err)
	}

	var (
		db *postgres.DB
		r  repos
	)
	if cfg.Database.URL != "" {
		db, err = postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to init db: %w", err)
		}

		if err := goose.SetDialect("postgres"); err != nil {
			return nil, err
		}
		if err := goose.Up(db.DB.DB, "migrations"); err != nil {
			return nil, fmt.Errorf("failed to migrate db: %w", err)
		}

		r = repos{
			blocks:    postgres.NewBlockRepo(db),
			txs:       postgres.NewTxRepo(db),
			logs:      postgres.NewLogRepo(db),
			tokens:    postgres.NewTokenRepo(db),
			transfers: postgres.NewTransferRepo(db),
			holders:   postgres.NewHolderRepo(db),
			nfts:      postgres.NewNftRepo(db),
			internal:  postgres.NewInternalTxRepo(db),
			addresses: postgres.NewAddressRepo(db),
			state:     postgres.NewStateRepo(db),
			failed:    postgres.NewFailedBlockRepo(db),
			stats:     postgres.NewStatsRepo(db),
			uow:       postgres.NewUnitOfWork(db),
		}
		log.Info("Using PostgreSQL storage")
	} else {
		store := memory.NewMemoryStorage()
		r = repos{
			blocks:    memory.NewBlockRepo(store),
			txs:       memory.NewTxRepo(store),
			logs:      memory.NewLogRepo(store),
			tokens:    memory.NewTokenRepo(store),
			transfers: memory.NewTransferRepo(store),
			holders:   memory.NewHolderRepo(store),
			nfts:      memory.NewNftRepo(store),
			internal:  memory.NewInternalTxRepo(store),
			addresses: memory.NewAddressRepo(store),
			state:     memory.NewStateRepo(store),
			failed:    memory.NewFailedBlockRepo(store),
			stats:     memory.NewStatsRepo(store),
			uow:       memory.NewUnitOfWork(store),
		}
		log.Info("Using Memory storage")
	}

	var redisClient *redisclient.Client
	if cfg.Redis.URL != "" {
		redisClient, err = redisclient.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("Failed to connect to Redis, falling back to local token cache", "error", err)
			redisClient = nil
		}
	}
	tokenCache := redisclient.NewTokenCache(redisClient)

	// Token bookkeeping
	metadata := tokens.NewMetadataFetcher(client)
	holders := tokens.NewHolderUpdater(client, r.holders, r.tokens, log)
	nftPipeline := nft.NewPipeline(cfg.Nft, r.nfts, metadata, log)
	extractor := tokens.NewExtractor(r.tokens, r.transfers, r.nfts, holders, metadata, nftPipeline, tokenCache, log)
	tokenService := tokens.NewService(r.tokens, r.holders, metadata, log)

	// Reorg handling
	detector := reorg.NewDetector(cfg.Reorg, r.blocks, client)
	rollback := reorg.NewHandler(r.uow)
	rollback.SetRollbackCallback(func(ev reorg.RollbackEvent) {
		// Tokens registered in rolled-back blocks no longer have rows,
		// so the presence cache must not outlive them.
		tokenCache.Clear(context.Background())
		log.Warn("chain rollback completed",
			"divergence", ev.Divergence, "safe_block", ev.SafeBlock, "depth", ev.Depth)
	})

	// Block processing
	tr := tracer.NewTracer(client, r.internal, log)
	processor := indexer.NewProcessor(client, r.blocks, r.txs, r.logs, r.addresses, extractor, tr, detector, log)

	// Failure handling
	failures := recovery.NewHandler(r.failed, processor.ProcessBlock, recovery.DefaultBackoff(nil), log)
	recoverer := recovery.NewRecoverer(cfg.Recovery, client, log)

	statsUpdater := stats.NewUpdater(client, r.blocks, r.txs, r.addresses, r.tokens, r.stats, log)

	orchestrator := indexer.NewOrchestrator(
		cfg.Indexer,
		client,
		processor,
		throttle.NewAdaptiveController(cfg.Batch),
		detector,
		rollback,
		recoverer,
		failures,
		r.state,
		statsUpdater,
		log,
	)

	pruner := worker.NewPruner(cfg.Maintenance.FailedBlockRetention, r.failed, log)

	var pinger health.Pinger
	if db != nil {
		pinger = db
	}
	healthMon := health.NewMonitor(orchestrator, client.Monitor(), pinger, r.failed)
	healthServer := health.NewServer(healthMon, cfg.Server.Port)

	return &App{
		cfg:          cfg,
		client:       client,
		orchestrator: orchestrator,
		nftPipeline:  nftPipeline,
		tokenService: tokenService,
		pruner:       pruner,
		healthServer: healthServer,
		db:           db,
		redisClient:  redisClient,
		log:          log,
	}, nil
}

// Start starts all application components.
func (a *App) Start(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)

	go func() {
		if err := a.healthServer.Start(); err != nil {
			a.log.Error("Health server stopped", "error", err)
		}
	}()

	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.nftPipeline.Start(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.orchestrator.Start(ctx); err != nil {
			a.log.Error("Sync loop stopped", "error", err)
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runMetadataBackfill(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.pruner.Start(ctx)
	}()

	return nil
}

// Stop shuts the application down.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Shutting down...")

	a.orchestrator.Stop()
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	a.client.Close()

	err := a.healthServer.Stop(ctx)

	if a.db != nil {
		if closeErr := a.db.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// runMetadataBackfill periodically retries token metadata that failed
// to resolve when the token was first seen.
func (a *App) runMetadataBackfill(ctx context.Context) {
	ticker := time.NewTicker(metadataBackfillInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.tokenService.BackfillMetadata(ctx, metadataBackfillLimit)
			if err != nil {
				a.log.Warn("Metadata backfill pass failed", "error", err)
				continue
			}
			if n > 0 {
				a.log.Info("Backfilled token metadata", "tokens", n)
			}
		}
	}
}
