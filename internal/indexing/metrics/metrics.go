package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksIndexed tracks total blocks written to storage
	BlocksIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_blocks_indexed_total",
			Help: "Total number of blocks indexed",
		},
	)

	// TransactionsIndexed tracks total transactions written to storage
	TransactionsIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_transactions_indexed_total",
			Help: "Total number of transactions indexed",
		},
	)

	// LogsIndexed tracks total event logs written to storage
	LogsIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_logs_indexed_total",
			Help: "Total number of event logs indexed",
		},
	)

	// BatchSize reports the current adaptive batch size
	BatchSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_batch_size",
			Help: "Current adaptive batch size",
		},
	)

	// ChainHead tracks the latest block height reported by the node
	ChainHead = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_chain_head",
			Help: "Latest block height reported by the node",
		},
	)

	// IndexerCursor tracks the highest block indexed so far
	IndexerCursor = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_cursor",
			Help: "Highest block height indexed so far",
		},
	)

	// SyncLag tracks how far the indexer trails the chain head
	SyncLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_sync_lag_blocks",
			Help: "Blocks between the chain head and the indexer cursor",
		},
	)

	// BatchDuration tracks how long each batch pass takes
	BatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexer_batch_duration_seconds",
			Help:    "Duration of a full batch pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RPCCallsTotal tracks RPC calls per method
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrorsTotal tracks RPC errors per method
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"method"},
	)

	// RPCLatency tracks RPC call latency per method
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "indexer_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// NodeStatus reports the health monitor verdict (0=healthy 1=degraded 2=throttled 3=down)
	NodeStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_node_status",
			Help: "RPC node health status (0=healthy 1=degraded 2=throttled 3=down)",
		},
	)

	// ReorgsTotal counts detected chain reorganizations
	ReorgsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_reorgs_total",
			Help: "Total number of chain reorganizations handled",
		},
	)

	// ReorgDepth tracks the depth of handled reorganizations
	ReorgDepth = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "indexer_reorg_depth_blocks",
			Help:    "Depth in blocks of handled reorganizations",
			Buckets: []float64{1, 2, 4, 8, 16, 32},
		},
	)

	// ReorgRowsDeleted counts rows removed during rollback per table
	ReorgRowsDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_reorg_rows_deleted_total",
			Help: "Rows deleted during reorganization rollback",
		},
		[]string{"table"},
	)

	// RecoveryModeActive is 1 while the indexer waits for the node to return
	RecoveryModeActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_recovery_mode_active",
			Help: "Whether the indexer is waiting for the RPC node (1=waiting)",
		},
	)

	// RecoveryAttempts counts probes spent waiting for the node
	RecoveryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_recovery_attempts_total",
			Help: "Total probes issued while waiting for the RPC node",
		},
	)

	// FailedBlocksTotal counts blocks recorded for later retry
	FailedBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_failed_blocks_total",
			Help: "Total blocks recorded in the failed block table",
		},
	)

	// RecoveredBlocksTotal counts failed blocks successfully reprocessed
	RecoveredBlocksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_recovered_blocks_total",
			Help: "Total failed blocks successfully reprocessed",
		},
	)

	// TokenTransfersExtracted counts token transfer events decoded from logs
	TokenTransfersExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_token_transfers_total",
			Help: "Total token transfer events extracted",
		},
		[]string{"standard"},
	)

	// TokenMetadataFetches counts token metadata contract reads
	TokenMetadataFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_token_metadata_fetches_total",
			Help: "Token metadata contract reads by outcome",
		},
		[]string{"outcome"},
	)

	// NftQueueDepth reports the number of NFT metadata jobs waiting
	NftQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "indexer_nft_queue_depth",
			Help: "NFT metadata jobs waiting in the queue",
		},
	)

	// NftFetchesTotal counts NFT metadata fetches by outcome
	NftFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexer_nft_fetches_total",
			Help: "NFT metadata fetches by outcome",
		},
		[]string{"outcome"},
	)

	// InternalTxIndexed counts internal transactions persisted from traces
	InternalTxIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "indexer_internal_transactions_total",
			Help: "Total internal transactions persisted from traces",
		},
	)

	// DBConnectionPoolUsage reports database pool gauges by state
	DBConnectionPoolUsage = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexer_db_pool_connections",
			Help: "Database connection pool usage by state",
		},
		[]string{"state"},
	)
)
