// Package reorg handles chain reorganization detection and rollback.
//
// # Detection
//
// The cheap check costs no extra RPC calls: every fetched block carries
// its parent hash, which must match the stored hash of the previous
// block. On mismatch the detector walks backwards, comparing stored
// hashes against live headers, until it finds the highest block both
// sides agree on.
//
// # Rollback
//
// All rows derived from blocks at or above the divergence point are
// deleted and the cursor is rewound to just below it, inside a single
// database transaction. The sync loop then re-indexes the canonical
// blocks on its next pass.
package reorg

import (
	"context"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// HeaderSource fetches live headers, the slice of the chain client the
// detector needs.
type HeaderSource interface {
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

// Config holds configuration for reorg detection.
type Config struct {
	// MaxDepth bounds the backwards walk. A divergence deeper than
	// this aborts indexing instead of silently deleting history.
	MaxDepth int `yaml:"max_depth"` // default: 32
}

const defaultMaxDepth = 32

// NewDetector creates a new reorg detector.
func NewDetector(config Config, blockRepo storage.BlockRepository, headers HeaderSource) *Detector {
	if config.MaxDepth <= 0 {
		config.MaxDepth = defaultMaxDepth
	}
	return &Detector{
		config:    config,
		blockRepo: blockRepo,
		headers:   headers,
	}
}

// NewHandler creates a new reorg handler.
func NewHandler(uow storage.UnitOfWork) *Handler {
	return &Handler{uow: uow}
}
