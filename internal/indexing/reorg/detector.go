package reorg

import (
	"context"
	"errors"
	"fmt"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// ErrDepthExceeded means the divergence point lies deeper than the
// configured walk limit. Indexing must stop rather than rewind further.
var ErrDepthExceeded = errors.New("reorg deeper than configured max depth")

// ErrParentMismatch means a fetched block does not extend the stored
// chain. The caller should run a divergence scan before continuing.
var ErrParentMismatch = errors.New("parent hash does not match stored chain")

// Detector finds chain reorganizations.
type Detector struct {
	config    Config
	blockRepo storage.BlockRepository
	headers   HeaderSource
}

// ReorgInfo describes a detected reorganization.
type ReorgInfo struct {
	Detected   bool
	Depth      int
	Divergence uint64 // First orphaned block
	SafeBlock  uint64 // Highest block both sides agree on
	SafeHash   string
}

// CheckParentHash verifies that a new block's parent hash matches the
// stored block below it. Uses data already fetched, so the happy path
// costs nothing.
func (d *Detector) CheckParentHash(ctx context.Context, newBlockNum uint64, parentHash string) (bool, error) {
	if newBlockNum == 0 {
		return true, nil
	}

	stored, err := d.blockRepo.GetByNumber(ctx, newBlockNum-1)
	if errors.Is(err, storage.ErrNotFound) {
		// Nothing stored below; gap start or fresh database.
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get block %d: %w", newBlockNum-1, err)
	}

	return stored.Hash == parentHash, nil
}

// FindDivergence walks backwards from the given height comparing stored
// hashes against live headers until they agree. Returns ErrDepthExceeded
// when no agreement is found within MaxDepth blocks.
func (d *Detector) FindDivergence(ctx context.Context, fromBlock uint64) (*ReorgInfo, error) {
	current := fromBlock

	for depth := 1; depth <= d.config.MaxDepth; depth++ {
		stored, err := d.blockRepo.GetByNumber(ctx, current)
		if errors.Is(err, storage.ErrNotFound) {
			// Below our indexed history; everything above it is suspect.
			return &ReorgInfo{
				Detected:   true,
				Depth:      depth,
				Divergence: current + 1,
				SafeBlock:  current,
			}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get stored block %d: %w", current, err)
		}

		header, err := d.headers.HeaderByNumber(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("failed to get live header %d: %w", current, err)
		}

		if stored.Hash == header.Hash().Hex() {
			if depth == 1 {
				// Top block already matches; no reorg after all.
				return &ReorgInfo{Detected: false}, nil
			}
			return &ReorgInfo{
				Detected:   true,
				Depth:      depth - 1,
				Divergence: current + 1,
				SafeBlock:  current,
				SafeHash:   stored.Hash,
			}, nil
		}

		if current == 0 {
			return nil, fmt.Errorf("genesis hash mismatch: stored %s, live %s", stored.Hash, header.Hash().Hex())
		}
		current--
	}

	return nil, fmt.Errorf("walked %d blocks from %d without agreement: %w",
		d.config.MaxDepth, fromBlock, ErrDepthExceeded)
}
