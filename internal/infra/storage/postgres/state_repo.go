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

// StateRepo implements storage.StateRepository using PostgreSQL.
// The indexer_state table holds exactly one row.
type StateRepo struct {
	db *DB
}

// NewStateRepo creates a new PostgreSQL state repository.
func NewStateRepo(db *DB) *StateRepo {
	return &StateRepo{db: db}
}

type stateRow struct {
	LastIndexedBlock uint64    `db:"last_indexed_block"`
	Status           string    `db:"status"`
	LastError        string    `db:"last_error"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Get retrieves the indexer state.
func (r *StateRepo) Get(ctx context.Context) (*domain.IndexerState, error) {
	query := `SELECT last_indexed_block, status, last_error, updated_at FROM indexer_state WHERE id = 1`

	var row stateRow
	err := r.db.GetContext(ctx, &row, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get indexer state: %w", err)
	}

	return &domain.IndexerState{
		LastIndexedBlock: row.LastIndexedBlock,
		Status:           domain.SyncStatus(row.Status),
		LastError:        row.LastError,
		UpdatedAt:        row.UpdatedAt,
	}, nil
}

// Save upserts the indexer state.
func (r *StateRepo) Save(ctx context.Context, state *domain.IndexerState) error {
	query := `
		INSERT INTO indexer_state (id, last_indexed_block, status, last_error, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			last_indexed_block = EXCLUDED.last_indexed_block,
			status = EXCLUDED.status,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		state.LastIndexedBlock,
		string(state.Status),
		state.LastError,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save indexer state: %w", err)
	}
	return nil
}

// SetCursor advances the cursor without touching other fields.
func (r *StateRepo) SetCursor(ctx context.Context, blockNumber uint64) error {
	query := `
		INSERT INTO indexer_state (id, last_indexed_block, status, last_error, updated_at)
		VALUES (1, $1, 'syncing', '', NOW())
		ON CONFLICT (id) DO UPDATE SET
			last_indexed_block = EXCLUDED.last_indexed_block,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, blockNumber); err != nil {
		return fmt.Errorf("failed to set cursor: %w", err)
	}
	return nil
}
