package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
)

// FailedBlockRepo implements storage.FailedBlockRepository using PostgreSQL.
type FailedBlockRepo struct {
	db *DB
}

// NewFailedBlockRepo creates a new PostgreSQL failed block repository.
func NewFailedBlockRepo(db *DB) *FailedBlockRepo {
	return &FailedBlockRepo{db: db}
}

// Add records a failed block. A pending entry for the same block is
// updated in place.
func (r *FailedBlockRepo) Add(ctx context.Context, fb *domain.FailedBlock) error {
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}

	query := `
		INSERT INTO failed_blocks (id, block_number, reason, retry_count, status, last_attempt, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (block_number) WHERE status = 'pending' DO UPDATE SET
			reason = EXCLUDED.reason,
			retry_count = failed_blocks.retry_count + 1,
			last_attempt = EXCLUDED.last_attempt
	`

	now := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		fb.ID,
		fb.Number,
		fb.Reason,
		fb.RetryCount,
		string(domain.FailedBlockPending),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to add failed block: %w", err)
	}
	return nil
}

type failedBlockRow struct {
	ID          string    `db:"id"`
	Number      uint64    `db:"block_number"`
	Reason      string    `db:"reason"`
	RetryCount  int       `db:"retry_count"`
	Status      string    `db:"status"`
	LastAttempt time.Time `db:"last_attempt"`
	CreatedAt   time.Time `db:"created_at"`
}

func (f *failedBlockRow) toDomain() *domain.FailedBlock {
	return &domain.FailedBlock{
		ID:          f.ID,
		Number:      f.Number,
		Reason:      f.Reason,
		RetryCount:  f.RetryCount,
		Status:      domain.FailedBlockStatus(f.Status),
		LastAttempt: f.LastAttempt,
		CreatedAt:   f.CreatedAt,
	}
}

// GetPending retrieves pending failed blocks ordered by number.
func (r *FailedBlockRepo) GetPending(ctx context.Context, limit int) ([]*domain.FailedBlock, error) {
	query := `
		SELECT id, block_number, reason, retry_count, status, last_attempt, created_at
		FROM failed_blocks
		WHERE status = 'pending'
		ORDER BY block_number
		LIMIT $1
	`

	var rows []failedBlockRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get pending blocks: %w", err)
	}

	fbs := make([]*domain.FailedBlock, len(rows))
	for i := range rows {
		fbs[i] = rows[i].toDomain()
	}
	return fbs, nil
}

// IncrementRetry bumps the retry counter and last-attempt time.
func (r *FailedBlockRepo) IncrementRetry(ctx context.Context, id string) error {
	query := `UPDATE failed_blocks SET retry_count = retry_count + 1, last_attempt = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment retry: %w", err)
	}
	return nil
}

// MarkRecovered marks a failed block as successfully reprocessed.
func (r *FailedBlockRepo) MarkRecovered(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.FailedBlockRecovered)
}

// MarkAbandoned marks a failed block as given up on.
func (r *FailedBlockRepo) MarkAbandoned(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, domain.FailedBlockAbandoned)
}

func (r *FailedBlockRepo) setStatus(ctx context.Context, id string, status domain.FailedBlockStatus) error {
	query := `UPDATE failed_blocks SET status = $2, last_attempt = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, string(status)); err != nil {
		return fmt.Errorf("failed to update failed block status: %w", err)
	}
	return nil
}

// Count returns the number of pending failed blocks.
func (r *FailedBlockRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM failed_blocks WHERE status = 'pending'`
	if err := r.db.GetContext(ctx, &count, query); err != nil {
		return 0, fmt.Errorf("failed to count failed blocks: %w", err)
	}
	return count, nil
}

// DeleteResolvedBefore removes recovered and abandoned rows whose last
// attempt is older than the cutoff.
func (r *FailedBlockRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM failed_blocks WHERE status IN ('recovered', 'abandoned') AND last_attempt < $1`
	res, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete resolved failed blocks: %w", err)
	}
	return res.RowsAffected()
}
