package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
)

// HolderRepo implements storage.TokenHolderRepository using PostgreSQL.
// The token_id column stores the empty string for fungible tokens so
// the primary key stays non-null.
type HolderRepo struct {
	db *DB
}

// NewHolderRepo creates a new PostgreSQL token holder repository.
func NewHolderRepo(db *DB) *HolderRepo {
	return &HolderRepo{db: db}
}

func tokenIDKey(tokenID *string) string {
	if tokenID == nil {
		return ""
	}
	return *tokenID
}

// Upsert writes a holder balance row.
func (r *HolderRepo) Upsert(ctx context.Context, holder *domain.TokenHolder) error {
	query := `
		INSERT INTO token_holders (token_address, holder_address, token_type, token_id, balance, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (token_address, holder_address, token_id) DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		holder.TokenAddress,
		holder.Holder,
		string(holder.TokenType),
		tokenIDKey(holder.TokenID),
		holder.Balance,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert holder: %w", err)
	}
	return nil
}

// Delete removes a holder row.
func (r *HolderRepo) Delete(ctx context.Context, tokenAddress, holder string, tokenID *string) error {
	query := `DELETE FROM token_holders WHERE token_address = $1 AND holder_address = $2 AND token_id = $3`
	if _, err := r.db.ExecContext(ctx, query, tokenAddress, holder, tokenIDKey(tokenID)); err != nil {
		return fmt.Errorf("failed to delete holder: %w", err)
	}
	return nil
}

type holderRow struct {
	TokenAddress string    `db:"token_address"`
	Holder       string    `db:"holder_address"`
	TokenType    string    `db:"token_type"`
	TokenID      string    `db:"token_id"`
	Balance      string    `db:"balance"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (h *holderRow) toDomain() *domain.TokenHolder {
	holder := &domain.TokenHolder{
		TokenAddress: h.TokenAddress,
		Holder:       h.Holder,
		TokenType:    domain.TokenType(h.TokenType),
		Balance:      h.Balance,
		UpdatedAt:    h.UpdatedAt,
	}
	if h.TokenID != "" {
		id := h.TokenID
		holder.TokenID = &id
	}
	return holder
}

// GetBalances retrieves all holder rows for a token, largest first.
func (r *HolderRepo) GetBalances(ctx context.Context, tokenAddress string) ([]*domain.TokenHolder, error) {
	query := `
		SELECT token_address, holder_address, token_type, token_id, balance, updated_at
		FROM token_holders
		WHERE token_address = $1
		ORDER BY LENGTH(balance) DESC, balance DESC
	`

	var rows []holderRow
	err := r.db.SelectContext(ctx, &rows, query, tokenAddress)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}

	holders := make([]*domain.TokenHolder, len(rows))
	for i := range rows {
		holders[i] = rows[i].toDomain()
	}
	return holders, nil
}

// GetByHolder retrieves every token balance held by one address.
func (r *HolderRepo) GetByHolder(ctx context.Context, holder string) ([]*domain.TokenHolder, error) {
	query := `
		SELECT token_address, holder_address, token_type, token_id, balance, updated_at
		FROM token_holders
		WHERE holder_address = $1
		ORDER BY token_address, token_id
	`

	var rows []holderRow
	err := r.db.SelectContext(ctx, &rows, query, holder)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get holdings: %w", err)
	}

	holders := make([]*domain.TokenHolder, len(rows))
	for i := range rows {
		holders[i] = rows[i].toDomain()
	}
	return holders, nil
}

// CountHolders counts distinct holders of a token.
func (r *HolderRepo) CountHolders(ctx context.Context, tokenAddress string) (uint64, error) {
	var count uint64
	query := `SELECT COUNT(DISTINCT holder_address) FROM token_holders WHERE token_address = $1`
	if err := r.db.GetContext(ctx, &count, query, tokenAddress); err != nil {
		return 0, fmt.Errorf("failed to count holders: %w", err)
	}
	return count, nil
}
