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

// TokenRepo implements storage.TokenRepository using PostgreSQL.
type TokenRepo struct {
	db *DB
}

// NewTokenRepo creates a new PostgreSQL token repository.
func NewTokenRepo(db *DB) *TokenRepo {
	return &TokenRepo{db: db}
}

// Save upserts a token contract. An existing row keeps its metadata
// and counters; only the type may be refined.
func (r *TokenRepo) Save(ctx context.Context, token *domain.Token) error {
	query := `
		INSERT INTO tokens (address, token_type, name, symbol, decimals, total_supply,
			holder_count, transfer_count, first_seen_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (address) DO UPDATE SET
			token_type = EXCLUDED.token_type,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		token.Address,
		string(token.Type),
		token.Name,
		token.Symbol,
		token.Decimals,
		token.TotalSupply,
		token.HolderCount,
		token.TransferCount,
		token.FirstSeenAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

type tokenRow struct {
	Address       string         `db:"address"`
	Type          string         `db:"token_type"`
	Name          sql.NullString `db:"name"`
	Symbol        sql.NullString `db:"symbol"`
	Decimals      sql.NullInt16  `db:"decimals"`
	TotalSupply   sql.NullString `db:"total_supply"`
	HolderCount   uint64         `db:"holder_count"`
	TransferCount uint64         `db:"transfer_count"`
	FirstSeenAt   uint64         `db:"first_seen_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (t *tokenRow) toDomain() *domain.Token {
	token := &domain.Token{
		Address:       t.Address,
		Type:          domain.TokenType(t.Type),
		HolderCount:   t.HolderCount,
		TransferCount: t.TransferCount,
		FirstSeenAt:   t.FirstSeenAt,
		UpdatedAt:     t.UpdatedAt,
	}
	if t.Name.Valid {
		name := t.Name.String
		token.Name = &name
	}
	if t.Symbol.Valid {
		symbol := t.Symbol.String
		token.Symbol = &symbol
	}
	if t.Decimals.Valid {
		dec := uint8(t.Decimals.Int16)
		token.Decimals = &dec
	}
	if t.TotalSupply.Valid {
		supply := t.TotalSupply.String
		token.TotalSupply = &supply
	}
	return token
}

const tokenSelect = `
	SELECT address, token_type, name, symbol, decimals, total_supply,
		holder_count, transfer_count, first_seen_at, updated_at
	FROM tokens
`

// GetByAddress retrieves a token by contract address.
func (r *TokenRepo) GetByAddress(ctx context.Context, address string) (*domain.Token, error) {
	var row tokenRow
	err := r.db.GetContext(ctx, &row, tokenSelect+` WHERE address = $1`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return row.toDomain(), nil
}

// ListWithoutMetadata lists tokens whose name and symbol are still unset.
func (r *TokenRepo) ListWithoutMetadata(ctx context.Context, limit int) ([]*domain.Token, error) {
	var rows []tokenRow
	err := r.db.SelectContext(ctx, &rows,
		tokenSelect+` WHERE name IS NULL AND symbol IS NULL ORDER BY first_seen_at LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens: %w", err)
	}

	tokens := make([]*domain.Token, len(rows))
	for i := range rows {
		tokens[i] = rows[i].toDomain()
	}
	return tokens, nil
}

// UpdateMetadata sets the metadata fields of an existing token.
func (r *TokenRepo) UpdateMetadata(ctx context.Context, token *domain.Token) error {
	query := `
		UPDATE tokens
		SET name = $2, symbol = $3, decimals = $4, total_supply = $5, updated_at = $6
		WHERE address = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		token.Address,
		token.Name,
		token.Symbol,
		token.Decimals,
		token.TotalSupply,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update token metadata: %w", err)
	}
	return nil
}

// SetTransferCount records the recomputed transfer count.
func (r *TokenRepo) SetTransferCount(ctx context.Context, address string, count uint64) error {
	query := `UPDATE tokens SET transfer_count = $2, updated_at = NOW() WHERE address = $1`
	if _, err := r.db.ExecContext(ctx, query, address, count); err != nil {
		return fmt.Errorf("failed to set transfer count: %w", err)
	}
	return nil
}

// SetHolderCount records the recomputed holder count.
func (r *TokenRepo) SetHolderCount(ctx context.Context, address string, count uint64) error {
	query := `UPDATE tokens SET holder_count = $2, updated_at = NOW() WHERE address = $1`
	if _, err := r.db.ExecContext(ctx, query, address, count); err != nil {
		return fmt.Errorf("failed to set holder count: %w", err)
	}
	return nil
}

// Count returns the number of known token contracts.
func (r *TokenRepo) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM tokens`); err != nil {
		return 0, fmt.Errorf("failed to count tokens: %w", err)
	}
	return count, nil
}
