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

// AddressRepo implements storage.AddressRepository using PostgreSQL.
type AddressRepo struct {
	db *DB
}

// NewAddressRepo creates a new PostgreSQL address repository.
func NewAddressRepo(db *DB) *AddressRepo {
	return &AddressRepo{db: db}
}

// Upsert writes an address row. The first-seen block of an existing
// row is preserved, and the transaction count is derived from the
// stored transactions so that writing the same block twice cannot
// drift it.
func (r *AddressRepo) Upsert(ctx context.Context, addr *domain.Address) error {
	query := `
		INSERT INTO addresses (address, balance, nonce, is_contract, tx_count,
			first_seen_block, last_seen_block, updated_at)
		VALUES ($1, $2, $3, $4,
			(SELECT COUNT(*) FROM transactions WHERE from_address = $1 OR to_address = $1),
			$5, $6, $7)
		ON CONFLICT (address) DO UPDATE SET
			balance = EXCLUDED.balance,
			nonce = EXCLUDED.nonce,
			is_contract = EXCLUDED.is_contract,
			tx_count = EXCLUDED.tx_count,
			last_seen_block = GREATEST(addresses.last_seen_block, EXCLUDED.last_seen_block),
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		addr.Address,
		addr.Balance,
		addr.Nonce,
		addr.IsContract,
		addr.FirstSeenBlock,
		addr.LastSeenBlock,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert address: %w", err)
	}
	return nil
}

type addressRow struct {
	Address        string    `db:"address"`
	Balance        string    `db:"balance"`
	Nonce          uint64    `db:"nonce"`
	IsContract     bool      `db:"is_contract"`
	TxCount        uint64    `db:"tx_count"`
	FirstSeenBlock uint64    `db:"first_seen_block"`
	LastSeenBlock  uint64    `db:"last_seen_block"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (a *addressRow) toDomain() *domain.Address {
	return &domain.Address{
		Address:        a.Address,
		Balance:        a.Balance,
		Nonce:          a.Nonce,
		IsContract:     a.IsContract,
		TxCount:        a.TxCount,
		FirstSeenBlock: a.FirstSeenBlock,
		LastSeenBlock:  a.LastSeenBlock,
		UpdatedAt:      a.UpdatedAt,
	}
}

// Get retrieves one address.
func (r *AddressRepo) Get(ctx context.Context, address string) (*domain.Address, error) {
	query := `
		SELECT address, balance, nonce, is_contract, tx_count, first_seen_block, last_seen_block, updated_at
		FROM addresses
		WHERE address = $1
	`

	var row addressRow
	err := r.db.GetContext(ctx, &row, query, address)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return row.toDomain(), nil
}

// Count returns the number of tracked addresses.
func (r *AddressRepo) Count(ctx context.Context) (uint64, error) {
	var count uint64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM addresses`); err != nil {
		return 0, fmt.Errorf("failed to count addresses: %w", err)
	}
	return count, nil
}
