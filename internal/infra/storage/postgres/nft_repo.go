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

// NftRepo implements storage.NftRepository using PostgreSQL.
type NftRepo struct {
	db *DB
}

// NewNftRepo creates a new PostgreSQL NFT repository.
func NewNftRepo(db *DB) *NftRepo {
	return &NftRepo{db: db}
}

// Upsert writes an NFT instance row. Ownership on an existing row is
// updated only through SetOwner, so a late metadata write cannot
// clobber it.
func (r *NftRepo) Upsert(ctx context.Context, nft *domain.NftToken) error {
	query := `
		INSERT INTO nft_tokens (contract_address, token_id, owner, metadata_uri, name,
			description, image_url, attributes, fetch_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (contract_address, token_id) DO UPDATE SET
			metadata_uri = EXCLUDED.metadata_uri,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			image_url = EXCLUDED.image_url,
			attributes = EXCLUDED.attributes,
			fetch_error = EXCLUDED.fetch_error,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		nft.ContractAddress,
		nft.TokenID,
		nft.Owner,
		nft.MetadataURI,
		nft.Name,
		nft.Description,
		nft.ImageURL,
		nft.Attributes,
		nft.FetchError,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert nft: %w", err)
	}
	return nil
}

type nftRow struct {
	ContractAddress string         `db:"contract_address"`
	TokenID         string         `db:"token_id"`
	Owner           string         `db:"owner"`
	MetadataURI     sql.NullString `db:"metadata_uri"`
	Name            sql.NullString `db:"name"`
	Description     sql.NullString `db:"description"`
	ImageURL        sql.NullString `db:"image_url"`
	Attributes      []byte         `db:"attributes"`
	FetchError      string         `db:"fetch_error"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func (n *nftRow) toDomain() *domain.NftToken {
	nft := &domain.NftToken{
		ContractAddress: n.ContractAddress,
		TokenID:         n.TokenID,
		Owner:           n.Owner,
		Attributes:      n.Attributes,
		FetchError:      n.FetchError,
		UpdatedAt:       n.UpdatedAt,
	}
	if n.MetadataURI.Valid {
		uri := n.MetadataURI.String
		nft.MetadataURI = &uri
	}
	if n.Name.Valid {
		name := n.Name.String
		nft.Name = &name
	}
	if n.Description.Valid {
		desc := n.Description.String
		nft.Description = &desc
	}
	if n.ImageURL.Valid {
		img := n.ImageURL.String
		nft.ImageURL = &img
	}
	return nft
}

// Get retrieves one NFT instance.
func (r *NftRepo) Get(ctx context.Context, contractAddress, tokenID string) (*domain.NftToken, error) {
	query := `
		SELECT contract_address, token_id, owner, metadata_uri, name, description,
			image_url, attributes, fetch_error, updated_at
		FROM nft_tokens
		WHERE contract_address = $1 AND token_id = $2
	`

	var row nftRow
	err := r.db.GetContext(ctx, &row, query, contractAddress, tokenID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get nft: %w", err)
	}
	return row.toDomain(), nil
}

// SetOwner updates only the ownership of an instance.
func (r *NftRepo) SetOwner(ctx context.Context, contractAddress, tokenID, owner string) error {
	query := `
		INSERT INTO nft_tokens (contract_address, token_id, owner, fetch_error, updated_at)
		VALUES ($1, $2, $3, '', $4)
		ON CONFLICT (contract_address, token_id) DO UPDATE SET
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, contractAddress, tokenID, owner, time.Now()); err != nil {
		return fmt.Errorf("failed to set nft owner: %w", err)
	}
	return nil
}
