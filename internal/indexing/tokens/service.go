package tokens

import (
	"context"
	"log/slog"
	"strings"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// Service exposes the on-demand token operations that reuse the
// indexing stack: metadata backfill and per-address balance listing.
type Service struct {
	tokens   storage.TokenRepository
	holders  storage.TokenHolderRepository
	metadata *MetadataFetcher
	log      *slog.Logger
}

// NewService creates a token service.
func NewService(tokens storage.TokenRepository, holders storage.TokenHolderRepository, metadata *MetadataFetcher, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		tokens:   tokens,
		holders:  holders,
		metadata: metadata,
		log:      log.With("component", "token_service"),
	}
}

// BackfillMetadata re-attempts metadata reads for tokens that still
// have none, up to limit contracts. Returns how many tokens gained at
// least one metadata field.
func (s *Service) BackfillMetadata(ctx context.Context, limit int) (int, error) {
	pending, err := s.tokens.ListWithoutMetadata(ctx, limit)
	if err != nil {
		return 0, err
	}

	filled := 0
	for _, token := range pending {
		select {
		case <-ctx.Done():
			return filled, ctx.Err()
		default:
		}

		s.metadata.Populate(ctx, token)
		if token.Name == nil && token.Symbol == nil && token.Decimals == nil {
			continue
		}
		if err := s.tokens.UpdateMetadata(ctx, token); err != nil {
			s.log.Warn("metadata backfill write failed", "token", token.Address, "err", err)
			continue
		}
		filled++
	}
	s.log.Info("metadata backfill finished", "scanned", len(pending), "filled", filled)
	return filled, nil
}

// TokenBalances lists every token balance held by one address.
func (s *Service) TokenBalances(ctx context.Context, address string) ([]*domain.TokenHolder, error) {
	return s.holders.GetByHolder(ctx, strings.ToLower(address))
}
