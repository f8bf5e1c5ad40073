package tokens

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// Enqueuer hands NFT instances to the metadata pipeline. Enqueue must
// never block; the return value reports whether the item was accepted.
// owner is the transfer recipient, the current holder as of the block
// being indexed.
type Enqueuer interface {
	Enqueue(contract, tokenID, owner string, tokenType domain.TokenType) bool
}

// TokenCache remembers contracts that are already registered, saving a
// storage round trip per transfer. Implementations may be process-local
// or shared.
type TokenCache interface {
	Contains(ctx context.Context, address string) bool
	Add(ctx context.Context, address string)
}

// Extractor decodes token transfer events out of transaction logs and
// drives the downstream token bookkeeping: transfer persistence, lazy
// token registration, holder balance refresh and NFT enqueueing.
type Extractor struct {
	tokens    storage.TokenRepository
	transfers storage.TokenTransferRepository
	nfts      storage.NftRepository
	holders   *HolderUpdater
	metadata  *MetadataFetcher
	nftQueue  Enqueuer
	cache     TokenCache
	log       *slog.Logger
}

// NewExtractor creates a transfer extractor. nfts, nftQueue and cache
// may be nil; ownership tracking, NFT enqueueing and contract caching
// are then disabled.
func NewExtractor(
	tokens storage.TokenRepository,
	transfers storage.TokenTransferRepository,
	nfts storage.NftRepository,
	holders *HolderUpdater,
	metadata *MetadataFetcher,
	nftQueue Enqueuer,
	cache TokenCache,
	log *slog.Logger,
) *Extractor {
	if log == nil {
		log = slog.Default()
	}
	return &Extractor{
		tokens:    tokens,
		transfers: transfers,
		nfts:      nfts,
		holders:   holders,
		metadata:  metadata,
		nftQueue:  nftQueue,
		cache:     cache,
		log:       log.With("component", "token_extractor"),
	}
}

// Process extracts and persists every token transfer found in logs.
// A log that fails to decode is skipped without affecting its siblings.
// Only transfer persistence errors propagate; token registration and
// holder refresh problems are logged and absorbed.
func (e *Extractor) Process(ctx context.Context, logs []*domain.TransactionLog, timestamp uint64) error {
	var decoded []*domain.TokenTransfer
	for _, lg := range logs {
		decoded = append(decoded, e.decode(lg, timestamp)...)
	}
	if len(decoded) == 0 {
		return nil
	}

	if err := e.transfers.SaveBatch(ctx, decoded); err != nil {
		return err
	}

	seen := make(map[string]struct{})
	for _, t := range decoded {
		metrics.TokenTransfersExtracted.WithLabelValues(string(t.TokenType)).Inc()
		if _, ok := seen[t.TokenAddress]; ok {
			continue
		}
		seen[t.TokenAddress] = struct{}{}
		e.registerToken(ctx, t)
	}

	for _, t := range decoded {
		if e.holders != nil {
			e.holders.Refresh(ctx, t)
		}
		if t.TokenID == nil ||
			(t.TokenType != domain.TokenTypeERC721 && t.TokenType != domain.TokenTypeERC1155) {
			continue
		}
		if e.nfts != nil && t.TokenType == domain.TokenTypeERC721 {
			if err := e.nfts.SetOwner(ctx, t.TokenAddress, *t.TokenID, t.To); err != nil {
				e.log.Warn("nft owner update failed", "contract", t.TokenAddress, "token_id", *t.TokenID, "err", err)
			}
		}
		if e.nftQueue != nil {
			e.nftQueue.Enqueue(t.TokenAddress, *t.TokenID, t.To, t.TokenType)
		}
	}
	return nil
}

// decode classifies one log against the known transfer signatures.
// ERC-20 and ERC-721 share the Transfer topic and are separated by the
// indexed topic count.
func (e *Extractor) decode(lg *domain.TransactionLog, timestamp uint64) []*domain.TokenTransfer {
	base := domain.TokenTransfer{
		TxHash:       lg.TxHash,
		LogIndex:     lg.LogIndex,
		BlockNumber:  lg.BlockNumber,
		TokenAddress: lg.Address,
		Timestamp:    timestamp,
	}

	switch lg.Topic0() {
	case topicTransfer:
		switch len(lg.Topics) {
		case 3:
			words := dataWords(lg.Data)
			if len(words) < 1 {
				return nil
			}
			value := wordBig(words[0]).String()
			base.TokenType = domain.TokenTypeERC20
			base.From = topicAddress(lg.Topics[1])
			base.To = topicAddress(lg.Topics[2])
			base.Value = &value
			return []*domain.TokenTransfer{&base}
		case 4:
			id := topicBig(lg.Topics[3]).String()
			base.TokenType = domain.TokenTypeERC721
			base.From = topicAddress(lg.Topics[1])
			base.To = topicAddress(lg.Topics[2])
			base.TokenID = &id
			return []*domain.TokenTransfer{&base}
		default:
			return nil
		}

	case topicTransferSingle:
		if len(lg.Topics) != 4 {
			return nil
		}
		words := dataWords(lg.Data)
		if len(words) < 2 {
			return nil
		}
		id := wordBig(words[0]).String()
		value := wordBig(words[1]).String()
		base.TokenType = domain.TokenTypeERC1155
		base.From = topicAddress(lg.Topics[2])
		base.To = topicAddress(lg.Topics[3])
		base.TokenID = &id
		base.Value = &value
		return []*domain.TokenTransfer{&base}

	case topicTransferBatch:
		if len(lg.Topics) != 4 {
			return nil
		}
		ids, values := decodeUintArrays(lg.Data)
		if ids == nil {
			e.log.Debug("undecodable batch transfer", "tx", lg.TxHash, "log_index", lg.LogIndex)
			return nil
		}
		out := make([]*domain.TokenTransfer, len(ids))
		for i := range ids {
			t := base
			t.BatchIndex = uint(i)
			t.TokenType = domain.TokenTypeERC1155
			t.From = topicAddress(lg.Topics[2])
			t.To = topicAddress(lg.Topics[3])
			id := ids[i].String()
			value := values[i].String()
			t.TokenID = &id
			t.Value = &value
			out[i] = &t
		}
		return out
	}
	return nil
}

// registerToken lazily creates the token record on first sight and
// refreshes its transfer counter. Metadata reads are best-effort.
func (e *Extractor) registerToken(ctx context.Context, t *domain.TokenTransfer) {
	known := e.cache != nil && e.cache.Contains(ctx, t.TokenAddress)
	if !known {
		_, err := e.tokens.GetByAddress(ctx, t.TokenAddress)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			token := &domain.Token{
				Address:     t.TokenAddress,
				Type:        t.TokenType,
				FirstSeenAt: t.BlockNumber,
			}
			if e.metadata != nil {
				e.metadata.Populate(ctx, token)
			}
			if err := e.tokens.Save(ctx, token); err != nil {
				e.log.Warn("token registration failed", "token", t.TokenAddress, "err", err)
				return
			}
		case err != nil:
			e.log.Warn("token lookup failed", "token", t.TokenAddress, "err", err)
			return
		}
		if e.cache != nil {
			e.cache.Add(ctx, t.TokenAddress)
		}
	}

	// The counter is recomputed from stored rows so replaying a block
	// cannot drift it.
	count, err := e.transfers.CountByToken(ctx, t.TokenAddress)
	if err != nil {
		e.log.Warn("transfer count query failed", "token", t.TokenAddress, "err", err)
		return
	}
	if err := e.tokens.SetTransferCount(ctx, t.TokenAddress, count); err != nil {
		e.log.Warn("transfer count update failed", "token", t.TokenAddress, "err", err)
	}
}
