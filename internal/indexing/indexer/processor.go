package indexer

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/recovery"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/reorg"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/tokens"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/tracer"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/chain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// addressRefreshWorkers bounds the parallel balance re-reads after a
// block is indexed.
const addressRefreshWorkers = 8

// Processor normalizes one chain block into storage rows: the block
// itself, its transactions joined with receipts, their logs, decoded
// token transfers, optional traces and the touched address set.
type Processor struct {
	client    chain.Client
	blocks    storage.BlockRepository
	txs       storage.TransactionRepository
	logs      storage.LogRepository
	addresses storage.AddressRepository
	extractor *tokens.Extractor
	tracer    *tracer.Tracer
	detector  *reorg.Detector
	log       *slog.Logger
}

// NewProcessor creates a block processor. extractor, tracer and
// detector may be nil to disable token extraction, tracing or the
// parent-hash check.
func NewProcessor(
	client chain.Client,
	blocks storage.BlockRepository,
	txs storage.TransactionRepository,
	logs storage.LogRepository,
	addresses storage.AddressRepository,
	extractor *tokens.Extractor,
	tr *tracer.Tracer,
	detector *reorg.Detector,
	log *slog.Logger,
) *Processor {
	if log == nil {
		log = slog.Default()
	}
	return &Processor{
		client:    client,
		blocks:    blocks,
		txs:       txs,
		logs:      logs,
		addresses: addresses,
		extractor: extractor,
		tracer:    tr,
		detector:  detector,
		log:       log.With("component", "processor"),
	}
}

// ProcessBlock fetches, normalizes and persists one block. Per-item
// problems are logged and skipped; network errors propagate so the
// orchestrator can enter recovery.
func (p *Processor) ProcessBlock(ctx context.Context, number uint64) error {
	blk, err := p.client.BlockByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("fetch block %d: %w", number, err)
	}

	receipts, err := p.client.BlockReceipts(ctx, number)
	if err != nil {
		return fmt.Errorf("fetch receipts %d: %w", number, err)
	}
	receiptByHash := make(map[common.Hash]*types.Receipt, len(receipts))
	for _, r := range receipts {
		receiptByHash[r.TxHash] = r
	}

	block := normalizeBlock(blk)

	// Zero-RPC reorg check: the fetched block must extend what is
	// already stored. Siblings in the same chunk may not be stored yet,
	// which the detector treats as a pass.
	if p.detector != nil {
		ok, err := p.detector.CheckParentHash(ctx, block.Number, block.ParentHash)
		if err != nil {
			p.log.Warn("parent hash check failed", "block", number, "err", err)
		} else if !ok {
			return fmt.Errorf("block %d: %w", number, reorg.ErrParentMismatch)
		}
	}

	if err := p.blocks.Save(ctx, block); err != nil {
		return fmt.Errorf("save block %d: %w", number, err)
	}

	touched := newAddressSet(block.Miner)
	var (
		domainTxs  []*domain.Transaction
		domainLogs []*domain.TransactionLog
	)
	for i, tx := range blk.Transactions() {
		receipt := receiptByHash[tx.Hash()]
		if receipt == nil {
			p.log.Warn("missing receipt, transaction skipped", "tx", tx.Hash().Hex(), "block", number)
			continue
		}

		dtx := p.normalizeTx(tx, receipt, blk, uint(i))
		domainTxs = append(domainTxs, dtx)
		touched.add(dtx.From, dtx.To, dtx.ContractAddress)

		for _, lg := range receipt.Logs {
			domainLogs = append(domainLogs, normalizeLog(lg))
			touched.add(strings.ToLower(lg.Address.Hex()))
		}
	}

	if err := p.txs.SaveBatch(ctx, domainTxs); err != nil {
		return fmt.Errorf("save transactions %d: %w", number, err)
	}
	if err := p.logs.SaveBatch(ctx, domainLogs); err != nil {
		return fmt.Errorf("save logs %d: %w", number, err)
	}

	if p.extractor != nil {
		if err := p.extractor.Process(ctx, domainLogs, block.Timestamp); err != nil {
			if recovery.IsNetworkError(err) {
				return fmt.Errorf("extract transfers %d: %w", number, err)
			}
			p.log.Warn("token extraction failed", "block", number, "err", err)
		}
	}

	if p.tracer != nil && p.tracer.Enabled(ctx) {
		for _, tx := range domainTxs {
			p.tracer.Trace(ctx, tx.Hash, number)
		}
	}

	if err := p.refreshAddresses(ctx, touched.list(), number); err != nil {
		return err
	}

	metrics.BlocksIndexed.Inc()
	metrics.TransactionsIndexed.Add(float64(len(domainTxs)))
	metrics.LogsIndexed.Add(float64(len(domainLogs)))
	return nil
}

func normalizeBlock(blk *types.Block) *domain.Block {
	b := &domain.Block{
		Number:     blk.NumberU64(),
		Hash:       blk.Hash().Hex(),
		ParentHash: blk.ParentHash().Hex(),
		Timestamp:  blk.Time(),
		Miner:      strings.ToLower(blk.Coinbase().Hex()),
		GasUsed:    blk.GasUsed(),
		GasLimit:   blk.GasLimit(),
		Size:       blk.Size(),
		TxCount:    len(blk.Transactions()),
	}
	if fee := blk.BaseFee(); fee != nil {
		s := fee.String()
		b.BaseFeePerGas = &s
	}
	return b
}

func (p *Processor) normalizeTx(tx *types.Transaction, receipt *types.Receipt, blk *types.Block, index uint) *domain.Transaction {
	dtx := &domain.Transaction{
		Hash:        tx.Hash().Hex(),
		BlockNumber: blk.NumberU64(),
		BlockHash:   blk.Hash().Hex(),
		Index:       index,
		Value:       tx.Value().String(),
		Gas:         tx.Gas(),
		GasUsed:     receipt.GasUsed,
		Nonce:       tx.Nonce(),
		InputSize:   len(tx.Data()),
		Status:      domain.TxStatus(receipt.Status),
		Timestamp:   blk.Time(),
	}

	if from, err := types.Sender(types.LatestSignerForChainID(tx.ChainId()), tx); err == nil {
		dtx.From = strings.ToLower(from.Hex())
	} else {
		p.log.Debug("sender recovery failed", "tx", dtx.Hash, "err", err)
	}

	if to := tx.To(); to != nil {
		dtx.To = strings.ToLower(to.Hex())
	} else if receipt.ContractAddress != (common.Address{}) {
		dtx.ContractAddress = strings.ToLower(receipt.ContractAddress.Hex())
	}

	if receipt.EffectiveGasPrice != nil {
		dtx.GasPrice = receipt.EffectiveGasPrice.String()
	} else {
		dtx.GasPrice = tx.GasPrice().String()
	}

	if data := tx.Data(); len(data) >= 4 {
		dtx.MethodID = "0x" + hex.EncodeToString(data[:4])
		dtx.MethodName = methodName(dtx.MethodID)
	}
	return dtx
}

func normalizeLog(lg *types.Log) *domain.TransactionLog {
	topics := make([]string, len(lg.Topics))
	for i, t := range lg.Topics {
		topics[i] = t.Hex()
	}
	return &domain.TransactionLog{
		TxHash:      lg.TxHash.Hex(),
		LogIndex:    lg.Index,
		BlockNumber: lg.BlockNumber,
		Address:     strings.ToLower(lg.Address.Hex()),
		Topics:      topics,
		Data:        "0x" + hex.EncodeToString(lg.Data),
	}
}

// refreshAddresses re-reads balance, nonce and code for every address
// the block touched. The transaction count is left to the repository,
// which derives it from the stored rows. Network errors propagate;
// anything else keeps the previously stored row.
func (p *Processor) refreshAddresses(ctx context.Context, addrs []string, blockNumber uint64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(addressRefreshWorkers)

	for _, addr := range addrs {
		g.Go(func() error {
			account := common.HexToAddress(addr)

			balance, err := p.client.BalanceAt(gctx, account)
			if err != nil {
				if recovery.IsNetworkError(err) {
					return fmt.Errorf("balance read %s: %w", addr, err)
				}
				p.log.Warn("balance read failed", "address", addr, "err", err)
				return nil
			}
			nonce, err := p.client.NonceAt(gctx, account)
			if err != nil {
				if recovery.IsNetworkError(err) {
					return fmt.Errorf("nonce read %s: %w", addr, err)
				}
				p.log.Warn("nonce read failed", "address", addr, "err", err)
				return nil
			}
			code, err := p.client.CodeAt(gctx, account)
			if err != nil {
				if recovery.IsNetworkError(err) {
					return fmt.Errorf("code read %s: %w", addr, err)
				}
				p.log.Warn("code read failed", "address", addr, "err", err)
				return nil
			}

			return p.addresses.Upsert(gctx, &domain.Address{
				Address:        addr,
				Balance:        balance.String(),
				Nonce:          nonce,
				IsContract:     len(code) > 0,
				FirstSeenBlock: blockNumber,
				LastSeenBlock:  blockNumber,
			})
		})
	}
	return g.Wait()
}

// addressSet deduplicates the addresses a block touched.
type addressSet struct {
	members map[string]struct{}
}

func newAddressSet(initial ...string) *addressSet {
	s := &addressSet{members: make(map[string]struct{})}
	s.add(initial...)
	return s
}

func (s *addressSet) add(addrs ...string) {
	for _, a := range addrs {
		if a == "" {
			continue
		}
		s.members[a] = struct{}{}
	}
}

func (s *addressSet) list() []string {
	out := make([]string, 0, len(s.members))
	for a := range s.members {
		out = append(out, a)
	}
	return out
}
