// Package tracer recovers internal transactions from execution traces.
// Tracing is optional: nodes that lack debug_traceTransaction are
// detected once and skipped permanently until the next reconnect.
package tracer

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/chain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// TraceSource is the subset of the chain client the tracer needs.
type TraceSource interface {
	TraceTransaction(ctx context.Context, txHash common.Hash) (*chain.CallFrame, error)
	SupportsTracing(ctx context.Context) bool
}

// Tracer persists the interesting frames of transaction call trees:
// value-carrying calls, contract creations and self destructs. Plain
// zero-value message calls are noise and are not stored.
type Tracer struct {
	source TraceSource
	repo   storage.InternalTxRepository
	log    *slog.Logger
}

// NewTracer creates a tracer.
func NewTracer(source TraceSource, repo storage.InternalTxRepository, log *slog.Logger) *Tracer {
	if log == nil {
		log = slog.Default()
	}
	return &Tracer{
		source: source,
		repo:   repo,
		log:    log.With("component", "tracer"),
	}
}

// Enabled reports whether the connected node answers trace requests.
func (t *Tracer) Enabled(ctx context.Context) bool {
	return t.source.SupportsTracing(ctx)
}

// Trace fetches and persists the internal transactions of one
// transaction. Failures are absorbed: a transaction whose trace cannot
// be obtained simply has no internal transactions recorded.
func (t *Tracer) Trace(ctx context.Context, txHash string, blockNumber uint64) {
	frame, err := t.source.TraceTransaction(ctx, common.HexToHash(txHash))
	if err != nil {
		if !errors.Is(err, chain.ErrTracingUnsupported) {
			t.log.Debug("trace failed", "tx", txHash, "err", err)
		}
		return
	}
	if frame == nil {
		return
	}

	itxs := Flatten(txHash, blockNumber, frame)
	if len(itxs) == 0 {
		return
	}
	if err := t.repo.SaveBatch(ctx, itxs); err != nil {
		t.log.Warn("internal transaction save failed", "tx", txHash, "err", err)
		return
	}
	metrics.InternalTxIndexed.Add(float64(len(itxs)))
}

// Flatten walks a call tree depth first and returns the frames worth
// persisting. The root frame is the transaction itself and is skipped;
// children are addressed by their dot-joined index path ("0.2.1").
func Flatten(txHash string, blockNumber uint64, root *chain.CallFrame) []*domain.InternalTransaction {
	var out []*domain.InternalTransaction
	var walk func(frame *chain.CallFrame, path []string)
	walk = func(frame *chain.CallFrame, path []string) {
		if len(path) > 0 && interesting(frame) {
			out = append(out, toInternal(txHash, blockNumber, frame, strings.Join(path, ".")))
		}
		for i := range frame.Calls {
			walk(&frame.Calls[i], append(path, strconv.Itoa(i)))
		}
	}
	walk(root, nil)
	return out
}

// interesting selects frames that either moved value or changed the
// set of deployed contracts.
func interesting(frame *chain.CallFrame) bool {
	typ := domain.CallType(strings.ToUpper(frame.Type))
	if typ == domain.CallTypeCreate || typ == domain.CallTypeCreate2 || typ == domain.CallTypeSelfDestruct {
		return true
	}
	return hexBig(frame.Value).Sign() > 0
}

func toInternal(txHash string, blockNumber uint64, frame *chain.CallFrame, path string) *domain.InternalTransaction {
	return &domain.InternalTransaction{
		TxHash:       txHash,
		BlockNumber:  blockNumber,
		TraceAddress: path,
		Type:         domain.CallType(strings.ToUpper(frame.Type)),
		From:         strings.ToLower(frame.From),
		To:           strings.ToLower(frame.To),
		Value:        hexBig(frame.Value).String(),
		Gas:          hexBig(frame.Gas).Uint64(),
		GasUsed:      hexBig(frame.GasUsed).Uint64(),
		Error:        frame.Error,
	}
}

// hexBig parses a 0x-prefixed quantity, treating absent values as zero.
func hexBig(s string) *big.Int {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return new(big.Int)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return new(big.Int)
	}
	return v
}
