package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrTracingUnsupported is returned by TraceTransaction when the node
// does not expose debug_traceTransaction.
var ErrTracingUnsupported = errors.New("node does not support tracing")

// Client is the boundary between the indexing pipeline and the
// execution node. Implementations must be safe for concurrent use.
type Client interface {
	// BlockNumber returns the current chain head number.
	BlockNumber(ctx context.Context) (uint64, error)

	// BlockByNumber fetches a block with full transaction bodies.
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)

	// HeaderByNumber fetches only the header of a block.
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)

	// BlockReceipts fetches all receipts of a block in one call.
	BlockReceipts(ctx context.Context, number uint64) ([]*types.Receipt, error)

	// BalanceAt returns the native balance of an account at the latest block.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)

	// NonceAt returns the transaction count of an account at the latest block.
	NonceAt(ctx context.Context, account common.Address) (uint64, error)

	// CodeAt returns the contract code at the latest block.
	CodeAt(ctx context.Context, account common.Address) ([]byte, error)

	// CallContract executes a read-only contract call at the latest block.
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)

	// SuggestGasPrice returns the node's current gas price estimate.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// TraceTransaction returns the call tree of a transaction, or
	// ErrTracingUnsupported when the node lacks debug_traceTransaction.
	TraceTransaction(ctx context.Context, txHash common.Hash) (*CallFrame, error)

	// SupportsTracing reports whether the node answers trace requests.
	// The probe runs once per connection and is cached.
	SupportsTracing(ctx context.Context) bool

	// Reconnect tears down the transport and dials again. Used after
	// network-level failures where the connection may be wedged.
	Reconnect(ctx context.Context) error

	// Close releases the underlying connection.
	Close()
}

// CallFrame is one node of a transaction call tree as returned by the
// callTracer.
type CallFrame struct {
	Type    string      `json:"type"`
	From    string      `json:"from"`
	To      string      `json:"to"`
	Value   string      `json:"value"`
	Gas     string      `json:"gas"`
	GasUsed string      `json:"gasUsed"`
	Input   string      `json:"input"`
	Output  string      `json:"output"`
	Error   string      `json:"error"`
	Calls   []CallFrame `json:"calls"`
}
