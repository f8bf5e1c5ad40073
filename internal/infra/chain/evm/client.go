package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/chain"
)

// Client talks to an execution node over JSON-RPC. All calls go through
// the same connection; Reconnect replaces it after network failures.
type Client struct {
	endpoint string
	timeout  time.Duration
	monitor  *NodeMonitor

	mu  sync.RWMutex
	rpc *rpc.Client
	eth *ethclient.Client

	traceMu    sync.Mutex
	traceState traceState
}

// traceState caches whether the connected node exposes the debug
// namespace. The cache is cleared on every dial; a node behind a load
// balancer can gain or lose tracing across reconnects.
type traceState int

const (
	traceUnknown traceState = iota
	traceSupported
	traceUnsupported
)

// NewClient dials the execution node.
func NewClient(ctx context.Context, endpoint string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		endpoint: endpoint,
		timeout:  timeout,
		monitor:  NewNodeMonitor(),
	}
	if err := c.dial(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) dial(ctx context.Context) error {
	rpcClient, err := rpc.DialContext(ctx, c.endpoint)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", c.endpoint, err)
	}

	c.mu.Lock()
	if c.rpc != nil {
		c.rpc.Close()
	}
	c.rpc = rpcClient
	c.eth = ethclient.NewClient(rpcClient)
	c.mu.Unlock()

	c.traceMu.Lock()
	c.traceState = traceUnknown
	c.traceMu.Unlock()
	return nil
}

func (c *Client) clients() (*rpc.Client, *ethclient.Client) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rpc, c.eth
}

// Reconnect tears down the transport and dials again.
func (c *Client) Reconnect(ctx context.Context) error {
	return c.dial(ctx)
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rpc != nil {
		c.rpc.Close()
		c.rpc = nil
		c.eth = nil
	}
}

// Monitor exposes the request statistics of this connection.
func (c *Client) Monitor() *NodeMonitor {
	return c.monitor
}

func (c *Client) observe(method string, start time.Time, err error) {
	metrics.RPCCallsTotal.WithLabelValues(method).Inc()
	if err != nil {
		metrics.RPCErrorsTotal.WithLabelValues(method).Inc()
		c.monitor.RecordError(err)
	} else {
		metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
		c.monitor.RecordRequest(time.Since(start))
	}
	metrics.NodeStatus.Set(float64(c.monitor.Status()))
}

// BlockNumber returns the current chain head number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	n, err := eth.BlockNumber(ctx)
	c.observe("eth_blockNumber", start, err)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}
	return n, nil
}

// BlockByNumber fetches a block with full transaction bodies.
func (c *Client) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	block, err := eth.BlockByNumber(ctx, new(big.Int).SetUint64(number))
	c.observe("eth_getBlockByNumber", start, err)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber(%d) failed: %w", number, err)
	}
	return block, nil
}

// HeaderByNumber fetches only the header of a block.
func (c *Client) HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	header, err := eth.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	c.observe("eth_getBlockByNumber", start, err)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber(%d) header failed: %w", number, err)
	}
	return header, nil
}

// BlockReceipts fetches all receipts of a block in one call.
func (c *Client) BlockReceipts(ctx context.Context, number uint64) ([]*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	receipts, err := eth.BlockReceipts(ctx, rpc.BlockNumberOrHashWithNumber(rpc.BlockNumber(number)))
	c.observe("eth_getBlockReceipts", start, err)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockReceipts(%d) failed: %w", number, err)
	}
	return receipts, nil
}

// BalanceAt returns the native balance of an account at the latest block.
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	balance, err := eth.BalanceAt(ctx, account, nil)
	c.observe("eth_getBalance", start, err)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance failed: %w", err)
	}
	return balance, nil
}

// NonceAt returns the transaction count of an account at the latest block.
func (c *Client) NonceAt(ctx context.Context, account common.Address) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	nonce, err := eth.NonceAt(ctx, account, nil)
	c.observe("eth_getTransactionCount", start, err)
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount failed: %w", err)
	}
	return nonce, nil
}

// CodeAt returns the contract code at the latest block.
func (c *Client) CodeAt(ctx context.Context, account common.Address) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	code, err := eth.CodeAt(ctx, account, nil)
	c.observe("eth_getCode", start, err)
	if err != nil {
		return nil, fmt.Errorf("eth_getCode failed: %w", err)
	}
	return code, nil
}

// CallContract executes a read-only contract call at the latest block.
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	out, err := eth.CallContract(ctx, msg, nil)
	c.observe("eth_call", start, err)
	if err != nil {
		return nil, fmt.Errorf("eth_call failed: %w", err)
	}
	return out, nil
}

// SuggestGasPrice returns the node's current gas price estimate.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, eth := c.clients()
	start := time.Now()
	price, err := eth.SuggestGasPrice(ctx)
	c.observe("eth_gasPrice", start, err)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice failed: %w", err)
	}
	return price, nil
}

// TraceTransaction returns the call tree of a transaction via the
// callTracer.
func (c *Client) TraceTransaction(ctx context.Context, txHash common.Hash) (*chain.CallFrame, error) {
	if !c.SupportsTracing(ctx) {
		return nil, chain.ErrTracingUnsupported
	}

	// Traces can be slow on large transactions.
	ctx, cancel := context.WithTimeout(ctx, 4*c.timeout)
	defer cancel()

	rpcClient, _ := c.clients()
	var frame chain.CallFrame
	start := time.Now()
	err := rpcClient.CallContext(ctx, &frame, "debug_traceTransaction", txHash,
		map[string]any{"tracer": "callTracer"})
	c.observe("debug_traceTransaction", start, err)
	if err != nil {
		return nil, fmt.Errorf("debug_traceTransaction failed: %w", err)
	}
	return &frame, nil
}

// SupportsTracing probes debug_traceTransaction once per connection;
// dial clears the cached answer, so the capability is re-probed after
// every reconnect. A "method not found" answer means the namespace is
// disabled; any other answer, including errors about the dummy hash,
// means it exists.
func (c *Client) SupportsTracing(ctx context.Context) bool {
	c.traceMu.Lock()
	defer c.traceMu.Unlock()
	if c.traceState == traceUnknown {
		c.traceState = c.probeTracing(ctx)
	}
	return c.traceState == traceSupported
}

func (c *Client) probeTracing(ctx context.Context) traceState {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rpcClient, _ := c.clients()
	var result any
	err := rpcClient.CallContext(probeCtx, &result, "debug_traceTransaction",
		common.Hash{}, map[string]any{"tracer": "callTracer"})
	if err != nil && isMethodNotFound(err) {
		return traceUnsupported
	}
	return traceSupported
}

func isMethodNotFound(err error) bool {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		// JSON-RPC -32601 method not found
		return rpcErr.ErrorCode() == -32601
	}
	return false
}
