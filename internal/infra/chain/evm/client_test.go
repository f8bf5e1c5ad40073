package evm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// rpcNode is a minimal JSON-RPC endpoint whose debug namespace can be
// toggled, standing in for a node pool where some members run with
// tracing disabled.
type rpcNode struct {
	traceEnabled atomic.Bool
}

func (n *rpcNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     json.RawMessage `json:"id"`
		Method string          `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch req.Method {
	case "debug_traceTransaction":
		if n.traceEnabled.Load() {
			json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"result": map[string]any{"type": "CALL"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID,
			"error": map[string]any{
				"code":    -32601,
				"message": "the method debug_traceTransaction does not exist/is not available",
			},
		})
	default:
		json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0", "id": req.ID, "result": "0x0",
		})
	}
}

func TestSupportsTracingReprobedAfterReconnect(t *testing.T) {
	node := &rpcNode{}
	srv := httptest.NewServer(node)
	defer srv.Close()

	ctx := context.Background()
	client, err := NewClient(ctx, srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if client.SupportsTracing(ctx) {
		t.Fatal("tracing should be reported unsupported")
	}

	// The answer is cached for the lifetime of the connection.
	node.traceEnabled.Store(true)
	if client.SupportsTracing(ctx) {
		t.Fatal("capability answer should be cached until reconnect")
	}

	if err := client.Reconnect(ctx); err != nil {
		t.Fatalf("Reconnect: %v", err)
	}
	if !client.SupportsTracing(ctx) {
		t.Error("tracing should be re-probed and detected after reconnect")
	}
}

func TestSupportsTracingCachesPositiveAnswer(t *testing.T) {
	node := &rpcNode{}
	node.traceEnabled.Store(true)
	srv := httptest.NewServer(node)
	defer srv.Close()

	ctx := context.Background()
	client, err := NewClient(ctx, srv.URL, time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer client.Close()

	if !client.SupportsTracing(ctx) {
		t.Fatal("tracing should be reported supported")
	}
	node.traceEnabled.Store(false)
	if !client.SupportsTracing(ctx) {
		t.Error("positive answer should be cached until reconnect")
	}
}
