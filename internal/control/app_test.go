package control

import (
	"context"
	"testing"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/config"
)

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Chain.Endpoint = "http://127.0.0.1:0"
	cfg.Chain.RPCTimeout = time.Second
	cfg.Recovery.InitialWait = time.Millisecond
	cfg.Recovery.MaxWait = 2 * time.Millisecond
	return cfg
}

func TestApp_Lifecycle(t *testing.T) {
	ctx := context.Background()

	app, err := NewApp(ctx, testConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.orchestrator == nil || app.nftPipeline == nil || app.healthServer == nil {
		t.Fatal("component wiring incomplete")
	}

	if err := app.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The node endpoint is unreachable, so the sync loop sits in
	// bootstrap retries until shutdown.
	time.Sleep(50 * time.Millisecond)

	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
}

func TestApp_MemoryStorageFallback(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	if app.db != nil {
		t.Error("expected no database connection without a database URL")
	}
	if app.redisClient != nil {
		t.Error("expected no redis connection without a redis URL")
	}
}
