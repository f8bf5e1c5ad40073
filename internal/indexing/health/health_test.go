package health

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/indexer"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/chain/evm"
)

// ============================================================
// Stubs
// ============================================================

type stubSync struct {
	status indexer.Status
}

func (s *stubSync) Status() indexer.Status { return s.status }

type stubNode struct {
	status evm.NodeStatus
}

func (s *stubNode) Status() evm.NodeStatus { return s.status }

func (s *stubNode) Stats() evm.NodeStats {
	return evm.NodeStats{Status: s.status, AverageLatency: 50 * time.Millisecond}
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Health(ctx context.Context) error { return s.err }

type stubFailedRepo struct {
	pending int
}

func (s *stubFailedRepo) Add(ctx context.Context, fb *domain.FailedBlock) error { return nil }
func (s *stubFailedRepo) GetPending(ctx context.Context, limit int) ([]*domain.FailedBlock, error) {
	return nil, nil
}
func (s *stubFailedRepo) IncrementRetry(ctx context.Context, id string) error { return nil }
func (s *stubFailedRepo) MarkRecovered(ctx context.Context, id string) error  { return nil }
func (s *stubFailedRepo) MarkAbandoned(ctx context.Context, id string) error  { return nil }
func (s *stubFailedRepo) Count(ctx context.Context) (int, error)              { return s.pending, nil }
func (s *stubFailedRepo) DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

func runningStatus(lag int64) indexer.Status {
	return indexer.Status{
		Running:      true,
		State:        domain.SyncStatusSyncing,
		CurrentBlock: 1000,
		TargetBlock:  1000 + uint64(lag),
		Lag:          lag,
	}
}

// ============================================================
// Monitor
// ============================================================

func TestCheckHealthAllHealthy(t *testing.T) {
	m := NewMonitor(&stubSync{status: runningStatus(2)}, &stubNode{status: evm.StatusHealthy}, &stubPinger{}, &stubFailedRepo{})

	report := m.CheckHealth(context.Background())

	if report.Status != StatusHealthy {
		t.Fatalf("status = %s, want healthy", report.Status)
	}
	if report.Sync.CurrentBlock != 1000 {
		t.Errorf("current block = %d, want 1000", report.Sync.CurrentBlock)
	}
}

func TestCheckHealthDegradedOnLag(t *testing.T) {
	m := NewMonitor(&stubSync{status: runningStatus(50)}, &stubNode{status: evm.StatusHealthy}, &stubPinger{}, &stubFailedRepo{})

	report := m.CheckHealth(context.Background())

	if report.Status != StatusDegraded {
		t.Fatalf("status = %s, want degraded", report.Status)
	}
	if report.Sync.BlockLag != 50 {
		t.Errorf("block lag = %d, want 50", report.Sync.BlockLag)
	}
}

func TestCheckHealthCriticalOnStalledSync(t *testing.T) {
	stopped := indexer.Status{Running: false, State: domain.SyncStatusStopped}
	m := NewMonitor(&stubSync{status: stopped}, &stubNode{status: evm.StatusHealthy}, &stubPinger{}, &stubFailedRepo{})

	report := m.CheckHealth(context.Background())

	if report.Status != StatusCritical {
		t.Fatalf("status = %s, want critical", report.Status)
	}
}

func TestCheckHealthCriticalOnNodeDown(t *testing.T) {
	m := NewMonitor(&stubSync{status: runningStatus(0)}, &stubNode{status: evm.StatusDown}, &stubPinger{}, &stubFailedRepo{})

	report := m.CheckHealth(context.Background())

	if report.Status != StatusCritical {
		t.Fatalf("status = %s, want critical", report.Status)
	}
	if report.Node.Status != StatusCritical {
		t.Errorf("node status = %s, want critical", report.Node.Status)
	}
}

func TestCheckHealthDegradedOnFailedBlocks(t *testing.T) {
	m := NewMonitor(&stubSync{status: runningStatus(0)}, &stubNode{status: evm.StatusHealthy}, &stubPinger{}, &stubFailedRepo{pending: 3})

	report := m.CheckHealth(context.Background())

	if report.Status != StatusDegraded {
		t.Fatalf("status = %s, want degraded", report.Status)
	}
	if report.Sync.FailedBlocks != 3 {
		t.Errorf("failed blocks = %d, want 3", report.Sync.FailedBlocks)
	}
}

func TestCheckHealthCachesReport(t *testing.T) {
	syncSrc := &stubSync{status: runningStatus(0)}
	m := NewMonitor(syncSrc, &stubNode{status: evm.StatusHealthy}, &stubPinger{}, &stubFailedRepo{})

	first := m.CheckHealth(context.Background())

	// A worsening condition inside the rate-limit window is not observed.
	syncSrc.status = indexer.Status{Running: false, State: domain.SyncStatusStopped}
	second := m.CheckHealth(context.Background())

	if first.Status != second.Status {
		t.Fatalf("cached report changed: %s then %s", first.Status, second.Status)
	}
}

// ============================================================
// Server
// ============================================================

func TestHealthEndpointReturns503WhenCritical(t *testing.T) {
	m := NewMonitor(&stubSync{status: runningStatus(0)}, &stubNode{status: evm.StatusDown}, &stubPinger{}, &stubFailedRepo{})
	s := NewServer(m, 0)

	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != 503 {
		t.Fatalf("status code = %d, want 503", rec.Code)
	}
}

func TestDetailedEndpointReturnsFullReport(t *testing.T) {
	m := NewMonitor(&stubSync{status: runningStatus(7)}, &stubNode{status: evm.StatusHealthy}, &stubPinger{}, &stubFailedRepo{})
	s := NewServer(m, 0)

	rec := httptest.NewRecorder()
	s.handleDetailed(rec, httptest.NewRequest("GET", "/health/detailed", nil))

	if rec.Code != 200 {
		t.Fatalf("status code = %d, want 200", rec.Code)
	}

	var report Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Sync.BlockLag != 7 {
		t.Errorf("block lag = %d, want 7", report.Sync.BlockLag)
	}
}
