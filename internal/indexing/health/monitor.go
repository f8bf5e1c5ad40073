package health

import (
	"context"
	"sync"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/indexer"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/chain/evm"
	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/infra/storage"
)

// SyncSource exposes a snapshot of the sync loop.
type SyncSource interface {
	Status() indexer.Status
}

// NodeSource exposes the observed condition of the RPC connection.
type NodeSource interface {
	Status() evm.NodeStatus
	Stats() evm.NodeStats
}

// Pinger checks that a backing store is reachable.
type Pinger interface {
	Health(ctx context.Context) error
}

// Monitor aggregates health status from the sync loop, the RPC node
// and the database.
type Monitor struct {
	sync       SyncSource
	node       NodeSource
	db         Pinger
	failedRepo storage.FailedBlockRepository

	lastCheck  time.Time
	lastReport Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(syncSrc SyncSource, node NodeSource, db Pinger, failedRepo storage.FailedBlockRepository) *Monitor {
	return &Monitor{
		sync:       syncSrc,
		node:       node,
		db:         db,
		failedRepo: failedRepo,
	}
}

// CheckHealth performs a health check across all components.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (max once per 10s) to avoid spamming the node
	if time.Since(m.lastCheck) < 10*time.Second && m.lastReport.Status != "" {
		return m.lastReport
	}

	report := Report{
		Sync:     m.checkSync(ctx),
		Node:     m.checkNode(),
		Database: StatusHealthy,
	}

	if m.db != nil {
		if err := m.db.Health(ctx); err != nil {
			report.Database = StatusCritical
		}
	}

	// Worst case wins
	report.Status = worst(report.Sync.Status, report.Node.Status, report.Database)

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}

func (m *Monitor) checkSync(ctx context.Context) SyncHealth {
	st := m.sync.Status()

	health := SyncHealth{
		Status:       StatusHealthy,
		Running:      st.Running,
		State:        st.State,
		CurrentBlock: st.CurrentBlock,
		TargetBlock:  st.TargetBlock,
	}
	if st.Lag > 0 {
		health.BlockLag = uint64(st.Lag)
	}

	if m.failedRepo != nil {
		if count, err := m.failedRepo.Count(ctx); err == nil {
			health.FailedBlocks = count
		}
	}

	switch {
	case !st.Running || health.BlockLag > 100 || health.FailedBlocks > 50:
		health.Status = StatusCritical
	case health.BlockLag > 10 || health.FailedBlocks > 0:
		health.Status = StatusDegraded
	}
	return health
}

func (m *Monitor) checkNode() NodeHealth {
	stats := m.node.Stats()

	health := NodeHealth{
		Status:         StatusHealthy,
		NodeStatus:     stats.Status.String(),
		AverageLatency: stats.AverageLatency.String(),
		LastError:      stats.LastError,
	}

	switch stats.Status {
	case evm.StatusDown:
		health.Status = StatusCritical
	case evm.StatusDegraded, evm.StatusThrottled:
		health.Status = StatusDegraded
	}
	return health
}

func worst(statuses ...SystemStatus) SystemStatus {
	result := StatusHealthy
	for _, s := range statuses {
		if s == StatusCritical {
			return StatusCritical
		}
		if s == StatusDegraded {
			result = StatusDegraded
		}
	}
	return result
}
