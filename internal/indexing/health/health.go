// Package health provides system health monitoring and status reporting.
package health

import "github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/core/domain"

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// SyncHealth contains health metrics for the sync loop.
type SyncHealth struct {
	Status       SystemStatus      `json:"status"`
	Running      bool              `json:"running"`
	State        domain.SyncStatus `json:"state"`
	CurrentBlock uint64            `json:"current_block"`
	TargetBlock  uint64            `json:"target_block"`
	BlockLag     uint64            `json:"block_lag"`
	FailedBlocks int               `json:"failed_blocks"`
}

// NodeHealth contains health metrics for the RPC connection.
type NodeHealth struct {
	Status         SystemStatus `json:"status"`
	NodeStatus     string       `json:"node_status"`
	AverageLatency string       `json:"average_latency"`
	LastError      string       `json:"last_error,omitempty"`
}

// Report contains the full system health report.
type Report struct {
	Status   SystemStatus `json:"status"`
	Sync     SyncHealth   `json:"sync"`
	Node     NodeHealth   `json:"node"`
	Database SystemStatus `json:"database"`
}
