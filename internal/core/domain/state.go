package domain

import "time"

// SyncStatus describes the orchestrator lifecycle.
type SyncStatus string

const (
	SyncStatusStopped    SyncStatus = "stopped"
	SyncStatusSyncing    SyncStatus = "syncing"
	SyncStatusRecovering SyncStatus = "recovering"
)

// IndexerState is the persistent sync cursor plus the last observed
// runtime condition. LastIndexedBlock is the highest block fully
// committed; the next pass starts at LastIndexedBlock+1.
type IndexerState struct {
	LastIndexedBlock uint64
	Status           SyncStatus
	LastError        string
	UpdatedAt        time.Time
}

// FailedBlockStatus tracks the retry lifecycle of a failed block.
type FailedBlockStatus string

const (
	FailedBlockPending   FailedBlockStatus = "pending"
	FailedBlockRecovered FailedBlockStatus = "recovered"
	FailedBlockAbandoned FailedBlockStatus = "abandoned"
)

// FailedBlock records a block whose processing failed after retries,
// so a sweep can pick it up later without stalling the sync loop.
type FailedBlock struct {
	ID          string
	Number      uint64
	Reason      string
	RetryCount  int
	Status      FailedBlockStatus
	LastAttempt time.Time
	CreatedAt   time.Time
}
