package domain

import "time"

// NetworkStats is the aggregate snapshot shown on the explorer front
// page, recomputed periodically rather than per block.
type NetworkStats struct {
	LatestBlock       uint64
	TotalTransactions uint64
	TotalAddresses    uint64
	TotalTokens       uint64
	AvgBlockTime      float64
	GasPrice          string
	UpdatedAt         time.Time
}

// DailyStats is the per-day activity rollup.
type DailyStats struct {
	Date            string
	BlockCount      uint64
	TxCount         uint64
	ActiveAddresses uint64
	GasUsed         uint64
}
