package evm

import (
	"strings"
	"sync"
	"time"
)

// NodeStatus represents the health state of the RPC node.
type NodeStatus int

const (
	StatusHealthy   NodeStatus = iota // Node is answering normally
	StatusDegraded                    // Node is slow or partially failing
	StatusThrottled                   // Node is rate limiting
	StatusDown                        // Node is not answering at all
)

func (s NodeStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// NodeStats holds request statistics for the RPC connection.
type NodeStats struct {
	Status              NodeStatus
	AverageLatency      time.Duration
	ConsecutiveFailures int
	ThrottleHits        int
	RequestsLastHour    int
	LastErrorAt         time.Time
	LastError           string
}

// NodeMonitor tracks latency and errors of the RPC connection.
type NodeMonitor struct {
	mu sync.RWMutex

	recentLatencies  []time.Duration
	maxLatencyWindow int

	consecutiveFailures int
	throttleHits        int
	throttlePatterns    []string
	lastThrottleTime    time.Time
	lastErrorAt         time.Time
	lastError           string

	requestTimestamps []time.Time

	slowResponseThreshold time.Duration
	downThreshold         int
}

// NewNodeMonitor creates a monitor with default thresholds.
func NewNodeMonitor() *NodeMonitor {
	return &NodeMonitor{
		recentLatencies:  make([]time.Duration, 0, 100),
		maxLatencyWindow: 100,
		throttlePatterns: []string{
			"rate limit exceeded",
			"too many requests",
			"daily request count exceeded",
			"project rate limit",
			"429",
		},
		slowResponseThreshold: 3 * time.Second,
		downThreshold:         5,
	}
}

// RecordRequest records a successful request with its latency.
func (m *NodeMonitor) RecordRequest(latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.consecutiveFailures = 0

	m.recentLatencies = append(m.recentLatencies, latency)
	if len(m.recentLatencies) > m.maxLatencyWindow {
		m.recentLatencies = m.recentLatencies[1:]
	}

	m.requestTimestamps = append(m.requestTimestamps, now)
	cutoff := now.Add(-time.Hour)
	for len(m.requestTimestamps) > 0 && m.requestTimestamps[0].Before(cutoff) {
		m.requestTimestamps = m.requestTimestamps[1:]
	}
}

// RecordError records a failed request.
func (m *NodeMonitor) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveFailures++
	m.lastErrorAt = time.Now()
	m.lastError = err.Error()

	lower := strings.ToLower(err.Error())
	for _, pattern := range m.throttlePatterns {
		if strings.Contains(lower, pattern) {
			m.throttleHits++
			m.lastThrottleTime = time.Now()
			break
		}
	}
}

// Status returns the current health assessment.
func (m *NodeMonitor) Status() NodeStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.consecutiveFailures >= m.downThreshold {
		return StatusDown
	}

	if m.throttleHits > 0 && time.Since(m.lastThrottleTime) < time.Minute {
		return StatusThrottled
	}

	if m.consecutiveFailures > 0 {
		return StatusDegraded
	}

	if len(m.recentLatencies) > 10 {
		var total time.Duration
		for _, lat := range m.recentLatencies {
			total += lat
		}
		if total/time.Duration(len(m.recentLatencies)) > m.slowResponseThreshold {
			return StatusDegraded
		}
	}

	return StatusHealthy
}

// AverageLatency returns the mean latency of recent requests.
func (m *NodeMonitor) AverageLatency() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.recentLatencies) == 0 {
		return 0
	}
	var total time.Duration
	for _, lat := range m.recentLatencies {
		total += lat
	}
	return total / time.Duration(len(m.recentLatencies))
}

// Stats returns a snapshot of the request statistics.
func (m *NodeMonitor) Stats() NodeStats {
	status := m.Status()
	avg := m.AverageLatency()

	m.mu.RLock()
	defer m.mu.RUnlock()

	return NodeStats{
		Status:              status,
		AverageLatency:      avg,
		ConsecutiveFailures: m.consecutiveFailures,
		ThrottleHits:        m.throttleHits,
		RequestsLastHour:    len(m.requestTimestamps),
		LastErrorAt:         m.lastErrorAt,
		LastError:           m.lastError,
	}
}
