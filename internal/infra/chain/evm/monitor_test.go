package evm

import (
	"errors"
	"testing"
	"time"
)

func TestMonitorStartsHealthy(t *testing.T) {
	m := NewNodeMonitor()
	if got := m.Status(); got != StatusHealthy {
		t.Errorf("Status() = %v, want healthy", got)
	}
}

func TestMonitorDegradesAfterSingleFailure(t *testing.T) {
	m := NewNodeMonitor()
	m.RecordError(errors.New("connection reset by peer"))
	if got := m.Status(); got != StatusDegraded {
		t.Errorf("Status() = %v, want degraded", got)
	}
}

func TestMonitorDownAfterConsecutiveFailures(t *testing.T) {
	m := NewNodeMonitor()
	for i := 0; i < 5; i++ {
		m.RecordError(errors.New("dial tcp: connection refused"))
	}
	if got := m.Status(); got != StatusDown {
		t.Errorf("Status() = %v, want down", got)
	}
}

func TestMonitorSuccessResetsFailureStreak(t *testing.T) {
	m := NewNodeMonitor()
	for i := 0; i < 4; i++ {
		m.RecordError(errors.New("timeout"))
	}
	m.RecordRequest(10 * time.Millisecond)
	m.RecordError(errors.New("timeout"))
	if got := m.Status(); got == StatusDown {
		t.Error("one failure after a success should not report down")
	}
}

func TestMonitorDetectsThrottling(t *testing.T) {
	m := NewNodeMonitor()
	m.RecordError(errors.New("429 Too Many Requests"))
	if got := m.Status(); got != StatusThrottled {
		t.Errorf("Status() = %v, want throttled", got)
	}

	stats := m.Stats()
	if stats.ThrottleHits != 1 {
		t.Errorf("ThrottleHits = %d, want 1", stats.ThrottleHits)
	}
}

func TestMonitorDegradesOnSlowResponses(t *testing.T) {
	m := NewNodeMonitor()
	for i := 0; i < 20; i++ {
		m.RecordRequest(5 * time.Second)
	}
	if got := m.Status(); got != StatusDegraded {
		t.Errorf("Status() = %v, want degraded for slow node", got)
	}
}

func TestMonitorAverageLatency(t *testing.T) {
	m := NewNodeMonitor()
	m.RecordRequest(10 * time.Millisecond)
	m.RecordRequest(30 * time.Millisecond)
	if got := m.AverageLatency(); got != 20*time.Millisecond {
		t.Errorf("AverageLatency() = %v, want 20ms", got)
	}
}

func TestMonitorStatsSnapshot(t *testing.T) {
	m := NewNodeMonitor()
	m.RecordRequest(15 * time.Millisecond)
	m.RecordError(errors.New("missing trie node"))

	stats := m.Stats()
	if stats.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1", stats.ConsecutiveFailures)
	}
	if stats.RequestsLastHour != 1 {
		t.Errorf("RequestsLastHour = %d, want 1", stats.RequestsLastHour)
	}
	if stats.LastError != "missing trie node" {
		t.Errorf("LastError = %q", stats.LastError)
	}
	if stats.LastErrorAt.IsZero() {
		t.Error("LastErrorAt should be set")
	}
}
