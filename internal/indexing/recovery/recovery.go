// Package recovery handles the two failure paths of the sync pipeline:
// loss of connectivity to the RPC node, and individual blocks that
// keep failing to process.
//
// Network loss pauses the whole pipeline. The Recoverer probes the
// node with a growing wait between attempts, recreating the transport
// each time, and returns once the node answers. Individual block
// failures never pause the pipeline; they are retried with exponential
// backoff and eventually parked in the failed block queue.
package recovery

import (
	"context"
	"log/slog"
	"time"

	"github.com/vishnuvardanbnr-cmyk/TelebitExplorer-sub000/internal/indexing/metrics"
)

// Probe is the connectivity check plus transport reset surface of the
// chain client.
type Probe interface {
	BlockNumber(ctx context.Context) (uint64, error)
	Reconnect(ctx context.Context) error
}

// RecovererConfig bounds the probe loop.
type RecovererConfig struct {
	InitialWait time.Duration `yaml:"initial_wait"` // default: 2s
	MaxWait     time.Duration `yaml:"max_wait"`     // default: 60s
	Multiplier  float64       `yaml:"multiplier"`   // default: 1.5
}

func (c RecovererConfig) withDefaults() RecovererConfig {
	if c.InitialWait <= 0 {
		c.InitialWait = 2 * time.Second
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 60 * time.Second
	}
	if c.Multiplier <= 1 {
		c.Multiplier = 1.5
	}
	return c
}

// Recoverer brings the pipeline back after connectivity loss.
type Recoverer struct {
	config RecovererConfig
	probe  Probe
	log    *slog.Logger
}

// NewRecoverer creates a new recoverer.
func NewRecoverer(config RecovererConfig, probe Probe, log *slog.Logger) *Recoverer {
	if log == nil {
		log = slog.Default()
	}
	return &Recoverer{
		config: config.withDefaults(),
		probe:  probe,
		log:    log,
	}
}

// WaitForNode blocks until the node answers a head query or the
// context is cancelled. The transport is recreated before every probe
// after the first, since a dead connection can stay wedged.
func (r *Recoverer) WaitForNode(ctx context.Context) error {
	wait := r.config.InitialWait
	attempt := 0

	metrics.RecoveryModeActive.Set(1)
	defer metrics.RecoveryModeActive.Set(0)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		attempt++
		if attempt > 1 {
			if err := r.probe.Reconnect(ctx); err != nil {
				r.log.Warn("transport recreation failed", "attempt", attempt, "error", err)
			}
		}

		head, err := r.probe.BlockNumber(ctx)
		if err == nil {
			r.log.Info("node reachable again", "attempts", attempt, "head", head)
			metrics.RecoveryAttempts.Add(float64(attempt))
			return nil
		}

		r.log.Warn("node still unreachable", "attempt", attempt, "wait", wait, "error", err)

		wait = time.Duration(float64(wait) * r.config.Multiplier)
		if wait > r.config.MaxWait {
			wait = r.config.MaxWait
		}
	}
}
