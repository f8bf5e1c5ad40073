package throttle

import "sync"

// AdaptiveController adjusts the sync batch size from pass outcomes.
// Growth is additive after a streak of clean passes; shrink is
// multiplicative as soon as failures repeat, so a struggling node gets
// relief quickly while recovery back to full speed is gradual.
type AdaptiveController struct {
	mu     sync.Mutex
	config Config

	current   int
	successes int
	failures  int
}

// NewAdaptiveController creates a controller starting at the configured
// initial batch size.
func NewAdaptiveController(config Config) *AdaptiveController {
	cfg := config.withDefaults()
	return &AdaptiveController{
		config:  cfg,
		current: cfg.InitialBatchSize,
	}
}

// BatchSize returns the current batch size.
func (c *AdaptiveController) BatchSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// RecordSuccess notes a fully successful pass. After the configured
// streak the batch size grows by the step, capped at the maximum.
func (c *AdaptiveController) RecordSuccess() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failures = 0
	c.successes++

	if c.successes >= c.config.SuccessStreak {
		c.successes = 0
		c.current += c.config.IncreaseStep
		if c.current > c.config.MaxBatchSize {
			c.current = c.config.MaxBatchSize
		}
	}
	return c.current
}

// RecordFailure notes a pass that hit an error. After the configured
// streak the batch size halves, floored at the minimum.
func (c *AdaptiveController) RecordFailure() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successes = 0
	c.failures++

	if c.failures >= c.config.FailureStreak {
		c.failures = 0
		c.current /= 2
		if c.current < c.config.MinBatchSize {
			c.current = c.config.MinBatchSize
		}
	}
	return c.current
}

// Reset returns the controller to its initial state.
func (c *AdaptiveController) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.config.InitialBatchSize
	c.successes = 0
	c.failures = 0
}
