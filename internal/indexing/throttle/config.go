package throttle

// Config holds bounds for adaptive batch sizing.
type Config struct {
	// Batch size bounds
	MinBatchSize     int `yaml:"min_batch_size"`     // Floor after repeated failures (default: 1)
	MaxBatchSize     int `yaml:"max_batch_size"`     // Ceiling after sustained success (default: 50)
	InitialBatchSize int `yaml:"initial_batch_size"` // Starting size (default: 10)

	// Step added after a success streak
	IncreaseStep int `yaml:"increase_step"` // (default: 5)

	// Streak lengths that trigger adjustment
	SuccessStreak int `yaml:"success_streak"` // Consecutive successes before growing (default: 3)
	FailureStreak int `yaml:"failure_streak"` // Consecutive failures before shrinking (default: 2)
}

// DefaultConfig returns sensible defaults for adaptive batch sizing.
func DefaultConfig() Config {
	return Config{
		MinBatchSize:     1,
		MaxBatchSize:     50,
		InitialBatchSize: 10,
		IncreaseStep:     5,
		SuccessStreak:    3,
		FailureStreak:    2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinBatchSize <= 0 {
		c.MinBatchSize = d.MinBatchSize
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = d.MaxBatchSize
	}
	if c.InitialBatchSize <= 0 {
		c.InitialBatchSize = d.InitialBatchSize
	}
	if c.IncreaseStep <= 0 {
		c.IncreaseStep = d.IncreaseStep
	}
	if c.SuccessStreak <= 0 {
		c.SuccessStreak = d.SuccessStreak
	}
	if c.FailureStreak <= 0 {
		c.FailureStreak = d.FailureStreak
	}
	if c.InitialBatchSize < c.MinBatchSize {
		c.InitialBatchSize = c.MinBatchSize
	}
	if c.InitialBatchSize > c.MaxBatchSize {
		c.InitialBatchSize = c.MaxBatchSize
	}
	return c
}
