package throttle

import "testing"

func TestBatchSizeGrowsAfterSuccessStreak(t *testing.T) {
	config := Config{
		MinBatchSize:     1,
		MaxBatchSize:     50,
		InitialBatchSize: 10,
		IncreaseStep:     5,
		SuccessStreak:    3,
		FailureStreak:    2,
	}
	controller := NewAdaptiveController(config)

	controller.RecordSuccess()
	controller.RecordSuccess()
	if got := controller.BatchSize(); got != 10 {
		t.Errorf("batch size changed before streak completed: got %d, want 10", got)
	}

	controller.RecordSuccess()
	if got := controller.BatchSize(); got != 15 {
		t.Errorf("batch size after 3 successes = %d, want 15", got)
	}

	// Streak counter resets after an increase.
	controller.RecordSuccess()
	controller.RecordSuccess()
	if got := controller.BatchSize(); got != 15 {
		t.Errorf("batch size grew without a fresh streak: got %d, want 15", got)
	}
}

func TestBatchSizeCappedAtMax(t *testing.T) {
	config := Config{
		MinBatchSize:     1,
		MaxBatchSize:     12,
		InitialBatchSize: 10,
		IncreaseStep:     5,
		SuccessStreak:    3,
		FailureStreak:    2,
	}
	controller := NewAdaptiveController(config)

	for i := 0; i < 9; i++ {
		controller.RecordSuccess()
	}
	if got := controller.BatchSize(); got != 12 {
		t.Errorf("batch size exceeded max: got %d, want 12", got)
	}
}

func TestBatchSizeHalvesAfterFailureStreak(t *testing.T) {
	config := Config{
		MinBatchSize:     1,
		MaxBatchSize:     50,
		InitialBatchSize: 20,
		IncreaseStep:     5,
		SuccessStreak:    3,
		FailureStreak:    2,
	}
	controller := NewAdaptiveController(config)

	controller.RecordFailure()
	if got := controller.BatchSize(); got != 20 {
		t.Errorf("batch size shrank after a single failure: got %d, want 20", got)
	}

	controller.RecordFailure()
	if got := controller.BatchSize(); got != 10 {
		t.Errorf("batch size after 2 failures = %d, want 10", got)
	}

	controller.RecordFailure()
	controller.RecordFailure()
	if got := controller.BatchSize(); got != 5 {
		t.Errorf("batch size after 4 failures = %d, want 5", got)
	}
}

func TestBatchSizeFlooredAtMin(t *testing.T) {
	config := Config{
		MinBatchSize:     2,
		MaxBatchSize:     50,
		InitialBatchSize: 4,
		IncreaseStep:     5,
		SuccessStreak:    3,
		FailureStreak:    2,
	}
	controller := NewAdaptiveController(config)

	for i := 0; i < 10; i++ {
		controller.RecordFailure()
	}
	if got := controller.BatchSize(); got != 2 {
		t.Errorf("batch size fell below min: got %d, want 2", got)
	}
}

func TestFailureResetsSuccessStreak(t *testing.T) {
	controller := NewAdaptiveController(DefaultConfig())

	controller.RecordSuccess()
	controller.RecordSuccess()
	controller.RecordFailure()
	controller.RecordSuccess()
	controller.RecordSuccess()
	if got := controller.BatchSize(); got != DefaultConfig().InitialBatchSize {
		t.Errorf("interrupted streak still grew batch size: got %d, want %d",
			got, DefaultConfig().InitialBatchSize)
	}
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	controller := NewAdaptiveController(DefaultConfig())

	controller.RecordFailure()
	controller.RecordSuccess()
	controller.RecordFailure()
	if got := controller.BatchSize(); got != DefaultConfig().InitialBatchSize {
		t.Errorf("interrupted failure streak still shrank batch size: got %d, want %d",
			got, DefaultConfig().InitialBatchSize)
	}
}

func TestDefaultsAppliedToZeroConfig(t *testing.T) {
	controller := NewAdaptiveController(Config{})
	if got := controller.BatchSize(); got != DefaultConfig().InitialBatchSize {
		t.Errorf("zero config initial batch size = %d, want %d",
			got, DefaultConfig().InitialBatchSize)
	}
}
