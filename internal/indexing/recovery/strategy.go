package recovery

import "time"

// RetryStrategy decides whether and when a failed block is retried.
type RetryStrategy interface {
	GetDelay(attempt int) time.Duration
	ShouldRetry(err error, attempt int) bool
}

// ExponentialBackoff doubles the delay on every attempt up to MaxDelay
// and gives up after MaxAttempts.
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	MaxAttempts  int
	Classifier   Classifier
}

// DefaultBackoff returns the retry schedule used by the failed block
// sweep: 1s, 2s, 4s, then abandon. A nil classifier falls back to
// Classify.
func DefaultBackoff(classifier Classifier) *ExponentialBackoff {
	if classifier == nil {
		classifier = Classify
	}
	return &ExponentialBackoff{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		MaxAttempts:  3,
		Classifier:   classifier,
	}
}

// GetDelay returns InitialDelay doubled attempt times, capped at
// MaxDelay. Attempts past 62 would overflow the shift and get the cap
// directly.
func (s *ExponentialBackoff) GetDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 62 {
		return s.MaxDelay
	}
	delay := s.InitialDelay << uint(attempt)
	if delay > s.MaxDelay || delay < s.InitialDelay {
		return s.MaxDelay
	}
	return delay
}

// ShouldRetry reports whether another attempt is worth making. Only
// transient failures retry; network errors put the whole loop into
// recovery mode instead, and data errors wait for manual action.
func (s *ExponentialBackoff) ShouldRetry(err error, attempt int) bool {
	return attempt < s.MaxAttempts && s.Classifier(err) == CategoryTransient
}
