package utils

import "time"

// Backoff is a retry schedule: up to maxRetries further attempts, waiting
// base, 2*base, 4*base and so on between them.
type Backoff struct {
	base       time.Duration
	maxRetries int
}

func NewBackoff(base time.Duration, maxRetries int) Backoff {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return Backoff{base: base, maxRetries: maxRetries}
}

func (b Backoff) Retries() int { return b.maxRetries }

// Delay is the wait before retry number attempt, counted from 0.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 30 {
		attempt = 30 // tope sano
	}
	return time.Duration(1<<attempt) * b.base
}
