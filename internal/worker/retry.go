package worker

import (
	"math"
	"time"
)

// RetryPolicy spaces out attempts to reach the spreadsheet. Zero fields take
// the defaults from withDefaults.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = 5
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = 2 * time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = time.Minute
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = 2
	}
	return r
}

// Exhausted reports whether the given failed attempt (1-based) was the last one.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}

// Backoff returns the wait after the given failed attempt (1-based), capped at MaxDelay.
func (r RetryPolicy) Backoff(attempt int) time.Duration {
	r = r.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	d := float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1))
	if d > float64(r.MaxDelay) {
		return r.MaxDelay
	}
	return time.Duration(d)
}
