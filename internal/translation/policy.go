package translation

import (
	"fmt"
	"math"
	"time"
)

// RetryPolicy controls how many times a capacity failure is retried and how
// long to wait between attempts.
type RetryPolicy struct {
	MaxAttempts       int
	InitialDelay      time.Duration
	BackoffMultiplier float64
}

// DefaultRetryPolicy waits 2s, 4s and 8s between four attempts.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:       4,
	InitialDelay:      2 * time.Second,
	BackoffMultiplier: 2,
}

// Validate checks the policy bounds.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.InitialDelay < 0 {
		return fmt.Errorf("initial delay must not be negative, got %s", p.InitialDelay)
	}
	if !(p.BackoffMultiplier > 1) || math.IsInf(p.BackoffMultiplier, 0) {
		return fmt.Errorf("backoff multiplier must be greater than 1, got %v", p.BackoffMultiplier)
	}
	return nil
}

// Delay returns the wait before the given 1-indexed attempt:
// InitialDelay * BackoffMultiplier^(attempt-2). Attempt 1 has no delay.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 2 {
		return 0
	}
	d := float64(p.InitialDelay) * math.Pow(p.BackoffMultiplier, float64(attempt-2))
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// MaxTotalDelay is the upper bound on time spent waiting across one call.
func (p RetryPolicy) MaxTotalDelay() time.Duration {
	var total time.Duration
	for k := 2; k <= p.MaxAttempts; k++ {
		d := p.Delay(k)
		if total > time.Duration(math.MaxInt64)-d {
			return time.Duration(math.MaxInt64)
		}
		total += d
	}
	return total
}
