package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryPolicy defines the configuration for retry attempts.
type RetryPolicy struct {
	MaxAttempts       int           // Maximum number of retry attempts (0 = no retries, 1+ = that many retries after initial attempt)
	InitialDelay      time.Duration // Initial delay before first retry
	BackoffMultiplier float64       // Multiplier for exponential backoff
	MaxDelay          time.Duration // Maximum delay between retries
}

// DefaultPolicy returns the policy used for run persistence.
// Max 3 retries (4 total attempts), starting at 50ms with 2x backoff, capped at 1s.
func DefaultPolicy() *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts:       3,
		InitialDelay:      50 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxDelay:          1 * time.Second,
	}
}

// ExponentialBackoff calculates the delay for a given retry attempt.
// attempt is 0-indexed (0 = first retry, 1 = second retry, etc.)
func ExponentialBackoff(policy *RetryPolicy, attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	delay := float64(policy.InitialDelay) * math.Pow(policy.BackoffMultiplier, float64(attempt))

	if delay > float64(policy.MaxDelay) {
		delay = float64(policy.MaxDelay)
	}

	return time.Duration(delay)
}

// ShouldRetry determines if another retry attempt should be made.
func (p *RetryPolicy) ShouldRetry(attempt int) bool {
	return attempt < p.MaxAttempts
}

// Do runs op until it succeeds, fails with a non-retryable error, the
// policy is exhausted or ctx is done. It returns the last error.
func Do(ctx context.Context, policy *RetryPolicy, op func() error) error {
	if policy == nil {
		policy = DefaultPolicy()
	}

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		if !IsRetryable(err) || !policy.ShouldRetry(attempt) {
			return err
		}

		timer := time.NewTimer(ExponentialBackoff(policy, attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after %d attempts: %w", attempt+1, err)
		case <-timer.C:
		}
	}
}
