package concurrency

import (
	"context"
	"fmt"
)

// RateLimiter bounds the number of operations in flight with a token bucket.
type RateLimiter struct {
	maxConcurrent int
	tokens        chan struct{}
}

// NewRateLimiter creates a rate limiter with the specified maximum concurrent operations.
func NewRateLimiter(maxConcurrent int) *RateLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}

	rl := &RateLimiter{
		maxConcurrent: maxConcurrent,
		tokens:        make(chan struct{}, maxConcurrent),
	}

	for i := 0; i < maxConcurrent; i++ {
		rl.tokens <- struct{}{}
	}

	return rl
}

// Acquire blocks until a token is available or context is cancelled.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("rate limiter acquire cancelled: %w", ctx.Err())
	}
}

// TryAcquire attempts to acquire a token without blocking.
func (rl *RateLimiter) TryAcquire() bool {
	select {
	case <-rl.tokens:
		return true
	default:
		return false
	}
}

// Release returns a token to the bucket.
func (rl *RateLimiter) Release() {
	select {
	case rl.tokens <- struct{}{}:
	default:
		// unbalanced Release; the bucket is already full
	}
}

// Available returns the number of available tokens.
func (rl *RateLimiter) Available() int {
	return len(rl.tokens)
}

// Capacity returns the maximum number of concurrent operations.
func (rl *RateLimiter) Capacity() int {
	return rl.maxConcurrent
}
