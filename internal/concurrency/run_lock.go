package concurrency

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RunLock guarantees that a given run id is executed by at most one caller at
// a time within this process. Entries expire after their TTL unless the
// holder renews them; long executions renew as they make progress.
type RunLock struct {
	locks map[string]time.Time
	mu    sync.Mutex
	done  chan struct{}
	once  sync.Once
}

// NewRunLock creates a run lock and starts its expiry sweeper.
func NewRunLock() *RunLock {
	l := &RunLock{
		locks: make(map[string]time.Time),
		done:  make(chan struct{}),
	}

	go l.cleanupExpiredLocks(10 * time.Second)

	return l
}

// Acquire takes the lock for runID. It returns false without error when
// another holder has it. ttl must be positive.
func (l *RunLock) Acquire(ctx context.Context, runID string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if ttl <= 0 {
		return false, fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if expiresAt, exists := l.locks[runID]; exists && time.Now().Before(expiresAt) {
		return false, nil
	}

	l.locks[runID] = time.Now().Add(ttl)
	return true, nil
}

// Release drops the lock for runID.
func (l *RunLock) Release(runID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.locks[runID]; !exists {
		return fmt.Errorf("lock for run %s does not exist", runID)
	}

	delete(l.locks, runID)
	return nil
}

// Renew pushes the expiry of a held lock ttl into the future.
func (l *RunLock) Renew(runID string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("lock ttl must be positive, got %s", ttl)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.locks[runID]; !exists {
		return fmt.Errorf("lock for run %s does not exist", runID)
	}

	l.locks[runID] = time.Now().Add(ttl)
	return nil
}

// Held reports whether runID is currently locked.
func (l *RunLock) Held(runID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	expiresAt, exists := l.locks[runID]
	return exists && time.Now().Before(expiresAt)
}

// Close stops the expiry sweeper.
func (l *RunLock) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *RunLock) cleanupExpiredLocks(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := time.Now()
			for runID, expiresAt := range l.locks {
				if now.After(expiresAt) {
					delete(l.locks, runID)
				}
			}
			l.mu.Unlock()
		}
	}
}
