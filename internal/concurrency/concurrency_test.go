package concurrency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestWorkerPool(t *testing.T) {
	t.Run("Basic Execution", func(t *testing.T) {
		wp := NewWorkerPool(context.Background(), 2)
		if err := wp.Start(); err != nil {
			t.Fatalf("Failed to start worker pool: %v", err)
		}

		tasks := []Task{
			{ID: "task1", Execute: func(ctx context.Context) error { return nil }},
			{ID: "task2", Execute: func(ctx context.Context) error { return errors.New("boom") }},
			{ID: "task3", Execute: func(ctx context.Context) error { return nil }},
		}

		go func() {
			for _, task := range tasks {
				if err := wp.Submit(task); err != nil {
					t.Errorf("Failed to submit task %s: %v", task.ID, err)
				}
			}
			wp.Shutdown()
		}()

		results := make(map[string]error)
		timeout := time.After(5 * time.Second)
		for done := false; !done; {
			select {
			case res, ok := <-wp.Results():
				if !ok {
					done = true
					break
				}
				results[res.TaskID] = res.Error
			case <-timeout:
				t.Fatal("Timeout waiting for task completion")
			}
		}

		if len(results) != 3 {
			t.Fatalf("Expected 3 results, got %d", len(results))
		}
		if results["task2"] == nil {
			t.Error("Expected task2 to report its error")
		}
	})

	t.Run("Concurrent Execution", func(t *testing.T) {
		wp := NewWorkerPool(context.Background(), 5)
		if err := wp.Start(); err != nil {
			t.Fatalf("Failed to start worker pool: %v", err)
		}

		var mu sync.Mutex
		concurrent := 0
		maxConcurrent := 0

		taskCount := 20
		go func() {
			for i := 0; i < taskCount; i++ {
				task := Task{
					ID: string(rune('A' + i)),
					Execute: func(ctx context.Context) error {
						mu.Lock()
						concurrent++
						if concurrent > maxConcurrent {
							maxConcurrent = concurrent
						}
						mu.Unlock()

						time.Sleep(10 * time.Millisecond)

						mu.Lock()
						concurrent--
						mu.Unlock()
						return nil
					},
				}
				if err := wp.Submit(task); err != nil {
					t.Errorf("Failed to submit task: %v", err)
				}
			}
			wp.Shutdown()
		}()

		count := 0
		for range wp.Results() {
			count++
		}

		if count != taskCount {
			t.Errorf("Expected %d results, got %d", taskCount, count)
		}
		if maxConcurrent > 5 {
			t.Errorf("Max concurrent workers exceeded: %d > 5", maxConcurrent)
		}
		if maxConcurrent < 2 {
			t.Errorf("Not enough concurrency: %d", maxConcurrent)
		}
	})

	t.Run("Parent Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		wp := NewWorkerPool(ctx, 1)
		if err := wp.Start(); err != nil {
			t.Fatalf("Failed to start worker pool: %v", err)
		}
		cancel()

		var err error
		for i := 0; i < 100 && err == nil; i++ {
			err = wp.Submit(Task{ID: "late", Execute: func(ctx context.Context) error { return nil }})
		}
		if err == nil {
			t.Error("Expected submit to fail after cancellation")
		}
		wp.Shutdown()
	})

	t.Run("Submit Before Start", func(t *testing.T) {
		wp := NewWorkerPool(context.Background(), 1)
		if err := wp.Submit(Task{ID: "x"}); err == nil {
			t.Error("Expected error when submitting to a pool that was not started")
		}
	})

	t.Run("Double Start", func(t *testing.T) {
		wp := NewWorkerPool(context.Background(), 1)
		if err := wp.Start(); err != nil {
			t.Fatalf("Failed to start worker pool: %v", err)
		}
		if err := wp.Start(); err == nil {
			t.Error("Expected error on second Start")
		}
		wp.Shutdown()
		wp.Shutdown()
	})
}

func TestRateLimiter(t *testing.T) {
	t.Run("Basic Limiting", func(t *testing.T) {
		rl := NewRateLimiter(3)

		for i := 0; i < 3; i++ {
			if !rl.TryAcquire() {
				t.Errorf("Failed to acquire token %d", i)
			}
		}

		if rl.TryAcquire() {
			t.Error("Should not acquire 4th token")
		}

		rl.Release()

		if !rl.TryAcquire() {
			t.Error("Should acquire after release")
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		rl := NewRateLimiter(1)
		rl.TryAcquire()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := rl.Acquire(ctx); err == nil {
			t.Error("Expected error from cancelled context")
		}
	})

	t.Run("Unbalanced Release", func(t *testing.T) {
		rl := NewRateLimiter(2)
		rl.Release()
		if rl.Available() != 2 || rl.Capacity() != 2 {
			t.Errorf("Expected bucket to stay at capacity, got %d/%d", rl.Available(), rl.Capacity())
		}
	})

	t.Run("Concurrent Access", func(t *testing.T) {
		rl := NewRateLimiter(5)

		var wg sync.WaitGroup
		acquired := make(chan bool, 20)

		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := rl.Acquire(context.Background()); err == nil {
					acquired <- true
					time.Sleep(10 * time.Millisecond)
					rl.Release()
				}
			}()
		}

		wg.Wait()
		close(acquired)

		count := 0
		for range acquired {
			count++
		}

		if count != 20 {
			t.Errorf("Expected 20 acquisitions, got %d", count)
		}
	})
}

func TestRunLock(t *testing.T) {
	t.Run("Basic Acquire and Release", func(t *testing.T) {
		lock := NewRunLock()
		defer lock.Close()
		ctx := context.Background()

		acquired, err := lock.Acquire(ctx, "run1", 10*time.Second)
		if err != nil || !acquired {
			t.Fatal("Failed to acquire lock")
		}
		if !lock.Held("run1") {
			t.Error("Expected run1 to be held")
		}

		acquired, err = lock.Acquire(ctx, "run1", 10*time.Second)
		if err != nil || acquired {
			t.Error("Should not acquire already-locked run")
		}

		if err := lock.Release("run1"); err != nil {
			t.Errorf("Failed to release lock: %v", err)
		}
		if err := lock.Release("run1"); err == nil {
			t.Error("Expected error releasing a lock that is not held")
		}

		acquired, err = lock.Acquire(ctx, "run1", 10*time.Second)
		if err != nil || !acquired {
			t.Error("Failed to re-acquire after release")
		}
	})

	t.Run("TTL Expiration", func(t *testing.T) {
		lock := NewRunLock()
		defer lock.Close()
		ctx := context.Background()

		acquired, _ := lock.Acquire(ctx, "run1", 100*time.Millisecond)
		if !acquired {
			t.Fatal("Failed to acquire lock")
		}

		time.Sleep(150 * time.Millisecond)

		acquired, _ = lock.Acquire(ctx, "run1", 10*time.Second)
		if !acquired {
			t.Error("Lock should have expired")
		}
	})

	t.Run("Non Positive TTL Rejected", func(t *testing.T) {
		lock := NewRunLock()
		defer lock.Close()
		ctx := context.Background()

		for _, ttl := range []time.Duration{0, -time.Second} {
			acquired, err := lock.Acquire(ctx, "run1", ttl)
			if err == nil || acquired {
				t.Errorf("ttl %s: expected rejection, got acquired=%v err=%v", ttl, acquired, err)
			}
		}
		if lock.Held("run1") {
			t.Error("Rejected acquire must not leave the run held")
		}
	})

	t.Run("Renew Extends Expiry", func(t *testing.T) {
		lock := NewRunLock()
		defer lock.Close()
		ctx := context.Background()

		acquired, _ := lock.Acquire(ctx, "run1", 100*time.Millisecond)
		if !acquired {
			t.Fatal("Failed to acquire lock")
		}

		time.Sleep(60 * time.Millisecond)
		if err := lock.Renew("run1", 10*time.Second); err != nil {
			t.Fatalf("Renew failed: %v", err)
		}
		time.Sleep(80 * time.Millisecond)

		if !lock.Held("run1") {
			t.Error("Renewed lock should still be held")
		}
		if acquired, _ := lock.Acquire(ctx, "run1", time.Second); acquired {
			t.Error("Second holder must not acquire a renewed lock")
		}

		if err := lock.Renew("other", time.Second); err == nil {
			t.Error("Expected error renewing a lock that is not held")
		}
		if err := lock.Renew("run1", 0); err == nil {
			t.Error("Expected error renewing with zero ttl")
		}
	})

	t.Run("Cancelled Context", func(t *testing.T) {
		lock := NewRunLock()
		defer lock.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := lock.Acquire(ctx, "run1", time.Second); err == nil {
			t.Error("Expected error from cancelled context")
		}
	})
}
