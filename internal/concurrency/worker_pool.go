package concurrency

import (
	"context"
	"fmt"
	"sync"
)

// Task represents a unit of work to be executed by the worker pool.
type Task struct {
	ID      string
	Execute func(ctx context.Context) error
}

// WorkerPool manages a pool of goroutines for concurrent task execution.
type WorkerPool struct {
	maxWorkers  int
	taskQueue   chan Task
	resultQueue chan TaskResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	mu          sync.Mutex
}

// TaskResult contains the outcome of a task execution.
type TaskResult struct {
	TaskID string
	Error  error
}

// NewWorkerPool creates a worker pool with the specified number of workers.
// Cancelling parent stops the workers; queued tasks are then dropped without
// a result.
func NewWorkerPool(parent context.Context, maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		maxWorkers:  maxWorkers,
		taskQueue:   make(chan Task, maxWorkers*2),
		resultQueue: make(chan TaskResult, maxWorkers*2),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start initializes the worker goroutines.
func (wp *WorkerPool) Start() error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.started {
		return fmt.Errorf("worker pool already started")
	}

	for i := 0; i < wp.maxWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}

	wp.started = true
	return nil
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case <-wp.ctx.Done():
			return
		case task, ok := <-wp.taskQueue:
			if !ok {
				return
			}

			err := task.Execute(wp.ctx)

			select {
			case wp.resultQueue <- TaskResult{TaskID: task.ID, Error: err}:
			case <-wp.ctx.Done():
				return
			}
		}
	}
}

// Submit adds a task to the worker pool queue. It blocks while the queue is
// full and fails once the pool is cancelled or shut down.
func (wp *WorkerPool) Submit(task Task) error {
	wp.mu.Lock()
	if !wp.started {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool not started")
	}
	if wp.stopped {
		wp.mu.Unlock()
		return fmt.Errorf("worker pool shut down")
	}
	wp.mu.Unlock()

	select {
	case wp.taskQueue <- task:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool shut down: %w", wp.ctx.Err())
	}
}

// Results returns the result channel. It is closed by Shutdown after every
// worker has exited, so callers can range over it.
func (wp *WorkerPool) Results() <-chan TaskResult {
	return wp.resultQueue
}

// Shutdown stops accepting tasks, waits for in-flight tasks to finish and
// closes the result channel. It must be called from the goroutine that
// submits tasks. Results must be drained concurrently, otherwise
// workers block on a full result queue.
func (wp *WorkerPool) Shutdown() {
	wp.mu.Lock()
	if !wp.started || wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	wp.mu.Unlock()

	close(wp.taskQueue)
	wp.wg.Wait()
	wp.cancel()
	close(wp.resultQueue)
}
