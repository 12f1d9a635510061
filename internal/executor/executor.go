package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"heredity/internal/concurrency"
	"heredity/internal/heredity"
	"heredity/internal/logger"
	"heredity/internal/metrics"
	"heredity/internal/retry"
	"heredity/internal/run"
	"heredity/internal/storage"
)

var (
	// ErrRunInProgress is returned when the run id is already being executed.
	ErrRunInProgress = errors.New("run already in progress")
	// ErrRunExists is returned when the run id is already stored. Run ids
	// are never reused so a stored run keeps the pedigree it was computed on.
	ErrRunExists = errors.New("run already exists")
)

// Options configures an Executor. Store may be nil to skip persistence.
type Options struct {
	Concurrency    *concurrency.Config
	MaxIndividuals int
	Store          storage.Storage
	RetryPolicy    *retry.RetryPolicy
}

// Executor runs exact inference over a pedigree by sharding the gene
// assignment space across a worker pool.
type Executor struct {
	engine         *heredity.Engine
	config         *concurrency.Config
	maxIndividuals int
	locks          *concurrency.RunLock
	store          storage.Storage
	retryPolicy    *retry.RetryPolicy
}

// ExecutionResult contains the outcome of a successful run.
type ExecutionResult struct {
	RunID      string
	Status     run.Status
	Order      []string
	Posteriors map[string]heredity.Posterior
	Worlds     int64
	Shards     int
	Duration   time.Duration
}

// NewExecutor creates an executor around engine.
func NewExecutor(engine *heredity.Engine, opts Options) *Executor {
	cfg := opts.Concurrency
	if cfg == nil {
		cfg = concurrency.DefaultConfig()
	}
	if cfg.LockTimeout <= 0 {
		c := *cfg
		c.LockTimeout = concurrency.DefaultConfig().LockTimeout
		cfg = &c
	}
	policy := opts.RetryPolicy
	if policy == nil {
		policy = retry.DefaultPolicy()
	}

	return &Executor{
		engine:         engine,
		config:         cfg,
		maxIndividuals: opts.MaxIndividuals,
		locks:          concurrency.NewRunLock(),
		store:          opts.Store,
		retryPolicy:    policy,
	}
}

// Close releases the executor's background resources.
func (e *Executor) Close() error {
	return e.locks.Close()
}

// Running reports whether runID is currently being executed.
func (e *Executor) Running(runID string) bool {
	return e.locks.Held(runID)
}

// Execute computes the normalized posteriors of every individual in pop.
// An empty runID gets a fresh one.
func (e *Executor) Execute(ctx context.Context, pop *heredity.Population, runID string) (*ExecutionResult, error) {
	if pop == nil || pop.Len() == 0 {
		return nil, heredity.ErrEmptyPopulation
	}
	if e.maxIndividuals > 0 && pop.Len() > e.maxIndividuals {
		return nil, fmt.Errorf("%w: %d individuals, configured limit is %d",
			heredity.ErrPopulationTooLarge, pop.Len(), e.maxIndividuals)
	}
	if pop.Len() > heredity.MaxPopulation {
		return nil, fmt.Errorf("%w: %d individuals, limit is %d",
			heredity.ErrPopulationTooLarge, pop.Len(), heredity.MaxPopulation)
	}
	if runID == "" {
		runID = logger.GenerateRunID()
	}

	acquired, err := e.locks.Acquire(ctx, runID, e.config.LockTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !acquired {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, runID)
	}
	defer func() {
		if err := e.locks.Release(runID); err != nil {
			log.Printf("[Executor] Warning: failed to release lock for run %s: %v", runID, err)
		}
	}()

	if err := e.checkRunIDFree(runID); err != nil {
		return nil, err
	}

	metrics.IncrementActiveInferences()
	defer metrics.DecrementActiveInferences()

	ctx, span := metrics.StartSpan(ctx, "heredity.infer", metrics.RunAttributes(runID, pop.Len())...)
	defer span.End()

	start := time.Now()
	sm := run.NewStateMachine(run.StatusCreated)
	e.persistCreated(ctx, runID, pop)

	if err := sm.Transition(run.StatusRunning); err != nil {
		return nil, err
	}
	e.persistStatus(ctx, runID, run.StatusRunning, "")

	workers := e.config.MaxWorkers
	shards := planShards(heredity.GeneAssignmentCount(pop.Len()), workers*max(e.config.ShardsPerWorker, 1))
	run.LogInferencePlan(ctx, runID, pop, len(shards))
	log.Printf("[Executor] Run %s: %d individuals, %d worlds over %d shards with %d workers",
		runID, pop.Len(), heredity.WorldCount(pop), len(shards), workers)

	acc, err := e.enumerate(ctx, runID, pop, shards, workers)
	if err == nil {
		err = acc.Normalize()
	}
	duration := time.Since(start)

	if err != nil {
		status := run.StatusFailed
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = run.StatusCancelled
		}
		if terr := sm.Transition(status); terr != nil {
			log.Printf("[Executor] Warning: %v", terr)
		}

		metrics.RecordInference(duration.Seconds(), statusLabel(status), pop.Len())
		metrics.RecordError("executor", errorType(err))
		metrics.RecordSpanError(ctx, err)
		logger.LogError(ctx, runID, "executor", "inference_failed", err)
		e.persistStatus(ctx, runID, status, err.Error())

		return nil, fmt.Errorf("run %s %s: %w", runID, statusLabel(status), err)
	}

	if err := sm.Transition(run.StatusSucceeded); err != nil {
		return nil, err
	}

	// Every generated world agrees with the evidence; the rest were pruned
	allWorlds := heredity.GeneAssignmentCount(pop.Len()) << pop.Len()
	metrics.RecordWorlds(acc.Worlds(), allWorlds-acc.Worlds())
	metrics.RecordInference(duration.Seconds(), statusLabel(run.StatusSucceeded), pop.Len())
	metrics.AddSpanAttributes(ctx, attribute.Int64("heredity.worlds", acc.Worlds()))

	result := &ExecutionResult{
		RunID:      runID,
		Status:     sm.Status(),
		Order:      pop.IDs(),
		Posteriors: acc.Results(),
		Worlds:     acc.Worlds(),
		Shards:     len(shards),
		Duration:   duration,
	}
	run.LogPosteriors(ctx, runID, result.Posteriors, result.Worlds)
	e.persistResult(ctx, result, pop.Len())

	log.Printf("[Executor] Run %s succeeded in %s (%d worlds)", runID, duration, result.Worlds)
	return result, nil
}

// enumerate runs every shard on a worker pool and merges the partial
// accumulators in shard order. The run lock is renewed as shards finish.
func (e *Executor) enumerate(ctx context.Context, runID string, pop *heredity.Population, shards []shard, workers int) (*heredity.Accumulator, error) {
	pool := concurrency.NewWorkerPool(ctx, workers)
	if err := pool.Start(); err != nil {
		return nil, err
	}

	partials := make([]*heredity.Accumulator, len(shards))

	// Submission runs beside the result drain below so a full result
	// queue cannot stall it.
	submitErr := make(chan error, 1)
	go func() {
		defer pool.Shutdown()
		for i, s := range shards {
			if err := ctx.Err(); err != nil {
				submitErr <- err
				return
			}
			if err := pool.Submit(shardTask(e.engine, pop, partials, i, s)); err != nil {
				submitErr <- err
				return
			}
		}
		submitErr <- nil
	}()

	var firstErr error
	completed := 0
	for res := range pool.Results() {
		metrics.RecordShard(res.Error == nil)
		if res.Error != nil {
			if firstErr == nil {
				firstErr = res.Error
			}
			continue
		}
		completed++
		if err := e.locks.Renew(runID, e.config.LockTimeout); err != nil {
			log.Printf("[Executor] Warning: failed to renew lock for run %s: %v", runID, err)
		}
		metrics.AddSpanEvent(ctx, "shard_done", attribute.String("shard", res.TaskID))
	}

	if err := <-submitErr; err != nil && firstErr == nil {
		firstErr = err
	}
	if firstErr == nil && completed < len(shards) {
		firstErr = ctx.Err()
		if firstErr == nil {
			firstErr = fmt.Errorf("only %d of %d shards completed", completed, len(shards))
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	acc := partials[0]
	for _, p := range partials[1:] {
		if err := acc.Merge(p); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func shardTask(engine *heredity.Engine, pop *heredity.Population, partials []*heredity.Accumulator, i int, s shard) concurrency.Task {
	return concurrency.Task{
		ID: fmt.Sprintf("shard-%d", i),
		Execute: func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			acc, err := engine.InferRange(pop, s.lo, s.hi)
			if err != nil {
				return fmt.Errorf("shard [%d, %d): %w", s.lo, s.hi, err)
			}
			partials[i] = acc
			return nil
		},
	}
}

func statusLabel(s run.Status) string {
	switch s {
	case run.StatusSucceeded:
		return "success"
	case run.StatusCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, heredity.ErrDivisionUndefined):
		return "division_undefined"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "internal"
	}
}
