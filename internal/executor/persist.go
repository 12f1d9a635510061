package executor

import (
	"context"
	"errors"
	"fmt"
	"log"

	"heredity/internal/heredity"
	"heredity/internal/metrics"
	"heredity/internal/retry"
	"heredity/internal/run"
	"heredity/internal/storage"
)

// Persistence failures are logged and counted but never fail a run; the
// posteriors are still returned to the caller. Writes ignore cancellation of
// the run context so cancelled runs are still recorded.

// checkRunIDFree refuses run ids that are already stored. Lookup failures
// other than a missing run are logged and do not block the run.
func (e *Executor) checkRunIDFree(runID string) error {
	if e.store == nil {
		return nil
	}
	rec, err := e.store.LoadRun(runID)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s (%s)", ErrRunExists, runID, rec.Status)
	case errors.Is(err, storage.ErrRunNotFound):
		return nil
	default:
		log.Printf("[Executor] Warning: could not check run %s: %v", runID, err)
		metrics.RecordError("storage", retry.ClassifyError(err).String())
		return nil
	}
}

func (e *Executor) persistCreated(ctx context.Context, runID string, pop *heredity.Population) {
	if e.store == nil {
		return
	}
	e.persist(ctx, runID, "save_run", func() error {
		tx, err := e.store.BeginTx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := tx.SaveRun(&storage.RunRecord{
			ID:          runID,
			Status:      run.StatusCreated,
			Individuals: pop.Len(),
			CPT:         e.engine.CPT(),
		}); err != nil {
			return err
		}
		if err := tx.SaveIndividuals(runID, pop.Individuals()); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (e *Executor) persistStatus(ctx context.Context, runID string, status run.Status, lastError string) {
	if e.store == nil {
		return
	}
	e.persist(ctx, runID, "update_status", func() error {
		return e.store.UpdateRunStatus(runID, status, lastError)
	})
}

func (e *Executor) persistResult(ctx context.Context, result *ExecutionResult, individuals int) {
	if e.store == nil {
		return
	}
	e.persist(ctx, result.RunID, "save_result", func() error {
		tx, err := e.store.BeginTx()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if err := tx.SavePosteriors(result.RunID, result.Posteriors); err != nil {
			return err
		}
		if err := tx.SaveRun(&storage.RunRecord{
			ID:          result.RunID,
			Status:      result.Status,
			Individuals: individuals,
			Worlds:      result.Worlds,
			CPT:         e.engine.CPT(),
		}); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func (e *Executor) persist(ctx context.Context, runID, op string, fn func() error) {
	ctx = context.WithoutCancel(ctx)
	if err := retry.Do(ctx, e.retryPolicy, fn); err != nil {
		log.Printf("[Executor] Warning: %s failed for run %s: %v", op, runID, err)
		metrics.RecordError("storage", retry.ClassifyError(err).String())
	}
}
