package api

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"heredity/internal/concurrency"
	"heredity/internal/executor"
	"heredity/internal/metrics"
	"heredity/internal/pedigree"
	"heredity/internal/report"
	"heredity/internal/storage"
)

type inferQuery struct {
	RunID  string `form:"run_id" binding:"omitempty,max=64"`
	Format string `form:"format" binding:"omitempty,oneof=json text"`
}

type listRunsQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// RunResponse is the JSON view of a stored run.
type RunResponse struct {
	ID          string    `json:"id"`
	Status      string    `json:"status"`
	Individuals int       `json:"individuals"`
	Worlds      int64     `json:"worlds"`
	LastError   string    `json:"last_error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newRunResponse(r *storage.RunRecord) RunResponse {
	return RunResponse{
		ID:          r.ID,
		Status:      string(r.Status),
		Individuals: r.Individuals,
		Worlds:      r.Worlds,
		LastError:   r.LastError,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// HealthCheck reports liveness and the free inference slots.
func HealthCheck(limiter *concurrency.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "ok",
			"inference_slots": limiter.Available(),
		})
	}
}

// HandleInfer decodes a JSON pedigree from the body and returns its posteriors.
func HandleInfer(exec *executor.Executor, limiter *concurrency.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q inferQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if !limiter.TryAcquire() {
			metrics.RecordError("api", "rate_limited")
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": fmt.Sprintf("too many inferences in flight (limit %d)", limiter.Capacity()),
			})
			return
		}
		defer limiter.Release()

		pop, err := pedigree.LoadJSON(c.Request.Body)
		if err != nil {
			status := statusForError(err)
			if status == http.StatusInternalServerError {
				// Anything the decoder rejects is the client's fault
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		result, err := exec.Execute(c.Request.Context(), pop, q.RunID)
		if err != nil {
			log.Printf("[API] Inference failed: %v", err)
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		if q.Format == "text" {
			var buf bytes.Buffer
			if err := report.WriteText(&buf, result.Order, result.Posteriors); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			c.Data(http.StatusOK, "text/plain; charset=utf-8", buf.Bytes())
			return
		}

		c.JSON(http.StatusOK, report.Summary{
			RunID:      result.RunID,
			Worlds:     result.Worlds,
			Posteriors: result.Posteriors,
		})
	}
}

func ListRuns(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		var q listRunsQuery
		if err := c.ShouldBindQuery(&q); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if q.Limit == 0 {
			q.Limit = 50
		}

		runs, err := store.ListRuns(q.Limit)
		if err != nil {
			log.Printf("[API] Failed to list runs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs"})
			return
		}

		out := make([]RunResponse, 0, len(runs))
		for _, r := range runs {
			out = append(out, newRunResponse(r))
		}
		c.JSON(http.StatusOK, gin.H{"runs": out})
	}
}

func GetRun(store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("runId")

		rec, err := store.LoadRun(runID)
		if err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		individuals, err := store.LoadIndividuals(runID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load individuals"})
			return
		}
		posteriors, err := store.LoadPosteriors(runID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load posteriors"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"run":         newRunResponse(rec),
			"individuals": individuals,
			"posteriors":  posteriors,
		})
	}
}

// DeleteRun removes a stored run. Runs still executing are left alone.
func DeleteRun(exec *executor.Executor, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		runID := c.Param("runId")
		if exec.Running(runID) {
			c.JSON(http.StatusConflict, gin.H{"error": fmt.Sprintf("%v: %s", executor.ErrRunInProgress, runID)})
			return
		}
		if err := store.DeleteRun(runID); err != nil {
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}
		log.Printf("[API] Deleted run %s", runID)
		c.JSON(http.StatusOK, gin.H{"status": "success", "deleted_run_id": runID})
	}
}

// storageDisabled answers run queries when persistence is off.
func storageDisabled(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": "run storage is disabled"})
}
