package api

import (
	"github.com/gin-gonic/gin"

	"heredity/internal/concurrency"
	"heredity/internal/executor"
	"heredity/internal/metrics"
	"heredity/internal/storage"
)

// SetupRoutes registers every endpoint. store may be nil when persistence
// is disabled.
func SetupRoutes(router *gin.Engine, exec *executor.Executor, store storage.Storage, limiter *concurrency.RateLimiter) {
	router.GET("/health", HealthCheck(limiter))
	router.GET("/metrics", gin.WrapH(metrics.GetMetricsHandler()))

	v1 := router.Group("/v1")
	{
		v1.POST("/infer", HandleInfer(exec, limiter))

		runs := v1.Group("/runs")
		if store == nil {
			runs.GET("", storageDisabled)
			runs.GET("/:runId", storageDisabled)
			runs.DELETE("/:runId", storageDisabled)
		} else {
			runs.GET("", ListRuns(store))
			runs.GET("/:runId", GetRun(store))
			runs.DELETE("/:runId", DeleteRun(exec, store))
		}
	}
}
