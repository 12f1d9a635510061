package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Inference latency histogram; exact enumeration grows as 6^n so buckets
	// span several orders of magnitude
	inferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "heredity_inference_seconds",
			Help:    "Inference run duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 120, 600},
		},
		[]string{"status"}, // success, failed, cancelled
	)

	// Worlds scored by the joint probability evaluator
	worldsEvaluated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heredity_worlds_evaluated_total",
			Help: "Total number of worlds scored during enumeration",
		},
	)

	// Worlds never generated because they contradict the evidence
	worldsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "heredity_worlds_pruned_total",
			Help: "Total number of worlds skipped because they contradict observed traits",
		},
	)

	// Pedigree size per run
	populationSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "heredity_population_size",
			Help:    "Number of individuals per inference run",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		},
	)

	// Shard execution counter
	shardExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heredity_shard_executions_total",
			Help: "Total number of enumeration shards executed by status",
		},
		[]string{"status"},
	)

	// Error rate counter
	errorCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "heredity_errors_total",
			Help: "Total number of errors by component and type",
		},
		[]string{"component", "error_type"},
	)

	// Current active inference runs gauge
	activeInferences = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "heredity_active_inferences",
			Help: "Current number of inference runs in progress",
		},
	)
)

// RecordInference records run-level metrics
func RecordInference(durationSeconds float64, status string, individuals int) {
	inferenceDuration.WithLabelValues(status).Observe(durationSeconds)
	populationSize.Observe(float64(individuals))
}

// RecordWorlds adds scored and pruned world counts
func RecordWorlds(evaluated, pruned int64) {
	worldsEvaluated.Add(float64(evaluated))
	worldsPruned.Add(float64(pruned))
}

// RecordShard increments the shard execution counter
func RecordShard(success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	shardExecutions.WithLabelValues(status).Inc()
}

// RecordError increments the error counter
func RecordError(component, errorType string) {
	errorCount.WithLabelValues(component, errorType).Inc()
}

// IncrementActiveInferences increments the active runs gauge
func IncrementActiveInferences() {
	activeInferences.Inc()
}

// DecrementActiveInferences decrements the active runs gauge
func DecrementActiveInferences() {
	activeInferences.Dec()
}

// GetMetricsHandler returns the HTTP handler for the /metrics endpoint
func GetMetricsHandler() http.Handler {
	return promhttp.Handler()
}
