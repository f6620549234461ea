// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Job worker metrics.
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	// Pipeline metrics.
	PipelineRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apisense_pipeline_requests_total",
			Help: "Recommendation pipeline runs by entry point and outcome",
		},
		[]string{"path", "status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apisense_stage_duration_seconds",
			Help:    "Duration of a single pipeline stage",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	LLMCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apisense_llm_calls_total",
			Help: "LLM generate calls by operation and finish reason",
		},
		[]string{"operation", "finish_reason"},
	)

	FallbackActivations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apisense_fallback_recommendations_total",
			Help: "Times ranking degraded to fallback recommendations",
		},
		[]string{"reason"},
	)

	SearchHits = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apisense_search_hits",
			Help:    "Number of hits returned by catalog searches",
			Buckets: []float64{0, 1, 5, 10, 15, 20, 50},
		},
		[]string{"filtered"},
	)
)
