// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	AgentCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_agent_calls_total",
			Help: "Agent invocations by agent and outcome",
		},
		[]string{"agent", "outcome"},
	)

	AgentDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "intel_agent_duration_seconds",
			Help:    "Agent latency, dominated by the LLM round trip",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		},
		[]string{"agent"},
	)

	CollectorCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_collector_cache_lookups_total",
			Help: "Collected-data cache lookups by result (hit, miss, error)",
		},
		[]string{"result"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_pipeline_runs_total",
			Help: "Orchestrator runs by final report status",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "intel_pipeline_duration_seconds",
			Help:    "End to end orchestrator run time",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		},
	)

	SinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "intel_report_sink_errors_total",
			Help: "Report sink failures by sink",
		},
		[]string{"sink"},
	)
)
