package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline Prometheus metrics.
var (
	PipelineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "med_agent",
			Name:      "pipeline_requests_total",
			Help:      "Total number of query resolutions",
		},
		[]string{"strategy", "outcome"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "med_agent",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	SynthesisAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "med_agent",
			Name:      "synthesis_attempts_total",
			Help:      "Structured synthesis attempts by outcome",
		},
		[]string{"outcome"}, // "valid" / "invalid" / "error"
	)

	ModelInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "med_agent",
			Name:      "model_invocations_total",
			Help:      "Bedrock and OpenAI model invocations",
		},
		[]string{"model", "status"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "med_agent",
			Name:      "embedding_cache_total",
			Help:      "Query embedding cache hits and misses",
		},
		[]string{"result"},
	)
)

var registerOnce sync.Once

// Register registers the pipeline metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PipelineRequestsTotal)
		prometheus.MustRegister(StageDuration)
		prometheus.MustRegister(SynthesisAttemptsTotal)
		prometheus.MustRegister(ModelInvocationsTotal)
		prometheus.MustRegister(EmbeddingCacheTotal)
	})
}
