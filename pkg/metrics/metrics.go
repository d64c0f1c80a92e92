// Package metrics declares the Prometheus collectors named throughout the
// spec's components, grounded on the teacher/pack's shared dependency on
// prometheus/client_golang and on the original implementation's metric
// names (crosscutting/metrics.py).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RetrievalFallback = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retrieval_fallback_total",
		Help: "Count of retrieval stage fallbacks by kind (sparse, rerank).",
	}, []string{"kind"})

	PolicyRefusal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policy_refusal_total",
		Help: "Count of ask refusals by reason.",
	}, []string{"reason"})

	AnswerWithoutSources = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "answer_without_sources_total",
		Help: "Count of answers with chunks_used > 0 that cite no source marker.",
	})

	PromptInjectionDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "prompt_injection_detected_total",
		Help: "Count of prompt-injection pattern hits by pattern slug.",
	}, []string{"pattern"})

	SyncLocked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sync_locked_total",
		Help: "Count of sync attempts that found another sync already in progress.",
	})

	StageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ask_stage_duration_seconds",
		Help:    "Per-stage latency of the ask pipeline.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	RateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Count of requests rejected by the token bucket.",
	})

	RetryAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Count of retry attempts by outbound call name.",
	}, []string{"call"})
)

func init() {
	prometheus.MustRegister(
		RetrievalFallback,
		PolicyRefusal,
		AnswerWithoutSources,
		PromptInjectionDetected,
		SyncLocked,
		StageLatency,
		RateLimitRejections,
		RetryAttempts,
	)
}
