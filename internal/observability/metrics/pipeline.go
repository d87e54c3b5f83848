package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

// PipelineMetrics records query pipeline and LLM accounting measurements.
type PipelineMetrics struct {
	service string

	queriesTotal        *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	stageDuration       *prometheus.HistogramVec
	goldenTicketTotal   *prometheus.CounterVec
	rerankedResults     *prometheus.HistogramVec
	llmTokensTotal      *prometheus.CounterVec
	llmCostUSDTotal     *prometheus.CounterVec
	generationFallbacks *prometheus.CounterVec
}

func NewPipelineMetrics(registry *prometheus.Registry, service string) *PipelineMetrics {
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total processed queries by intent, retrieval path and strategy.",
		},
		[]string{"service", "intent", "path", "strategy"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40},
		},
		[]string{"service", "path"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "stage"},
	)
	goldenTicketTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "golden_ticket_total",
			Help:      "Golden ticket verification outcomes.",
		},
		[]string{"service", "outcome"},
	)
	rerankedResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "context_documents",
			Help:      "Distribution of context documents handed to the prompt.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		},
		[]string{"service", "path"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage by direction.",
		},
		[]string{"service", "direction", "model"},
	)
	llmCostUSDTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "cost_usd_total",
			Help:      "Estimated generation cost in USD.",
		},
		[]string{"service", "model"},
	)
	generationFallbacks := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "generation_fallbacks_total",
			Help:      "Generations replaced by an apology, by reason.",
		},
		[]string{"service", "reason"},
	)

	registry.MustRegister(
		queriesTotal,
		queryDuration,
		stageDuration,
		goldenTicketTotal,
		rerankedResults,
		llmTokensTotal,
		llmCostUSDTotal,
		generationFallbacks,
	)

	return &PipelineMetrics{
		service:             service,
		queriesTotal:        queriesTotal,
		queryDuration:       queryDuration,
		stageDuration:       stageDuration,
		goldenTicketTotal:   goldenTicketTotal,
		rerankedResults:     rerankedResults,
		llmTokensTotal:      llmTokensTotal,
		llmCostUSDTotal:     llmCostUSDTotal,
		generationFallbacks: generationFallbacks,
	}
}

func (m *PipelineMetrics) ObserveStage(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveGoldenTicket(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.goldenTicketTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *PipelineMetrics) ObserveQuery(trace domain.QueryTrace, duration time.Duration) {
	strategy := "none"
	if trace.Path != domain.PathHandoff {
		strategy = trace.Decision.Strategy.String()
	}
	path := string(trace.Path)
	if path == "" {
		path = "unknown"
	}
	m.queriesTotal.WithLabelValues(m.service, string(trace.Intent), path, strategy).Inc()
	m.queryDuration.WithLabelValues(m.service, path).Observe(duration.Seconds())
	if trace.Path != domain.PathHandoff {
		m.rerankedResults.WithLabelValues(m.service, path).Observe(float64(len(trace.Results)))
	}
}

func (m *PipelineMetrics) RecordTokenUsage(model string, usage domain.Usage, costUSD float64) {
	if model == "" {
		model = "unknown"
	}
	if usage.PromptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "in", model).Add(float64(usage.PromptTokens))
	}
	if usage.CompletionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "out", model).Add(float64(usage.CompletionTokens))
	}
	if costUSD > 0 {
		m.llmCostUSDTotal.WithLabelValues(m.service, model).Add(costUSD)
	}
}

func (m *PipelineMetrics) RecordGenerationFallback(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.generationFallbacks.WithLabelValues(m.service, reason).Inc()
}
