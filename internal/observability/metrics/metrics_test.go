package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

func TestPipelineMetricsRecordsQueries(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPipelineMetrics(registry, "api")

	m.ObserveQuery(domain.QueryTrace{
		Intent:   domain.IntentPolicyInquiry,
		Path:     domain.PathGoldenTicket,
		Decision: domain.Decision{Strategy: domain.StrategyDirect, TopScore: 1},
		Results:  []domain.RankedDocument{{Index: 0, Score: 1}},
	}, 20*time.Millisecond)
	m.ObserveQuery(domain.QueryTrace{Intent: domain.IntentHandoff, Path: domain.PathHandoff}, time.Millisecond)
	m.ObserveGoldenTicket("matched")
	m.ObserveStage("rerank", 5*time.Millisecond)

	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("api", "policy_inquiry", "golden_ticket", "direct")); got != 1 {
		t.Fatalf("expected 1 golden ticket query, got %v", got)
	}
	if got := testutil.ToFloat64(m.queriesTotal.WithLabelValues("api", "handoff", "handoff", "none")); got != 1 {
		t.Fatalf("expected 1 handoff query, got %v", got)
	}
	if got := testutil.ToFloat64(m.goldenTicketTotal.WithLabelValues("api", "matched")); got != 1 {
		t.Fatalf("expected golden ticket counter 1, got %v", got)
	}
}

func TestPipelineMetricsRecordsUsage(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewPipelineMetrics(registry, "api")

	m.RecordTokenUsage("gpt-4.1", domain.Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500}, 0.06)
	m.RecordGenerationFallback("retries_exhausted")

	if got := testutil.ToFloat64(m.llmTokensTotal.WithLabelValues("api", "in", "gpt-4.1")); got != 1000 {
		t.Fatalf("expected 1000 prompt tokens, got %v", got)
	}
	if got := testutil.ToFloat64(m.llmTokensTotal.WithLabelValues("api", "out", "gpt-4.1")); got != 500 {
		t.Fatalf("expected 500 completion tokens, got %v", got)
	}
	if got := testutil.ToFloat64(m.llmCostUSDTotal.WithLabelValues("api", "gpt-4.1")); got != 0.06 {
		t.Fatalf("expected cost 0.06, got %v", got)
	}
	if got := testutil.ToFloat64(m.generationFallbacks.WithLabelValues("api", "retries_exhausted")); got != 1 {
		t.Fatalf("expected one fallback, got %v", got)
	}
}

func TestHTTPMiddlewareCountsStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewHTTPServerMetrics(registry, "api")

	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/faq/query", nil))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/path", nil))

	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodPost, "/v1/faq/query", "418")); got != 1 {
		t.Fatalf("expected 1 query request, got %v", got)
	}
	if got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "other", "418")); got != 1 {
		t.Fatalf("expected unknown path to collapse, got %v", got)
	}
}

func TestHandlerServesRegistry(t *testing.T) {
	registry := NewRegistry()
	NewPipelineMetrics(registry, "api").ObserveGoldenTicket("below_threshold")

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
