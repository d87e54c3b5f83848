package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/observability/metrics"
)

type processorFake struct {
	queries []string
	trace   domain.QueryTrace
}

func (f *processorFake) ProcessQueryDetailed(_ context.Context, query string) domain.QueryTrace {
	f.queries = append(f.queries, query)
	trace := f.trace
	trace.Query = query
	return trace
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestHandler(cfg RouterConfig, processor *processorFake) http.Handler {
	registry := prometheus.NewRegistry()
	return NewRouter(cfg, processor, metrics.NewHTTPServerMetrics(registry, "api"), metrics.Handler(registry), discardLogger()).Handler()
}

func postQuery(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/faq/query", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryReturnsTrace(t *testing.T) {
	processor := &processorFake{trace: domain.QueryTrace{
		ConversationID: "conv-1",
		Intent:         domain.IntentPolicyInquiry,
		Path:           domain.PathGoldenTicket,
		Decision:       domain.Decision{Strategy: domain.StrategyDirect, TopScore: 1},
		Results: []domain.RankedDocument{{
			Index:    4,
			Document: domain.Document{Content: "退貨流程", Metadata: map[string]any{"title": "退貨流程", "url": "https://example.com/r"}},
			Score:    1,
		}},
		Answer: "請於七日內申請。",
	}}
	handler := newTestHandler(RouterConfig{}, processor)

	res := postQuery(t, handler, `{"query":"  退貨流程？ "}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
	if len(processor.queries) != 1 || processor.queries[0] != "退貨流程？" {
		t.Fatalf("expected trimmed query, got %v", processor.queries)
	}

	var resp queryResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ConversationID != "conv-1" || resp.Strategy != "direct" || resp.Path != "golden_ticket" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].URL != "https://example.com/r" || resp.Sources[0].Index != 4 {
		t.Fatalf("unexpected sources %+v", resp.Sources)
	}
}

func TestQueryHandoffOmitsStrategy(t *testing.T) {
	processor := &processorFake{trace: domain.QueryTrace{
		ConversationID: "conv-2",
		Intent:         domain.IntentHandoff,
		Path:           domain.PathHandoff,
		Answer:         domain.HandoffMessage,
	}}
	res := postQuery(t, newTestHandler(RouterConfig{}, processor), `{"query":"我要找真人"}`)

	var resp map[string]any
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if _, ok := resp["strategy"]; ok {
		t.Fatalf("expected no strategy for handoff, got %v", resp)
	}
	if resp["answer"] != domain.HandoffMessage {
		t.Fatalf("unexpected answer %v", resp["answer"])
	}
}

func TestQueryValidatesRequest(t *testing.T) {
	handler := newTestHandler(RouterConfig{}, &processorFake{})

	cases := map[string]string{
		"empty body":   "",
		"invalid json": "{",
		"blank query":  `{"query":"   "}`,
		"long query":   `{"query":"` + strings.Repeat("問", maxQueryRunes+1) + `"}`,
	}
	for name, body := range cases {
		res := postQuery(t, handler, body)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/faq/query", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}

func TestQueryRejectsOversizedBody(t *testing.T) {
	handler := newTestHandler(RouterConfig{}, &processorFake{})
	body := `{"query":"` + strings.Repeat("a", maxBodyBytes) + `"}`

	res := postQuery(t, handler, body)
	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	handler := newTestHandler(RouterConfig{}, &processorFake{})

	for _, path := range []string{"/healthz", "/metrics"} {
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, res.Code)
		}
	}
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	handler := newTestHandler(RouterConfig{RateLimitRPS: 1, RateLimitBurst: 1}, &processorFake{})

	res1 := postQuery(t, handler, `{"query":"保固多久"}`)
	if res1.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", res1.Code)
	}

	res2 := postQuery(t, handler, `{"query":"保固多久"}`)
	if res2.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", res2.Code)
	}
	if res2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header for 429 response")
	}

	health := httptest.NewRecorder()
	handler.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if health.Code != http.StatusOK {
		t.Fatalf("health checks should bypass the limiter, got %d", health.Code)
	}
}

func TestBackpressureMiddlewareReturns503WhenSaturated(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan int, 1)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}
		<-release
		w.WriteHeader(http.StatusNoContent)
	})
	handler := backpressureMiddleware(base, 1, 20*time.Millisecond)

	go func() {
		req := httptest.NewRequest(http.MethodPost, "/v1/faq/query", nil)
		res := httptest.NewRecorder()
		handler.ServeHTTP(res, req)
		done <- res.Code
	}()

	<-started

	req2 := httptest.NewRequest(http.MethodPost, "/v1/faq/query", nil)
	res2 := httptest.NewRecorder()
	handler.ServeHTTP(res2, req2)
	if res2.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 for saturated backpressure gate, got %d", res2.Code)
	}

	var resp map[string]any
	if err := json.NewDecoder(bytes.NewReader(res2.Body.Bytes())).Decode(&resp); err != nil {
		t.Fatalf("decode overload response: %v", err)
	}
	if resp["error"] == "" {
		t.Fatalf("expected overload error message in response")
	}

	close(release)

	select {
	case code := <-done:
		if code != http.StatusNoContent {
			t.Fatalf("first request expected 204, got %d", code)
		}
	case <-time.After(1 * time.Second):
		t.Fatalf("timed out waiting for first request completion")
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	handler := newTestHandler(RouterConfig{}, &processorFake{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-123")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if got := res.Header().Get(requestIDHeader); got != "req-123" {
		t.Fatalf("expected propagated request id, got %q", got)
	}
}
