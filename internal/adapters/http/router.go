package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
	"github.com/kirillkom/faq-assistant/internal/observability/metrics"
)

const (
	maxBodyBytes   = 64 << 10
	maxQueryRunes  = 2000
	defaultService = "api"
)

type RouterConfig struct {
	ServiceName    string
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
	QueueTimeout   time.Duration
}

type Router struct {
	cfg            RouterConfig
	processor      ports.QueryTracer
	httpMetrics    *metrics.HTTPServerMetrics
	metricsHandler http.Handler
	logger         *slog.Logger
}

func NewRouter(
	cfg RouterConfig,
	processor ports.QueryTracer,
	httpMetrics *metrics.HTTPServerMetrics,
	metricsHandler http.Handler,
	logger *slog.Logger,
) *Router {
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultService
	}
	if cfg.QueueTimeout <= 0 {
		cfg.QueueTimeout = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:            cfg,
		processor:      processor,
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		logger:         logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/faq/query", rt.query)
	if rt.metricsHandler != nil {
		mux.Handle("/metrics", rt.metricsHandler)
	}

	var onLimited func(string)
	if rt.httpMetrics != nil {
		onLimited = func(path string) { rt.httpMetrics.RecordRateLimited(rt.cfg.ServiceName, path) }
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, rt.cfg.QueueTimeout)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst, onLimited)
	if rt.httpMetrics != nil {
		handler = rt.httpMetrics.Middleware(rt.cfg.ServiceName, handler)
	}
	handler = accessLogMiddleware(rt.logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type queryRequest struct {
	Query string `json:"query"`
}

type sourceResponse struct {
	Index int     `json:"index"`
	Title string  `json:"title,omitempty"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

type queryResponse struct {
	ConversationID string           `json:"conversation_id"`
	Answer         string           `json:"answer"`
	Intent         string           `json:"intent"`
	Path           string           `json:"path"`
	Strategy       string           `json:"strategy,omitempty"`
	TopScore       float64          `json:"top_score"`
	Sources        []sourceResponse `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req queryRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return
		}
		if errors.Is(err, io.EOF) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request body is required"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	if utf8.RuneCountInString(query) > maxQueryRunes {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "query is too long"})
		return
	}

	trace := rt.processor.ProcessQueryDetailed(r.Context(), query)
	writeJSON(w, http.StatusOK, newQueryResponse(trace))
}

func newQueryResponse(trace domain.QueryTrace) queryResponse {
	resp := queryResponse{
		ConversationID: trace.ConversationID,
		Answer:         trace.Answer,
		Intent:         string(trace.Intent),
		Path:           string(trace.Path),
		TopScore:       trace.Decision.TopScore,
		Sources:        make([]sourceResponse, 0, len(trace.Results)),
	}
	if trace.Path != domain.PathHandoff {
		resp.Strategy = trace.Decision.Strategy.String()
	}
	for _, doc := range trace.Results {
		resp.Sources = append(resp.Sources, sourceResponse{
			Index: doc.Index,
			Title: doc.Document.MetadataString("title"),
			URL:   doc.Document.MetadataString("url"),
			Score: doc.Score,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
