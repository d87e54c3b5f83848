package tei

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/faq-assistant/internal/infrastructure/resilience"
)

// Client scores (query, text) pairs with a cross-encoder served by text-embeddings-inference.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, model string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Model() string {
	return c.model
}

type rerankRequest struct {
	Query     string   `json:"query"`
	Texts     []string `json:"texts"`
	RawScores bool     `json:"raw_scores"`
	Truncate  bool     `json:"truncate"`
}

type rerankHit struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Score returns sigmoid-normalized relevance scores in input order.
func (c *Client) Score(ctx context.Context, query string, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return []float64{}, nil
	}
	payload := rerankRequest{Query: query, Texts: texts, RawScores: false, Truncate: true}

	call := func(ctx context.Context) ([]rerankHit, error) {
		return c.post(ctx, payload)
	}
	var (
		hits []rerankHit
		err  error
	)
	if c.executor != nil {
		hits, err = resilience.Call(ctx, c.executor, "tei.rerank", call, resilience.ClassifyHTTP)
	} else {
		hits, err = call(ctx)
	}
	if err != nil {
		return nil, resilience.WrapTemporary("tei rerank", err, resilience.ClassifyHTTP)
	}

	scores := make([]float64, len(texts))
	seen := make([]bool, len(texts))
	for _, hit := range hits {
		if hit.Index < 0 || hit.Index >= len(texts) {
			return nil, fmt.Errorf("tei rerank returned out of range index %d", hit.Index)
		}
		scores[hit.Index] = hit.Score
		seen[hit.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("tei rerank returned no score for text %d", i)
		}
	}
	return scores, nil
}

func (c *Client) post(ctx context.Context, payload rerankRequest) ([]rerankHit, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal rerank request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rerank", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create rerank request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tei rerank request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &resilience.StatusError{
			Service:    "tei",
			Operation:  "rerank",
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}

	var hits []rerankHit
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("decode rerank response: %w", err)
	}
	return hits, nil
}
