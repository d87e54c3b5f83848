package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/vector/memory"
)

const upsertBatchSize = 256

// pointNamespace derives stable point ids from corpus kind and document index.
var pointNamespace = uuid.MustParse("8f14e45f-ea3e-4b5c-9a4d-2c1f0f6f1d3a")

// Client is a dense index backed by a Qdrant collection. The collection is rebuilt from
// the corpus on every Build; searches map points back to corpus indices by payload.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	embedder   ports.Embedder
	executor   *resilience.Executor

	dimension int
	size      int
}

func New(baseURL, collection string, embedder ports.Embedder, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		embedder:   embedder,
		executor:   executor,
	}
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) Len() int {
	return c.size
}

type point struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// Build embeds every document, recreates the collection and upserts one unit vector per
// document. It must complete before Search is called.
func (c *Client) Build(ctx context.Context, corpus domain.Corpus) error {
	if corpus.Len() == 0 {
		return nil
	}

	vectors, err := c.embedder.Embed(ctx, corpus.Contents())
	if err != nil {
		return fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != corpus.Len() {
		return domain.WrapError(domain.ErrDimensionMismatch, "build qdrant index",
			fmt.Errorf("got %d vectors for %d documents", len(vectors), corpus.Len()))
	}
	dimension := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dimension || dimension == 0 {
			return domain.WrapError(domain.ErrDimensionMismatch, "build qdrant index",
				fmt.Errorf("document %d has dimension %d, expected %d", i, len(v), dimension))
		}
	}

	if err := c.recreateCollection(ctx, dimension); err != nil {
		return err
	}

	points := make([]point, 0, len(vectors))
	for i, v := range vectors {
		doc := corpus.Documents[i]
		points = append(points, point{
			ID:     pointID(corpus.Kind, i),
			Vector: memory.Normalize(v),
			Payload: map[string]any{
				"doc_index": i,
				"corpus":    string(corpus.Kind),
				"title":     doc.MetadataString("title"),
				"url":       doc.MetadataString("url"),
			},
		})
	}
	for start := 0; start < len(points); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(points))
		if err := c.upsert(ctx, points[start:end]); err != nil {
			return err
		}
	}

	c.dimension = dimension
	c.size = len(points)
	return nil
}

func (c *Client) Search(ctx context.Context, query string, k int) (domain.RankedList, error) {
	list := domain.RankedList{Scale: domain.ScaleSimilarity, Candidates: []domain.ScoredCandidate{}}
	if c.size == 0 || k <= 0 {
		return list, nil
	}

	vec, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return list, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != c.dimension {
		return list, domain.WrapError(domain.ErrDimensionMismatch, "qdrant search",
			fmt.Errorf("query dimension %d, index dimension %d", len(vec), c.dimension))
	}

	reqBody := map[string]any{
		"vector":       memory.Normalize(vec),
		"limit":        k,
		"with_payload": []string{"doc_index"},
	}
	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	if err := c.call(ctx, "search", http.MethodPost, url, reqBody, &searchResp); err != nil {
		return list, err
	}

	for _, r := range searchResp.Result {
		idx, ok := payloadIndex(r.Payload)
		if !ok {
			return list, fmt.Errorf("qdrant search: point without doc_index payload")
		}
		list.Candidates = append(list.Candidates, domain.ScoredCandidate{Index: idx, Score: r.Score})
	}
	return list, nil
}

func (c *Client) recreateCollection(ctx context.Context, vectorSize int) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	if err := c.call(ctx, "delete collection", http.MethodDelete, url, nil, nil); err != nil {
		return err
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Dot",
		},
	}
	return c.call(ctx, "create collection", http.MethodPut, url, reqBody, nil)
}

func (c *Client) upsert(ctx context.Context, points []point) error {
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	return c.call(ctx, "upsert", http.MethodPut, url, map[string]any{"points": points}, nil)
}

func (c *Client) call(ctx context.Context, operation, method, url string, payload any, out any) error {
	do := func(ctx context.Context) error {
		return c.do(ctx, operation, method, url, payload, out)
	}
	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant."+strings.ReplaceAll(operation, " ", "_"), do, resilience.ClassifyHTTP)
	} else {
		err = do(ctx)
	}
	return resilience.WrapTemporary("qdrant "+operation, err, resilience.ClassifyHTTP)
}

func (c *Client) do(ctx context.Context, operation, method, url string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	// Deleting a collection that does not exist is not an error for a rebuild.
	if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &resilience.StatusError{
			Service:    "qdrant",
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func pointID(kind domain.CorpusKind, index int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s/%d", kind, index))).String()
}

func payloadIndex(payload map[string]any) (int, bool) {
	switch v := payload["doc_index"].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	default:
		return 0, false
	}
}
