package cache

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const defaultSize = 1024

// Embedder memoizes query embeddings in a bounded LRU. Corpus embedding bypasses the cache.
type Embedder struct {
	next  ports.Embedder
	cache *lru.Cache[string, []float32]
}

func NewEmbedder(next ports.Embedder, size int) (*Embedder, error) {
	if size <= 0 {
		size = defaultSize
	}
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &Embedder{next: next, cache: c}, nil
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return e.next.Embed(ctx, texts)
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if v, ok := e.cache.Get(text); ok {
		return cloneVector(v), nil
	}
	v, err := e.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(text, cloneVector(v))
	return v, nil
}

func (e *Embedder) Len() int {
	return e.cache.Len()
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
