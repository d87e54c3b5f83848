package memory

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

// Index is a brute-force inner-product index over unit vectors. It is immutable after
// Build and safe for concurrent searches.
type Index struct {
	embedder  ports.Embedder
	vectors   [][]float32
	dimension int
}

// Build embeds every document and normalizes the vectors. All vectors must share one
// dimension and there must be exactly one per document.
func Build(ctx context.Context, embedder ports.Embedder, docs []domain.Document) (*Index, error) {
	idx := &Index{embedder: embedder}
	if len(docs) == 0 {
		return idx, nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed corpus: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, domain.WrapError(
			domain.ErrDimensionMismatch,
			"build dense index",
			fmt.Errorf("got %d vectors for %d documents", len(vectors), len(docs)),
		)
	}

	idx.dimension = len(vectors[0])
	if idx.dimension == 0 {
		return nil, domain.WrapError(domain.ErrDimensionMismatch, "build dense index", fmt.Errorf("empty vector"))
	}
	idx.vectors = make([][]float32, len(vectors))
	for i, v := range vectors {
		if len(v) != idx.dimension {
			return nil, domain.WrapError(
				domain.ErrDimensionMismatch,
				"build dense index",
				fmt.Errorf("document %d has dimension %d, expected %d", i, len(v), idx.dimension),
			)
		}
		idx.vectors[i] = Normalize(v)
	}
	return idx, nil
}

func (idx *Index) Dimension() int {
	return idx.dimension
}

func (idx *Index) Len() int {
	return len(idx.vectors)
}

// Search embeds query and returns the k nearest documents by inner product.
func (idx *Index) Search(ctx context.Context, query string, k int) (domain.RankedList, error) {
	list := domain.RankedList{Scale: domain.ScaleSimilarity, Candidates: []domain.ScoredCandidate{}}
	if len(idx.vectors) == 0 || k <= 0 {
		return list, nil
	}

	vec, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return list, fmt.Errorf("embed query: %w", err)
	}
	if len(vec) != idx.dimension {
		return list, domain.WrapError(
			domain.ErrDimensionMismatch,
			"dense search",
			fmt.Errorf("query dimension %d, index dimension %d", len(vec), idx.dimension),
		)
	}
	q := Normalize(vec)

	candidates := make([]domain.ScoredCandidate, len(idx.vectors))
	for i, v := range idx.vectors {
		candidates[i] = domain.ScoredCandidate{Index: i, Score: dot(q, v)}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	list.Candidates = candidates
	return list, nil
}

// Normalize returns a unit-length copy of v. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
