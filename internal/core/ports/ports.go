package ports

import (
	"context"
	"time"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

// Tokenizer segments text for lexical scoring. The same instance must be used at index
// build time and at query time.
type Tokenizer interface {
	Tokenize(text string) []string
}

// KeywordExtractor returns the ordered, lowercase, deduplicated noun-like keywords of a query.
type KeywordExtractor interface {
	Keywords(query string) []string
}

// SparseIndex scores every document of a corpus by lexical overlap with a query.
type SparseIndex interface {
	Scores(query string) []float64
	Len() int
}

// DenseIndex returns the nearest documents to a query by inner product of unit vectors.
type DenseIndex interface {
	Search(ctx context.Context, query string, k int) (domain.RankedList, error)
	Dimension() int
}

// ProductSampler picks illustrative product documents for the guided fallback.
type ProductSampler interface {
	Sample(n int) []domain.Document
}

// QueryObserver receives pipeline measurements. Implementations must be safe for
// concurrent use.
type QueryObserver interface {
	ObserveStage(stage string, duration time.Duration)
	ObserveGoldenTicket(outcome string)
	ObserveQuery(trace domain.QueryTrace, duration time.Duration)
}
