package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
	"github.com/kirillkom/faq-assistant/internal/infrastructure/lexical/bm25"
)

const probeQuery = "維度檢查"

// DenseBuilder builds a dense index over the FAQ corpus.
type DenseBuilder func(ctx context.Context, faq domain.Corpus) (ports.DenseIndex, error)

// BuildIndices builds the lexical and dense indices over the same FAQ corpus concurrently.
// It is the only phase that mutates index state and must finish before queries are served.
func BuildIndices(
	ctx context.Context,
	faq domain.Corpus,
	tokenizer ports.Tokenizer,
	buildDense DenseBuilder,
	logger *slog.Logger,
) (*bm25.Index, ports.DenseIndex, error) {
	var (
		sparse *bm25.Index
		dense  ports.DenseIndex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		sparse = bm25.Build(tokenizer, faq.Documents, bm25.DefaultParams())
		logger.Info("lexical index built", "documents", sparse.Len(), "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		idx, err := buildDense(gctx, faq)
		if err != nil {
			return fmt.Errorf("build dense index: %w", err)
		}
		dense = idx
		logger.Info("dense index built", "dimension", idx.Dimension(), "duration_ms", time.Since(start).Milliseconds())
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if sparse.Len() != faq.Len() {
		return nil, nil, fmt.Errorf("lexical index holds %d documents, corpus has %d", sparse.Len(), faq.Len())
	}
	return sparse, dense, nil
}

// ProbeDimension embeds a fixed query and checks it against the dense index dimension so a
// changed embedding model fails at startup rather than on the first query.
func ProbeDimension(ctx context.Context, embedder ports.Embedder, dense ports.DenseIndex, corpusSize int) error {
	if corpusSize == 0 {
		return nil
	}
	vec, err := embedder.EmbedQuery(ctx, probeQuery)
	if err != nil {
		return fmt.Errorf("dimension probe: %w", err)
	}
	if len(vec) != dense.Dimension() {
		return domain.WrapError(domain.ErrDimensionMismatch, "dimension probe",
			fmt.Errorf("embedder returns %d, index holds %d", len(vec), dense.Dimension()))
	}
	return nil
}
