package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const defaultRerankTopN = 3

// RelevanceReranker scores a short candidate list against the query with a pairwise
// relevance model.
type RelevanceReranker struct {
	model ports.RelevanceModel
	topN  int
}

func NewRelevanceReranker(model ports.RelevanceModel, topN int) *RelevanceReranker {
	if topN <= 0 {
		topN = defaultRerankTopN
	}
	return &RelevanceReranker{model: model, topN: topN}
}

// Rerank returns copies of the candidate documents carrying their relevance score, best
// first, truncated to topN. An empty candidate list never reaches the model.
func (r *RelevanceReranker) Rerank(
	ctx context.Context,
	query string,
	corpus domain.Corpus,
	indices []int,
) ([]domain.RankedDocument, error) {
	candidates := make([]domain.RankedDocument, 0, len(indices))
	for _, idx := range indices {
		doc, ok := corpus.At(idx)
		if !ok {
			continue
		}
		candidates = append(candidates, domain.RankedDocument{Index: idx, Document: doc})
	}
	if len(candidates) == 0 {
		return []domain.RankedDocument{}, nil
	}

	texts := make([]string, len(candidates))
	for i, c := range candidates {
		texts[i] = c.Document.Content
	}
	scores, err := r.model.Score(ctx, query, texts)
	if err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"score candidates",
			fmt.Errorf("scores/candidates mismatch: %d/%d", len(scores), len(candidates)),
		)
	}

	for i := range candidates {
		candidates[i].Score = scores[i]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > r.topN {
		candidates = candidates[:r.topN]
	}
	return candidates, nil
}
