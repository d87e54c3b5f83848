package usecase

import (
	"sort"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

const defaultRRFK = 60

// FuseRankings merges ranked lists with reciprocal rank fusion. Each candidate contributes
// 1/(rank+k) per list, rank being its 0-based position in that list. Ties keep the order in
// which an index was first seen across the lists.
func FuseRankings(lists []domain.RankedList, k int) domain.FusedRanking {
	if k <= 0 {
		k = defaultRRFK
	}

	scores := make(map[int]float64)
	order := make([]int, 0)
	for _, list := range lists {
		for rank, candidate := range list.Candidates {
			if _, seen := scores[candidate.Index]; !seen {
				order = append(order, candidate.Index)
			}
			scores[candidate.Index] += 1.0 / float64(rank+k)
		}
	}

	entries := make([]domain.ScoredCandidate, 0, len(order))
	for _, idx := range order {
		entries = append(entries, domain.ScoredCandidate{Index: idx, Score: scores[idx]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	return domain.FusedRanking{Entries: entries}
}

// TopKLexical orders lexical scores descending and keeps the first k. Equal scores keep
// corpus order.
func TopKLexical(scores []float64, k int) domain.RankedList {
	candidates := make([]domain.ScoredCandidate, len(scores))
	for i, s := range scores {
		candidates[i] = domain.ScoredCandidate{Index: i, Score: s}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	return domain.RankedList{
		Scale:      domain.ScaleLexical,
		Candidates: trimCandidates(candidates, k),
	}
}

// argmax returns the first index holding the maximum score, or -1 for an empty slice.
func argmax(scores []float64) (int, float64) {
	best := -1
	bestScore := 0.0
	for i, s := range scores {
		if best < 0 || s > bestScore {
			best = i
			bestScore = s
		}
	}
	return best, bestScore
}

// dedupeIndices keeps the first occurrence of every index.
func dedupeIndices(indices []int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		if _, ok := seen[idx]; ok {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	return out
}

func trimCandidates(candidates []domain.ScoredCandidate, limit int) []domain.ScoredCandidate {
	if limit <= 0 || len(candidates) <= limit {
		return candidates
	}
	return candidates[:limit]
}
