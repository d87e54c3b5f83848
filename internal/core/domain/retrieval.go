package domain

// ScoreScale records which producer assigned a score. Scores from different scales are not
// comparable and only meet through rank fusion or the confidence gate.
type ScoreScale string

const (
	// ScaleLexical is an unbounded BM25-style term overlap score.
	ScaleLexical ScoreScale = "lexical"
	// ScaleSimilarity is the inner product of unit vectors, in [-1, 1].
	ScaleSimilarity ScoreScale = "similarity"
	// ScaleFused is a reciprocal rank fusion score.
	ScaleFused ScoreScale = "fused"
	// ScaleRelevance is a cross-relevance confidence, in [0, 1] by model convention.
	ScaleRelevance ScoreScale = "relevance"
)

type ScoredCandidate struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// RankedList is ordered by descending score.
type RankedList struct {
	Scale      ScoreScale        `json:"scale"`
	Candidates []ScoredCandidate `json:"candidates"`
}

func (l RankedList) Len() int {
	return len(l.Candidates)
}

// Indices returns the candidate indices in rank order.
func (l RankedList) Indices() []int {
	out := make([]int, len(l.Candidates))
	for i, c := range l.Candidates {
		out[i] = c.Index
	}
	return out
}

// FusedRanking maps document index to fused score. Entries are ordered by descending score,
// ties keep the order in which an index first appeared across the fused lists.
type FusedRanking struct {
	Entries []ScoredCandidate `json:"entries"`
}

func (f FusedRanking) Len() int {
	return len(f.Entries)
}

// Score returns the fused score of index, or false when the index was in no input list.
func (f FusedRanking) Score(index int) (float64, bool) {
	for _, e := range f.Entries {
		if e.Index == index {
			return e.Score, true
		}
	}
	return 0, false
}

func (f FusedRanking) Indices() []int {
	out := make([]int, len(f.Entries))
	for i, e := range f.Entries {
		out[i] = e.Index
	}
	return out
}

// Top returns the first n entries as a ranked list in the fused scale.
func (f FusedRanking) Top(n int) RankedList {
	entries := f.Entries
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	out := make([]ScoredCandidate, len(entries))
	copy(out, entries)
	return RankedList{Scale: ScaleFused, Candidates: out}
}

// RankedDocument is a copy of a corpus document with an attached relevance score.
type RankedDocument struct {
	Index    int      `json:"index"`
	Document Document `json:"document"`
	Score    float64  `json:"score"`
}
