package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
)

func rankedList(scale domain.ScoreScale, indices ...int) domain.RankedList {
	out := domain.RankedList{Scale: scale}
	for i, idx := range indices {
		out.Candidates = append(out.Candidates, domain.ScoredCandidate{Index: idx, Score: float64(len(indices) - i)})
	}
	return out
}

func TestFuseRankingsSumsReciprocalRanks(t *testing.T) {
	lexical := rankedList(domain.ScaleLexical, 3, 1, 7)
	semantic := rankedList(domain.ScaleSimilarity, 1, 4, 3)

	fused := FuseRankings([]domain.RankedList{lexical, semantic}, 60)
	if fused.Len() != 4 {
		t.Fatalf("expected 4 fused entries, got %d", fused.Len())
	}

	want := map[int]float64{
		3: 1.0/60 + 1.0/62,
		1: 1.0/61 + 1.0/60,
		7: 1.0 / 62,
		4: 1.0 / 61,
	}
	for idx, expected := range want {
		got, ok := fused.Score(idx)
		if !ok {
			t.Fatalf("index %d missing from fused ranking", idx)
		}
		if math.Abs(got-expected) > 1e-12 {
			t.Fatalf("index %d: expected fused score %.12f, got %.12f", idx, expected, got)
		}
	}
	if fused.Entries[0].Index != 1 {
		t.Fatalf("expected index 1 first (two high ranks), got %d", fused.Entries[0].Index)
	}
}

func TestFuseRankingsSortedNonIncreasing(t *testing.T) {
	lists := []domain.RankedList{
		rankedList(domain.ScaleLexical, 5, 2, 9, 0, 8),
		rankedList(domain.ScaleSimilarity, 9, 8, 7, 6, 5),
		rankedList(domain.ScaleSimilarity, 0),
	}
	fused := FuseRankings(lists, 60)
	for i := 1; i < fused.Len(); i++ {
		if fused.Entries[i-1].Score < fused.Entries[i].Score {
			t.Fatalf("fused ranking not sorted at %d: %f < %f", i, fused.Entries[i-1].Score, fused.Entries[i].Score)
		}
	}
}

func TestFuseRankingsTieBreakFirstSeen(t *testing.T) {
	lexical := rankedList(domain.ScaleLexical, 8)
	semantic := rankedList(domain.ScaleSimilarity, 2)

	fused := FuseRankings([]domain.RankedList{lexical, semantic}, 60)
	if got := fused.Indices(); len(got) != 2 || got[0] != 8 || got[1] != 2 {
		t.Fatalf("expected first-seen order [8 2], got %v", got)
	}
}

func TestFuseRankingsDefaultsK(t *testing.T) {
	fused := FuseRankings([]domain.RankedList{rankedList(domain.ScaleLexical, 0)}, 0)
	if got, _ := fused.Score(0); math.Abs(got-1.0/60) > 1e-12 {
		t.Fatalf("expected default k=60, got score %f", got)
	}
}

func TestFuseRankingsEmptyInput(t *testing.T) {
	fused := FuseRankings(nil, 60)
	if fused.Len() != 0 {
		t.Fatalf("expected empty ranking, got %d entries", fused.Len())
	}
}

func TestTopKLexicalStableOnTies(t *testing.T) {
	list := TopKLexical([]float64{1, 3, 3, 0.5}, 3)
	got := list.Indices()
	if len(got) != 3 || got[0] != 1 || got[1] != 2 || got[2] != 0 {
		t.Fatalf("expected [1 2 0], got %v", got)
	}
	if list.Scale != domain.ScaleLexical {
		t.Fatalf("expected lexical scale, got %s", list.Scale)
	}
}

func TestArgmaxFirstMaximum(t *testing.T) {
	idx, score := argmax([]float64{0.2, 4, 4, 1})
	if idx != 1 || score != 4 {
		t.Fatalf("expected (1, 4), got (%d, %f)", idx, score)
	}
	if idx, _ := argmax(nil); idx != -1 {
		t.Fatalf("expected -1 for empty scores, got %d", idx)
	}
}

func TestDedupeIndicesPreservesFirstSeen(t *testing.T) {
	got := dedupeIndices([]int{4, 1, 4, 2, 1, 9})
	want := []int{4, 1, 2, 9}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
