package overlap

import (
	"context"
	"strings"
	"testing"
)

type fieldsTokenizer struct{}

func (fieldsTokenizer) Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

func TestScoreIsShareOfQueryTokens(t *testing.T) {
	model := New(fieldsTokenizer{})

	scores, err := model.Score(context.Background(), "return policy ?", []string{
		"our return policy is simple",
		"shipping policy",
		"unrelated",
	})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	want := []float64{1, 0.5, 0}
	for i := range want {
		if scores[i] != want[i] {
			t.Fatalf("scores[%d] = %f, want %f", i, scores[i], want[i])
		}
	}
}

func TestScoreFallbackTokenizer(t *testing.T) {
	model := New(nil)

	scores, err := model.Score(context.Background(), "VESA-100", []string{"supports vesa 100x100", ""})
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}
	if scores[0] != 0.5 || scores[1] != 0 {
		t.Fatalf("unexpected scores %v", scores)
	}
}
