package overlap

import (
	"context"
	"strings"
	"unicode"

	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

// Model is an offline relevance model: the share of distinct query tokens that also
// occur in the text, in [0, 1]. It stands in for a cross-encoder when none is deployed.
type Model struct {
	tokenizer ports.Tokenizer
}

// New uses tokenizer for both sides; a nil tokenizer falls back to lowercase
// alphanumeric runs.
func New(tokenizer ports.Tokenizer) *Model {
	return &Model{tokenizer: tokenizer}
}

func (m *Model) Score(_ context.Context, query string, texts []string) ([]float64, error) {
	queryTokens := m.tokenSet(query)
	scores := make([]float64, len(texts))
	for i, text := range texts {
		scores[i] = tokenOverlap(queryTokens, m.tokenSet(text))
	}
	return scores, nil
}

func (m *Model) tokenSet(s string) map[string]struct{} {
	var tokens []string
	if m.tokenizer != nil {
		tokens = m.tokenizer.Tokenize(s)
	} else {
		tokens = splitAlphaNumLower(s)
	}
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		if isPunctuation(token) {
			continue
		}
		out[token] = struct{}{}
	}
	return out
}

func tokenOverlap(query, text map[string]struct{}) float64 {
	if len(query) == 0 || len(text) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := text[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

func isPunctuation(token string) bool {
	for _, r := range token {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		r = unicode.ToLower(r)
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
