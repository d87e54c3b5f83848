package usecase

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const (
	defaultLexicalThreshold = 12.0
	goldenTicketConfidence  = 1.0
)

// GoldenTicketResult is the outcome of the lexical shortcut check.
type GoldenTicketResult struct {
	Matched  bool
	TopIndex int
	TopScore float64
	Keywords []string
	Reason   string
	Document domain.RankedDocument
}

// GoldenTicketVerifier accepts the top lexical match without dense search or reranking when
// its score clears the threshold and it contains every query keyword.
type GoldenTicketVerifier struct {
	keywords  ports.KeywordExtractor
	threshold float64
}

// NewGoldenTicketVerifier uses threshold as given, zero included. A negative threshold
// selects the default.
func NewGoldenTicketVerifier(keywords ports.KeywordExtractor, threshold float64) *GoldenTicketVerifier {
	if threshold < 0 {
		threshold = defaultLexicalThreshold
	}
	return &GoldenTicketVerifier{keywords: keywords, threshold: threshold}
}

func (v *GoldenTicketVerifier) Threshold() float64 {
	return v.threshold
}

// Verify inspects precomputed lexical scores for corpus. The threshold comparison is strict.
func (v *GoldenTicketVerifier) Verify(query string, corpus domain.Corpus, scores []float64) GoldenTicketResult {
	topIndex, topScore := argmax(scores)
	result := GoldenTicketResult{TopIndex: topIndex, TopScore: topScore}

	doc, ok := corpus.At(topIndex)
	if !ok {
		result.Reason = "empty_corpus"
		return result
	}
	if topScore <= v.threshold {
		result.Reason = "below_threshold"
		return result
	}

	result.Keywords = v.keywords.Keywords(query)
	if len(result.Keywords) == 0 {
		result.Reason = "no_keywords"
		return result
	}

	content := foldForMatch(doc.Content)
	for _, keyword := range result.Keywords {
		if !strings.Contains(content, foldForMatch(keyword)) {
			result.Reason = "keyword_missing"
			return result
		}
	}

	result.Matched = true
	result.Reason = "matched"
	result.Document = domain.RankedDocument{
		Index:    topIndex,
		Document: doc,
		Score:    goldenTicketConfidence,
	}
	return result
}

// foldForMatch puts keywords and document content in the same form: NFKC, so full-width
// Latin matches its ASCII form, then lowercase.
func foldForMatch(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
