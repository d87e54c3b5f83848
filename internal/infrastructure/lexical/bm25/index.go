package bm25

import (
	"math"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

const (
	defaultK1      = 1.5
	defaultB       = 0.75
	defaultEpsilon = 0.25
)

type Params struct {
	K1      float64
	B       float64
	Epsilon float64
}

func DefaultParams() Params {
	return Params{K1: defaultK1, B: defaultB, Epsilon: defaultEpsilon}
}

// Index is an Okapi BM25 index over a fixed corpus. It is read-only after Build and safe
// for concurrent Scores calls.
type Index struct {
	tokenizer ports.Tokenizer
	params    Params

	termFreqs []map[string]int
	docLens   []int
	avgDocLen float64
	idf       map[string]float64
}

// Build tokenizes every document with tokenizer. Terms whose IDF would be negative (present
// in more than half of the documents) are floored to epsilon times the average IDF.
func Build(tokenizer ports.Tokenizer, docs []domain.Document, params Params) *Index {
	if params.K1 <= 0 {
		params.K1 = defaultK1
	}
	if params.B < 0 || params.B > 1 {
		params.B = defaultB
	}
	if params.Epsilon <= 0 {
		params.Epsilon = defaultEpsilon
	}

	idx := &Index{
		tokenizer: tokenizer,
		params:    params,
		termFreqs: make([]map[string]int, len(docs)),
		docLens:   make([]int, len(docs)),
		idf:       make(map[string]float64),
	}

	docFreq := make(map[string]int)
	totalLen := 0
	for i, doc := range docs {
		tokens := tokenizer.Tokenize(doc.Content)
		tf := make(map[string]int, len(tokens))
		for _, token := range tokens {
			tf[token]++
		}
		for term := range tf {
			docFreq[term]++
		}
		idx.termFreqs[i] = tf
		idx.docLens[i] = len(tokens)
		totalLen += len(tokens)
	}
	if len(docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(docs))
	}

	idx.computeIDF(docFreq, len(docs))
	return idx
}

func (idx *Index) computeIDF(docFreq map[string]int, docCount int) {
	if len(docFreq) == 0 {
		return
	}
	idfSum := 0.0
	negative := make([]string, 0)
	for term, freq := range docFreq {
		value := math.Log(float64(docCount-freq)+0.5) - math.Log(float64(freq)+0.5)
		idx.idf[term] = value
		idfSum += value
		if value < 0 {
			negative = append(negative, term)
		}
	}
	floor := idx.params.Epsilon * idfSum / float64(len(docFreq))
	for _, term := range negative {
		idx.idf[term] = floor
	}
}

func (idx *Index) Len() int {
	return len(idx.docLens)
}

// Scores returns one score per document in corpus order. Repeated query terms count once
// per occurrence.
func (idx *Index) Scores(query string) []float64 {
	scores := make([]float64, len(idx.docLens))
	if len(scores) == 0 {
		return scores
	}

	k1 := idx.params.K1
	b := idx.params.B
	for _, term := range idx.tokenizer.Tokenize(query) {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		for i, tf := range idx.termFreqs {
			freq := float64(tf[term])
			if freq == 0 {
				continue
			}
			norm := 1 - b
			if idx.avgDocLen > 0 {
				norm += b * float64(idx.docLens[i]) / idx.avgDocLen
			}
			scores[i] += idf * (freq * (k1 + 1)) / (freq + k1*norm)
		}
	}
	return scores
}

// IDF reports the (floored) inverse document frequency of term.
func (idx *Index) IDF(term string) (float64, bool) {
	v, ok := idx.idf[term]
	return v, ok
}
