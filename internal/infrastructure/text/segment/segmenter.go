package segment

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/go-ego/gse"
	"golang.org/x/text/unicode/norm"
)

// keywordTags are the part-of-speech tags kept as golden ticket keywords: common noun,
// person, place and organisation names, and foreign words.
var keywordTags = map[string]struct{}{
	"n":   {},
	"nr":  {},
	"ns":  {},
	"nt":  {},
	"eng": {},
}

// Segmenter tokenizes Chinese text for lexical scoring and extracts noun-like keywords.
// The dictionary is loaded once; segmentation is safe for concurrent use afterwards.
type Segmenter struct {
	seg gse.Segmenter
}

// New loads dictPath, or the embedded dictionary when dictPath is empty.
func New(dictPath string) (*Segmenter, error) {
	var (
		seg gse.Segmenter
		err error
	)
	if strings.TrimSpace(dictPath) == "" {
		seg, err = gse.NewEmbed()
	} else {
		seg, err = gse.New(dictPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load segmentation dictionary: %w", err)
	}
	return &Segmenter{seg: seg}, nil
}

// Tokenize returns search-mode tokens of the normalized, lowercased text. Whitespace-only
// tokens are dropped.
func (s *Segmenter) Tokenize(text string) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	tokens := s.seg.CutSearch(text, true)
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.ToLower(token)
		if strings.TrimSpace(token) == "" {
			continue
		}
		out = append(out, token)
	}
	return out
}

// Keywords returns the lowercase, deduplicated noun-like words of query in order of
// first appearance.
func (s *Segmenter) Keywords(query string) []string {
	query = Normalize(query)
	if query == "" {
		return []string{}
	}
	return filterKeywords(s.seg.Pos(query, false))
}

func filterKeywords(tagged []gse.SegPos) []string {
	seen := make(map[string]struct{}, len(tagged))
	out := make([]string, 0, len(tagged))
	for _, item := range tagged {
		word := strings.ToLower(strings.TrimSpace(item.Text))
		if word == "" {
			continue
		}
		_, ok := keywordTags[item.Pos]
		if !ok && !(item.Pos == "x" && isForeignWord(word)) {
			continue
		}
		if _, dup := seen[word]; dup {
			continue
		}
		seen[word] = struct{}{}
		out = append(out, word)
	}
	return out
}

// isForeignWord reports whether word is a Latin-script term like a model name or SKU.
// gse tags these "x", the same tag it gives punctuation and whitespace.
func isForeignWord(word string) bool {
	hasLetter := false
	for _, r := range word {
		switch {
		case unicode.In(r, unicode.Latin):
			hasLetter = true
		case unicode.IsDigit(r), r == '-', r == '_', r == '.':
		default:
			return false
		}
	}
	return hasLetter
}

// Normalize applies NFKC, trims the text and strips control characters other than
// newlines and tabs.
func Normalize(text string) string {
	normed := strings.TrimSpace(norm.NFKC.String(text))
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
}
