package domain

// Document is a single corpus entry. It is never mutated after the corpus is loaded.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MetadataString returns the metadata value under key rendered as a string, or "" when absent.
func (d Document) MetadataString(key string) string {
	v, ok := d.Metadata[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return ""
}

type CorpusKind string

const (
	CorpusFAQ     CorpusKind = "faq"
	CorpusProduct CorpusKind = "product"
)

// Corpus is an ordered, read-only collection of documents. A document's position is its
// stable index; FAQ and product corpora have independent index spaces.
type Corpus struct {
	Kind      CorpusKind
	Documents []Document
}

func NewCorpus(kind CorpusKind, docs []Document) Corpus {
	out := make([]Document, len(docs))
	copy(out, docs)
	return Corpus{Kind: kind, Documents: out}
}

func (c Corpus) Len() int {
	return len(c.Documents)
}

// At returns the document at index and whether the index is valid.
func (c Corpus) At(index int) (Document, bool) {
	if index < 0 || index >= len(c.Documents) {
		return Document{}, false
	}
	return c.Documents[index], true
}

// Contents returns the document contents in corpus order.
func (c Corpus) Contents() []string {
	out := make([]string, len(c.Documents))
	for i, doc := range c.Documents {
		out[i] = doc.Content
	}
	return out
}
