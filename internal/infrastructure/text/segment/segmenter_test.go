package segment

import (
	"strings"
	"testing"

	"github.com/go-ego/gse"
)

func TestFilterKeywordsKeepsNounTags(t *testing.T) {
	tagged := []gse.SegPos{
		{Text: "退貨", Pos: "n"},
		{Text: "的", Pos: "uj"},
		{Text: "流程", Pos: "n"},
		{Text: "VESA", Pos: "eng"},
		{Text: "台北", Pos: "ns"},
		{Text: "申請", Pos: "v"},
		{Text: "退貨", Pos: "n"},
		{Text: "vesa", Pos: "eng"},
	}

	got := filterKeywords(tagged)
	want := []string{"退貨", "流程", "vesa", "台北"}
	if len(got) != len(want) {
		t.Fatalf("filterKeywords() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("filterKeywords()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFilterKeywordsEmpty(t *testing.T) {
	got := filterKeywords([]gse.SegPos{{Text: "嗎", Pos: "y"}, {Text: " ", Pos: "n"}})
	if len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
}

func TestFilterKeywordsKeepsLatinTermsTaggedX(t *testing.T) {
	tagged := []gse.SegPos{
		{Text: "VESA", Pos: "x"},
		{Text: " ", Pos: "x"},
		{Text: "螢幕", Pos: "n"},
		{Text: "，", Pos: "x"},
		{Text: "MA-32", Pos: "x"},
		{Text: "100", Pos: "x"},
		{Text: "?", Pos: "x"},
	}

	got := filterKeywords(tagged)
	want := []string{"vesa", "螢幕", "ma-32"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("filterKeywords() = %q, want %q", got, want)
	}
}

func TestKeywordsWithEmbeddedDictionary(t *testing.T) {
	seg, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	cases := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "mixed latin and chinese", query: "VESA 螢幕支架尺寸", want: []string{"vesa", "螢幕", "支架", "尺寸"}},
		{name: "lowercased and deduplicated", query: "螢幕 VESA 螢幕 vesa", want: []string{"螢幕", "vesa"}},
		{name: "full width latin", query: "ＶＥＳＡ 螢幕", want: []string{"vesa", "螢幕"}},
		{name: "no nouns", query: "，。！ 123", want: []string{}},
		{name: "blank", query: "   ", want: []string{}},
	}
	for _, tc := range cases {
		got := seg.Keywords(tc.query)
		if got == nil {
			t.Fatalf("%s: Keywords() returned nil", tc.name)
		}
		if strings.Join(got, "|") != strings.Join(tc.want, "|") {
			t.Fatalf("%s: Keywords(%q) = %q, want %q", tc.name, tc.query, got, tc.want)
		}
	}
}

func TestNormalizeFoldsWidthAndControls(t *testing.T) {
	got := Normalize("  ＶＥＳＡ\u0007 支架\n")
	if got != "VESA 支架" {
		t.Fatalf("Normalize() = %q", got)
	}
}

func TestTokenizeWithEmbeddedDictionary(t *testing.T) {
	seg, err := New("")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tokens := seg.Tokenize("VESA 螢幕支架")
	if len(tokens) == 0 {
		t.Fatalf("expected tokens")
	}
	foundVesa := false
	for _, token := range tokens {
		if strings.TrimSpace(token) == "" {
			t.Fatalf("whitespace token in %q", tokens)
		}
		if token == "vesa" {
			foundVesa = true
		}
	}
	if !foundVesa {
		t.Fatalf("expected lowercased latin token, got %q", tokens)
	}
	if again := seg.Tokenize("VESA 螢幕支架"); strings.Join(again, "|") != strings.Join(tokens, "|") {
		t.Fatalf("tokenization must be deterministic: %q vs %q", tokens, again)
	}
	if empty := seg.Tokenize("   "); len(empty) != 0 {
		t.Fatalf("expected no tokens for blank text, got %q", empty)
	}
}
