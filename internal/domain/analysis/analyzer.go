// Package analysis turns free text into full-text match terms.
//
// The same pipeline runs when index documents are built and when String
// Contains filters are compiled, so a term written at index time is
// byte-identical to the term the query asks for.
package analysis

import (
	"strings"
	"unicode"

	blevean "github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	bleveunicode "github.com/blevesearch/bleve/v2/analysis/tokenizer/unicode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Analyzer splits text on Unicode word boundaries, lowercases each token
// and folds it to ASCII. It is safe for concurrent use.
type Analyzer struct {
	pipeline *blevean.DefaultAnalyzer
}

// New creates the analyzer: word tokenizer, lowercase, ASCII folding.
func New() *Analyzer {
	return &Analyzer{
		pipeline: &blevean.DefaultAnalyzer{
			Tokenizer: bleveunicode.NewUnicodeTokenizer(),
			TokenFilters: []blevean.TokenFilter{
				lowercase.NewLowerCaseFilter(),
				FoldingFilter{},
			},
		},
	}
}

var shared = New()

// Analyze runs the shared pipeline over text.
func Analyze(text string) []string { return shared.Analyze(text) }

// Analyze returns the terms of text in input order. Blank input yields an
// empty, non-nil slice.
func (a *Analyzer) Analyze(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	stream := a.pipeline.Analyze([]byte(text))
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) == 0 {
			continue
		}
		terms = append(terms, string(tok.Term))
	}
	return terms
}

// FoldingFilter maps each token to its closest ASCII spelling: combining
// marks are stripped after canonical decomposition and a few letters
// without a decomposition are spelled out.
type FoldingFilter struct{}

// Filter implements analysis.TokenFilter.
func (FoldingFilter) Filter(input blevean.TokenStream) blevean.TokenStream {
	for _, tok := range input {
		tok.Term = []byte(Fold(string(tok.Term)))
	}
	return input
}

var letterFolds = strings.NewReplacer(
	"ß", "ss", "æ", "ae", "Æ", "AE", "ø", "o", "Ø", "O",
	"œ", "oe", "Œ", "OE", "đ", "d", "Đ", "D", "ł", "l", "Ł", "L",
	"þ", "th", "Þ", "TH", "ı", "i",
)

// Fold returns s with diacritics removed.
func Fold(s string) string {
	if isASCII(s) {
		return s
	}
	// transform chains carry state, so each call gets its own.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return letterFolds.Replace(out)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
