// Package text holds the string-level helpers shared by the augmentation strategies:
// sentence normalisation, token rejoining and word-core extraction.
package text

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Contraction is one literal short form and its expansion.
type Contraction struct {
	Short string
	Full  string
}

// GermanContractions is the default expansion table. Order matters: entries are
// applied one after another, so longer forms sharing a prefix must come first
// where the shorter replacement would break them.
var GermanContractions = []Contraction{
	{"'s", " es"},
	{"'nem", " einem"},
	{"'ne", " eine"},
	{"'ner", " einer"},
	{"'nen'", " einen"},
	{"'n", " ein"},
}

// EnglishContractions is an alternative table for English corpora.
var EnglishContractions = []Contraction{
	{"won't", "will not"},
	{"can't", "cannot"},
	{"n't", " not"},
	{"'re", " are"},
	{"'ll", " will"},
	{"'ve", " have"},
	{"'m", " am"},
	{"'d", " would"},
}

var (
	placeholderRe = regexp.MustCompile(`\{[a-zA-Z0-9\s]*\}`)
	spacesRe      = regexp.MustCompile(` +`)
)

// Normalize lowercases s, blanks anonymisation placeholders such as {NAME},
// expands GermanContractions and collapses runs of spaces.
//
// Invalid UTF-8 is not an error for callers: a warning is logged and the empty
// string is returned.
func Normalize(s string) string {
	return NormalizeWith(s, GermanContractions)
}

// NormalizeWith is Normalize with a caller-supplied contraction table.
func NormalizeWith(s string, table []Contraction) string {
	if !utf8.ValidString(s) {
		slog.Warn("text normalization failed", "reason", "invalid utf-8", "bytes", len(s))
		return ""
	}

	out := strings.ToLower(s)
	out = placeholderRe.ReplaceAllString(out, " ")
	for _, c := range table {
		out = strings.ReplaceAll(out, c.Short, c.Full)
	}
	return spacesRe.ReplaceAllString(out, " ")
}
