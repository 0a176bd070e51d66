// Package linguistic turns sentences into POS-tagged tokens and provides the
// eligibility and word-equivalence predicates used for lexical substitution.
package linguistic

import (
	"context"
	"sort"
	"strings"
)

// Universal part-of-speech tags.
const (
	POSVerb      = "VERB"
	POSAdverb    = "ADV"
	POSNoun      = "NOUN"
	POSAdjective = "ADJ"
	POSPropNoun  = "PROPN"
	POSPunct     = "PUNCT"
	POSOther     = "X"
)

// Token is one tagged token of an analysed sentence.
type Token struct {
	Text  string `json:"text"`
	POS   string `json:"pos"`
	Index int    `json:"index"`
}

// Tagger is the external tokenizer/POS-tagger capability.
type Tagger interface {
	Tag(ctx context.Context, sentence string) ([]Token, error)
}

// POSSet is a set of universal POS tags.
type POSSet map[string]bool

// DefaultEligible is the set of tags whose tokens may be substituted.
func DefaultEligible() POSSet {
	return NewPOSSet(POSVerb, POSAdverb, POSNoun, POSAdjective)
}

// NewPOSSet builds a set from tags; tags are upper-cased.
func NewPOSSet(tags ...string) POSSet {
	s := make(POSSet, len(tags))
	for _, t := range tags {
		s[strings.ToUpper(strings.TrimSpace(t))] = true
	}
	return s
}

// key is a stable representation used for memoisation.
func (s POSSet) key() string {
	tags := make([]string, 0, len(s))
	for t, ok := range s {
		if ok {
			tags = append(tags, t)
		}
	}
	sort.Strings(tags)
	return strings.Join(tags, ",")
}

// Texts returns the surface text of every token.
func Texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Text
	}
	return out
}
