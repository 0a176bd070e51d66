package augment

import (
	"context"
	"math"
	"strings"

	"github.com/fractal-lba/textaug/internal/linguistic"
	"github.com/fractal-lba/textaug/internal/randx"
	"github.com/fractal-lba/textaug/pkg/text"
)

// DefaultSwapProportion is the share of eligible tokens a WordLevel rewrite
// tries to replace.
const DefaultSwapProportion = 0.2

// CandidateSource returns replacement candidates for a lowercase word, best first.
type CandidateSource interface {
	Candidates(ctx context.Context, word string) ([]string, error)
}

// WordLevelOptions tunes token selection.
type WordLevelOptions struct {
	// SwapProportion in (0, 1]; 0 selects DefaultSwapProportion.
	SwapProportion float64
	// Allowed POS tags; nil selects linguistic.DefaultEligible.
	Allowed linguistic.POSSet
}

// WordLevel replaces a share of POS-eligible tokens with candidates from a
// CandidateSource.
type WordLevel struct {
	name       string
	analyzer   *linguistic.Analyzer
	source     CandidateSource
	proportion float64
	allowed    linguistic.POSSet
	deps       Deps
}

// NewWordLevel builds a WordLevel strategy registered under name.
func NewWordLevel(name string, analyzer *linguistic.Analyzer, source CandidateSource, opts WordLevelOptions, deps Deps) *WordLevel {
	if opts.SwapProportion <= 0 {
		opts.SwapProportion = DefaultSwapProportion
	}
	if opts.SwapProportion > 1 {
		opts.SwapProportion = 1
	}
	if opts.Allowed == nil {
		opts.Allowed = linguistic.DefaultEligible()
	}
	return &WordLevel{
		name:       name,
		analyzer:   analyzer,
		source:     source,
		proportion: opts.SwapProportion,
		allowed:    opts.Allowed,
		deps:       deps.withDefaults(),
	}
}

// Name implements Strategy.
func (w *WordLevel) Name() string { return w.name }

// SwapCount is the number of eligible tokens a rewrite attempts to replace:
// ceil(p*k), capped at k.
func SwapCount(p float64, k int) int {
	if k <= 0 || p <= 0 {
		return 0
	}
	n := int(math.Ceil(p * float64(k)))
	if n > k {
		n = k
	}
	return n
}

// Generate implements Strategy. Analysis and candidate failures never fail
// the call: the sentence or token is kept as-is.
func (w *WordLevel) Generate(ctx context.Context, sentence string) (string, error) {
	tokens, err := w.analyzer.Analyze(ctx, sentence)
	if err != nil {
		w.deps.Logger.Warn("analysis failed, sentence kept", "strategy", w.name, "error", err)
		w.deps.Metrics.ObserveDegraded(w.name, "analyze")
		return sentence, nil
	}

	words := linguistic.Texts(tokens)

	var eligible []int
	for i, tok := range tokens {
		if w.analyzer.IsEligible(tok, w.allowed) {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return text.Join(words), nil
	}

	for _, i := range randx.Sample(w.deps.Rng.Rand, eligible, SwapCount(w.proportion, len(eligible))) {
		if replacement, ok := w.replacement(ctx, words[i]); ok {
			words[i] = replacement
		}
	}
	return text.Join(words), nil
}

func (w *WordLevel) replacement(ctx context.Context, word string) (string, bool) {
	lower := strings.ToLower(word)
	cands, err := w.source.Candidates(ctx, lower)
	if err != nil {
		w.deps.Logger.Debug("no candidates", "strategy", w.name, "word", lower, "error", err)
		w.deps.Metrics.ObserveDegraded(w.name, "candidates")
		return "", false
	}

	var kept []string
	for _, c := range cands {
		c = strings.ToLower(c)
		if !w.analyzer.SameWord(word, c) {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return "", false
	}
	return randx.Choice(w.deps.Rng.Rand, kept), true
}
