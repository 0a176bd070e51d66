package augment

import (
	"context"

	"github.com/fractal-lba/textaug/internal/mlm"
	"github.com/fractal-lba/textaug/internal/randx"
)

// DefaultNrCandidates is how many top-scoring fillers a ContextualMask draws from.
const DefaultNrCandidates = 5

// ContextualMask masks one interior token and refills it with one of the
// masked LM's top-k predictions.
type ContextualMask struct {
	name     string
	tok      mlm.Tokenizer
	scorer   mlm.Scorer
	specials mlm.Specials
	k        int
	deps     Deps
}

// NewContextualMask builds the strategy. The tokenizer must define a mask token.
func NewContextualMask(name string, tok mlm.Tokenizer, scorer mlm.Scorer, k int, deps Deps) (*ContextualMask, error) {
	specials, err := mlm.SpecialsOf(tok)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		k = DefaultNrCandidates
	}
	return &ContextualMask{
		name:     name,
		tok:      tok,
		scorer:   scorer,
		specials: specials,
		k:        k,
		deps:     deps.withDefaults(),
	}, nil
}

// Name implements Strategy.
func (m *ContextualMask) Name() string { return m.name }

// Generate implements Strategy. It never fails: on any error the sentence is
// returned unchanged.
func (m *ContextualMask) Generate(ctx context.Context, sentence string) (string, error) {
	ids := m.specials.WithBoundaries(m.tok.Encode(sentence))

	// Interior positions are [1, n-3]: the leading boundary and the last two
	// positions are never masked.
	last := len(ids) - 3
	if last < 1 {
		m.deps.Metrics.ObserveDegraded(m.name, "too_short")
		return sentence, nil
	}
	pos := 1 + m.deps.Rng.IntN(last)

	ids[pos] = m.specials.Mask
	scores, err := m.scorer.Scores(ctx, ids, pos)
	if err != nil {
		m.deps.Logger.Warn("masked fill failed, sentence kept", "strategy", m.name, "error", err)
		m.deps.Metrics.ObserveDegraded(m.name, "score")
		return sentence, nil
	}

	top := mlm.TopK(scores, m.k)
	if len(top) == 0 {
		m.deps.Logger.Warn("masked fill returned no scores, sentence kept", "strategy", m.name)
		m.deps.Metrics.ObserveDegraded(m.name, "no_scores")
		return sentence, nil
	}
	ids[pos] = randx.Choice(m.deps.Rng.Rand, top)
	return m.tok.Decode(m.specials.StripSpecial(ids)), nil
}
