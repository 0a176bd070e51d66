package linguistic

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/fractal-lba/textaug/internal/cache"
	"github.com/fractal-lba/textaug/pkg/text"
	"github.com/kljensen/snowball"
)

// Equivalence selects how two words are compared by SameWord.
type Equivalence string

const (
	// EquivalenceNaive compares the first run of ASCII letters of both words,
	// case-insensitively. Inflected forms ("run", "running") stay distinct.
	EquivalenceNaive Equivalence = "naive"
	// EquivalenceStem compares snowball stems, so inflected forms of the same
	// word are treated as equal.
	EquivalenceStem Equivalence = "stem"
)

// Options configures an Analyzer.
type Options struct {
	// Normalize is applied before tagging; defaults to text.Normalize.
	Normalize func(string) string
	// Equivalence defaults to EquivalenceNaive.
	Equivalence Equivalence
	// Language is the snowball language used by EquivalenceStem, e.g. "german".
	Language string
	Logger   *slog.Logger
}

// Analyzer produces memoised token analyses and answers the eligibility and
// equivalence questions asked during lexical substitution.
type Analyzer struct {
	tagger    Tagger
	normalize func(string) string
	equiv     Equivalence
	language  string
	logger    *slog.Logger

	analyses *cache.Memo[string, []Token]
	eligible *cache.Memo[eligibilityKey, bool]
	same     *cache.Memo[[2]string, bool]
}

type eligibilityKey struct {
	pos     string
	allowed string
}

// NewAnalyzer wraps tagger with memo caches of fixed capacity.
func NewAnalyzer(tagger Tagger, opts Options) (*Analyzer, error) {
	if tagger == nil {
		return nil, fmt.Errorf("linguistic: tagger is required")
	}
	a := &Analyzer{
		tagger:    tagger,
		normalize: opts.Normalize,
		equiv:     opts.Equivalence,
		language:  opts.Language,
		logger:    opts.Logger,
		analyses:  cache.MustMemo[string, []Token](cache.AnalysisCapacity),
		eligible:  cache.MustMemo[eligibilityKey, bool](cache.EligibilityCapacity),
		same:      cache.MustMemo[[2]string, bool](cache.EquivalenceCapacity),
	}
	if a.normalize == nil {
		a.normalize = text.Normalize
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	switch a.equiv {
	case "":
		a.equiv = EquivalenceNaive
	case EquivalenceNaive:
	case EquivalenceStem:
		if a.language == "" {
			a.language = "german"
		}
		if _, err := snowball.Stem("test", a.language, true); err != nil {
			return nil, fmt.Errorf("linguistic: unsupported stemming language %q: %w", a.language, err)
		}
	default:
		return nil, fmt.Errorf("linguistic: unknown equivalence %q", a.equiv)
	}
	return a, nil
}

// Analyze normalises sentence and returns its tagged tokens in sentence order.
// Results are memoised by the exact input text.
func (a *Analyzer) Analyze(ctx context.Context, sentence string) ([]Token, error) {
	return a.analyses.Do(sentence, func() ([]Token, error) {
		tokens, err := a.tagger.Tag(ctx, a.normalize(sentence))
		if err != nil {
			return nil, err
		}
		for i := range tokens {
			tokens[i].Index = i
		}
		return tokens, nil
	})
}

// IsEligible reports whether tok's POS tag is in allowed.
func (a *Analyzer) IsEligible(tok Token, allowed POSSet) bool {
	key := eligibilityKey{pos: tok.POS, allowed: allowed.key()}
	if v, ok := a.eligible.Get(key); ok {
		return v
	}
	v := allowed[tok.POS]
	a.eligible.Set(key, v)
	return v
}

// SameWord reports whether candidate is the same word as original under the
// configured equivalence. Results are memoised per pair.
func (a *Analyzer) SameWord(original, candidate string) bool {
	key := [2]string{original, candidate}
	if v, ok := a.same.Get(key); ok {
		return v
	}

	var v bool
	switch a.equiv {
	case EquivalenceStem:
		v = a.stem(original) == a.stem(candidate)
	default:
		v = SameWord(original, candidate)
	}
	a.same.Set(key, v)
	return v
}

// Reset empties all memo caches.
func (a *Analyzer) Reset() {
	a.analyses.Reset()
	a.eligible.Reset()
	a.same.Reset()
}

// CacheStats reports the analysis cache statistics.
func (a *Analyzer) CacheStats() cache.Stats {
	return a.analyses.Stats()
}

func (a *Analyzer) stem(word string) string {
	core := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, word)
	if core == "" {
		return ""
	}
	stemmed, err := snowball.Stem(core, a.language, true)
	if err != nil {
		a.logger.Warn("stemming failed", "word", word, "language", a.language, "error", err)
		return core
	}
	return stemmed
}

// SameWord is the naive equivalence rule: both words reduced to their first run
// of ASCII letters, lowercased, then compared.
//
//	SameWord("Run", "run")     == true
//	SameWord("Run", "running") == false
func SameWord(a, b string) bool {
	return text.WordCore(a) == text.WordCore(b)
}
