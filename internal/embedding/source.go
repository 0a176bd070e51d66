package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fractal-lba/textaug/internal/cache"
	"github.com/fractal-lba/textaug/internal/randx"
)

// DefaultScoreThreshold is the minimum similarity a neighbour needs to become
// a candidate.
const DefaultScoreThreshold = 0.5

// Source turns nearest neighbours into substitution candidates.
type Source struct {
	index     NeighborIndex
	threshold float64
	k         int
	memo      *cache.Memo[string, []string]
}

// NewSource wraps index. threshold is used as given, so 0 keeps every
// non-negative neighbour. k <= 0 selects DefaultNeighbors.
func NewSource(index NeighborIndex, threshold float64, k int) *Source {
	if k <= 0 {
		k = DefaultNeighbors
	}
	return &Source{
		index:     index,
		threshold: threshold,
		k:         k,
		memo:      cache.MustMemo[string, []string](cache.CandidateCapacity),
	}
}

// Candidates returns the neighbours of word whose score is at least the
// threshold, best first. Results are memoised per word.
func (s *Source) Candidates(ctx context.Context, word string) ([]string, error) {
	return s.memo.Do(word, func() ([]string, error) {
		hits, err := s.index.Neighbors(ctx, word, s.k)
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(hits))
		for _, h := range hits {
			if h.Score >= s.threshold {
				out = append(out, h.Word)
			}
		}
		return out, nil
	})
}

// CacheStats reports candidate cache statistics.
func (s *Source) CacheStats() cache.Stats {
	return s.memo.Stats()
}

// Backend names accepted by Open.
const (
	BackendFastText = "fasttext"
	BackendRedis    = "redis"
)

// OpenOptions selects and configures the neighbour index behind a Source.
type OpenOptions struct {
	Backend   string
	Artifact  ArtifactOptions
	RedisAddr string
	RedisPass string
	RedisDB   int
	RedisKey  string
	// Threshold nil selects DefaultScoreThreshold.
	Threshold *float64
	K         int
}

// Open builds a Source from opts, loading the embedding once. Any failure is
// fatal for the caller: a Source is never returned half-initialised.
func Open(ctx context.Context, opts OpenOptions, rng *randx.Source, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var index NeighborIndex
	switch opts.Backend {
	case BackendFastText, "":
		path, err := ResolveArtifact(ctx, opts.Artifact, rng, logger)
		if err != nil {
			return nil, err
		}
		vec, err := Load(path)
		if err != nil {
			return nil, err
		}
		logger.Info("embedding loaded", "path", path, "words", vec.Len(), "dim", vec.Dim())
		index = vec
	case BackendRedis:
		ri, err := NewRedisIndex(opts.RedisAddr, opts.RedisPass, opts.RedisDB, opts.RedisKey)
		if err != nil {
			return nil, err
		}
		index = ri
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedEmbedding, opts.Backend)
	}

	threshold := DefaultScoreThreshold
	if opts.Threshold != nil {
		threshold = *opts.Threshold
	}
	return NewSource(index, threshold, opts.K), nil
}
