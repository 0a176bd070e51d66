// Package embedding serves substitution candidates from a static word-embedding
// space: nearest neighbours of a word, filtered by a similarity threshold.
package embedding

import (
	"context"
	"errors"
)

// DefaultNeighbors matches fastText's default k for nearest-neighbour queries.
const DefaultNeighbors = 10

var (
	// ErrOutOfVocabulary is returned when the index holds no vector for a word.
	ErrOutOfVocabulary = errors.New("embedding: word not in vocabulary")
	// ErrUnsupportedEmbedding is returned for an unknown base_embedding.
	ErrUnsupportedEmbedding = errors.New("embedding: unsupported base embedding")
	// ErrArtifactUnavailable is returned when no embedding artefact can be loaded.
	ErrArtifactUnavailable = errors.New("embedding: artifact unavailable")
)

// Neighbor is one nearest-neighbour hit.
type Neighbor struct {
	Word  string
	Score float64
}

// NeighborIndex is the nearest-neighbour capability over an embedding space.
// Results are ordered by descending score.
type NeighborIndex interface {
	Neighbors(ctx context.Context, word string, k int) ([]Neighbor, error)
}
