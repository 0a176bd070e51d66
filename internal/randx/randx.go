// Package randx provides the single pseudo-random source shared by every
// augmentation component. It is passed explicitly instead of living in a global.
package randx

import (
	"errors"
	"math/rand/v2"
	"time"
)

// ErrNoWeight is returned by Weighted when no weight is positive.
var ErrNoWeight = errors.New("randx: weights sum to zero")

// Source is a seedable PCG generator whose state can be saved and restored.
// It is not safe for concurrent use.
type Source struct {
	*rand.Rand
	pcg *rand.PCG
}

// New returns a Source seeded deterministically from seed.
func New(seed uint64) *Source {
	pcg := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Source{Rand: rand.New(pcg), pcg: pcg}
}

// NewFromClock returns a Source seeded from the wall clock.
func NewFromClock() *Source {
	return New(uint64(time.Now().UnixNano()))
}

// Save captures the generator state.
func (s *Source) Save() ([]byte, error) {
	return s.pcg.MarshalBinary()
}

// Restore rewinds the generator to a state captured by Save.
func (s *Source) Restore(state []byte) error {
	return s.pcg.UnmarshalBinary(state)
}

// Isolated runs fn with the generator reseeded from seed and restores the
// previous state afterwards, so draws made by fn leave the caller's sequence
// untouched.
func (s *Source) Isolated(seed uint64, fn func(r *rand.Rand)) error {
	state, err := s.Save()
	if err != nil {
		return err
	}
	s.pcg.Seed(seed, seed^0x9e3779b97f4a7c15)
	fn(s.Rand)
	return s.Restore(state)
}

// ClockSeed is the current time in milliseconds truncated to 32 bits.
func ClockSeed() uint64 {
	return uint64(time.Now().UnixMilli()) % (1 << 32)
}

// Sample draws k distinct elements of population uniformly at random.
// k is clamped to len(population).
func Sample[T any](r *rand.Rand, population []T, k int) []T {
	if k > len(population) {
		k = len(population)
	}
	if k <= 0 {
		return nil
	}
	out := make([]T, 0, k)
	for _, i := range r.Perm(len(population))[:k] {
		out = append(out, population[i])
	}
	return out
}

// Choice returns one element of population chosen uniformly at random.
// population must not be empty.
func Choice[T any](r *rand.Rand, population []T) T {
	return population[r.IntN(len(population))]
}

// Weighted returns an index drawn with probability proportional to weights[i].
// Negative weights count as zero.
func Weighted(r *rand.Rand, weights []float64) (int, error) {
	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return 0, ErrNoWeight
	}

	x := r.Float64() * total
	last := 0
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		last = i
		if x < w {
			return i, nil
		}
		x -= w
	}
	return last, nil
}
