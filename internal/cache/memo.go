package cache

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Fixed capacities of the memo caches used by the augmentation components.
const (
	EquivalenceCapacity = 10_000
	AnalysisCapacity    = 1_000
	EligibilityCapacity = 1_000
	CandidateCapacity   = 1_000
)

// Memo is a size-bounded memoisation table.
//
// Entries are never invalidated by time; the least recently used entry is
// evicted once the table is full. Memo is safe for concurrent use.
type Memo[K comparable, V any] struct {
	cache   *lru.Cache[K, V]
	mu      sync.Mutex
	hits    uint64
	misses  uint64
	evicted uint64
}

// NewMemo creates a memo table holding at most size entries.
//
// Returns an error if size is not positive.
func NewMemo[K comparable, V any](size int) (*Memo[K, V], error) {
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &Memo[K, V]{cache: c}, nil
}

// MustMemo is NewMemo for the fixed capacities above; it panics on a
// non-positive size.
func MustMemo[K comparable, V any](size int) *Memo[K, V] {
	m, err := NewMemo[K, V](size)
	if err != nil {
		panic(err)
	}
	return m
}

// Get returns the memoised value for key and marks it as recently used.
func (m *Memo[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.cache.Get(key)
	if ok {
		m.hits++
	} else {
		m.misses++
	}
	return v, ok
}

// Set stores value under key, evicting the least recently used entry when full.
func (m *Memo[K, V]) Set(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cache.Add(key, value) {
		m.evicted++
	}
}

// Do returns the memoised value for key or computes, stores and returns it.
// Errors from compute are returned as-is and nothing is stored.
func (m *Memo[K, V]) Do(key K, compute func() (V, error)) (V, error) {
	if v, ok := m.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	m.Set(key, v)
	return v, nil
}

// Len returns the number of entries.
func (m *Memo[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.cache.Len()
}

// Reset drops every entry and zeroes the counters. Meant for tests.
func (m *Memo[K, V]) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Purge()
	m.hits = 0
	m.misses = 0
	m.evicted = 0
}

// Stats holds memo statistics for observability.
type Stats struct {
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Evicted uint64  `json:"evicted"`
	Size    int     `json:"size"`
	HitRate float64 `json:"hit_rate"`
}

// Stats returns current statistics.
func (m *Memo[K, V]) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.hits + m.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(m.hits) / float64(total)
	}

	return Stats{
		Hits:    m.hits,
		Misses:  m.misses,
		Evicted: m.evicted,
		Size:    m.cache.Len(),
		HitRate: hitRate,
	}
}
