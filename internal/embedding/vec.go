package embedding

import (
	"bufio"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
)

// VecIndex is an in-memory index over a word-vector text file (.vec), the
// format written by fastText and word2vec: an optional "<count> <dim>" header
// followed by one "<word> <f1> ... <fdim>" line per word.
//
// Vectors are L2-normalised at load time so cosine similarity is a dot product.
type VecIndex struct {
	dim     int
	words   []string
	vectors [][]float32
	lookup  map[string]int
}

// LoadVec reads a .vec file, streaming ".gz" files through gzip.
func LoadVec(path string) (*VecIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	defer f.Close()

	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrArtifactUnavailable, path, err)
		}
		defer zr.Close()
		return ReadVec(zr)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrArtifactUnavailable, path)
	}

	return ReadVec(bufio.NewReaderSize(f, 1<<20))
}

// ReadVec parses the .vec text format from r.
func ReadVec(r io.Reader) (*VecIndex, error) {
	idx := &VecIndex{lookup: make(map[string]int)}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue // "<count> <dim>" header
			}
		}

		if idx.dim == 0 {
			idx.dim = len(fields) - 1
			if idx.dim <= 0 {
				return nil, fmt.Errorf("%w: line %d has no vector", ErrArtifactUnavailable, line)
			}
		}
		if len(fields)-1 != idx.dim {
			return nil, fmt.Errorf("%w: line %d has %d dimensions, want %d",
				ErrArtifactUnavailable, line, len(fields)-1, idx.dim)
		}

		vec := make([]float32, idx.dim)
		for i, s := range fields[1:] {
			v, err := strconv.ParseFloat(s, 32)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrArtifactUnavailable, line, err)
			}
			vec[i] = float32(v)
		}
		normalize(vec)

		word := fields[0]
		if _, dup := idx.lookup[word]; dup {
			continue
		}
		idx.lookup[word] = len(idx.words)
		idx.words = append(idx.words, word)
		idx.vectors = append(idx.vectors, vec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	if len(idx.words) == 0 {
		return nil, fmt.Errorf("%w: no vectors found", ErrArtifactUnavailable)
	}
	return idx, nil
}

// Len returns the vocabulary size.
func (v *VecIndex) Len() int { return len(v.words) }

// Dim returns the vector dimension.
func (v *VecIndex) Dim() int { return v.dim }

// Words returns the vocabulary in file order.
func (v *VecIndex) Words() []string { return append([]string(nil), v.words...) }

// Neighbors returns the k words closest to word by cosine similarity, word
// itself excluded.
func (v *VecIndex) Neighbors(ctx context.Context, word string, k int) ([]Neighbor, error) {
	qi, ok := v.lookup[word]
	if !ok {
		return nil, ErrOutOfVocabulary
	}
	if k <= 0 {
		k = DefaultNeighbors
	}
	q := v.vectors[qi]

	// Keep the best k in ascending order so the weakest is at [0].
	best := make([]Neighbor, 0, k+1)
	for i, vec := range v.vectors {
		if i == qi {
			continue
		}
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		score := dot(q, vec)
		if len(best) == k && score <= best[0].Score {
			continue
		}
		pos := sort.Search(len(best), func(j int) bool { return best[j].Score >= score })
		best = append(best, Neighbor{})
		copy(best[pos+1:], best[pos:])
		best[pos] = Neighbor{Word: v.words[i], Score: score}
		if len(best) > k {
			best = best[1:]
		}
	}

	for i, j := 0, len(best)-1; i < j; i, j = i+1, j-1 {
		best[i], best[j] = best[j], best[i]
	}
	return best, nil
}

func normalize(vec []float32) {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range vec {
		vec[i] *= inv
	}
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
