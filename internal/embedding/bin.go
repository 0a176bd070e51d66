package embedding

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
)

// fastText binary model layout, as written by `fasttext save-model` and
// shipped as model.bin in the facebook/fasttext-<lang>-vectors repositories.
const (
	binMagic      = 793712314
	binMaxVersion = 12
	binEOS        = "</s>"
)

// binArgs is the subset of the stored training arguments needed to rebuild
// word vectors.
type binArgs struct {
	dim    int32
	bucket int32
	minn   int32
	maxn   int32
}

// Load opens an embedding file, choosing the parser from its extension:
// ".bin" is a fastText binary model, anything else the .vec text format.
func Load(path string) (*VecIndex, error) {
	if strings.HasSuffix(path, ".bin") {
		return LoadBin(path)
	}
	return LoadVec(path)
}

// LoadBin reads a fastText binary model. The file is memory-mapped and the
// input matrix, which holds the word rows and every subword bucket row, is
// read in place; only the averaged word vectors are copied out.
func LoadBin(path string) (*VecIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArtifactUnavailable, err)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrArtifactUnavailable, path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: mmap %s: %v", ErrArtifactUnavailable, path, err)
	}
	defer m.Unmap()

	idx, err := ReadBin(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// ReadBin parses a fastText binary model held in data.
func ReadBin(data []byte) (*VecIndex, error) {
	r := &binReader{buf: data}

	if magic := r.int32(); r.err == nil && magic != binMagic {
		return nil, fmt.Errorf("%w: not a fastText model (magic %d)", ErrArtifactUnavailable, magic)
	}
	if version := r.int32(); r.err == nil && version > binMaxVersion {
		return nil, fmt.Errorf("%w: fastText model version %d is newer than %d", ErrArtifactUnavailable, version, binMaxVersion)
	}

	// dim ws epoch minCount neg wordNgrams loss model bucket minn maxn lrUpdateRate t
	var args binArgs
	args.dim = r.int32()
	r.skip(7 * 4)
	args.bucket = r.int32()
	args.minn = r.int32()
	args.maxn = r.int32()
	r.skip(4 + 8)

	size := r.int32()
	nwords := r.int32()
	r.skip(4 + 8) // nlabels ntokens
	pruneSize := r.int64()
	if r.err != nil {
		return nil, r.fail()
	}
	if size < 0 || nwords < 0 || nwords > size {
		return nil, fmt.Errorf("%w: corrupt dictionary header (%d entries, %d words)", ErrArtifactUnavailable, size, nwords)
	}

	words := make([]string, 0, nwords)
	for i := int32(0); i < size && r.err == nil; i++ {
		w := r.cstring()
		r.skip(8) // count
		kind := r.uint8()
		if i < nwords && kind == 0 {
			words = append(words, w)
		}
	}

	var prune map[int32]int32
	if pruneSize > 0 {
		prune = make(map[int32]int32, pruneSize)
		for i := int64(0); i < pruneSize && r.err == nil; i++ {
			k := r.int32()
			prune[k] = r.int32()
		}
	}

	if quant := r.uint8(); r.err == nil && quant != 0 {
		return nil, fmt.Errorf("%w: quantized fastText models are not supported", ErrArtifactUnavailable)
	}
	rows := r.int64()
	cols := r.int64()
	if r.err != nil {
		return nil, r.fail()
	}
	if cols != int64(args.dim) || cols <= 0 || rows < int64(len(words)) {
		return nil, fmt.Errorf("%w: input matrix is %dx%d for %d words of dimension %d",
			ErrArtifactUnavailable, rows, cols, len(words), args.dim)
	}
	if rows > int64(len(data))/(cols*4) {
		return nil, fmt.Errorf("%w: input matrix truncated", ErrArtifactUnavailable)
	}
	matrix := r.take(int(rows * cols * 4))
	if r.err != nil {
		return nil, r.fail()
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("%w: no vectors found", ErrArtifactUnavailable)
	}

	sub := subwords{args: args, nwords: nwords, pruneSize: pruneSize, prune: prune}
	idx := &VecIndex{dim: int(args.dim), lookup: make(map[string]int, len(words))}
	var ids []int64
	for i, w := range words {
		if w == binEOS {
			continue
		}
		ids = sub.rows(ids[:0], w, int64(i))
		vec := make([]float32, args.dim)
		n := 0
		for _, row := range ids {
			if row >= rows {
				continue
			}
			addRow(vec, matrix, row, int(cols))
			n++
		}
		if n == 0 {
			continue
		}
		for j := range vec {
			vec[j] /= float32(n)
		}
		normalize(vec)

		if _, dup := idx.lookup[w]; dup {
			continue
		}
		idx.lookup[w] = len(idx.words)
		idx.words = append(idx.words, w)
		idx.vectors = append(idx.vectors, vec)
	}
	return idx, nil
}

func addRow(dst []float32, matrix []byte, row int64, cols int) {
	off := int(row) * cols * 4
	for j := range dst {
		dst[j] += math.Float32frombits(binary.LittleEndian.Uint32(matrix[off+4*j:]))
	}
}

// subwords maps a word to the input-matrix rows fastText averages into its
// vector: the word's own row plus one bucket row per character n-gram.
type subwords struct {
	args      binArgs
	nwords    int32
	pruneSize int64
	prune     map[int32]int32
}

func (s subwords) rows(dst []int64, word string, id int64) []int64 {
	dst = append(dst, id)
	if s.args.maxn <= 0 || s.args.bucket <= 0 {
		return dst
	}
	w := "<" + word + ">"
	for i := 0; i < len(w); i++ {
		if w[i]&0xC0 == 0x80 {
			continue
		}
		j := i
		for n := int32(1); j < len(w) && n <= s.args.maxn; n++ {
			j++
			for j < len(w) && w[j]&0xC0 == 0x80 {
				j++
			}
			if n >= s.args.minn && !(n == 1 && (i == 0 || j == len(w))) {
				dst = s.push(dst, int32(ngramHash(w[i:j])%uint32(s.args.bucket)))
			}
		}
	}
	return dst
}

func (s subwords) push(dst []int64, h int32) []int64 {
	switch {
	case s.pruneSize == 0:
		return dst
	case s.pruneSize > 0:
		v, ok := s.prune[h]
		if !ok {
			return dst
		}
		h = v
	}
	return append(dst, int64(s.nwords)+int64(h))
}

// ngramHash is fastText's FNV-1a variant, which sign-extends each byte.
func ngramHash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(int8(s[i]))
		h *= 16777619
	}
	return h
}

type binReader struct {
	buf []byte
	off int
	err error
}

func (r *binReader) fail() error {
	return fmt.Errorf("%w: %v", ErrArtifactUnavailable, r.err)
}

func (r *binReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.buf)-r.off {
		r.err = fmt.Errorf("truncated model at offset %d", r.off)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *binReader) skip(n int) { r.take(n) }

func (r *binReader) uint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *binReader) int32() int32 {
	if b := r.take(4); b != nil {
		return int32(binary.LittleEndian.Uint32(b))
	}
	return 0
}

func (r *binReader) int64() int64 {
	if b := r.take(8); b != nil {
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

func (r *binReader) cstring() string {
	if r.err != nil {
		return ""
	}
	n := bytes.IndexByte(r.buf[r.off:], 0)
	if n < 0 {
		r.err = fmt.Errorf("unterminated word at offset %d", r.off)
		return ""
	}
	s := string(r.buf[r.off : r.off+n])
	r.off += n + 1
	return s
}
