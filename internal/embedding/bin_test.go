package embedding

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fractal-lba/textaug/internal/randx"
	"github.com/google/go-cmp/cmp"
)

// binModel describes a tiny fastText model for encodeBin.
type binModel struct {
	dim, bucket, minn, maxn int32
	words                   []string
	// rows holds nwords word rows followed by bucket rows.
	rows      [][]float32
	pruneSize int64
	quant     bool
}

func encodeBin(t *testing.T, m binModel) []byte {
	t.Helper()
	var b bytes.Buffer
	put := func(v any) {
		if err := binary.Write(&b, binary.LittleEndian, v); err != nil {
			t.Fatal(err)
		}
	}
	put(int32(binMagic))
	put(int32(binMaxVersion))
	// dim ws epoch minCount neg wordNgrams loss model bucket minn maxn lrUpdateRate t
	put([]int32{m.dim, 5, 5, 5, 5, 1, 2, 1, m.bucket, m.minn, m.maxn, 100})
	put(1e-4)

	put(int32(len(m.words)))
	put(int32(len(m.words)))
	put(int32(0))
	put(int64(1000))
	pruneSize := m.pruneSize
	if pruneSize == 0 && m.maxn > 0 {
		pruneSize = -1
	}
	put(pruneSize)
	for _, w := range m.words {
		b.WriteString(w)
		b.WriteByte(0)
		put(int64(1))
		put(int8(0))
	}

	if m.quant {
		put(uint8(1))
		return b.Bytes()
	}
	put(uint8(0))
	put(int64(len(m.rows)))
	put(int64(m.dim))
	for _, r := range m.rows {
		put(r)
	}
	return b.Bytes()
}

// wordRowsModel has no subwords, so each vector is its own row.
func wordRowsModel() binModel {
	return binModel{
		dim:   2,
		words: []string{binEOS, "cat", "dog", "car", "kitten"},
		rows:  [][]float32{{1, 1}, {1, 0}, {0.9, 0.1}, {0, 1}, {0.8, 0.6}},
	}
}

func TestReadBin_WordRows(t *testing.T) {
	idx, err := ReadBin(encodeBin(t, wordRowsModel()))
	if err != nil {
		t.Fatalf("ReadBin() error: %v", err)
	}
	if idx.Len() != 4 || idx.Dim() != 2 {
		t.Fatalf("Len/Dim = %d/%d, want 4/2", idx.Len(), idx.Dim())
	}
	got, err := idx.Neighbors(context.Background(), "cat", 3)
	if err != nil {
		t.Fatalf("Neighbors() error: %v", err)
	}
	if diff := cmp.Diff([]string{"dog", "kitten", "car"}, neighborWords(got)); diff != "" {
		t.Errorf("Neighbors() mismatch (-want +got):\n%s", diff)
	}
	if _, err := idx.Neighbors(context.Background(), binEOS, 1); !errors.Is(err, ErrOutOfVocabulary) {
		t.Errorf("end-of-sentence token is in the vocabulary")
	}
}

func TestReadBin_SubwordAveraging(t *testing.T) {
	// "<ab>" with minn=1, maxn=3 yields <a <ab a ab ab> b b>; one bucket
	// collects them all.
	m := binModel{
		dim: 2, bucket: 1, minn: 1, maxn: 3,
		words: []string{"ab"},
		rows:  [][]float32{{1, 0}, {0, 1}},
	}
	sub := subwords{args: binArgs{dim: m.dim, bucket: m.bucket, minn: m.minn, maxn: m.maxn}, nwords: 1, pruneSize: -1}
	if got := sub.rows(nil, "ab", 0); len(got) != 8 {
		t.Fatalf("rows(ab) = %v, want the word row and 7 n-gram rows", got)
	}

	idx, err := ReadBin(encodeBin(t, m))
	if err != nil {
		t.Fatalf("ReadBin() error: %v", err)
	}
	want := []float32{1, 7}
	normalize(want)
	got := idx.vectors[idx.lookup["ab"]]
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Fatalf("vector = %v, want %v", got, want)
		}
	}

	pruned := m
	pruned.pruneSize = 0
	pruned.maxn = 0
	idx, err = ReadBin(encodeBin(t, pruned))
	if err != nil {
		t.Fatalf("ReadBin(pruned) error: %v", err)
	}
	if got := idx.vectors[0]; got[0] != 1 || got[1] != 0 {
		t.Errorf("vector without subwords = %v, want the word row", got)
	}
}

func TestNgramHash(t *testing.T) {
	if got := ngramHash("a"); got != 0xe40c292c {
		t.Errorf("ngramHash(a) = %#x, want 0xe40c292c", got)
	}
	// Bytes >= 0x80 are sign-extended before mixing.
	if ngramHash("ä") == fnv1a("ä") {
		t.Error("ngramHash(ä) matches unsigned FNV-1a")
	}
}

func fnv1a(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}

func TestReadBin_Errors(t *testing.T) {
	good := encodeBin(t, wordRowsModel())
	quant := wordRowsModel()
	quant.quant = true
	badMagic := append([]byte(nil), good...)
	badMagic[0] ^= 0xff

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", badMagic},
		{"quantized", encodeBin(t, quant)},
		{"truncated matrix", good[:len(good)-4]},
		{"truncated dictionary", good[:70]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadBin(tt.data); !errors.Is(err, ErrArtifactUnavailable) {
				t.Errorf("ReadBin() error = %v, want ErrArtifactUnavailable", err)
			}
		})
	}
}

func TestLoad_ChoosesParserByExtension(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(bin, encodeBin(t, wordRowsModel()), 0o600); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{bin, writeVec(t, "a.vec", testVec)} {
		idx, err := Load(path)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", filepath.Base(path), err)
		}
		if idx.Len() != 4 {
			t.Errorf("Load(%s).Len() = %d, want 4", filepath.Base(path), idx.Len())
		}
	}
	if _, err := LoadBin(writeVec(t, "empty.bin", "")); !errors.Is(err, ErrArtifactUnavailable) {
		t.Errorf("LoadBin(empty) error = %v, want ErrArtifactUnavailable", err)
	}
}

// newHub serves one file from repo at a fixed commit, the way the hub's
// resolve API does.
func newHub(t *testing.T, repo, file string, content []byte) *httptest.Server {
	t.Helper()
	const sha = "0123456789abcdef"
	mux := http.NewServeMux()
	mux.HandleFunc("/api/models/"+repo+"/revision/main", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"id":%q,"sha":%q}`, repo, sha)
	})
	mux.HandleFunc("/"+repo+"/resolve/"+sha+"/"+file, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("ETag", `"blob-`+file+`"`)
		w.Write(content)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestResolveArtifact_HubDefaultModel(t *testing.T) {
	srv := newHub(t, "facebook/fasttext-xx-vectors", DefaultHubFile, encodeBin(t, wordRowsModel()))

	src, err := Open(context.Background(), OpenOptions{
		Artifact: ArtifactOptions{
			Language:    "xx",
			HubEndpoint: srv.URL,
			CacheDir:    t.TempDir(),
		},
	}, randx.New(1), nil)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	got, err := src.Candidates(context.Background(), "cat")
	if err != nil {
		t.Fatalf("Candidates() error: %v", err)
	}
	if diff := cmp.Diff([]string{"dog", "kitten"}, got); diff != "" {
		t.Errorf("Candidates() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveArtifact_HubMissingFile(t *testing.T) {
	srv := newHub(t, "facebook/fasttext-xx-vectors", DefaultHubFile, nil)
	_, err := ResolveArtifact(context.Background(), ArtifactOptions{
		Language:    "xx",
		HubFile:     "vectors.vec.gz",
		HubEndpoint: srv.URL,
		CacheDir:    t.TempDir(),
	}, randx.New(1), nil)
	if !errors.Is(err, ErrArtifactUnavailable) {
		t.Errorf("error = %v, want ErrArtifactUnavailable", err)
	}
	if err != nil && !strings.Contains(err.Error(), "vectors.vec.gz") {
		t.Errorf("error %q does not name the file", err)
	}
}
