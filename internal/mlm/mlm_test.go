package mlm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fractal-lba/textaug/internal/remote"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/google/go-cmp/cmp"
)

type fakeTokenizer struct {
	specials map[api.SpecialToken]int
}

func (f fakeTokenizer) Encode(string) []int { return nil }
func (f fakeTokenizer) Decode([]int) string { return "" }
func (f fakeTokenizer) SpecialTokenID(t api.SpecialToken) (int, error) {
	if id, ok := f.specials[t]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("no special token %d", t)
}

func bertLike() fakeTokenizer {
	return fakeTokenizer{specials: map[api.SpecialToken]int{
		api.TokClassification: 101,
		api.TokEndOfSentence:  102,
		api.TokMask:           103,
		api.TokPad:            0,
	}}
}

func TestTopK(t *testing.T) {
	scores := []float32{0.1, 0.9, 0.3, 0.9, -1}
	if diff := cmp.Diff([]int{1, 3, 2}, TopK(scores, 3)); diff != "" {
		t.Errorf("TopK() mismatch (-want +got):\n%s", diff)
	}
	if got := TopK(scores, 10); len(got) != len(scores) {
		t.Errorf("len(TopK(k>n)) = %d, want %d", len(got), len(scores))
	}
	if got := TopK(scores, 0); got != nil {
		t.Errorf("TopK(k=0) = %v, want nil", got)
	}
}

func TestSpecials(t *testing.T) {
	s, err := SpecialsOf(bertLike())
	if err != nil {
		t.Fatalf("SpecialsOf() error: %v", err)
	}
	if s.Mask != 103 || s.Begin != 101 || s.End != 102 {
		t.Errorf("Specials = %+v", s)
	}

	if diff := cmp.Diff([]int{101, 7, 8, 102}, s.WithBoundaries([]int{7, 8})); diff != "" {
		t.Errorf("WithBoundaries() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{101, 7, 102}, s.WithBoundaries([]int{101, 7, 102})); diff != "" {
		t.Errorf("WithBoundaries() on bounded input mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{7, 8}, s.StripSpecial([]int{101, 7, 103, 8, 102, 0})); diff != "" {
		t.Errorf("StripSpecial() mismatch (-want +got):\n%s", diff)
	}
}

func TestSpecials_NoMask(t *testing.T) {
	_, err := SpecialsOf(fakeTokenizer{specials: map[api.SpecialToken]int{}})
	if !errors.Is(err, ErrNoMaskToken) {
		t.Errorf("SpecialsOf() error = %v, want ErrNoMaskToken", err)
	}
}

func TestHTTPScorer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req fillRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != DefaultModel || req.Position != 2 || req.InputIDs[2] != 103 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(fillResponse{Scores: []float32{0, 1, 2}})
	}))
	defer srv.Close()

	rc, _ := remote.New(remote.Options{BaseURL: srv.URL, Model: DefaultModel})
	scores, err := NewHTTPScorer(rc).Scores(context.Background(), []int{101, 5, 103, 102}, 2)
	if err != nil {
		t.Fatalf("Scores() error: %v", err)
	}
	if len(scores) != 3 {
		t.Errorf("len(scores) = %d, want 3", len(scores))
	}
}

func TestLoadTokenizer_MissingLocal(t *testing.T) {
	if _, err := LoadTokenizer(t.TempDir(), true, ""); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("LoadTokenizer() error = %v, want ErrModelUnavailable", err)
	}
}
