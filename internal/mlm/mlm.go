// Package mlm provides the masked-language-model capability: a HuggingFace
// tokenizer plus a scorer returning vocabulary scores at a masked position.
package mlm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/fractal-lba/textaug/internal/remote"
	"github.com/gomlx/go-huggingface/hub"
	"github.com/gomlx/go-huggingface/tokenizers/api"
	"github.com/gomlx/go-huggingface/tokenizers/hftokenizer"
)

// DefaultModel is the pretrained model used when none is configured.
const DefaultModel = "bert-base-german-cased"

// TokenizerFile is the tokenizer definition looked up locally or on the hub.
const TokenizerFile = "tokenizer.json"

var (
	// ErrModelUnavailable is returned when the tokenizer or model cannot be loaded.
	ErrModelUnavailable = errors.New("mlm: model unavailable")
	// ErrNoMaskToken is returned for tokenizers without a mask token.
	ErrNoMaskToken = errors.New("mlm: tokenizer has no mask token")
)

// Tokenizer converts text to token ids and back.
type Tokenizer = api.Tokenizer

// Scorer is the masked-LM inference capability: given token ids with a mask at
// pos, it returns one score per vocabulary entry for that position.
type Scorer interface {
	Scores(ctx context.Context, ids []int, pos int) ([]float32, error)
}

// LoadTokenizer reads tokenizer.json from the local model directory, or
// downloads it from the HuggingFace hub when fromLocal is false.
func LoadTokenizer(model string, fromLocal bool, hubToken string) (Tokenizer, error) {
	var path string
	if fromLocal {
		path = filepath.Join(model, TokenizerFile)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
	} else {
		repo := hub.New(model)
		if hubToken != "" {
			repo = repo.WithAuth(hubToken)
		}
		p, err := repo.DownloadFile(TokenizerFile)
		if err != nil {
			return nil, fmt.Errorf("%w: hub %s: %v", ErrModelUnavailable, model, err)
		}
		path = p
	}

	tok, err := hftokenizer.NewFromFile(&api.Config{
		ClsToken: "[CLS]",
		SepToken: "[SEP]",
		PadToken: "[PAD]",
		UnkToken: "[UNK]",
	}, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}
	return tok, nil
}

// Specials holds the ids of the special tokens the mask strategy cares about.
type Specials struct {
	Mask  int
	Begin int // -1 when the tokenizer has none
	End   int // -1 when the tokenizer has none
	skip  map[int]bool
}

// SpecialsOf resolves the special token ids of tok. A mask token is required.
func SpecialsOf(tok Tokenizer) (Specials, error) {
	mask, err := tok.SpecialTokenID(api.TokMask)
	if err != nil {
		return Specials{}, fmt.Errorf("%w: %v", ErrNoMaskToken, err)
	}

	s := Specials{Mask: mask, Begin: -1, End: -1, skip: map[int]bool{mask: true}}
	if id, err := tok.SpecialTokenID(api.TokClassification); err == nil {
		s.Begin = id
	} else if id, err := tok.SpecialTokenID(api.TokBeginningOfSentence); err == nil {
		s.Begin = id
	}
	if id, err := tok.SpecialTokenID(api.TokEndOfSentence); err == nil {
		s.End = id
	}
	for _, st := range []api.SpecialToken{api.TokClassification, api.TokBeginningOfSentence, api.TokEndOfSentence, api.TokPad} {
		if id, err := tok.SpecialTokenID(st); err == nil {
			s.skip[id] = true
		}
	}
	return s, nil
}

// IsSpecial reports whether id is dropped on decoding.
func (s Specials) IsSpecial(id int) bool { return s.skip[id] }

// WithBoundaries makes sure ids start and end with the boundary tokens, the
// way a model expects its input.
func (s Specials) WithBoundaries(ids []int) []int {
	out := make([]int, 0, len(ids)+2)
	if s.Begin >= 0 && (len(ids) == 0 || ids[0] != s.Begin) {
		out = append(out, s.Begin)
	}
	out = append(out, ids...)
	if s.End >= 0 && (len(out) == 0 || out[len(out)-1] != s.End) {
		out = append(out, s.End)
	}
	return out
}

// StripSpecial drops special tokens, as decoding with skip-special-tokens does.
func (s Specials) StripSpecial(ids []int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if !s.skip[id] {
			out = append(out, id)
		}
	}
	return out
}

// TopK returns the indices of the k highest scores, best first. Ties keep the
// lower index first.
func TopK(scores []float32, k int) []int {
	if k > len(scores) {
		k = len(scores)
	}
	if k <= 0 {
		return nil
	}
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return scores[idx[a]] > scores[idx[b]] })
	return idx[:k]
}

// HTTPScorer runs inference on a model server.
//
// Request:  POST /fill {"model", "input_ids", "position"}
// Response: {"scores": [...]} with one entry per vocabulary id
type HTTPScorer struct {
	rc *remote.Client
}

// NewHTTPScorer returns a scorer bound to the client's model.
func NewHTTPScorer(rc *remote.Client) *HTTPScorer {
	return &HTTPScorer{rc: rc}
}

type fillRequest struct {
	Model    string `json:"model"`
	InputIDs []int  `json:"input_ids"`
	Position int    `json:"position"`
}

type fillResponse struct {
	Scores []float32 `json:"scores"`
}

// Scores implements Scorer.
func (h *HTTPScorer) Scores(ctx context.Context, ids []int, pos int) ([]float32, error) {
	var resp fillResponse
	if err := h.rc.PostJSON(ctx, "/fill", fillRequest{Model: h.rc.Model(), InputIDs: ids, Position: pos}, &resp); err != nil {
		return nil, fmt.Errorf("masked fill failed: %w", err)
	}
	if len(resp.Scores) == 0 {
		return nil, fmt.Errorf("masked fill returned no scores")
	}
	return resp.Scores, nil
}
