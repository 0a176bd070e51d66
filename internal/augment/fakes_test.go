package augment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fractal-lba/textaug/internal/linguistic"
	"github.com/gomlx/go-huggingface/tokenizers/api"
)

var errFake = errors.New("fake failure")

// posTagger splits on whitespace and looks tags up in a lexicon; unknown
// words are tagged X.
type posTagger struct {
	lexicon map[string]string
	fail    bool
}

func (p posTagger) Tag(_ context.Context, sentence string) ([]linguistic.Token, error) {
	if p.fail {
		return nil, errFake
	}
	var out []linguistic.Token
	for _, w := range strings.Fields(sentence) {
		pos, ok := p.lexicon[w]
		if !ok {
			pos = linguistic.POSOther
		}
		out = append(out, linguistic.Token{Text: w, POS: pos})
	}
	return out, nil
}

func newAnalyzer(lexicon map[string]string) *linguistic.Analyzer {
	a, err := linguistic.NewAnalyzer(posTagger{lexicon: lexicon}, linguistic.Options{})
	if err != nil {
		panic(err)
	}
	return a
}

// mapSource serves fixed candidate lists and counts lookups.
type mapSource struct {
	cands map[string][]string
	fail  map[string]bool
	calls atomic.Int64
}

func (m *mapSource) Candidates(_ context.Context, word string) ([]string, error) {
	m.calls.Add(1)
	if m.fail[word] {
		return nil, fmt.Errorf("%w: %s", errFake, word)
	}
	return m.cands[word], nil
}

// stubStrategy returns prefix+sentence, or errFake every failEvery-th call.
type stubStrategy struct {
	name      string
	prefix    string
	failEvery int
	calls     int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Generate(_ context.Context, sentence string) (string, error) {
	s.calls++
	if s.failEvery > 0 && s.calls%s.failEvery == 0 {
		return "", errFake
	}
	return s.prefix + sentence, nil
}

type mapTranslator struct {
	table map[string]string
}

func (m mapTranslator) Translate(_ context.Context, text string) (string, error) {
	out, ok := m.table[text]
	if !ok {
		return "", errFake
	}
	return out, nil
}

// wordTokenizer maps whitespace-separated words to ids; ids 0-3 are specials.
type wordTokenizer struct {
	vocab []string
	ids   map[string]int
	mask  bool
}

const (
	padID = iota
	clsID
	sepID
	maskID
)

func newWordTokenizer(words ...string) *wordTokenizer {
	t := &wordTokenizer{vocab: []string{"[PAD]", "[CLS]", "[SEP]", "[MASK]"}, ids: map[string]int{}, mask: true}
	for _, w := range words {
		t.ids[w] = len(t.vocab)
		t.vocab = append(t.vocab, w)
	}
	return t
}

func (t *wordTokenizer) Encode(text string) []int {
	var out []int
	for _, w := range strings.Fields(text) {
		id, ok := t.ids[w]
		if !ok {
			t.ids[w] = len(t.vocab)
			t.vocab = append(t.vocab, w)
			id = t.ids[w]
		}
		out = append(out, id)
	}
	return out
}

func (t *wordTokenizer) Decode(ids []int) string {
	words := make([]string, len(ids))
	for i, id := range ids {
		words[i] = t.vocab[id]
	}
	return strings.Join(words, " ")
}

func (t *wordTokenizer) SpecialTokenID(st api.SpecialToken) (int, error) {
	switch st {
	case api.TokClassification:
		return clsID, nil
	case api.TokEndOfSentence:
		return sepID, nil
	case api.TokPad:
		return padID, nil
	case api.TokMask:
		if t.mask {
			return maskID, nil
		}
	}
	return 0, fmt.Errorf("no special token %d", st)
}

// favouriteScorer gives the highest score to one id and records calls.
type favouriteScorer struct {
	size    int
	best    int
	fail    bool
	empty   bool
	calls   int
	lastPos int
	lastIDs []int
}

func (f *favouriteScorer) Scores(_ context.Context, ids []int, pos int) ([]float32, error) {
	f.calls++
	f.lastPos = pos
	f.lastIDs = append([]int(nil), ids...)
	if f.fail {
		return nil, errFake
	}
	if f.empty {
		return []float32{}, nil
	}
	scores := make([]float32, f.size)
	scores[f.best] = 10
	return scores, nil
}
