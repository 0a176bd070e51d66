package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type wordParams struct {
	PosModel       string   `yaml:"pos_model"`
	EmbeddingPath  []string `yaml:"embedding_path"`
	SwapProportion float64  `yaml:"swap_proportion"`
}

const sample = `
embedding:
  pos_model: prose
  embedding_path: [a.vec, b.vec]
  swap_proportion: 0.3
backtranslation:
  ori_mid_model_path: transformer.wmt19.de-en
contextual:
`

func TestParse_PreservesOrder(t *testing.T) {
	cfg, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff([]string{"embedding", "backtranslation", "contextual"}, cfg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}

	var p wordParams
	if err := cfg.Entries()[0].Decode(&p); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	want := wordParams{PosModel: "prose", EmbeddingPath: []string{"a.vec", "b.vec"}, SwapProportion: 0.3}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Decode() mismatch (-want +got):\n%s", diff)
	}

	var empty wordParams
	if err := cfg.Entries()[2].Decode(&empty); err != nil {
		t.Errorf("Decode(null params) error: %v", err)
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	cfg, err := Parse([]byte("embedding:\n  pos_modle: prose\n"))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	var p wordParams
	if err := cfg.Entries()[0].Decode(&p); err == nil {
		t.Error("Decode() should reject a misspelled key")
	}
}

func TestParse_JSON(t *testing.T) {
	cfg, err := Parse([]byte(`{"contextual": {"nr_candidates": 3}, "embedding": {}}`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if diff := cmp.Diff([]string{"contextual", "embedding"}, cfg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"list at top":    "- embedding\n",
		"scalar params":  "embedding: 3\n",
		"duplicate":      "embedding: {}\nembedding: {}\n",
		"empty mapping":  "{}\n",
		"malformed yaml": "embedding: [\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(doc)); err == nil {
				t.Errorf("Parse(%q) should fail", doc)
			}
		})
	}
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap([]string{"b", "a"}, map[string]map[string]any{
		"a": {"pos_model": "prose"},
		"b": {"swap_proportion": 0.5},
	})
	if err != nil {
		t.Fatalf("FromMap() error: %v", err)
	}
	if diff := cmp.Diff([]string{"b", "a"}, cfg.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
	var p wordParams
	if err := cfg.Entries()[0].Decode(&p); err != nil || p.SwapProportion != 0.5 {
		t.Errorf("Decode() = %+v, %v", p, err)
	}

	if _, err := FromMap([]string{"x"}, map[string]map[string]any{"y": {}}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("FromMap(mismatch) error = %v, want ErrInvalidConfig", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aug.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Len() != 3 {
		t.Errorf("Len() = %d, want 3", cfg.Len())
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) should fail")
	}
}
