package augment

import (
	"context"
	"fmt"
	"time"

	"github.com/fractal-lba/textaug/internal/config"
	"github.com/fractal-lba/textaug/internal/embedding"
	"github.com/fractal-lba/textaug/internal/linguistic"
	"github.com/fractal-lba/textaug/internal/mlm"
	"github.com/fractal-lba/textaug/internal/remote"
	"github.com/fractal-lba/textaug/internal/translate"
	"gopkg.in/yaml.v3"
)

// Strategy names understood by DefaultRegistry.
const (
	StrategyEmbedding       = "embedding"
	StrategyBackTranslation = "backtranslation"
	StrategyContextual      = "contextual"
)

// ProseModel selects the built-in tagger for pos_model.
const ProseModel = "prose"

// Factory builds a strategy from its configuration entry.
type Factory func(ctx context.Context, entry config.Entry, deps Deps) (Strategy, error)

// Registry maps configuration keys to factories.
type Registry map[string]Factory

// DefaultRegistry returns the built-in strategies.
func DefaultRegistry() Registry {
	return Registry{
		StrategyEmbedding:       newEmbeddingStrategy,
		StrategyBackTranslation: newBackTranslationStrategy,
		StrategyContextual:      newContextualStrategy,
	}
}

// Build constructs the strategy named by entry.
func (r Registry) Build(ctx context.Context, entry config.Entry, deps Deps) (Strategy, error) {
	f, ok := r[entry.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, entry.Name)
	}
	s, err := f(ctx, entry, deps.withDefaults())
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", entry.Name, err)
	}
	return s, nil
}

// Paths accepts either a single string or a list of strings.
type Paths []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (p *Paths) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		if s != "" {
			*p = Paths{s}
		}
		return nil
	case yaml.SequenceNode:
		var ss []string
		if err := node.Decode(&ss); err != nil {
			return err
		}
		*p = ss
		return nil
	}
	return fmt.Errorf("line %d: embedding_path must be a string or a list", node.Line)
}

// EmbeddingParams configures the static-embedding word-level strategy.
type EmbeddingParams struct {
	NrAugPerSent int `yaml:"nr_aug_per_sent"`

	// POSModel is ProseModel or the model name served at POSEndpoint.
	POSModel    string  `yaml:"pos_model"`
	POSEndpoint string  `yaml:"pos_endpoint"`
	POSRPS      float64 `yaml:"pos_rps"`

	EmbeddingPath  Paths    `yaml:"embedding_path"`
	BaseEmbedding  string   `yaml:"base_embedding"`
	ScoreThreshold *float64 `yaml:"score_threshold"`
	Neighbors      int      `yaml:"nr_neighbors"`
	FromLocal      *bool    `yaml:"from_local"`
	Language       string   `yaml:"language"`
	HubRepo        string   `yaml:"hub_repo"`
	HubFile        string   `yaml:"hub_file"`
	HubEndpoint    string   `yaml:"hub_endpoint"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	RedisPrefix   string `yaml:"redis_prefix"`

	SwapProportion float64  `yaml:"swap_proportion"`
	AllowedPOS     []string `yaml:"allowed_pos"`
	Equivalence    string   `yaml:"equivalence"`
	StemLanguage   string   `yaml:"stem_language"`
}

// BackTranslationParams configures round-trip translation.
type BackTranslationParams struct {
	NrAugPerSent int `yaml:"nr_aug_per_sent"`

	OriMidModelPath   string `yaml:"ori_mid_model_path"`
	OriMidCheckpoints string `yaml:"ori_mid_checkpoints"`
	MidOriModelPath   string `yaml:"mid_ori_model_path"`
	MidOriCheckpoints string `yaml:"mid_ori_checkpoints"`
	PrintMidText      bool   `yaml:"print_mid_text"`
	FromLocal         *bool  `yaml:"from_local"`

	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	RPS      float64       `yaml:"rps"`
}

// ContextualParams configures the masked-LM strategy.
type ContextualParams struct {
	NrAugPerSent int `yaml:"nr_aug_per_sent"`

	LocalModelPath string `yaml:"local_model_path"`
	Model          string `yaml:"model"`
	FromLocal      *bool  `yaml:"from_local"`
	NrCandidates   int    `yaml:"nr_candidates"`

	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
	RPS      float64       `yaml:"rps"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParam, name)
}

func newEmbeddingStrategy(ctx context.Context, entry config.Entry, deps Deps) (Strategy, error) {
	var p EmbeddingParams
	if err := entry.Decode(&p); err != nil {
		return nil, err
	}
	if p.POSModel == "" {
		return nil, missing("pos_model")
	}
	if p.POSModel != ProseModel && p.POSEndpoint == "" {
		return nil, missing("pos_endpoint")
	}
	if p.BaseEmbedding == "" {
		p.BaseEmbedding = embedding.BackendFastText
	}
	if p.BaseEmbedding == embedding.BackendRedis && p.RedisAddr == "" {
		return nil, missing("redis_addr")
	}
	if p.Language == "" {
		p.Language = "de"
	}

	var tagger linguistic.Tagger
	if p.POSModel == ProseModel {
		tagger = linguistic.NewProseTagger()
	} else {
		rc, err := remote.New(remote.Options{BaseURL: p.POSEndpoint, RPS: p.POSRPS, Model: p.POSModel})
		if err != nil {
			return nil, err
		}
		if err := rc.Health(ctx); err != nil {
			return nil, fmt.Errorf("tagging service: %w", err)
		}
		tagger = linguistic.NewHTTPTagger(rc)
	}
	analyzer, err := linguistic.NewAnalyzer(tagger, linguistic.Options{
		Equivalence: linguistic.Equivalence(p.Equivalence),
		Language:    p.StemLanguage,
		Logger:      deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	source, err := embedding.Open(ctx, embedding.OpenOptions{
		Backend: p.BaseEmbedding,
		Artifact: embedding.ArtifactOptions{
			Paths:       p.EmbeddingPath,
			FromLocal:   boolOr(p.FromLocal, true),
			Language:    p.Language,
			HubRepo:     p.HubRepo,
			HubFile:     p.HubFile,
			HubEndpoint: p.HubEndpoint,
			HubToken:    deps.HubToken,
			CacheDir:    deps.CacheDir,
		},
		RedisAddr: p.RedisAddr,
		RedisPass: p.RedisPassword,
		RedisDB:   p.RedisDB,
		RedisKey:  p.RedisPrefix,
		Threshold: p.ScoreThreshold,
		K:         p.Neighbors,
	}, deps.Rng, deps.Logger)
	if err != nil {
		return nil, err
	}

	var allowed linguistic.POSSet
	if len(p.AllowedPOS) > 0 {
		allowed = linguistic.NewPOSSet(p.AllowedPOS...)
	}
	return NewWordLevel(entry.Name, analyzer, source, WordLevelOptions{
		SwapProportion: p.SwapProportion,
		Allowed:        allowed,
	}, deps), nil
}

func newBackTranslationStrategy(ctx context.Context, entry config.Entry, deps Deps) (Strategy, error) {
	var p BackTranslationParams
	if err := entry.Decode(&p); err != nil {
		return nil, err
	}
	switch {
	case p.OriMidModelPath == "":
		return nil, missing("ori_mid_model_path")
	case p.MidOriModelPath == "":
		return nil, missing("mid_ori_model_path")
	case p.Endpoint == "":
		return nil, missing("endpoint")
	}

	fromLocal := boolOr(p.FromLocal, true)
	toPivot, err := translate.Load(ctx, translate.Options{
		ModelPath:   p.OriMidModelPath,
		Checkpoints: p.OriMidCheckpoints,
		FromLocal:   fromLocal,
		Endpoint:    p.Endpoint,
		Timeout:     p.Timeout,
		RPS:         p.RPS,
	})
	if err != nil {
		return nil, err
	}
	fromPivot, err := translate.Load(ctx, translate.Options{
		ModelPath:   p.MidOriModelPath,
		Checkpoints: p.MidOriCheckpoints,
		FromLocal:   fromLocal,
		Endpoint:    p.Endpoint,
		Timeout:     p.Timeout,
		RPS:         p.RPS,
	})
	if err != nil {
		return nil, err
	}
	deps.Logger.Info("back translation ready", "to_pivot", toPivot.Model(), "from_pivot", fromPivot.Model())
	return NewBackTranslation(entry.Name, toPivot, fromPivot, p.PrintMidText, deps), nil
}

func newContextualStrategy(ctx context.Context, entry config.Entry, deps Deps) (Strategy, error) {
	var p ContextualParams
	if err := entry.Decode(&p); err != nil {
		return nil, err
	}
	if p.Model == "" {
		p.Model = mlm.DefaultModel
	}
	fromLocal := boolOr(p.FromLocal, true)
	if fromLocal && p.LocalModelPath == "" {
		return nil, missing("local_model_path")
	}
	if p.Endpoint == "" {
		return nil, missing("endpoint")
	}

	model := p.Model
	if fromLocal {
		model = p.LocalModelPath
	}
	tok, err := mlm.LoadTokenizer(model, fromLocal, deps.HubToken)
	if err != nil {
		return nil, err
	}
	rc, err := remote.New(remote.Options{BaseURL: p.Endpoint, Timeout: p.Timeout, RPS: p.RPS, Model: model})
	if err != nil {
		return nil, err
	}
	if err := rc.Health(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", mlm.ErrModelUnavailable, err)
	}
	return NewContextualMask(entry.Name, tok, mlm.NewHTTPScorer(rc), p.NrCandidates, deps)
}
