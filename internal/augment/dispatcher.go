package augment

import (
	"context"
	"fmt"
	"time"

	"github.com/fractal-lba/textaug/internal/config"
	"github.com/fractal-lba/textaug/internal/randx"
	augotel "github.com/fractal-lba/textaug/pkg/otel"
)

// DefaultProbability is the chance that a dispatcher call augments at all.
const DefaultProbability = 0.8

// Dispatcher picks one configured strategy per call, at random and by weight,
// and passes the input through untouched with probability 1-prob.
type Dispatcher struct {
	names      []string
	strategies map[string]Strategy
	weights    []float64
	prob       float64
	deps       Deps
}

// NewDispatcher eagerly builds every strategy in cfg through reg. weights are
// aligned with cfg's document order; nil means uniform.
func NewDispatcher(ctx context.Context, cfg *config.AugmentationConfig, reg Registry, weights []float64, prob float64, deps Deps) (*Dispatcher, error) {
	deps = deps.withDefaults()
	if weights != nil && len(weights) != cfg.Len() {
		return nil, fmt.Errorf("%w: %d weights for %d strategies", ErrWeightMismatch, len(weights), cfg.Len())
	}

	strategies := make([]Strategy, 0, cfg.Len())
	for _, entry := range cfg.Entries() {
		s, err := reg.Build(ctx, entry, deps)
		if err != nil {
			return nil, err
		}
		deps.Logger.Info("strategy ready", "strategy", entry.Name)
		strategies = append(strategies, s)
	}
	return NewDispatcherFromStrategies(strategies, weights, prob, deps)
}

// NewDispatcherFromStrategies builds a dispatcher over already constructed
// strategies.
func NewDispatcherFromStrategies(strategies []Strategy, weights []float64, prob float64, deps Deps) (*Dispatcher, error) {
	deps = deps.withDefaults()
	if len(strategies) == 0 {
		return nil, fmt.Errorf("%w: no strategies configured", ErrUnknownStrategy)
	}
	if weights == nil {
		weights = make([]float64, len(strategies))
		for i := range weights {
			weights[i] = 1 / float64(len(strategies))
		}
	}
	if len(weights) != len(strategies) {
		return nil, fmt.Errorf("%w: %d weights for %d strategies", ErrWeightMismatch, len(weights), len(strategies))
	}
	total := 0.0
	for _, w := range weights {
		if w < 0 {
			return nil, fmt.Errorf("%w: negative weight %v", ErrWeightMismatch, w)
		}
		total += w
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: %v", ErrWeightMismatch, randx.ErrNoWeight)
	}
	if prob < 0 || prob > 1 {
		return nil, fmt.Errorf("augment: probability %v outside [0, 1]", prob)
	}

	d := &Dispatcher{
		strategies: make(map[string]Strategy, len(strategies)),
		weights:    append([]float64(nil), weights...),
		prob:       prob,
		deps:       deps,
	}
	for _, s := range strategies {
		if _, dup := d.strategies[s.Name()]; dup {
			return nil, fmt.Errorf("augment: strategy %q configured twice", s.Name())
		}
		d.names = append(d.names, s.Name())
		d.strategies[s.Name()] = s
	}
	return d, nil
}

// Name implements Strategy.
func (d *Dispatcher) Name() string { return "dispatcher" }

// Names returns the strategy names in weight order.
func (d *Dispatcher) Names() []string { return append([]string(nil), d.names...) }

// Generate implements Strategy. On a strategy error the input sentence is
// returned alongside the wrapped error.
func (d *Dispatcher) Generate(ctx context.Context, sentence string) (string, error) {
	ctx, span := augotel.StartSpan(ctx, "augment.Generate", augotel.AttrInputLen.Int(len(sentence)))
	defer span.End()

	// Float64 is in [0, 1), so prob 0 always passes through and prob 1 never does.
	if d.deps.Rng.Float64() >= d.prob {
		span.SetAttributes(augotel.AttrPassThru.Bool(true))
		d.deps.Metrics.ObservePassThrough()
		return sentence, nil
	}

	i, err := randx.Weighted(d.deps.Rng.Rand, d.weights)
	if err != nil {
		augotel.RecordError(span, err)
		return sentence, err
	}
	name := d.names[i]
	d.deps.Logger.Info("selected augmentation method", "strategy", name)
	span.SetAttributes(augotel.AttrStrategy.String(name), augotel.AttrPassThru.Bool(false))

	start := time.Now()
	out, err := d.strategies[name].Generate(ctx, sentence)
	if err != nil {
		augotel.RecordError(span, err)
		d.deps.Metrics.ObserveFailure(name)
		return sentence, fmt.Errorf("%s: %w", name, err)
	}
	d.deps.Metrics.ObserveAugmented(name, time.Since(start).Seconds())
	return out, nil
}
