// Package augment implements the rewriting strategies, the dispatcher that
// picks among them, and the batch driver that runs them over datasets.
package augment

import (
	"context"
	"errors"
	"log/slog"

	"github.com/fractal-lba/textaug/internal/metrics"
	"github.com/fractal-lba/textaug/internal/randx"
)

var (
	// ErrUnknownStrategy is returned for configuration keys with no registered factory.
	ErrUnknownStrategy = errors.New("augment: unknown strategy")
	// ErrWeightMismatch is returned when weights and strategies differ in number.
	ErrWeightMismatch = errors.New("augment: weights do not match strategies")
	// ErrMissingParam is returned when a required construction parameter is absent.
	ErrMissingParam = errors.New("augment: missing required parameter")
)

// Strategy rewrites one sentence into a paraphrased variant.
type Strategy interface {
	Generate(ctx context.Context, sentence string) (string, error)
	Name() string
}

// Deps are the process-wide collaborators handed to every strategy.
type Deps struct {
	// Rng is the single random source shared by all strategies.
	Rng     *randx.Source
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	// HubToken authenticates HuggingFace hub downloads.
	HubToken string
	// CacheDir receives downloaded artefacts.
	CacheDir string
}

func (d Deps) withDefaults() Deps {
	if d.Rng == nil {
		d.Rng = randx.NewFromClock()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}
