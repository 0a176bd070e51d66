package augment

import (
	"context"
	"fmt"

	"github.com/fractal-lba/textaug/internal/translate"
)

// BackTranslation paraphrases by translating into a pivot language and back.
type BackTranslation struct {
	name      string
	toPivot   translate.Translator
	fromPivot translate.Translator
	logPivot  bool
	deps      Deps
}

// NewBackTranslation builds a round-trip strategy from two translation directions.
func NewBackTranslation(name string, toPivot, fromPivot translate.Translator, logPivot bool, deps Deps) *BackTranslation {
	return &BackTranslation{
		name:      name,
		toPivot:   toPivot,
		fromPivot: fromPivot,
		logPivot:  logPivot,
		deps:      deps.withDefaults(),
	}
}

// Name implements Strategy.
func (b *BackTranslation) Name() string { return b.name }

// Generate implements Strategy. Translation failures are returned to the
// caller; batch loops skip them.
func (b *BackTranslation) Generate(ctx context.Context, sentence string) (string, error) {
	pivot, err := b.toPivot.Translate(ctx, sentence)
	if err != nil {
		return "", fmt.Errorf("translate to pivot: %w", err)
	}
	if b.logPivot {
		b.deps.Logger.Info("pivot text", "strategy", b.name, "text", pivot)
	}
	out, err := b.fromPivot.Translate(ctx, pivot)
	if err != nil {
		return "", fmt.Errorf("translate from pivot: %w", err)
	}
	return out, nil
}
