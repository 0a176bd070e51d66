package augment

import (
	"context"

	"github.com/fractal-lba/textaug/internal/dataset"
)

// AugmentedRecord is one generated row of an augmented dataset.
type AugmentedRecord = dataset.AugmentedRecord

// GenerateMany calls s n times and always returns n results. A failed attempt
// contributes the unmodified input.
func GenerateMany(ctx context.Context, s Strategy, sentence string, n int) []string {
	if n <= 0 {
		return []string{}
	}
	out := make([]string, 0, n)
	for range n {
		v, err := s.Generate(ctx, sentence)
		if err != nil {
			v = sentence
		}
		out = append(out, v)
	}
	return out
}

// GenerateAll runs GenerateMany over every sentence and concatenates the
// results in input order.
func GenerateAll(ctx context.Context, s Strategy, sentences []string, n int) []string {
	out := make([]string, 0, len(sentences)*max(n, 0))
	for _, sentence := range sentences {
		out = append(out, GenerateMany(ctx, s, sentence, n)...)
	}
	return out
}

// AugmentDataset attempts n rewrites of every record. Failed attempts are
// skipped, so a record contributes at most n rows. Original records are never
// part of the output.
func AugmentDataset(ctx context.Context, s Strategy, records []dataset.Record, n int, deps Deps) ([]AugmentedRecord, error) {
	deps = deps.withDefaults()
	out := make([]AugmentedRecord, 0, len(records)*max(n, 0))
	skipped := 0
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		for range n {
			v, err := s.Generate(ctx, rec.Text)
			if err != nil {
				skipped++
				deps.Logger.Debug("augmentation attempt skipped", "error", err)
				continue
			}
			out = append(out, AugmentedRecord{AugmentedText: v, Label: rec.Label})
		}
	}
	deps.Metrics.ObserveBatch(len(records), len(out), skipped)
	if skipped > 0 {
		deps.Logger.Warn("augmentation attempts skipped", "skipped", skipped, "records", len(records))
	}
	return out, nil
}
