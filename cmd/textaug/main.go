package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fractal-lba/textaug/internal/augment"
	"github.com/fractal-lba/textaug/internal/config"
	"github.com/fractal-lba/textaug/internal/metrics"
	"github.com/fractal-lba/textaug/internal/randx"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile  string
	weightsFlag string
	probability float64
	seed        int64
	verbose     bool
	logFormat   string
	cacheDir    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "textaug",
		Short: "Paraphrase sentences for NLP data augmentation",
		Long: `Generates paraphrased variants of sentences with a randomly chosen strategy:
static-embedding word substitution, round-trip translation or masked-LM refill.
Strategies are configured in a YAML or JSON file keyed by strategy name.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "augmentation.yaml", "Augmentation config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&weightsFlag, "weights", "w", "", "Comma-separated strategy weights in config order (default uniform)")
	rootCmd.PersistentFlags().Float64VarP(&probability, "prob", "p", augment.DefaultProbability, "Probability that a call augments at all")
	rootCmd.PersistentFlags().Int64Var(&seed, "seed", -1, "Random seed (-1 seeds from the clock)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Verbose logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Directory for downloaded artefacts")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(augmentCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(exportNeighborsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(w io.Writer, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", format)
}

// parseWeights reads "0.5,0.5"; an empty string means uniform weights.
func parseWeights(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	weights := make([]float64, 0, len(parts))
	for _, p := range parts {
		w, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid weight %q: %w", p, err)
		}
		weights = append(weights, w)
	}
	return weights, nil
}

func newSource(seed int64) *randx.Source {
	if seed < 0 {
		return randx.NewFromClock()
	}
	return randx.New(uint64(seed))
}

// buildDispatcher loads the config and eagerly constructs every strategy.
func buildDispatcher(ctx context.Context, m *metrics.Metrics) (*augment.Dispatcher, *slog.Logger, error) {
	logger, err := newLogger(os.Stderr, logFormat, verbose)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	weights, err := parseWeights(weightsFlag)
	if err != nil {
		return nil, nil, err
	}

	deps := augment.Deps{
		Rng:      newSource(seed),
		Logger:   logger,
		Metrics:  m,
		HubToken: os.Getenv("HF_TOKEN"),
		CacheDir: cacheDir,
	}
	d, err := augment.NewDispatcher(ctx, cfg, augment.DefaultRegistry(), weights, probability, deps)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build strategies: %w", err)
	}
	logger.Info("dispatcher ready", "strategies", d.Names(), "probability", probability)
	return d, logger, nil
}
