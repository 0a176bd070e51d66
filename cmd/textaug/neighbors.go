package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fractal-lba/textaug/internal/embedding"
	"github.com/spf13/cobra"
)

// exportNeighborsCmd precomputes neighbour tables for the redis embedding backend
func exportNeighborsCmd() *cobra.Command {
	var (
		vecPath   string
		redisAddr string
		redisPass string
		redisDB   int
		prefix    string
		k         int
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "export-neighbors",
		Short: "Precompute nearest neighbours of an embedding file into Redis",
		Long: `Loads a fastText model (.bin) or text embedding (.vec) and stores the k
nearest neighbours of each word as a Redis sorted set (<prefix><word>), which the "redis"
base_embedding serves without loading the vectors.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			logger, err := newLogger(os.Stderr, logFormat, verbose)
			if err != nil {
				return err
			}

			vec, err := embedding.Load(vecPath)
			if err != nil {
				return err
			}
			idx, err := embedding.NewRedisIndex(redisAddr, redisPass, redisDB, prefix)
			if err != nil {
				return err
			}
			defer idx.Close()

			words := vec.Words()
			if limit > 0 && limit < len(words) {
				words = words[:limit]
			}
			logger.Info("exporting neighbours", "words", len(words), "k", k, "redis", redisAddr)

			n, err := exportNeighbors(ctx, vec, idx, words, k)
			if err != nil {
				return fmt.Errorf("export stopped after %d words: %w", n, err)
			}
			logger.Info("export complete", "words", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&vecPath, "vec", "", "Embedding file (.bin, .vec or .vec.gz)")
	cmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "Redis address")
	cmd.Flags().StringVar(&redisPass, "redis-password", "", "Redis password")
	cmd.Flags().IntVar(&redisDB, "redis-db", 0, "Redis database")
	cmd.Flags().StringVar(&prefix, "prefix", embedding.DefaultRedisPrefix, "Key prefix")
	cmd.Flags().IntVar(&k, "k", embedding.DefaultNeighbors, "Neighbours per word")
	cmd.Flags().IntVar(&limit, "limit", 0, "Export only the first N words (0 = all)")
	cmd.MarkFlagRequired("vec")
	return cmd
}

type neighborStore interface {
	Store(ctx context.Context, word string, neighbors []embedding.Neighbor) error
}

func exportNeighbors(ctx context.Context, from embedding.NeighborIndex, to neighborStore, words []string, k int) (int, error) {
	for i, w := range words {
		hits, err := from.Neighbors(ctx, w, k)
		if err != nil {
			return i, err
		}
		if err := to.Store(ctx, w, hits); err != nil {
			return i, err
		}
	}
	return len(words), nil
}
