package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/fractal-lba/textaug/internal/augment"
	"github.com/spf13/cobra"
)

// generateCmd paraphrases sentences given as arguments or read from stdin
func generateCmd() *cobra.Command {
	var (
		n       int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "generate [sentence...]",
		Short: "Generate n variants of each sentence",
		Long: `Generates n variants of every sentence given as an argument, or of every
non-empty line on stdin when no argument is given. Failed attempts yield the
input sentence, so each sentence always produces exactly n lines.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if n < 0 {
				return fmt.Errorf("--n must not be negative")
			}

			sentences := args
			if len(sentences) == 0 {
				var err error
				if sentences, err = readLines(cmd.InOrStdin()); err != nil {
					return err
				}
			}

			d, _, err := buildDispatcher(ctx, nil)
			if err != nil {
				return err
			}
			return writeVariants(cmd.OutOrStdout(), sentences, augment.GenerateAll(ctx, d, sentences, n), n, jsonOut)
		},
	}
	cmd.Flags().IntVarP(&n, "n", "n", 1, "Variants per sentence")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Write one JSON object per sentence")
	return cmd
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return out, nil
}

type variants struct {
	Text      string   `json:"text"`
	Augmented []string `json:"augmented"`
}

// writeVariants prints flat, n results per sentence in input order.
func writeVariants(w io.Writer, sentences, flat []string, n int, asJSON bool) error {
	if !asJSON {
		for _, v := range flat {
			if _, err := fmt.Fprintln(w, v); err != nil {
				return err
			}
		}
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, s := range sentences {
		if err := enc.Encode(variants{Text: s, Augmented: flat[i*n : (i+1)*n]}); err != nil {
			return err
		}
	}
	return nil
}
