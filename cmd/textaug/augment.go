package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fractal-lba/textaug/internal/augment"
	"github.com/fractal-lba/textaug/internal/dataset"
	"github.com/spf13/cobra"
)

// augmentCmd augments a labelled dataset
func augmentCmd() *cobra.Command {
	var (
		input       string
		output      string
		textColumn  string
		labelColumn string
		n           int
		pgConn      string
	)
	cmd := &cobra.Command{
		Use:   "augment",
		Short: "Augment a labelled dataset",
		Long: `Attempts n augmentations of every record and writes only the generated rows,
with columns augmented_text and label. Failed attempts are skipped.

Input and output are CSV files, or Postgres tables written as pg:<table> when
--postgres (or POSTGRES_CONN) is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			if input == "" || output == "" {
				return fmt.Errorf("--input and --output are required")
			}
			if pgConn == "" {
				pgConn = os.Getenv("POSTGRES_CONN")
			}

			var pg *dataset.Postgres
			if isTable(input) || isTable(output) {
				if pgConn == "" {
					return fmt.Errorf("postgres table given but no connection string set")
				}
				var err error
				if pg, err = dataset.NewPostgres(pgConn); err != nil {
					return err
				}
				defer pg.Close()
			}

			cols := dataset.Columns{Text: textColumn, Label: labelColumn}
			var records []dataset.Record
			var err error
			if table, ok := strings.CutPrefix(input, tablePrefix); ok {
				records, err = pg.Read(ctx, table, cols)
			} else {
				records, err = dataset.LoadCSV(input, cols)
			}
			if err != nil {
				return fmt.Errorf("failed to read dataset: %w", err)
			}

			d, logger, err := buildDispatcher(ctx, nil)
			if err != nil {
				return err
			}
			out, err := augment.AugmentDataset(ctx, d, records, n, augment.Deps{Logger: logger})
			if err != nil {
				return err
			}

			if table, ok := strings.CutPrefix(output, tablePrefix); ok {
				if _, err := pg.Write(ctx, table, out); err != nil {
					return err
				}
			} else if err := dataset.SaveCSV(output, out); err != nil {
				return err
			}
			logger.Info("dataset augmented", "records", len(records), "generated", len(out), "output", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "Input CSV file or pg:<table>")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output CSV file or pg:<table>")
	cmd.Flags().StringVar(&textColumn, "text-column", "text", "Name of the text column")
	cmd.Flags().StringVar(&labelColumn, "label-column", "label", "Name of the label column")
	cmd.Flags().IntVarP(&n, "n", "n", 1, "Augmentation attempts per record")
	cmd.Flags().StringVar(&pgConn, "postgres", "", "Postgres connection string (default $POSTGRES_CONN)")
	return cmd
}

const tablePrefix = "pg:"

func isTable(s string) bool { return strings.HasPrefix(s, tablePrefix) }
