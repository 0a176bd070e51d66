// Package dataset reads labelled text records and writes augmented ones, from
// and to CSV files or Postgres tables.
package dataset

import "errors"

// ErrMissingColumn is returned when a named column is absent from the input.
var ErrMissingColumn = errors.New("dataset: missing column")

// Record is one labelled input sentence.
type Record struct {
	Text  string
	Label string
}

// AugmentedRecord is one generated row. Outputs carry exactly these two columns.
type AugmentedRecord struct {
	AugmentedText string `json:"augmented_text"`
	Label         string `json:"label"`
}

// Output column names.
const (
	AugmentedTextColumn = "augmented_text"
	LabelColumn         = "label"
)

// Columns names the text and label columns of an input table.
type Columns struct {
	Text  string
	Label string
}

// DefaultColumns reads "text" and "label".
func DefaultColumns() Columns {
	return Columns{Text: "text", Label: "label"}
}
