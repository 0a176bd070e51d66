package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadCSV reads records from a CSV stream with a header row.
func ReadCSV(r io.Reader, cols Columns) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("dataset: empty input")
		}
		return nil, fmt.Errorf("dataset: reading header: %w", err)
	}

	ti, li := -1, -1
	for i, name := range header {
		switch name {
		case cols.Text:
			ti = i
		case cols.Label:
			li = i
		}
	}
	if ti < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cols.Text)
	}
	if li < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, cols.Label)
	}

	var out []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: %w", err)
		}
		if ti >= len(row) || li >= len(row) {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("dataset: line %d: short row", line)
		}
		out = append(out, Record{Text: row[ti], Label: row[li]})
	}
}

// LoadCSV reads records from a CSV file.
func LoadCSV(path string, cols Columns) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	defer f.Close()
	return ReadCSV(f, cols)
}

// WriteCSV writes the augmented_text,label header followed by recs.
func WriteCSV(w io.Writer, recs []AugmentedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{AugmentedTextColumn, LabelColumn}); err != nil {
		return err
	}
	for _, r := range recs {
		if err := cw.Write([]string{r.AugmentedText, r.Label}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes recs to path, replacing any existing file.
func SaveCSV(path string, recs []AugmentedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}
	if err := WriteCSV(f, recs); err != nil {
		f.Close()
		return fmt.Errorf("dataset: %w", err)
	}
	return f.Close()
}
