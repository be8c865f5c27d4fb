package pipeline

import (
	"errors"
	"fmt"

	"github.com/aluiziolira/go-scrape-offers/models"
)

// DualWriter fans every manufacturer table out to a CSV table and a JSONL
// table in the same directory.
type DualWriter struct {
	writers []namedWriter
}

type namedWriter struct {
	format string
	OutputWriter
}

// NewDualWriter creates <dir>/<name>.csv and <dir>/<name>.jsonl tables.
func NewDualWriter(dir string, schema models.Schema) (*DualWriter, error) {
	csvWriter, err := NewCSVWriter(dir, schema)
	if err != nil {
		return nil, fmt.Errorf("csv writer: %w", err)
	}
	jsonWriter, err := NewJSONWriter(dir)
	if err != nil {
		return nil, fmt.Errorf("json writer: %w", err)
	}
	return &DualWriter{writers: []namedWriter{
		{format: "csv", OutputWriter: csvWriter},
		{format: "json", OutputWriter: jsonWriter},
	}}, nil
}

// WriteTable stops at the first format that fails.
func (dw *DualWriter) WriteTable(name string, rows []models.Row) error {
	for _, w := range dw.writers {
		if err := w.WriteTable(name, rows); err != nil {
			return fmt.Errorf("%s table %s: %w", w.format, name, err)
		}
	}
	return nil
}

// Close closes every format and joins their errors.
func (dw *DualWriter) Close() error {
	var errs []error
	for _, w := range dw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", w.format, err))
		}
	}
	return errors.Join(errs...)
}

func (dw *DualWriter) Validate() error {
	var errs []error
	for _, w := range dw.writers {
		if err := w.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("validate %s: %w", w.format, err))
		}
	}
	return errors.Join(errs...)
}
