package pipeline

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aluiziolira/go-scrape-offers/models"
)

// CSVWriter writes one CSV table per manufacturer into a directory.
type CSVWriter struct {
	dir    string
	schema models.Schema

	mu      sync.Mutex
	written []string
}

// NewCSVWriter prepares dir for per-manufacturer CSV tables.
func NewCSVWriter(dir string, schema models.Schema) (*CSVWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	return &CSVWriter{dir: dir, schema: schema}, nil
}

// TablePath returns the CSV path for a manufacturer table.
func (cw *CSVWriter) TablePath(name string) string {
	return CSVTablePath(cw.dir, name)
}

// CSVTablePath returns <dir>/<name>.csv.
func CSVTablePath(dir, name string) string {
	return filepath.Join(dir, name+".csv")
}

// WriteTable replaces the manufacturer's table with the schema header
// followed by rows. Absent values are written as empty fields.
func (cw *CSVWriter) WriteTable(name string, rows []models.Row) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	path := cw.TablePath(name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(cw.schema); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row.Record()); err != nil {
			f.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv records: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}

	cw.written = append(cw.written, path)
	return nil
}

// Close releases nothing; every table is closed as soon as it is written.
func (cw *CSVWriter) Close() error {
	return nil
}

// Validate ensures every written table has at least its header.
func (cw *CSVWriter) Validate() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	return validateFiles(cw.written)
}

// JSONWriter writes one newline-delimited JSON table per manufacturer.
type JSONWriter struct {
	dir string

	mu      sync.Mutex
	written []string
}

// NewJSONWriter prepares dir for per-manufacturer JSONL tables.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	return &JSONWriter{dir: dir}, nil
}

// WriteTable replaces <dir>/<name>.jsonl with one object per row. An empty
// row set produces an empty file.
func (jw *JSONWriter) WriteTable(name string, rows []models.Row) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	path := filepath.Join(jw.dir, name+".jsonl")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			f.Close()
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := buffer.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close json file: %w", err)
	}

	jw.written = append(jw.written, path)
	return nil
}

// Close releases nothing; every table is closed as soon as it is written.
func (jw *JSONWriter) Close() error {
	return nil
}

// Validate ensures every written table still exists.
func (jw *JSONWriter) Validate() error {
	jw.mu.Lock()
	defer jw.mu.Unlock()
	for _, path := range jw.written {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("stat json file: %w", err)
		}
	}
	return nil
}

func validateFiles(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat csv file: %w", err)
		}
		if info.Size() <= 0 {
			return fmt.Errorf("csv file %s is empty", path)
		}
	}
	return nil
}
