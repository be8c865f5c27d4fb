// Package pipeline persists per-manufacturer offer tables and combines them.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aluiziolira/go-scrape-offers/models"
	"github.com/aluiziolira/go-scrape-offers/parser"
)

// ErrPipelineClosed is returned when Persist is called after Close.
var ErrPipelineClosed = errors.New("pipeline: closed")

// PersistenceError reports a failure to write a manufacturer table.
type PersistenceError struct {
	Destination string
	Err         error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Destination, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// OutputWriter defines the interface for table output.
type OutputWriter interface {
	WriteTable(name string, rows []models.Row) error
	Close() error
	Validate() error
}

// Pipeline validates manufacturer row sets against the schema and writes
// them through an OutputWriter.
type Pipeline struct {
	writer OutputWriter
	schema models.Schema
	logger *slog.Logger

	metrics *metrics

	mu     sync.Mutex // guards closed
	closed bool
}

// NewPipeline builds a pipeline writing rows of schema to writer.
func NewPipeline(writer OutputWriter, schema models.Schema, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		writer:  writer,
		schema:  schema,
		logger:  logger,
		metrics: newMetrics(),
	}
}

// Persist writes the full row set of one manufacturer. Rows that do not
// match the schema are dropped and counted. Write failures are returned as
// *PersistenceError.
func (p *Pipeline) Persist(manufacturer string, rows []models.Row) error {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return &PersistenceError{Destination: manufacturer, Err: ErrPipelineClosed}
	}

	valid := make([]models.Row, 0, len(rows))
	for _, row := range rows {
		if err := parser.ValidateRow(row, p.schema); err != nil {
			p.metrics.addValidation("schema_mismatch")
			p.logger.Error("dropping row", slog.String("manufacturer", manufacturer), slog.Any("error", err))
			continue
		}
		valid = append(valid, row)
	}

	if err := p.writer.WriteTable(manufacturer, valid); err != nil {
		return &PersistenceError{Destination: manufacturer, Err: err}
	}

	p.metrics.addTable(len(valid))
	p.logger.Info("saved offers", slog.String("manufacturer", manufacturer), slog.Int("offers", len(valid)))
	return nil
}

// Close marks the pipeline closed and closes the writer.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.writer.Close()
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	tables     int64
	validation map[string]int
}

func newMetrics() *metrics {
	return &metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) addTable(rows int) {
	m.mu.Lock()
	m.processed += int64(rows)
	m.tables++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_rows":    m.processed,
		"tables_written":    m.tables,
		"validation_errors": copyValidation,
	}
}
