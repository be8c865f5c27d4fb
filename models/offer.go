// Package models defines data structures for the scraper.
package models

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"time"
)

// Schema is the ordered list of output column names for a run.
type Schema []string

// Index returns the position of name in the schema, or -1.
func (s Schema) Index(name string) int {
	for i, col := range s {
		if col == name {
			return i
		}
	}
	return -1
}

// Fields holds label/value pairs extracted from one offer page, keyed by
// the label as it appears on the source page.
type Fields map[string]string

// Row is one offer normalized onto a schema. A value with Valid == false
// marks a column the offer did not provide.
type Row struct {
	columns Schema
	values  []sql.NullString
}

// NewRow builds a row from a schema and one value per column. Both slices
// are copied.
func NewRow(schema Schema, values []sql.NullString) Row {
	cols := make(Schema, len(schema))
	copy(cols, schema)
	vals := make([]sql.NullString, len(schema))
	copy(vals, values)
	return Row{columns: cols, values: vals}
}

// Len returns the number of columns in the row.
func (r Row) Len() int {
	return len(r.columns)
}

// Columns returns a copy of the row's column names.
func (r Row) Columns() Schema {
	out := make(Schema, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns a copy of the row's values in column order.
func (r Row) Values() []sql.NullString {
	out := make([]sql.NullString, len(r.values))
	copy(out, r.values)
	return out
}

// Get returns the value stored for column name. The second result is false
// when the column is unknown or the value is absent.
func (r Row) Get(name string) (string, bool) {
	i := r.columns.Index(name)
	if i < 0 || !r.values[i].Valid {
		return "", false
	}
	return r.values[i].String, true
}

// Record renders the row as CSV fields; absent values become empty strings.
func (r Row) Record() []string {
	record := make([]string, len(r.values))
	for i, v := range r.values {
		if v.Valid {
			record[i] = v.String
		}
	}
	return record
}

// MarshalJSON encodes the row as an object that keeps column order and
// writes absent values as null.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !r.values[i].Valid {
			buf.WriteString("null")
			continue
		}
		val, err := json.Marshal(r.values[i].String)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ManufacturerResult summarises the crawl of a single manufacturer.
type ManufacturerResult struct {
	Manufacturer string
	CategoryURL  string
	StartTime    time.Time
	EndTime      time.Time
	PageCount    int
	// PageCountDefaulted is set when the root page could not be read and
	// the crawl fell back to a single page.
	PageCountDefaulted bool
	FailedPages        int
	LinkCount          int
	OfferCount         int
	DroppedCount       int
	Interrupted        bool
	PersistErr         error
}

// ScraperResult holds the overall result of a scraping run.
type ScraperResult struct {
	Manufacturers []*ManufacturerResult
	StartTime     time.Time
	EndTime       time.Time
	TotalOffers   int
	ErrorCount    int
	ErrorsByType  map[string]int
	RequestCount  int
	PageCount     int
}
