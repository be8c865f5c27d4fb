// Package parser turns catalog and offer markup into links and normalized rows.
package parser

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/aluiziolira/go-scrape-offers/models"
	"golang.org/x/text/unicode/norm"
)

// Normalize maps fields onto schema. Columns missing from fields are marked
// absent and fields outside the schema are dropped.
func Normalize(schema models.Schema, fields models.Fields) models.Row {
	values := make([]sql.NullString, len(schema))
	for i, col := range schema {
		if v, ok := fields[col]; ok {
			values[i] = sql.NullString{String: v, Valid: true}
		}
	}
	return models.NewRow(schema, values)
}

// ValidateRow ensures row carries exactly the schema columns, in order.
func ValidateRow(row models.Row, schema models.Schema) error {
	if row.Len() != len(schema) {
		return fmt.Errorf("row has %d columns, schema has %d", row.Len(), len(schema))
	}
	for i, col := range row.Columns() {
		if col != schema[i] {
			return fmt.Errorf("column %d is %q, want %q", i, col, schema[i])
		}
	}
	return nil
}

// NormalizeLabel trims a label and converts it to NFC so labels scraped from
// pages compare equal to names loaded from the schema file.
func NormalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}

// SplitPrice drops the trailing unit token from a price text and removes
// the thousands separators: "45 000 zł" becomes "45000". ok is false when
// the text has no unit token to strip.
func SplitPrice(text string) (price string, ok bool) {
	tokens := strings.Fields(text)
	if len(tokens) < 2 {
		return "", false
	}
	return strings.Join(tokens[:len(tokens)-1], ""), true
}
