package config

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/aluiziolira/go-scrape-offers/models"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrInputNotFound is returned when a schema or manufacturers file is missing.
	ErrInputNotFound = errors.New("input file not found")
	// ErrEmptyInput is returned when an input file has no entries.
	ErrEmptyInput = errors.New("input file has no entries")
)

// ReadLines reads a UTF-8 list with one entry per line. Entries are trimmed
// and NFC normalized; blank lines are skipped.
func ReadLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}
		line = norm.NFC.String(strings.TrimSpace(line))
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyInput, path)
	}
	return lines, nil
}

// LoadSchema reads the ordered column names from the schema file.
func LoadSchema(path string) (models.Schema, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	seen := make(map[string]struct{}, len(lines))
	for _, col := range lines {
		if _, ok := seen[col]; ok {
			return nil, fmt.Errorf("load schema: duplicate column %q", col)
		}
		seen[col] = struct{}{}
	}
	return models.Schema(lines), nil
}

// LoadManufacturers reads the manufacturer slugs to crawl, in file order.
func LoadManufacturers(path string) ([]string, error) {
	lines, err := ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("load manufacturers: %w", err)
	}
	return lines, nil
}
