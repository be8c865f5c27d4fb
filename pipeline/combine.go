package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// CombineResult reports what Combine appended.
type CombineResult struct {
	Tables  int
	Skipped []string
	Records int
}

// Combine concatenates the CSV tables of manufacturers, header rows
// included, into dest. A table that cannot be opened or parsed is logged
// and skipped.
func Combine(dir string, manufacturers []string, dest string, logger *slog.Logger) (*CombineResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("create directory for %q: %w", dest, err)
	}

	logger.Info("appending the data", slog.Int("tables", len(manufacturers)))

	out, err := os.Create(dest)
	if err != nil {
		return nil, fmt.Errorf("create combined file: %w", err)
	}
	writer := csv.NewWriter(out)

	result := &CombineResult{}
	for _, manufacturer := range manufacturers {
		path := CSVTablePath(dir, manufacturer)
		records, err := readTable(path)
		if err != nil {
			logger.Error("skipping table", slog.String("path", path), slog.Any("error", err))
			result.Skipped = append(result.Skipped, path)
			continue
		}
		if err := writer.WriteAll(records); err != nil {
			out.Close()
			return nil, fmt.Errorf("write combined records: %w", err)
		}
		result.Tables++
		result.Records += len(records)
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		out.Close()
		return nil, fmt.Errorf("flush combined file: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("close combined file: %w", err)
	}

	logger.Info("appended data saved",
		slog.String("path", dest),
		slog.Int("tables", result.Tables),
		slog.Int("records", result.Records),
	)
	return result, nil
}

func readTable(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		records = append(records, record)
	}
	return records, nil
}
