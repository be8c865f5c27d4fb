package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/aluiziolira/go-scrape-offers/models"
)

// SQLiteFile is the database file name created in the output directory.
const SQLiteFile = "offers.db"

// SQLiteWriter stores every manufacturer's rows in a single "offers" table
// with a manufacturer column followed by one TEXT column per schema name.
// Absent values are stored as NULL.
type SQLiteWriter struct {
	db     *sql.DB
	path   string
	schema models.Schema
	insert string
}

// NewSQLiteWriter opens or creates <dir>/offers.db and its table.
func NewSQLiteWriter(dir string, schema models.Schema) (*SQLiteWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	path := filepath.Join(dir, SQLiteFile)

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	w := &SQLiteWriter{db: db, path: path, schema: schema}
	if err := w.createTable(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLiteWriter) createTable() error {
	cols := make([]string, 0, len(w.schema)+1)
	names := make([]string, 0, len(w.schema)+1)
	cols = append(cols, "manufacturer TEXT NOT NULL")
	names = append(names, "manufacturer")
	for _, col := range w.schema {
		cols = append(cols, quoteIdent(col)+" TEXT")
		names = append(names, quoteIdent(col))
	}

	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS offers (%s)", strings.Join(cols, ", "))
	if _, err := w.db.ExecContext(context.Background(), stmt); err != nil {
		return fmt.Errorf("create offers table: %w", err)
	}
	if _, err := w.db.ExecContext(context.Background(),
		"CREATE INDEX IF NOT EXISTS idx_offers_manufacturer ON offers(manufacturer)"); err != nil {
		return fmt.Errorf("create offers index: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(names)), ", ")
	w.insert = fmt.Sprintf("INSERT INTO offers (%s) VALUES (%s)", strings.Join(names, ", "), placeholders)
	return nil
}

// WriteTable replaces the manufacturer's rows in a single transaction.
func (w *SQLiteWriter) WriteTable(name string, rows []models.Row) (err error) {
	ctx := context.Background()
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, "DELETE FROM offers WHERE manufacturer = ?", name); err != nil {
		return fmt.Errorf("clear manufacturer rows: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, w.insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(w.schema)+1)
	for _, row := range rows {
		args[0] = name
		for i, v := range row.Values() {
			args[i+1] = v
		}
		if _, err = stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Count returns the number of rows stored for a manufacturer.
func (w *SQLiteWriter) Count(name string) (int, error) {
	var n int
	err := w.db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM offers WHERE manufacturer = ?", name).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

// Close closes the database connection.
func (w *SQLiteWriter) Close() error {
	return w.db.Close()
}

// Validate checks the database is reachable.
func (w *SQLiteWriter) Validate() error {
	if err := w.db.PingContext(context.Background()); err != nil {
		return fmt.Errorf("ping database %s: %w", w.path, err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
