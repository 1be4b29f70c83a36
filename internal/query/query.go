// Package query provides the query execution capability: validated,
// SELECT-only SQL against a single pre-loaded virtual table named "data",
// with every result persisted as a numbered CSV artifact.
package query

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quarrylabs/quarry/internal/dataset"
)

// PreviewRows is how many result rows the markdown preview includes.
const PreviewRows = 20

// Result is one executed query: the prepared SQL, the tabular result, and
// the persisted artifact that backs it.
type Result struct {
	QueryID   int
	SQL       string
	Columns   []string
	Rows      [][]string
	TablePath string
	Preview   string
}

// Runner executes safe SELECT queries against an in-memory SQLite table
// loaded from one dataset. One connection per runner; query ids ascend from
// one for the runner's lifetime. Not safe for concurrent use.
type Runner struct {
	db           *sql.DB
	artifactsDir string
	maxRows      int
	nextQueryID  int
}

// NewRunner loads the table into a fresh in-memory SQLite database.
// Numeric columns become REAL, everything else TEXT.
func NewRunner(table *dataset.Table, artifactsDir string, maxRows int) (*Runner, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// In-memory databases vanish per connection, so pin a single one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := loadTable(db, table); err != nil {
		db.Close()
		return nil, err
	}

	return &Runner{
		db:           db,
		artifactsDir: artifactsDir,
		maxRows:      maxRows,
		nextQueryID:  1,
	}, nil
}

// Close releases the database connection.
func (r *Runner) Close() error {
	return r.db.Close()
}

// Run validates, executes, and persists one query. The returned result's
// QueryID matches the tables/query_<id>.csv artifact it wrote.
func (r *Runner) Run(ctx context.Context, rawSQL string) (*Result, error) {
	queryID := r.nextQueryID
	r.nextQueryID++

	prepared, err := Prepare(rawSQL, r.maxRows)
	if err != nil {
		return nil, err
	}

	columns, rows, err := r.execute(ctx, prepared)
	if err != nil {
		return nil, fmt.Errorf("execute query %d: %w", queryID, err)
	}

	tablePath := filepath.Join(r.artifactsDir, "tables", fmt.Sprintf("query_%d.csv", queryID))
	if err := writeCSV(tablePath, columns, rows); err != nil {
		return nil, fmt.Errorf("persist query %d result: %w", queryID, err)
	}

	previewRows := rows
	if len(previewRows) > PreviewRows {
		previewRows = previewRows[:PreviewRows]
	}

	return &Result{
		QueryID:   queryID,
		SQL:       prepared,
		Columns:   columns,
		Rows:      rows,
		TablePath: tablePath,
		Preview:   dataset.RenderMarkdown(columns, previewRows),
	}, nil
}

func (r *Runner) execute(ctx context.Context, prepared string) ([]string, [][]string, error) {
	dbRows, err := r.db.QueryContext(ctx, prepared)
	if err != nil {
		return nil, nil, err
	}
	defer dbRows.Close()

	columns, err := dbRows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var rows [][]string
	for dbRows.Next() {
		raw := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := dbRows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}
		row := make([]string, len(columns))
		for i, v := range raw {
			row[i] = formatValue(v)
		}
		rows = append(rows, row)
	}
	if err := dbRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}
	return columns, rows, nil
}

// formatValue renders a SQLite value as a CSV cell. Floats use the shortest
// representation that round-trips, so whole numbers print without a decimal
// point regardless of the column's declared affinity.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func loadTable(db *sql.DB, table *dataset.Table) error {
	cols := make([]string, len(table.Headers))
	placeholders := make([]string, len(table.Headers))
	for i, col := range table.Schema() {
		sqlType := "TEXT"
		if col.Kind == dataset.KindNumeric {
			sqlType = "REAL"
		}
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(col.Name), sqlType)
		placeholders[i] = "?"
	}

	create := fmt.Sprintf("CREATE TABLE data (%s)", strings.Join(cols, ", "))
	if _, err := db.Exec(create); err != nil {
		return fmt.Errorf("create data table: %w", err)
	}

	if len(table.Rows) == 0 {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO data VALUES (%s)", strings.Join(placeholders, ", ")))
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range table.Rows {
		args := make([]any, len(table.Headers))
		for i := range table.Headers {
			if i < len(row) {
				args[i] = row[i]
			} else {
				args[i] = ""
			}
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert row: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func writeCSV(path string, columns []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create artifact: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush artifact: %w", err)
	}
	return f.Close()
}
