// Package dataset loads CSV data and classifies its columns.
//
// Classification is a single-pass heuristic: a column whose every non-empty
// value parses as a number is numeric, everything else is categorical. The
// schema snapshot derived here feeds plan refinement, the query capability's
// table definition, and the report appendix.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ColumnKind is the inferred class of a CSV column.
type ColumnKind string

const (
	KindNumeric ColumnKind = "numeric"
	KindText    ColumnKind = "text"
)

// Column is one entry of a schema snapshot.
type Column struct {
	Name string
	Kind ColumnKind
}

// Table is a fully loaded CSV file: header row plus string cells.
type Table struct {
	Headers []string
	Rows    [][]string
	kinds   []ColumnKind
}

// Load reads and classifies a CSV file. The file must have a header row;
// a file with headers and zero data rows is valid.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read data file %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV content from r into a classified table.
func Read(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv has no header row")
	}

	t := &Table{Headers: records[0], Rows: records[1:]}
	t.kinds = classify(t.Headers, t.Rows)
	return t, nil
}

// classify marks a column numeric when every non-empty value parses as a
// number and at least one value is present. Empty columns stay text.
func classify(headers []string, rows [][]string) []ColumnKind {
	kinds := make([]ColumnKind, len(headers))
	for col := range headers {
		kinds[col] = KindText
		seen := false
		numeric := true
		for _, row := range rows {
			if col >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[col])
			if value == "" {
				continue
			}
			seen = true
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				numeric = false
				break
			}
		}
		if seen && numeric {
			kinds[col] = KindNumeric
		}
	}
	return kinds
}

// Schema returns the column snapshot in header order.
func (t *Table) Schema() []Column {
	cols := make([]Column, len(t.Headers))
	for i, name := range t.Headers {
		cols[i] = Column{Name: name, Kind: t.kinds[i]}
	}
	return cols
}

// NumericColumns returns the numeric column names in header order.
func (t *Table) NumericColumns() []string {
	var names []string
	for i, name := range t.Headers {
		if t.kinds[i] == KindNumeric {
			names = append(names, name)
		}
	}
	return names
}

// CategoricalColumns returns the non-numeric column names in header order.
func (t *Table) CategoricalColumns() []string {
	var names []string
	for i, name := range t.Headers {
		if t.kinds[i] == KindText {
			names = append(names, name)
		}
	}
	return names
}
