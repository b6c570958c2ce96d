package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"anovadash/domain/core"
)

// ColumnKind is the inferred statistical type of a column
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindCategorical ColumnKind = "categorical"
	KindEmpty       ColumnKind = "empty"
)

// missingTokens are cell values treated as null
var missingTokens = map[string]bool{
	"":     true,
	"na":   true,
	"nan":  true,
	"null": true,
	"none": true,
	"n/a":  true,
}

// IsMissing reports whether a raw cell is a null
func IsMissing(cell string) bool {
	return missingTokens[strings.ToLower(strings.TrimSpace(cell))]
}

// Column is a named vector of raw cells
type Column struct {
	Name  string     `json:"name"`
	Kind  ColumnKind `json:"kind"`
	Cells []string   `json:"-"`
}

// Missing counts the null cells in the column
func (c Column) Missing() int {
	n := 0
	for _, cell := range c.Cells {
		if IsMissing(cell) {
			n++
		}
	}
	return n
}

// Table is an in-memory, column-oriented dataset
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	rows    int
}

// NewTable builds a table from a header and row-major cells. Short rows are
// padded with nulls; extra cells are ignored.
func NewTable(name string, headers []string, rows [][]string) (*Table, error) {
	if len(headers) == 0 {
		return nil, fmt.Errorf("%w: table %q has no columns", core.ErrInsufficientData, name)
	}

	seen := make(map[string]bool, len(headers))
	t := &Table{Name: name, Columns: make([]Column, len(headers)), rows: len(rows)}
	for j, h := range headers {
		if seen[h] {
			return nil, core.NewValidationError("headers", fmt.Sprintf("duplicate column %q", h))
		}
		seen[h] = true
		cells := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				cells[i] = strings.TrimSpace(row[j])
			}
		}
		t.Columns[j] = Column{Name: h, Kind: inferKind(cells), Cells: cells}
	}
	return t, nil
}

func inferKind(cells []string) ColumnKind {
	present := 0
	for _, cell := range cells {
		if IsMissing(cell) {
			continue
		}
		present++
		if _, err := strconv.ParseFloat(cell, 64); err != nil {
			return KindCategorical
		}
	}
	if present == 0 {
		return KindEmpty
	}
	return KindNumeric
}

// NumRows returns the number of rows
func (t *Table) NumRows() int {
	return t.rows
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, error) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], nil
		}
	}
	return nil, core.NewColumnNotFoundError(name)
}

// Numeric parses a column as float64; nulls become NaN.
func (t *Table) Numeric(name string) ([]float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	values := make([]float64, len(col.Cells))
	for i, cell := range col.Cells {
		if IsMissing(cell) {
			values[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s row %d value %q", core.ErrNonNumeric, name, i, cell)
		}
		values[i] = v
	}
	return values, nil
}

// Categorical returns a column's cells as category labels; nulls become "".
func (t *Table) Categorical(name string) ([]string, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	labels := make([]string, len(col.Cells))
	for i, cell := range col.Cells {
		if !IsMissing(cell) {
			labels[i] = cell
		}
	}
	return labels, nil
}

// Select returns a table restricted to the named columns, in that order.
func (t *Table) Select(names ...string) (*Table, error) {
	out := &Table{Name: t.Name, rows: t.rows}
	for _, name := range names {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		out.Columns = append(out.Columns, *col)
	}
	return out, nil
}

// DropIncomplete returns a copy of the table restricted to the named columns
// without rows that have a null in any of them, plus the number of rows dropped.
func (t *Table) DropIncomplete(names ...string) (*Table, int, error) {
	selected, err := t.Select(names...)
	if err != nil {
		return nil, 0, err
	}

	keep := make([]int, 0, t.rows)
	for i := 0; i < t.rows; i++ {
		complete := true
		for _, col := range selected.Columns {
			if IsMissing(col.Cells[i]) {
				complete = false
				break
			}
		}
		if complete {
			keep = append(keep, i)
		}
	}

	out := &Table{Name: t.Name, rows: len(keep), Columns: make([]Column, len(selected.Columns))}
	for j, col := range selected.Columns {
		cells := make([]string, len(keep))
		for k, i := range keep {
			cells[k] = col.Cells[i]
		}
		out.Columns[j] = Column{Name: col.Name, Kind: inferKind(cells), Cells: cells}
	}
	return out, t.rows - len(keep), nil
}

// RenameColumns applies fn to every column name
func (t *Table) RenameColumns(fn func(string) string) {
	for i := range t.Columns {
		t.Columns[i].Name = fn(t.Columns[i].Name)
	}
}

// NormalizeHeader replaces spaces with underscores, e.g. "Bsmt Full Bath"
// becomes "Bsmt_Full_Bath".
func NormalizeHeader(h string) string {
	return strings.ReplaceAll(strings.TrimSpace(h), " ", "_")
}
