package domain

import (
	"fmt"
	"slices"
)

// NullMarker is the in-table representation of a missing value. CSV has no
// native null, so an empty cell doubles as the marker for columns inserted
// during normalization.
const NullMarker = ""

// Table is an in-memory tabular dataset: an ordered column-name header plus
// row-major records. Every cell is text; values are parsed on demand by the
// stages that need them.
type Table struct {
	Columns []string
	Rows    [][]string
}

// NumRows returns the number of data rows in the table.
func (t Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1 if absent.
func (t Table) ColumnIndex(name string) int {
	return slices.Index(t.Columns, name)
}

// AddColumn appends a new column with one value per existing row.
func (t Table) AddColumn(name string, values []string) (Table, error) {
	if len(values) != len(t.Rows) {
		return Table{}, fmt.Errorf("add column %q: %d values for %d rows", name, len(values), len(t.Rows))
	}
	out := Table{
		Columns: append(slices.Clone(t.Columns), name),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append(slices.Clone(row), values[i])
	}
	return out, nil
}

// Concat appends tables row-wise in input order. Row order within each table
// is preserved; nothing is deduplicated or sorted. All tables must share the
// first table's column set and order; normalization guarantees this, but a
// mismatch is still rejected rather than silently mangled.
func Concat(tables []Table) (Table, error) {
	if len(tables) == 0 {
		return Table{}, ErrEmptyInput
	}

	total := 0
	for i, t := range tables {
		if !slices.Equal(t.Columns, tables[0].Columns) {
			return Table{}, fmt.Errorf("concat: table %d columns %v do not match %v", i, t.Columns, tables[0].Columns)
		}
		total += len(t.Rows)
	}

	out := Table{
		Columns: slices.Clone(tables[0].Columns),
		Rows:    make([][]string, 0, total),
	}
	for _, t := range tables {
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}
