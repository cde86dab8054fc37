package domain

import (
	"errors"
	"slices"
)

var (
	// ErrEmptyInput is returned when there are no source files to process.
	ErrEmptyInput = errors.New("no source files")

	// ErrNoCommonColumns is returned when the source headers share no columns,
	// leaving nothing to align the files on.
	ErrNoCommonColumns = errors.New("source files share no columns")
)

// Header is one source file's declared column sequence, read from its header
// row only. Immutable once read.
type Header struct {
	Path    string
	Columns []string
}

// CommonSchema is the ordered intersection of column names across all source
// headers. The canonical order is the first header's column order filtered to
// the intersection; every normalized table carries exactly this column set in
// this order.
type CommonSchema struct {
	Columns []string
}

// Contains reports whether the schema includes the named column.
func (s CommonSchema) Contains(name string) bool {
	return slices.Contains(s.Columns, name)
}

// Discrepancy describes how one file's header deviates from the rest of the
// input set: Extra columns will be dropped during normalization, Missing
// columns (present in some other file's header) will be null-filled.
type Discrepancy struct {
	Path    string
	Extra   []string
	Missing []string
}

// Reconcile computes the common schema across all headers plus a per-file
// discrepancy report. Only header rows are consulted; no data is read.
func Reconcile(headers []Header) (CommonSchema, []Discrepancy, error) {
	if len(headers) == 0 {
		return CommonSchema{}, nil, ErrEmptyInput
	}

	// Count how many headers each column appears in. A column belongs to the
	// intersection when every header carries it. Membership is per file, so a
	// column duplicated within one header still counts once for that file.
	counts := make(map[string]int)
	union := make([]string, 0, len(headers[0].Columns))
	for _, h := range headers {
		seen := make(map[string]bool, len(h.Columns))
		for _, col := range h.Columns {
			if seen[col] {
				continue
			}
			seen[col] = true
			if counts[col] == 0 {
				union = append(union, col)
			}
			counts[col]++
		}
	}

	var common []string
	for _, col := range headers[0].Columns {
		if counts[col] == len(headers) && !slices.Contains(common, col) {
			common = append(common, col)
		}
	}
	if len(common) == 0 {
		return CommonSchema{}, nil, ErrNoCommonColumns
	}

	schema := CommonSchema{Columns: common}

	var report []Discrepancy
	for _, h := range headers {
		d := Discrepancy{Path: h.Path}
		for _, col := range h.Columns {
			if !schema.Contains(col) {
				d.Extra = append(d.Extra, col)
			}
		}
		for _, col := range union {
			if !slices.Contains(h.Columns, col) {
				d.Missing = append(d.Missing, col)
			}
		}
		if len(d.Extra) > 0 || len(d.Missing) > 0 {
			report = append(report, d)
		}
	}

	return schema, report, nil
}
