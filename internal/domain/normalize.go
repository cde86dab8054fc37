package domain

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
)

// integerRe matches plain signed integer text, e.g. "523" or "-17".
// Such values are already in canonical identifier form and must pass
// through untouched; long station IDs would lose precision in a
// float round-trip.
var integerRe = regexp.MustCompile(`^-?[0-9]+$`)

// maxExactInt is the largest float64 magnitude whose integral values are all
// exactly representable (2^53). Beyond it a float-formatted identifier cannot
// be recovered losslessly.
const maxExactInt = 1 << 53

// CoercionError reports an identifier value that cannot be rendered
// losslessly as text.
type CoercionError struct {
	Column string
	Row    int
	Value  string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("column %q row %d: cannot coerce %q to identifier text", e.Column, e.Row, e.Value)
}

// Normalize aligns one source table to the common schema: columns outside the
// schema are dropped, schema columns absent from the table are inserted
// null-filled, columns are reordered to the canonical order, and identifier
// columns are coerced to uniform text. The input table is not modified.
func Normalize(t Table, schema CommonSchema, idColumns []string) (Table, error) {
	src := make([]int, len(schema.Columns))
	for i, col := range schema.Columns {
		src[i] = t.ColumnIndex(col)
	}

	out := Table{
		Columns: slices.Clone(schema.Columns),
		Rows:    make([][]string, len(t.Rows)),
	}
	for r, row := range t.Rows {
		outRow := make([]string, len(schema.Columns))
		for i, idx := range src {
			if idx < 0 || idx >= len(row) {
				outRow[i] = NullMarker
				continue
			}
			outRow[i] = row[idx]
		}
		out.Rows[r] = outRow
	}

	for _, col := range idColumns {
		i := slices.Index(schema.Columns, col)
		if i < 0 {
			continue
		}
		for r := range out.Rows {
			coerced, err := CoerceIdentifier(out.Rows[r][i])
			if err != nil {
				return Table{}, &CoercionError{Column: col, Row: r, Value: out.Rows[r][i]}
			}
			out.Rows[r][i] = coerced
		}
	}

	return out, nil
}

// CoerceIdentifier renders an identifier value as plain text. Float-formatted
// integers ("523.0", "5.23e2", the usual damage when a numeric parser has
// been at the column) come back as bare digits; textual identifiers and null
// markers pass through unchanged, so coercion is idempotent. A numeric value
// with a fractional part, or one too large for a lossless round-trip, is an
// error: station identifiers are never fractional, so such a value means the
// source data is corrupt.
func CoerceIdentifier(value string) (string, error) {
	if value == NullMarker || integerRe.MatchString(value) {
		return value, nil
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		// Not numeric at all: an already-textual identifier.
		return value, nil
	}
	if math.Trunc(f) != f || math.Abs(f) > maxExactInt {
		return "", fmt.Errorf("non-integral identifier %q", value)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}
