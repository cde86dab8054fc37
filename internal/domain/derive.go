package domain

import (
	"strconv"
	"time"
)

// Names of the columns appended by the block transformer.
const (
	ColDuration  = "duration_min"
	ColMonth     = "month"
	ColDayOfWeek = "day_of_week"
	ColSeason    = "season"
	ColStartHour = "start_hour"
)

// DerivedColumns lists the appended columns in output order.
var DerivedColumns = []string{ColDuration, ColMonth, ColDayOfWeek, ColSeason, ColStartHour}

// DefaultTimestampLayouts covers the formats seen across monthly trip
// exports. Layouts are tried in order; the seconds-bearing variants come
// first because they are the most common.
var DefaultTimestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

// ParseTimestamp parses a trip timestamp against each layout in order.
// Returns false when no layout matches.
func ParseTimestamp(value string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Season maps a calendar month to its meteorological-adjacent season:
// Dec-Feb Winter, Mar-May Spring, Jun-Aug Summer, Sep-Nov Fall. Total on
// all twelve months with no overlaps.
func Season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "Winter"
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	default:
		return "Fall"
	}
}

// TripFields holds the derived values for one trip row. When either
// timestamp fails to parse, Parsed is false and every field is the null
// marker.
type TripFields struct {
	DurationMin string
	Month       string
	DayOfWeek   string
	Season      string
	StartHour   string
	Parsed      bool
}

// DeriveTripFields parses the start and end timestamps and computes the
// derived columns. Duration is signed minutes; negative and absurdly long
// durations survive this stage; the outlier filter removes them after the
// blocks are reassembled, so the removed-row accounting covers the whole
// table.
func DeriveTripFields(start, end string, layouts []string) TripFields {
	startT, okS := ParseTimestamp(start, layouts)
	endT, okE := ParseTimestamp(end, layouts)
	if !okS || !okE {
		return TripFields{}
	}

	return TripFields{
		DurationMin: strconv.FormatFloat(endT.Sub(startT).Minutes(), 'f', -1, 64),
		Month:       startT.Month().String(),
		DayOfWeek:   startT.Weekday().String(),
		Season:      Season(startT.Month()),
		StartHour:   strconv.Itoa(startT.Hour()),
		Parsed:      true,
	}
}

// TransformResult is the outcome of transforming one block of rows.
type TransformResult struct {
	Rows          [][]string
	ParseFailures int
}

// TransformRows appends the derived columns to every row in the block.
// startIdx and endIdx locate the trip start/end timestamp columns. Input
// rows are not modified; each output row is a fresh slice so blocks can be
// transformed concurrently over a shared combined table.
func TransformRows(rows [][]string, startIdx, endIdx int, layouts []string) TransformResult {
	out := TransformResult{Rows: make([][]string, len(rows))}
	for i, row := range rows {
		f := DeriveTripFields(row[startIdx], row[endIdx], layouts)
		if !f.Parsed {
			out.ParseFailures++
		}

		newRow := make([]string, len(row), len(row)+len(DerivedColumns))
		copy(newRow, row)
		newRow = append(newRow, f.DurationMin, f.Month, f.DayOfWeek, f.Season, f.StartHour)
		out.Rows[i] = newRow
	}
	return out
}

// FilterDurationOutliers removes rows whose duration is negative or exceeds
// maxMinutes, returning the filtered table and the removed-row count. Rows
// with a null duration (unparseable timestamps) are kept: the filter rejects
// out-of-range measurements, not missing ones.
func FilterDurationOutliers(t Table, maxMinutes float64) (Table, int) {
	idx := t.ColumnIndex(ColDuration)
	if idx < 0 {
		return t, 0
	}

	kept := make([][]string, 0, len(t.Rows))
	removed := 0
	for _, row := range t.Rows {
		v := row[idx]
		if v == NullMarker {
			kept = append(kept, row)
			continue
		}
		d, err := strconv.ParseFloat(v, 64)
		if err != nil || d < 0 || d > maxMinutes {
			removed++
			continue
		}
		kept = append(kept, row)
	}
	return Table{Columns: t.Columns, Rows: kept}, removed
}
