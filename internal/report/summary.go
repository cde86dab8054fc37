// Package report produces grouped summary statistics over the normalized
// trip table for downstream presentation. It consumes the table read-only.
package report

import (
	"fmt"
	"log/slog"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/ridereport/trip-data-etl/internal/domain"
)

// Result column names in every summary table.
const (
	ColTripCount    = "trip_count"
	ColMeanDuration = "mean_duration_min"
)

// ColWeather is the weather-condition column appended before grouping by
// weather.
const ColWeather = "weather"

// Summarizer computes per-category trip counts and mean durations.
type Summarizer struct {
	weather     *domain.WeatherCalendar // nil disables the weather dimension
	startColumn string
	layouts     []string
	logger      *slog.Logger
}

// NewSummarizer creates a Summarizer. Pass a nil calendar when no weather
// document is configured. Nil layouts means domain.DefaultTimestampLayouts.
func NewSummarizer(weather *domain.WeatherCalendar, startColumn string, layouts []string, logger *slog.Logger) *Summarizer {
	if layouts == nil {
		layouts = domain.DefaultTimestampLayouts
	}
	return &Summarizer{weather: weather, startColumn: startColumn, layouts: layouts, logger: logger}
}

// ByColumn groups trips by one categorical column and returns a table with
// the category, trip count, and mean duration in minutes, sorted by
// category. Rows with a null duration (unparseable timestamps) are excluded
// so they cannot poison the means.
func (s *Summarizer) ByColumn(t domain.Table, column string) (domain.Table, error) {
	if t.ColumnIndex(column) < 0 {
		return domain.Table{}, fmt.Errorf("summary column %q not in table", column)
	}
	durIdx := t.ColumnIndex(domain.ColDuration)
	if durIdx < 0 {
		return domain.Table{}, fmt.Errorf("summary requires the %q column", domain.ColDuration)
	}

	records := make([][]string, 0, t.NumRows()+1)
	records = append(records, t.Columns)
	for _, row := range t.Rows {
		if row[durIdx] == domain.NullMarker {
			continue
		}
		records = append(records, row)
	}

	df := dataframe.LoadRecords(records,
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(map[string]series.Type{domain.ColDuration: series.Float}),
	)
	if df.Err != nil {
		return domain.Table{}, fmt.Errorf("load records: %w", df.Err)
	}

	groups := df.GroupBy(column)
	if groups.Err != nil {
		return domain.Table{}, fmt.Errorf("group by %q: %w", column, groups.Err)
	}

	agg := groups.Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_COUNT, dataframe.Aggregation_MEAN},
		[]string{column, domain.ColDuration},
	)
	if agg.Err != nil {
		return domain.Table{}, fmt.Errorf("aggregate %q: %w", column, agg.Err)
	}

	agg = agg.
		Rename(ColTripCount, fmt.Sprintf("%s_COUNT", column)).
		Rename(ColMeanDuration, fmt.Sprintf("%s_MEAN", domain.ColDuration)).
		Arrange(dataframe.Sort(column))
	if agg.Err != nil {
		return domain.Table{}, fmt.Errorf("finalize summary %q: %w", column, agg.Err)
	}

	recs := agg.Records()
	out := domain.Table{Columns: recs[0], Rows: recs[1:]}
	s.logger.Debug("summary computed", "column", column, "categories", out.NumRows())
	return out, nil
}

// ByWeather classifies each trip's start date against the weather calendar
// and groups by the resulting condition.
func (s *Summarizer) ByWeather(t domain.Table) (domain.Table, error) {
	if s.weather == nil {
		return domain.Table{}, fmt.Errorf("no weather calendar configured")
	}
	startIdx := t.ColumnIndex(s.startColumn)
	if startIdx < 0 {
		return domain.Table{}, fmt.Errorf("start column %q not in table", s.startColumn)
	}

	conditions := make([]string, t.NumRows())
	for i, row := range t.Rows {
		conditions[i] = s.weather.Condition(s.tripDate(row[startIdx]))
	}
	withWeather, err := t.AddColumn(ColWeather, conditions)
	if err != nil {
		return domain.Table{}, err
	}
	return s.ByColumn(withWeather, ColWeather)
}

// All computes one summary per requested dimension, skipping dimensions the
// table does not carry (older exports lack rider and bike type columns).
// The special dimension "weather" uses the weather calendar and is skipped
// when none is configured.
func (s *Summarizer) All(t domain.Table, dimensions []string) (map[string]domain.Table, error) {
	out := make(map[string]domain.Table, len(dimensions))
	for _, dim := range dimensions {
		if dim == ColWeather {
			if s.weather == nil {
				s.logger.Warn("skipping weather summary, no calendar configured")
				continue
			}
			summary, err := s.ByWeather(t)
			if err != nil {
				return nil, err
			}
			out[dim] = summary
			continue
		}

		if t.ColumnIndex(dim) < 0 {
			s.logger.Warn("skipping summary dimension, column not present", "column", dim)
			continue
		}
		summary, err := s.ByColumn(t, dim)
		if err != nil {
			return nil, err
		}
		out[dim] = summary
	}
	return out, nil
}

// tripDate renders a trip timestamp's calendar date in the weather
// calendar's "2006-01-02" form. Unparseable timestamps yield an empty date,
// which classifies as Clear.
func (s *Summarizer) tripDate(timestamp string) string {
	t, ok := domain.ParseTimestamp(timestamp, s.layouts)
	if !ok {
		return ""
	}
	return t.Format("2006-01-02")
}
