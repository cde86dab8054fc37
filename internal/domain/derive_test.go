package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridereport/trip-data-etl/internal/domain"
)

func TestSeason_TotalMapping(t *testing.T) {
	want := map[time.Month]string{
		time.December: "Winter", time.January: "Winter", time.February: "Winter",
		time.March: "Spring", time.April: "Spring", time.May: "Spring",
		time.June: "Summer", time.July: "Summer", time.August: "Summer",
		time.September: "Fall", time.October: "Fall", time.November: "Fall",
	}

	for m := time.January; m <= time.December; m++ {
		assert.Equal(t, want[m], domain.Season(m), "month %s", m)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Time
		ok    bool
	}{
		{"seconds layout", "2023-01-05 08:15:30", time.Date(2023, 1, 5, 8, 15, 30, 0, time.UTC), true},
		{"minutes layout", "2023-01-05 08:15", time.Date(2023, 1, 5, 8, 15, 0, 0, time.UTC), true},
		{"rfc3339", "2023-01-05T08:15:30Z", time.Date(2023, 1, 5, 8, 15, 30, 0, time.UTC), true},
		{"us slash layout", "1/5/2023 08:15:30", time.Date(2023, 1, 5, 8, 15, 30, 0, time.UTC), true},
		{"garbage", "not-a-time", time.Time{}, false},
		{"empty", "", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := domain.ParseTimestamp(tt.value, domain.DefaultTimestampLayouts)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.True(t, got.Equal(tt.want), "got %s", got)
			}
		})
	}
}

func TestDeriveTripFields(t *testing.T) {
	t.Run("ordinary trip", func(t *testing.T) {
		f := domain.DeriveTripFields("2023-01-05 08:00:00", "2023-01-05 08:30:30", domain.DefaultTimestampLayouts)

		require.True(t, f.Parsed)
		assert.Equal(t, "30.5", f.DurationMin)
		assert.Equal(t, "January", f.Month)
		assert.Equal(t, "Thursday", f.DayOfWeek)
		assert.Equal(t, "Winter", f.Season)
		assert.Equal(t, "8", f.StartHour)
	})

	t.Run("negative duration survives derivation", func(t *testing.T) {
		f := domain.DeriveTripFields("2023-06-10 12:00:00", "2023-06-10 11:55:00", domain.DefaultTimestampLayouts)

		require.True(t, f.Parsed)
		assert.Equal(t, "-5", f.DurationMin)
		assert.Equal(t, "Summer", f.Season)
	})

	t.Run("unparseable timestamp nulls everything", func(t *testing.T) {
		f := domain.DeriveTripFields("garbage", "2023-06-10 12:00:00", domain.DefaultTimestampLayouts)

		assert.False(t, f.Parsed)
		assert.Equal(t, domain.NullMarker, f.DurationMin)
		assert.Equal(t, domain.NullMarker, f.Season)
	})
}

func TestTransformRows(t *testing.T) {
	rows := [][]string{
		{"a1", "2023-01-05 08:00:00", "2023-01-05 08:30:00"},
		{"a2", "bad", "2023-01-05 09:00:00"},
	}

	result := domain.TransformRows(rows, 1, 2, domain.DefaultTimestampLayouts)

	require.Len(t, result.Rows, 2)
	assert.Equal(t, 1, result.ParseFailures)

	assert.Equal(t, []string{"a1", "2023-01-05 08:00:00", "2023-01-05 08:30:00", "30", "January", "Thursday", "Winter", "8"}, result.Rows[0])
	assert.Equal(t, []string{"a2", "bad", "2023-01-05 09:00:00", "", "", "", "", ""}, result.Rows[1])

	// Input rows are not mutated; blocks share the combined table's backing.
	assert.Equal(t, []string{"a1", "2023-01-05 08:00:00", "2023-01-05 08:30:00"}, rows[0])
}

func TestFilterDurationOutliers(t *testing.T) {
	table := func(durations ...string) domain.Table {
		t := domain.Table{Columns: []string{"ride_id", domain.ColDuration}}
		for i, d := range durations {
			t.Rows = append(t.Rows, []string{string(rune('a' + i)), d})
		}
		return t
	}

	t.Run("boundary durations", func(t *testing.T) {
		out, removed := domain.FilterDurationOutliers(table("-5", "0", "30", "1440", "1441"), 1440)

		assert.Equal(t, 2, removed)
		var kept []string
		for _, row := range out.Rows {
			kept = append(kept, row[1])
		}
		assert.Equal(t, []string{"0", "30", "1440"}, kept)
	})

	t.Run("null durations kept", func(t *testing.T) {
		out, removed := domain.FilterDurationOutliers(table(domain.NullMarker, "10"), 1440)

		assert.Equal(t, 0, removed)
		assert.Equal(t, 2, out.NumRows())
	})

	t.Run("missing duration column is a no-op", func(t *testing.T) {
		in := domain.Table{Columns: []string{"ride_id"}, Rows: [][]string{{"a"}}}
		out, removed := domain.FilterDurationOutliers(in, 1440)

		assert.Equal(t, 0, removed)
		assert.Equal(t, in, out)
	})
}
