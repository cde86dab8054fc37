package pipeline_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridereport/trip-data-etl/internal/domain"
	"github.com/ridereport/trip-data-etl/internal/observability"
	"github.com/ridereport/trip-data-etl/internal/pipeline"
)

// --- mocks ---

// mockSource serves in-memory tables keyed by path.
type mockSource struct {
	order  []string
	tables map[string]domain.Table
}

func (m *mockSource) Discover() ([]string, error) {
	if len(m.order) == 0 {
		return nil, domain.ErrEmptyInput
	}
	return m.order, nil
}

func (m *mockSource) ReadHeader(path string) (domain.Header, error) {
	t, ok := m.tables[path]
	if !ok {
		return domain.Header{}, fmt.Errorf("unknown path %s", path)
	}
	return domain.Header{Path: path, Columns: t.Columns}, nil
}

func (m *mockSource) ReadTable(path string) (domain.Table, error) {
	t, ok := m.tables[path]
	if !ok {
		return domain.Table{}, fmt.Errorf("unknown path %s", path)
	}
	return t, nil
}

func defaultOpts() pipeline.Options {
	return pipeline.Options{
		StartColumn:        "started_at",
		EndColumn:          "ended_at",
		IDColumns:          []string{"start_station_id"},
		BlockSize:          1000,
		Workers:            2,
		MaxDurationMinutes: 1440,
	}
}

// trip builds a row with the given start time and duration in minutes.
func trip(id string, start time.Time, durationMin int) []string {
	end := start.Add(time.Duration(durationMin) * time.Minute)
	return []string{id, start.Format("2006-01-02 15:04:05"), end.Format("2006-01-02 15:04:05")}
}

var baseStart = time.Date(2023, time.January, 5, 8, 0, 0, 0, time.UTC)

// --- tests ---

func TestPipeline_Run_TwoFileScenario(t *testing.T) {
	src := &mockSource{
		order: []string{"a.csv", "b.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at"},
				Rows: [][]string{
					trip("a1", baseStart, 30),
					trip("a2", baseStart.Add(time.Hour), 12),
				},
			},
			"b.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at", "member_casual"},
				Rows: [][]string{
					append(trip("b1", baseStart.AddDate(0, 6, 0), 45), "member"),
				},
			},
		},
	}

	p := pipeline.New(src, slog.Default(), observability.NewMetricsForTesting(), defaultOpts())

	combined, report, err := p.Run(context.Background())
	require.NoError(t, err)

	// Common schema is the intersection; member_casual is dropped, derived
	// columns are appended.
	wantCols := append([]string{"ride_id", "started_at", "ended_at"}, domain.DerivedColumns...)
	assert.Equal(t, wantCols, combined.Columns)

	// rows(A) + rows(B), in file order, no outliers removed.
	require.Equal(t, 3, combined.NumRows())
	assert.Equal(t, "a1", combined.Rows[0][0])
	assert.Equal(t, "a2", combined.Rows[1][0])
	assert.Equal(t, "b1", combined.Rows[2][0])

	seasonIdx := combined.ColumnIndex(domain.ColSeason)
	assert.Equal(t, "Winter", combined.Rows[0][seasonIdx])
	assert.Equal(t, "Summer", combined.Rows[2][seasonIdx])

	assert.Equal(t, 2, report.Files)
	assert.Equal(t, 3, report.RowsRead)
	assert.Equal(t, 3, report.RowsOut)
	assert.Equal(t, 0, report.OutliersRemoved)
	// a.csv lacks member_casual relative to the union; b.csv carries it as an
	// extra over the common schema.
	require.Len(t, report.Discrepancies, 2)
	assert.Equal(t, "a.csv", report.Discrepancies[0].Path)
	assert.Equal(t, []string{"member_casual"}, report.Discrepancies[0].Missing)
	assert.Equal(t, "b.csv", report.Discrepancies[1].Path)
	assert.Equal(t, []string{"member_casual"}, report.Discrepancies[1].Extra)
}

func TestPipeline_Run_OutlierAccounting(t *testing.T) {
	src := &mockSource{
		order: []string{"a.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at"},
				Rows: [][]string{
					trip("r1", baseStart, -5),
					trip("r2", baseStart, 0),
					trip("r3", baseStart, 30),
					trip("r4", baseStart, 1440),
					trip("r5", baseStart, 1441),
				},
			},
		},
	}

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(src, slog.Default(), metrics, defaultOpts())

	combined, report, err := p.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 3, combined.NumRows())
	var kept []string
	for _, row := range combined.Rows {
		kept = append(kept, row[0])
	}
	assert.Equal(t, []string{"r2", "r3", "r4"}, kept)

	assert.Equal(t, 2, report.OutliersRemoved)
	assert.Equal(t, 5, report.RowsRead)
	assert.Equal(t, 3, report.RowsOut)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.RowsDropped))
	assert.Equal(t, 5.0, testutil.ToFloat64(metrics.RowsRead))
}

func TestPipeline_Run_BlockSizeInvariance(t *testing.T) {
	rows := make([][]string, 0, 25)
	for i := 0; i < 25; i++ {
		rows = append(rows, trip(fmt.Sprintf("r%02d", i), baseStart.Add(time.Duration(i)*time.Hour), 10+i))
	}
	newSource := func() *mockSource {
		return &mockSource{
			order: []string{"a.csv"},
			tables: map[string]domain.Table{
				"a.csv": {Columns: []string{"ride_id", "started_at", "ended_at"}, Rows: rows},
			},
		}
	}

	wholeOpts := defaultOpts()
	wholeOpts.BlockSize = 1000
	wholeOpts.Workers = 1
	whole, _, err := pipeline.New(newSource(), slog.Default(), observability.NewMetricsForTesting(), wholeOpts).Run(context.Background())
	require.NoError(t, err)

	blockOpts := defaultOpts()
	blockOpts.BlockSize = 4
	blockOpts.Workers = 3
	blocked, _, err := pipeline.New(newSource(), slog.Default(), observability.NewMetricsForTesting(), blockOpts).Run(context.Background())
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(whole, blocked))
}

func TestPipeline_Run_NonPositiveBlockSize(t *testing.T) {
	src := &mockSource{
		order: []string{"a.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at"},
				Rows:    [][]string{trip("r1", baseStart, 10)},
			},
		},
	}

	opts := defaultOpts()
	opts.BlockSize = 0
	p := pipeline.New(src, slog.Default(), observability.NewMetricsForTesting(), opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	combined, _, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, combined.NumRows())
}

func TestPipeline_Run_TimestampFailurePolicy(t *testing.T) {
	src := &mockSource{
		order: []string{"a.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at"},
				Rows: [][]string{
					trip("good", baseStart, 15),
					{"bad", "not-a-timestamp", "2023-01-05 09:00:00"},
				},
			},
		},
	}

	metrics := observability.NewMetricsForTesting()
	p := pipeline.New(src, slog.Default(), metrics, defaultOpts())

	combined, report, err := p.Run(context.Background())
	require.NoError(t, err)

	// The malformed row is kept with nulled derived fields, not dropped.
	require.Equal(t, 2, combined.NumRows())
	durIdx := combined.ColumnIndex(domain.ColDuration)
	assert.Equal(t, domain.NullMarker, combined.Rows[1][durIdx])
	assert.Equal(t, 1, report.TimestampFailures)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TimestampFailures))
}

func TestPipeline_Run_CoercionFailureAborts(t *testing.T) {
	src := &mockSource{
		order: []string{"a.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at", "start_station_id"},
				Rows:    [][]string{append(trip("r1", baseStart, 10), "12.5")},
			},
		},
	}

	p := pipeline.New(src, slog.Default(), observability.NewMetricsForTesting(), defaultOpts())

	_, _, err := p.Run(context.Background())
	require.Error(t, err)

	var cerr *domain.CoercionError
	assert.ErrorAs(t, err, &cerr)
	assert.Contains(t, err.Error(), "a.csv")
}

func TestPipeline_Run_EmptyInput(t *testing.T) {
	p := pipeline.New(&mockSource{}, slog.Default(), observability.NewMetricsForTesting(), defaultOpts())

	_, _, err := p.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmptyInput)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	src := &mockSource{
		order: []string{"a.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at"},
				Rows:    [][]string{trip("r1", baseStart, 10)},
			},
		},
	}

	p := pipeline.New(src, slog.Default(), observability.NewMetricsForTesting(), defaultOpts())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Run_ReportTimestamps(t *testing.T) {
	frozen := time.Date(2023, time.September, 1, 6, 0, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(frozen))
	defer domain.SetClock(nil)

	src := &mockSource{
		order: []string{"a.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at", "ended_at"},
				Rows:    [][]string{trip("r1", baseStart, 10)},
			},
		},
	}

	p := pipeline.New(src, slog.Default(), observability.NewMetricsForTesting(), defaultOpts())

	_, report, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, frozen, report.StartedAt)
	assert.Equal(t, frozen, report.FinishedAt)
}

func TestPipeline_Run_MissingTimestampColumn(t *testing.T) {
	src := &mockSource{
		order: []string{"a.csv"},
		tables: map[string]domain.Table{
			"a.csv": {
				Columns: []string{"ride_id", "started_at"},
				Rows:    [][]string{{"r1", "2023-01-05 08:00:00"}},
			},
		},
	}

	p := pipeline.New(src, slog.Default(), observability.NewMetricsForTesting(), defaultOpts())

	_, _, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ended_at")
}
