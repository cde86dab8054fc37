package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ridereport/trip-data-etl/internal/domain"
	"github.com/ridereport/trip-data-etl/internal/observability"
)

// Source provides the input CSV files: discovery, header-only reads for
// schema reconciliation, and scoped full reads.
type Source interface {
	Discover() ([]string, error)
	ReadHeader(path string) (domain.Header, error)
	ReadTable(path string) (domain.Table, error)
}

// Options control a batch run.
type Options struct {
	StartColumn string // trip start timestamp column
	EndColumn   string // trip end timestamp column
	IDColumns   []string

	// TimestampLayouts tried in order when parsing the timestamp columns.
	// Nil means domain.DefaultTimestampLayouts.
	TimestampLayouts []string

	BlockSize          int
	Workers            int
	MaxDurationMinutes float64
}

// Pipeline orchestrates the reconcile-normalize-concatenate-transform run.
type Pipeline struct {
	source  Source
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    Options

	mu      sync.Mutex
	status  RunReport
	running bool
}

// defaultBlockSize bounds per-block memory when the caller does not set one.
const defaultBlockSize = 1_000_000

// New creates a Pipeline with the given source and observability.
// Non-positive Workers and BlockSize fall back to safe defaults.
func New(source Source, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if opts.TimestampLayouts == nil {
		opts.TimestampLayouts = domain.DefaultTimestampLayouts
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = defaultBlockSize
	}
	return &Pipeline{source: source, logger: logger, metrics: metrics, opts: opts}
}

// RunReport summarizes one batch run for logging and validation.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	Files             int
	RowsRead          int
	RowsOut           int
	OutliersRemoved   int
	TimestampFailures int
	Discrepancies     []domain.Discrepancy
}

// Status returns a snapshot of the current or most recent run, and whether a
// run is in progress. Safe for concurrent use with Run.
func (p *Pipeline) Status() (RunReport, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, p.running
}

func (p *Pipeline) publish(report RunReport, running bool) {
	p.mu.Lock()
	p.status = report
	p.running = running
	p.mu.Unlock()
}

// Run executes the batch once: reconcile schemas, normalize and concatenate
// every source file, derive trip fields block-wise, and filter duration
// outliers. A failure at any stage aborts the run; there are no retries.
func (p *Pipeline) Run(ctx context.Context) (domain.Table, RunReport, error) {
	report := RunReport{StartedAt: domain.Now()}
	p.publish(report, true)
	defer func() { p.publish(report, false) }()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	files, err := p.source.Discover()
	if err != nil {
		return domain.Table{}, report, err
	}
	p.logger.Info("pipeline started", "files", len(files), "block_size", p.opts.BlockSize, "workers", p.opts.Workers)

	schema, discrepancies, err := p.reconcile(files)
	if err != nil {
		return domain.Table{}, report, err
	}
	report.Discrepancies = discrepancies

	combined, rowsRead, err := p.normalizeAndConcat(ctx, files, schema)
	if err != nil {
		return domain.Table{}, report, err
	}
	report.Files = len(files)
	report.RowsRead = rowsRead
	p.publish(report, true)

	transformed, parseFailures, err := p.transformBlocks(ctx, combined)
	if err != nil {
		return domain.Table{}, report, err
	}
	report.TimestampFailures = parseFailures
	p.metrics.TimestampFailures.Add(float64(parseFailures))
	if parseFailures > 0 {
		p.logger.Warn("timestamps failed to parse, derived fields nulled", "rows", parseFailures)
	}

	filtered, removed := domain.FilterDurationOutliers(transformed, p.opts.MaxDurationMinutes)
	p.metrics.RowsDropped.Add(float64(removed))
	p.logger.Info("duration outliers removed", "count", removed, "max_minutes", p.opts.MaxDurationMinutes)
	report.OutliersRemoved = removed
	report.RowsOut = filtered.NumRows()

	report.FinishedAt = domain.Now()
	p.logger.Info("pipeline finished",
		"files", report.Files,
		"rows_read", report.RowsRead,
		"rows_out", report.RowsOut,
		"outliers_removed", report.OutliersRemoved,
		"timestamp_failures", report.TimestampFailures,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return filtered, report, nil
}

// reconcile reads every header and computes the common schema, logging each
// per-file discrepancy.
func (p *Pipeline) reconcile(files []string) (domain.CommonSchema, []domain.Discrepancy, error) {
	headers := make([]domain.Header, 0, len(files))
	for _, path := range files {
		h, err := p.source.ReadHeader(path)
		if err != nil {
			return domain.CommonSchema{}, nil, err
		}
		headers = append(headers, h)
	}

	schema, discrepancies, err := domain.Reconcile(headers)
	if err != nil {
		return domain.CommonSchema{}, nil, fmt.Errorf("reconcile schemas: %w", err)
	}
	for _, d := range discrepancies {
		p.logger.Warn("schema discrepancy", "path", d.Path, "extra_columns", d.Extra, "missing_columns", d.Missing)
	}
	p.logger.Info("schemas reconciled", "common_columns", len(schema.Columns))
	return schema, discrepancies, nil
}

// normalizeAndConcat reads each file in turn, normalizes it to the common
// schema, and appends it to the combined table. Per-file tables are released
// as soon as they are concatenated to bound peak memory.
func (p *Pipeline) normalizeAndConcat(ctx context.Context, files []string, schema domain.CommonSchema) (domain.Table, int, error) {
	normalized := make([]domain.Table, 0, len(files))
	rowsRead := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return domain.Table{}, 0, err
		}

		t, err := p.source.ReadTable(path)
		if err != nil {
			return domain.Table{}, 0, err
		}
		rowsRead += t.NumRows()
		p.metrics.RowsRead.Add(float64(t.NumRows()))

		n, err := domain.Normalize(t, schema, p.opts.IDColumns)
		if err != nil {
			return domain.Table{}, 0, fmt.Errorf("normalize %s: %w", path, err)
		}
		p.metrics.FilesProcessed.Inc()
		normalized = append(normalized, n)
	}

	combined, err := domain.Concat(normalized)
	if err != nil {
		return domain.Table{}, 0, fmt.Errorf("concatenate: %w", err)
	}
	return combined, rowsRead, nil
}
