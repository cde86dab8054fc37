package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ridereport/trip-data-etl/internal/domain"
)

// blockRange is one contiguous row partition [start, end).
type blockRange struct {
	start, end int
}

// partition splits n rows into blocks of at most size rows.
func partition(n, size int) []blockRange {
	var blocks []blockRange
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		blocks = append(blocks, blockRange{start: start, end: end})
	}
	return blocks
}

// transformBlocks derives the trip fields block-wise on up to Workers
// goroutines. Blocks share no mutable state; results are collected per block
// index and reassembled in ascending order, so the output is row-for-row
// identical to a whole-table transform regardless of block size or worker
// count.
func (p *Pipeline) transformBlocks(ctx context.Context, t domain.Table) (domain.Table, int, error) {
	startIdx := t.ColumnIndex(p.opts.StartColumn)
	endIdx := t.ColumnIndex(p.opts.EndColumn)
	if startIdx < 0 {
		return domain.Table{}, 0, fmt.Errorf("start column %q not in common schema", p.opts.StartColumn)
	}
	if endIdx < 0 {
		return domain.Table{}, 0, fmt.Errorf("end column %q not in common schema", p.opts.EndColumn)
	}

	blocks := partition(t.NumRows(), p.opts.BlockSize)
	results := make([]domain.TransformResult, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)
	for i, b := range blocks {
		i, b := i, b
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			begin := time.Now()
			results[i] = domain.TransformRows(t.Rows[b.start:b.end], startIdx, endIdx, p.opts.TimestampLayouts)
			p.metrics.BlocksProcessed.Inc()
			p.metrics.BlockProcessingDuration.Observe(time.Since(begin).Seconds())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.Table{}, 0, err
	}

	out := domain.Table{
		Columns: append(slices.Clone(t.Columns), domain.DerivedColumns...),
		Rows:    make([][]string, 0, t.NumRows()),
	}
	parseFailures := 0
	for _, r := range results {
		out.Rows = append(out.Rows, r.Rows...)
		parseFailures += r.ParseFailures
	}
	return out, parseFailures, nil
}
