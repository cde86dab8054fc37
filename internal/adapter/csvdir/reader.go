// Package csvdir reads and writes trip tables as CSV files in a directory.
// It implements the pipeline's Source and Sink interfaces.
package csvdir

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/ridereport/trip-data-etl/internal/domain"
)

// Reader discovers and reads source CSV files from a directory.
type Reader struct {
	dir     string
	pattern string
	logger  *slog.Logger
}

// NewReader creates a Reader over the given directory. pattern is a
// filepath.Match glob applied to file names, e.g. "*-tripdata.csv".
func NewReader(dir, pattern string, logger *slog.Logger) *Reader {
	return &Reader{dir: dir, pattern: pattern, logger: logger}
}

// Discover lists the source files matching the configured pattern, sorted by
// name so monthly exports concatenate in chronological order.
func (r *Reader) Discover() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(r.dir, r.pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", r.pattern, err)
	}
	sort.Strings(matches)

	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: no files matching %q in %s", domain.ErrEmptyInput, r.pattern, r.dir)
	}
	return matches, nil
}

// ReadHeader reads only the header row of one file. Zero data rows are
// consumed; schema reconciliation over a season of exports stays cheap.
func (r *Reader) ReadHeader(path string) (domain.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Header{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cols, err := cr.Read()
	if err == io.EOF {
		return domain.Header{}, fmt.Errorf("read header %s: file is empty", path)
	}
	if err != nil {
		return domain.Header{}, fmt.Errorf("read header %s: %w", path, err)
	}
	return domain.Header{Path: path, Columns: cols}, nil
}

// ReadTable reads one file in full. The file handle is scoped to this call.
func (r *Reader) ReadTable(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	// Exports occasionally pad or truncate trailing columns; tolerate ragged
	// rows and let normalization null-fill the gaps.
	cr.FieldsPerRecord = -1

	all, err := cr.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("read %s: %w", path, err)
	}
	if len(all) == 0 {
		return domain.Table{}, fmt.Errorf("read %s: file is empty", path)
	}

	t := domain.Table{Columns: all[0], Rows: all[1:]}
	r.logger.Debug("read source file", "path", path, "rows", t.NumRows(), "columns", len(t.Columns))
	return t, nil
}
