// Command validate performs end-to-end integrity checks on a persisted
// combined table against the source CSVs it was built from. It recomputes
// the expected result with the same domain transforms and verifies schema
// alignment, row accounting, and derived-field correctness.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -source-dir data/source \
//	  -pattern '*-tripdata.csv' \
//	  -combined data/out/combined.csv
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"

	"github.com/ridereport/trip-data-etl/internal/adapter/csvdir"
	"github.com/ridereport/trip-data-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	sourceDir := flag.String("source-dir", "", "directory containing source trip CSVs")
	pattern := flag.String("pattern", "*-tripdata.csv", "glob applied to source file names")
	combined := flag.String("combined", "", "path to the persisted combined table CSV")
	flag.Parse()

	if *sourceDir == "" || *combined == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*sourceDir, *pattern, *combined); code != 0 {
		os.Exit(code)
	}
}

func run(sourceDir, pattern, combinedPath string) int {
	fmt.Println("=== Trip Data Integrity Validation ===")
	fmt.Println()

	expected, err := recompute(sourceDir, pattern)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: recompute expected table: %v\n", err)
		return 1
	}

	actual, err := loadCSV(combinedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load combined CSV: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateSchema(expected, actual),
		validateRowAccounting(expected, actual),
		validateDerivedFields(actual),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Rows: %d expected, %d in combined CSV\n", expected.NumRows(), actual.NumRows())

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// recompute re-runs the full transformation over the source files using the
// same domain functions as the pipeline.
func recompute(sourceDir, pattern string) (domain.Table, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	reader := csvdir.NewReader(sourceDir, pattern, logger)

	files, err := reader.Discover()
	if err != nil {
		return domain.Table{}, err
	}

	headers := make([]domain.Header, 0, len(files))
	for _, path := range files {
		h, err := reader.ReadHeader(path)
		if err != nil {
			return domain.Table{}, err
		}
		headers = append(headers, h)
	}
	schema, _, err := domain.Reconcile(headers)
	if err != nil {
		return domain.Table{}, err
	}

	idColumns := []string{"start_station_id", "end_station_id"}
	tables := make([]domain.Table, 0, len(files))
	for _, path := range files {
		t, err := reader.ReadTable(path)
		if err != nil {
			return domain.Table{}, err
		}
		n, err := domain.Normalize(t, schema, idColumns)
		if err != nil {
			return domain.Table{}, fmt.Errorf("normalize %s: %w", path, err)
		}
		tables = append(tables, n)
	}

	combined, err := domain.Concat(tables)
	if err != nil {
		return domain.Table{}, err
	}

	startIdx := combined.ColumnIndex("started_at")
	endIdx := combined.ColumnIndex("ended_at")
	if startIdx < 0 || endIdx < 0 {
		return domain.Table{}, fmt.Errorf("timestamp columns not in common schema %v", combined.Columns)
	}

	result := domain.TransformRows(combined.Rows, startIdx, endIdx, domain.DefaultTimestampLayouts)
	transformed := domain.Table{
		Columns: append(slices.Clone(combined.Columns), domain.DerivedColumns...),
		Rows:    result.Rows,
	}
	filtered, _ := domain.FilterDurationOutliers(transformed, 1440)
	return filtered, nil
}

func loadCSV(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.Table{}, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return domain.Table{}, err
	}
	if len(all) == 0 {
		return domain.Table{}, fmt.Errorf("no rows in %s", path)
	}
	return domain.Table{Columns: all[0], Rows: all[1:]}, nil
}

// ── Phase 1: Schema Alignment ──

func validateSchema(expected, actual domain.Table) *phase {
	p := &phase{name: "Phase 1: Schema Alignment"}

	if !slices.Equal(expected.Columns, actual.Columns) {
		p.errorf("columns: expected %v, got %v", expected.Columns, actual.Columns)
	}
	for _, col := range domain.DerivedColumns {
		if actual.ColumnIndex(col) < 0 {
			p.errorf("derived column %q missing from combined CSV", col)
		}
	}
	return p
}

// ── Phase 2: Row Accounting ──

func validateRowAccounting(expected, actual domain.Table) *phase {
	p := &phase{name: "Phase 2: Row Accounting"}

	if expected.NumRows() != actual.NumRows() {
		p.errorf("row count: expected %d, got %d", expected.NumRows(), actual.NumRows())
		return p
	}
	for i := range expected.Rows {
		if !slices.Equal(expected.Rows[i], actual.Rows[i]) {
			p.errorf("row %d: expected %v, got %v", i, expected.Rows[i], actual.Rows[i])
			if len(p.errors) >= 10 {
				p.errorf("further row mismatches suppressed")
				break
			}
		}
	}
	return p
}

// ── Phase 3: Derived Fields ──

var validSeasons = map[string]bool{"Winter": true, "Spring": true, "Summer": true, "Fall": true}

func validateDerivedFields(actual domain.Table) *phase {
	p := &phase{name: "Phase 3: Derived Fields"}

	durIdx := actual.ColumnIndex(domain.ColDuration)
	seasonIdx := actual.ColumnIndex(domain.ColSeason)
	hourIdx := actual.ColumnIndex(domain.ColStartHour)
	if durIdx < 0 || seasonIdx < 0 || hourIdx < 0 {
		p.errorf("derived columns missing, skipping field checks")
		return p
	}

	for i, row := range actual.Rows {
		if row[durIdx] == domain.NullMarker {
			continue
		}
		d, err := strconv.ParseFloat(row[durIdx], 64)
		if err != nil {
			p.errorf("row %d: duration %q is not numeric", i, row[durIdx])
			continue
		}
		if d < 0 || d > 1440 {
			p.errorf("row %d: duration %g outside [0, 1440], outlier filter missed it", i, d)
		}
		if !validSeasons[row[seasonIdx]] {
			p.errorf("row %d: season %q not in {Winter, Spring, Summer, Fall}", i, row[seasonIdx])
		}
		if h, err := strconv.Atoi(row[hourIdx]); err != nil || h < 0 || h > 23 {
			p.errorf("row %d: start_hour %q outside 0-23", i, row[hourIdx])
		}
	}
	return p
}
