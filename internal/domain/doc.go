// Package domain models bicycle-share trip data and the tabular operations
// that turn a directory of heterogeneous monthly CSV exports into one
// normalized table.
//
// # Data Source
//
// Trip records come from monthly system-data CSV exports. Each file has a
// header row, but the schema drifts across months: columns are added
// (rideable type, member/casual flag), renamed, or dropped, and station
// identifier columns flip between textual and numeric representation
// depending on which tool produced the export. The pipeline aligns all
// files on the intersection of their column names before concatenating.
//
// # Identifier Coercion
//
// Station identifier columns are always represented as text. Exports that
// passed through a numeric parser carry float-formatted IDs ("523.0",
// "5.23e2"); these are rendered back to bare digits. A fractional value in
// an identifier column is treated as corruption and fails the file. See
// [CoerceIdentifier].
//
// # Derived Fields
//
// The block transformer appends five columns per trip, all computed from
// the start/end timestamps:
//
//	duration_min  signed minutes between start and end (may be negative
//	              until the outlier filter runs)
//	month         start month label, e.g. "January"
//	day_of_week   start weekday label, e.g. "Monday"
//	season        calendar mapping: Dec-Feb Winter, Mar-May Spring,
//	              Jun-Aug Summer, Sep-Nov Fall
//	start_hour    0-23
//
// Timestamps that match none of the configured layouts null the derived
// fields for that row; the failure count is reported rather than aborting
// the batch.
//
// # Duration Outliers
//
// After block reassembly, rows with duration < 0 or > 1440 minutes are
// removed and the removed-row count is surfaced for auditing. Null
// durations are kept; the filter rejects out-of-range measurements, not
// missing ones.
//
// # Weather Classification
//
// An auxiliary JSON document lists per-date precipitation types. Each date
// classifies into Clear, Rain only, Snow only, or Rain + Snow; dates with
// no entry are Clear. The aggregator joins this onto trips by start date.
package domain
