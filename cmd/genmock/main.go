// Command genmock generates synthetic monthly trip CSV fixtures with
// deliberately drifting schemas, plus a matching weather JSON document, for
// local pipeline runs and test updates. Generation is seeded so fixtures are
// reproducible.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/source -months 3 -rows 500 -seed 1
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/ridereport/trip-data-etl/internal/domain"
)

// monthSchema describes one export's column drift.
type monthSchema struct {
	columns []string
	// floatIDs renders station identifiers the way a numeric parser leaves
	// them ("523.0"), exercising identifier coercion downstream.
	floatIDs bool
}

// schemas cycles across generated months: the first export predates the
// bike-type and rider-type columns, the second adds rider type with
// float-damaged station IDs, the third is the full modern schema.
var schemas = []monthSchema{
	{columns: []string{"ride_id", "started_at", "ended_at", "start_station_id", "end_station_id"}},
	{columns: []string{"ride_id", "started_at", "ended_at", "start_station_id", "end_station_id", "member_casual"}, floatIDs: true},
	{columns: []string{"ride_id", "rideable_type", "started_at", "ended_at", "start_station_id", "end_station_id", "member_casual"}},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "", "directory for generated trip CSVs and weather.json")
	months := flag.Int("months", 3, "number of monthly exports to generate")
	rows := flag.Int("rows", 500, "trip rows per export")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out-dir")
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	start := time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

	var weatherDays []domain.WeatherDay
	for m := 0; m < *months; m++ {
		monthStart := start.AddDate(0, m, 0)
		name := monthStart.Format("200601") + "-tripdata.csv"
		schema := schemas[m%len(schemas)]

		if err := writeMonth(filepath.Join(*outDir, name), schema, monthStart, *rows, rng); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		weatherDays = append(weatherDays, monthWeather(monthStart, rng)...)
		log.Printf("%s: %d rows, %d columns", name, *rows, len(schema.columns))
	}

	weatherPath := filepath.Join(*outDir, "weather.json")
	if err := writeWeather(weatherPath, weatherDays); err != nil {
		return fmt.Errorf("writing weather document: %w", err)
	}
	log.Printf("wrote weather document: %s", weatherPath)
	return nil
}

func writeMonth(path string, schema monthSchema, monthStart time.Time, rows int, rng *rand.Rand) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(schema.columns); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		rec := tripRow(schema, monthStart, i, rng)
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func tripRow(schema monthSchema, monthStart time.Time, n int, rng *rand.Rand) []string {
	startT := monthStart.
		AddDate(0, 0, rng.Intn(28)).
		Add(time.Duration(rng.Intn(24*60)) * time.Minute)

	// Mostly ordinary trips, with a sprinkle of outliers the filter must
	// remove: negative durations (clock skew) and >24h durations (unreturned
	// bikes).
	var durationMin int
	switch {
	case n%97 == 0:
		durationMin = -rng.Intn(30) - 1
	case n%101 == 0:
		durationMin = 1441 + rng.Intn(600)
	default:
		durationMin = 3 + rng.Intn(57)
	}
	endT := startT.Add(time.Duration(durationMin) * time.Minute)

	values := map[string]string{
		"ride_id":          fmt.Sprintf("%s%08X", monthStart.Format("0601"), rng.Uint32()),
		"rideable_type":    pick(rng, "classic_bike", "electric_bike", "docked_bike"),
		"started_at":       startT.Format("2006-01-02 15:04:05"),
		"ended_at":         endT.Format("2006-01-02 15:04:05"),
		"start_station_id": stationID(schema, rng),
		"end_station_id":   stationID(schema, rng),
		"member_casual":    pick(rng, "member", "member", "casual"),
	}

	rec := make([]string, len(schema.columns))
	for i, col := range schema.columns {
		rec[i] = values[col]
	}
	return rec
}

func stationID(schema monthSchema, rng *rand.Rand) string {
	id := 100 + rng.Intn(900)
	if schema.floatIDs {
		return fmt.Sprintf("%d.0", id)
	}
	return fmt.Sprintf("%d", id)
}

func pick(rng *rand.Rand, options ...string) string {
	return options[rng.Intn(len(options))]
}

// monthWeather generates a precipitation entry for roughly half the days of
// the month so every condition class appears in the fixture.
func monthWeather(monthStart time.Time, rng *rand.Rand) []domain.WeatherDay {
	var days []domain.WeatherDay
	for d := 0; d < 28; d++ {
		date := monthStart.AddDate(0, 0, d).Format("2006-01-02")
		switch rng.Intn(4) {
		case 0:
			days = append(days, domain.WeatherDay{Date: date, Precipitation: []string{"rain"}})
		case 1:
			days = append(days, domain.WeatherDay{Date: date, Precipitation: []string{"snow"}})
		case 2:
			days = append(days, domain.WeatherDay{Date: date, Precipitation: []string{"rain", "snow"}})
		}
	}
	return days
}

func writeWeather(path string, days []domain.WeatherDay) error {
	doc := struct {
		Days []domain.WeatherDay `json:"days"`
	}{Days: days}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}
