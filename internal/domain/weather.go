package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Weather conditions derived from the daily precipitation record.
const (
	WeatherClear    = "Clear"
	WeatherRain     = "Rain only"
	WeatherSnow     = "Snow only"
	WeatherRainSnow = "Rain + Snow"
)

// WeatherDay is one entry in the auxiliary weather document's "days" array.
type WeatherDay struct {
	Date          string   `json:"date"`          // calendar date, "2006-01-02"
	Precipitation []string `json:"precipitation"` // e.g. ["rain"], ["rain","snow"]
}

type weatherDoc struct {
	Days []WeatherDay `json:"days"`
}

// WeatherCalendar classifies calendar dates by precipitation type.
type WeatherCalendar struct {
	conditions map[string]string
}

// LoadWeather parses the auxiliary weather JSON document.
func LoadWeather(data []byte) (*WeatherCalendar, error) {
	var doc weatherDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse weather document: %w", err)
	}
	return NewWeatherCalendar(doc.Days), nil
}

// NewWeatherCalendar builds a calendar from parsed day entries.
func NewWeatherCalendar(days []WeatherDay) *WeatherCalendar {
	c := &WeatherCalendar{conditions: make(map[string]string, len(days))}
	for _, d := range days {
		c.conditions[d.Date] = classify(d.Precipitation)
	}
	return c
}

// Condition returns the weather classification for a date. Dates with no
// recorded precipitation entry are Clear.
func (c *WeatherCalendar) Condition(date string) string {
	if cond, ok := c.conditions[date]; ok {
		return cond
	}
	return WeatherClear
}

func classify(precipitation []string) string {
	var rain, snow bool
	for _, p := range precipitation {
		switch strings.ToLower(strings.TrimSpace(p)) {
		case "rain", "drizzle", "freezing rain":
			rain = true
		case "snow", "sleet":
			snow = true
		}
	}

	switch {
	case rain && snow:
		return WeatherRainSnow
	case rain:
		return WeatherRain
	case snow:
		return WeatherSnow
	default:
		return WeatherClear
	}
}
