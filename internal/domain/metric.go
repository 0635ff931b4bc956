package domain

import (
	"fmt"
	"strings"
)

// Metric describes one World Bank indicator exposed by the climate API.
type Metric struct {
	Key   string `json:"key"`
	Name  string `json:"name"`  // World Bank indicator name
	Title string `json:"title"` // short label for legends and tooltips
	Unit  string `json:"unit"`
}

var catalog = []Metric{
	{
		Key:   "co2",
		Name:  "Carbon dioxide (CO2) emissions (total) excluding LULUCF (Mt CO2e)",
		Title: "CO₂ Emissions",
		Unit:  "Mt",
	},
	{
		Key:   "renewable",
		Name:  "Renewable energy consumption (% of total final energy consumption)",
		Title: "Renewable Energy",
		Unit:  "%",
	},
	{
		Key:   "forest",
		Name:  "Forest area (% of land area)",
		Title: "Forest Area",
		Unit:  "% of land area",
	},
	{
		Key:   "air_pollution",
		Name:  "PM2.5 air pollution, mean annual exposure (micrograms per cubic meter)",
		Title: "PM2.5 Air Pollution",
		Unit:  "µg/m³",
	},
}

// Metrics returns the metric catalog in display order.
func Metrics() []Metric {
	out := make([]Metric, len(catalog))
	copy(out, catalog)
	return out
}

// LookupMetric finds a metric by key, case-insensitively.
func LookupMetric(key string) (Metric, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, m := range catalog {
		if m.Key == key {
			return m, nil
		}
	}
	return Metric{}, fmt.Errorf("%w: %q", ErrUnknownMetric, key)
}

// MetricForIndicator maps a World Bank indicator name back to its metric.
func MetricForIndicator(name string) (Metric, bool) {
	for _, m := range catalog {
		if m.Name == name {
			return m, true
		}
	}
	return Metric{}, false
}

// Label renders the legend title for a year, e.g. "CO₂ Emissions (Mt) - 2023".
func (m Metric) Label(year int) string {
	return fmt.Sprintf("%s (%s) - %d", m.Title, m.Unit, year)
}
