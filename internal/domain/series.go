package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// ValueRange is the [Min, Max] color domain for one (metric, year) selection.
// Empty is set when no country has a value for the year; Min and Max then
// hold the 0/1 defaults.
type ValueRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Empty bool    `json:"empty,omitempty"`
}

// MetricSeriesStore holds country -> year -> value for one metric.
type MetricSeriesStore struct {
	metric    Metric
	values    map[string]map[int]float64
	countries []string
	years     []int
}

// SeriesReport counts what ParseMetricSeries dropped.
type SeriesReport struct {
	Countries        int // retained countries
	Values           int // retained (country, year) values
	UnknownCountries int // countries absent from metadata
	SkippedValues    int // unparseable or non-finite values, or non-integer years
}

// ParseMetricSeries builds a store from the /api/wb/metric payload, keeping
// only countries present in meta and only finite values.
func ParseMetricSeries(metric Metric, data []byte, meta *MetadataStore) (*MetricSeriesStore, SeriesReport, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, SeriesReport{}, fmt.Errorf("parse %s series: %w", metric.Key, err)
	}

	s := &MetricSeriesStore{
		metric: metric,
		values: make(map[string]map[int]float64, len(raw)),
	}
	var report SeriesReport
	yearSet := make(map[int]struct{})

	for country, byYear := range raw {
		if !meta.Has(country) {
			report.UnknownCountries++
			continue
		}
		values, skipped := parseYearValues(byYear)
		report.SkippedValues += skipped
		s.values[country] = values
		for year := range values {
			yearSet[year] = struct{}{}
		}
		report.Values += len(values)
	}

	s.countries = make([]string, 0, len(s.values))
	for country := range s.values {
		s.countries = append(s.countries, country)
	}
	sort.Strings(s.countries)

	s.years = make([]int, 0, len(yearSet))
	for year := range yearSet {
		s.years = append(s.years, year)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(s.years)))

	report.Countries = len(s.countries)
	return s, report, nil
}

// CountrySeries extracts one country's values from a /api/wb/metric payload
// without metadata filtering, ordered by ascending year.
func CountrySeries(data []byte, country string) ([]int, []float64, error) {
	var raw map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, fmt.Errorf("parse country series: %w", err)
	}
	byYear, ok := raw[country]
	if !ok {
		return nil, nil, fmt.Errorf("%w for country %q", ErrNoData, country)
	}
	values, _ := parseYearValues(byYear)
	if len(values) == 0 {
		return nil, nil, fmt.Errorf("%w for country %q", ErrNoData, country)
	}

	years := make([]int, 0, len(values))
	for year := range values {
		years = append(years, year)
	}
	sort.Ints(years)
	out := make([]float64, len(years))
	for i, year := range years {
		out[i] = values[year]
	}
	return years, out, nil
}

func parseYearValues(byYear map[string]json.RawMessage) (map[int]float64, int) {
	values := make(map[int]float64, len(byYear))
	skipped := 0
	for yearKey, rawValue := range byYear {
		year, err := strconv.Atoi(strings.TrimSpace(yearKey))
		if err != nil {
			skipped++
			continue
		}
		v, ok := parseLooseNumber(rawValue)
		if !ok {
			skipped++
			continue
		}
		values[year] = v
	}
	return values, skipped
}

// Metric returns the metric this store was built for.
func (s *MetricSeriesStore) Metric() Metric {
	return s.metric
}

// Value returns the value for a country and year.
func (s *MetricSeriesStore) Value(country string, year int) (float64, bool) {
	if s == nil {
		return 0, false
	}
	v, ok := s.values[country][year]
	return v, ok
}

// Countries returns the retained countries in ascending order.
func (s *MetricSeriesStore) Countries() []string {
	if s == nil {
		return nil
	}
	return s.countries
}

// Years returns the union of years across all countries, newest first.
func (s *MetricSeriesStore) Years() []int {
	if s == nil {
		return nil
	}
	return s.years
}

// HasYear reports whether any country has a value for year.
func (s *MetricSeriesStore) HasYear(year int) bool {
	for _, y := range s.Years() {
		if y == year {
			return true
		}
	}
	return false
}

// Range computes the per-year color domain across all countries.
func (s *MetricSeriesStore) Range(year int) ValueRange {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, country := range s.Countries() {
		v, ok := s.values[country][year]
		if !ok {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		return ValueRange{Min: 0, Max: 1, Empty: true}
	}
	return ValueRange{Min: lo, Max: hi}
}
