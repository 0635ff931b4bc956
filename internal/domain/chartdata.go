package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// GlobalSeries is a NASA global indicator, e.g. global temperature anomaly.
type GlobalSeries struct {
	Years  []float64 `json:"years"`
	Values []float64 `json:"values"`
}

// Validate checks that years and values pair up and that there is data.
func (g GlobalSeries) Validate() error {
	if len(g.Years) != len(g.Values) {
		return fmt.Errorf("global series: %d years but %d values", len(g.Years), len(g.Values))
	}
	if len(g.Years) == 0 {
		return fmt.Errorf("global series: %w", ErrNoData)
	}
	return nil
}

// CountryValue is one flat World Bank record, as returned by /api/top.
type CountryValue struct {
	Country string
	Year    int
	Value   float64
	Valid   bool // false when the value was null or unparseable
}

// UnmarshalJSON accepts "country" as a string or an {"id", "value"} object,
// and "year"/"value" as numbers or numeric strings.
func (c *CountryValue) UnmarshalJSON(b []byte) error {
	var rec struct {
		Country json.RawMessage `json:"country"`
		Year    json.RawMessage `json:"year"`
		Value   json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &rec); err != nil {
		return err
	}

	c.Country = decodeCountryName(rec.Country)
	if y, ok := parseLooseNumber(rec.Year); ok {
		c.Year = int(y)
	}
	c.Value, c.Valid = parseLooseNumber(rec.Value)
	return nil
}

func decodeCountryName(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return strings.TrimSpace(name)
	}
	var obj struct {
		ID    string `json:"id"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Value != "" {
			return strings.TrimSpace(obj.Value)
		}
		return strings.TrimSpace(obj.ID)
	}
	return ""
}

// PredictionSeries decodes the /api/predict payload for one series name.
// The payload maps series names to arrays of predicted values.
func PredictionSeries(data []byte, name string) ([]float64, error) {
	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse prediction: %w", err)
	}
	list, ok := raw[name]
	if !ok || len(list) == 0 {
		return nil, fmt.Errorf("prediction %q: %w", name, ErrNoData)
	}
	out := make([]float64, 0, len(list))
	for i, item := range list {
		v, ok := parseLooseNumber(item)
		if !ok {
			return nil, fmt.Errorf("prediction %q: value %d is not a number: %s", name, i, strconv.Quote(string(item)))
		}
		out = append(out, v)
	}
	return out, nil
}
