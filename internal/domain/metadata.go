package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const unknownLabel = "Unknown"

// CountryMetadata holds the per-country attributes used for resolution,
// marker placement, and tooltips.
type CountryMetadata struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Region    string  `json:"region"`
	Capital   string  `json:"capital"`
}

// MetadataStore is an immutable set of country records keyed by display name.
type MetadataStore struct {
	byName map[string]CountryMetadata
	names  []string
}

// NewMetadataStore indexes already-validated records. Later duplicates win.
func NewMetadataStore(records []CountryMetadata) *MetadataStore {
	s := &MetadataStore{byName: make(map[string]CountryMetadata, len(records))}
	for _, r := range records {
		s.byName[r.Name] = r
	}
	s.names = make([]string, 0, len(s.byName))
	for name := range s.byName {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Lookup returns the record for a display name.
func (s *MetadataStore) Lookup(name string) (CountryMetadata, bool) {
	if s == nil {
		return CountryMetadata{}, false
	}
	m, ok := s.byName[name]
	return m, ok
}

// Has reports whether the display name is known.
func (s *MetadataStore) Has(name string) bool {
	_, ok := s.Lookup(name)
	return ok
}

// Names returns every display name in ascending order. The slice is shared;
// callers must not modify it.
func (s *MetadataStore) Names() []string {
	if s == nil {
		return nil
	}
	return s.names
}

// Len returns the number of countries in the store.
func (s *MetadataStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// countryRecord is the wire shape of one metadata entry. Field presence varies
// between payloads, so every field is optional until validated.
type countryRecord struct {
	Name      flexString `json:"name"`
	Code      flexString `json:"code"`
	Longitude flexFloat  `json:"longitude"`
	Latitude  flexFloat  `json:"latitude"`
	Region    flexString `json:"region"`
	Capital   flexString `json:"capital"`
}

// ParseMetadata builds a store from an object keyed by display name or an
// array of records with a "name" field. Malformed records are skipped and
// counted; only a payload that is neither shape is an error.
func ParseMetadata(data []byte) (*MetadataStore, int, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("parse country metadata: %w", ErrNoData)
	}

	var (
		records []CountryMetadata
		skipped int
	)

	switch data[0] {
	case '{':
		var byName map[string]json.RawMessage
		if err := json.Unmarshal(data, &byName); err != nil {
			return nil, 0, fmt.Errorf("parse country metadata: %w", err)
		}
		for name, raw := range byName {
			rec, ok := decodeCountryRecord(raw, name)
			if !ok {
				skipped++
				continue
			}
			records = append(records, rec)
		}
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, 0, fmt.Errorf("parse country metadata: %w", err)
		}
		for _, raw := range list {
			rec, ok := decodeCountryRecord(raw, "")
			if !ok {
				skipped++
				continue
			}
			records = append(records, rec)
		}
	default:
		return nil, 0, fmt.Errorf("parse country metadata: unexpected payload starting with %q", data[0])
	}

	return NewMetadataStore(records), skipped, nil
}

// decodeCountryRecord validates one record. A non-empty key overrides the
// record's own name field.
func decodeCountryRecord(raw json.RawMessage, key string) (CountryMetadata, bool) {
	var rec countryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return CountryMetadata{}, false
	}

	name := strings.TrimSpace(key)
	if name == "" {
		name = strings.TrimSpace(rec.Name.value)
	}
	if name == "" || !rec.Longitude.valid || !rec.Latitude.valid {
		return CountryMetadata{}, false
	}
	if rec.Longitude.value < -180 || rec.Longitude.value > 180 ||
		rec.Latitude.value < -90 || rec.Latitude.value > 90 {
		return CountryMetadata{}, false
	}

	return CountryMetadata{
		Name:      name,
		Code:      strings.TrimSpace(rec.Code.value),
		Longitude: rec.Longitude.value,
		Latitude:  rec.Latitude.value,
		Region:    orUnknown(rec.Region.value),
		Capital:   orUnknown(rec.Capital.value),
	}, true
}

func orUnknown(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return unknownLabel
	}
	return s
}

// flexFloat accepts a JSON number, a numeric string, or null. valid is false
// unless the value is present and finite.
type flexFloat struct {
	value float64
	valid bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	v, ok := parseLooseNumber(b)
	f.value, f.valid = v, ok
	return nil
}

// flexString accepts a JSON string or number; anything else reads as empty.
type flexString struct {
	value string
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		f.value = s
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		f.value = n.String()
	}
	return nil
}

// parseLooseNumber reads a finite float from a JSON number or numeric string.
func parseLooseNumber(b []byte) (float64, bool) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return 0, false
	}

	var v float64
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		v = parsed
	} else if err := json.Unmarshal(b, &v); err != nil {
		return 0, false
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
