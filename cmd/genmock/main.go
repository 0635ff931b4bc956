// Command genmock reads flat World Bank indicator records and writes the
// per-metric fixtures the climate API serves from /api/wb/metric. Each
// output is checked by parsing it with the same domain code the map uses.
//
// Input is a JSON array of {"country", "year", "meaning", "value"} records,
// where "meaning" is the World Bank indicator name.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -records data/worldbank.json \
//	  -metadata data/countries_data.json \
//	  -out-dir testdata
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/couchcryptid/climate-map/internal/domain"
)

// record is one flat World Bank observation.
type record struct {
	Country string          `json:"country"`
	Year    json.RawMessage `json:"year"`
	Meaning string          `json:"meaning"`
	Value   json.RawMessage `json:"value"`
}

// metricPayload is the /api/wb/metric shape: country -> year -> value.
type metricPayload map[string]map[string]json.RawMessage

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	recordsPath := flag.String("records", "", "path to flat World Bank JSON records")
	metadataPath := flag.String("metadata", "", "optional /api/countries_data fixture used to check coverage")
	outDir := flag.String("out-dir", "", "directory for wb_metric_<key>.json fixtures")
	flag.Parse()

	if *recordsPath == "" || *outDir == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -records, -out-dir")
	}

	records, err := loadRecords(*recordsPath)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}
	log.Printf("loaded %d records", len(records))

	payloads, unknown := pivot(records)
	for _, name := range unknown {
		log.Printf("skipping unknown indicator: %s", name)
	}

	meta := domain.NewMetadataStore(nil)
	if *metadataPath != "" {
		data, err := os.ReadFile(*metadataPath)
		if err != nil {
			return fmt.Errorf("reading metadata: %w", err)
		}
		var skipped int
		meta, skipped, err = domain.ParseMetadata(data)
		if err != nil {
			return fmt.Errorf("parsing metadata: %w", err)
		}
		log.Printf("metadata: %d countries (%d skipped)", meta.Len(), skipped)
	}

	keys := make([]string, 0, len(payloads))
	for key := range payloads {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := filepath.Join(*outDir, "wb_metric_"+key+".json")
		if err := writeJSON(path, payloads[key]); err != nil {
			return fmt.Errorf("writing %s fixture: %w", key, err)
		}
		log.Printf("wrote %s fixture: %s (%d countries)", key, path, len(payloads[key]))

		if *metadataPath != "" {
			if err := printCoverage(key, payloads[key], meta); err != nil {
				return err
			}
		}
	}
	return nil
}

func loadRecords(path string) ([]record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// pivot groups records by metric, then country, then year. Records for
// indicators outside the catalog are dropped; their names are returned.
func pivot(records []record) (map[string]metricPayload, []string) {
	payloads := make(map[string]metricPayload)
	unknownSet := make(map[string]struct{})

	for _, r := range records {
		if r.Country == "" {
			continue
		}
		metric, ok := domain.MetricForIndicator(r.Meaning)
		if !ok {
			unknownSet[r.Meaning] = struct{}{}
			continue
		}
		p, ok := payloads[metric.Key]
		if !ok {
			p = make(metricPayload)
			payloads[metric.Key] = p
		}
		byYear, ok := p[r.Country]
		if !ok {
			byYear = make(map[string]json.RawMessage)
			p[r.Country] = byYear
		}
		byYear[yearKey(r.Year)] = r.Value
	}

	unknown := make([]string, 0, len(unknownSet))
	for name := range unknownSet {
		unknown = append(unknown, name)
	}
	sort.Strings(unknown)
	return payloads, unknown
}

// yearKey accepts "2020" or 2020.
func yearKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func printCoverage(key string, p metricPayload, meta *domain.MetadataStore) error {
	metric, err := domain.LookupMetric(key)
	if err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	series, report, err := domain.ParseMetricSeries(metric, data, meta)
	if err != nil {
		return fmt.Errorf("parsing generated %s fixture: %w", key, err)
	}

	fmt.Printf("\n=== %s ===\n", metric.Label(newest(series.Years())))
	fmt.Printf("Countries: %d kept, %d missing from metadata\n", report.Countries, report.UnknownCountries)
	fmt.Printf("Values: %d kept, %d skipped\n", report.Values, report.SkippedValues)
	if years := series.Years(); len(years) > 0 {
		fmt.Printf("Years: %d-%d\n", years[len(years)-1], years[0])
		r := series.Range(years[0])
		fmt.Printf("Newest range: %s - %s %s\n", domain.FormatNumber(r.Min), domain.FormatNumber(r.Max), metric.Unit)
	}
	return nil
}

func newest(years []int) int {
	if len(years) == 0 {
		return 0
	}
	return years[0]
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
