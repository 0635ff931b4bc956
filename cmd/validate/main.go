// Command validate checks offline climate fixtures before they are served:
// country metadata, one metric's series, and the world topology. It verifies
// that records parse, that every feature resolves to a country, and that
// every year yields a usable color domain. With -out it also renders the
// map for the selected year through the same controller the service uses.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -metadata testdata/countries_data.json \
//	  -series testdata/wb_metric_co2.json \
//	  -metric co2 \
//	  -topology testdata/countries-110m.json \
//	  -out map.svg
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/geo"
	"github.com/couchcryptid/climate-map/internal/mapview"
	"github.com/couchcryptid/climate-map/internal/observability"
	"github.com/jonboulle/clockwork"
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

type options struct {
	metadataPath string
	seriesPath   string
	metric       string
	topoPath     string
	topoObject   string
	year         int
	outPath      string
	width        int
	height       int
}

func main() {
	var opts options
	flag.StringVar(&opts.metadataPath, "metadata", "", "path to /api/countries_data fixture")
	flag.StringVar(&opts.seriesPath, "series", "", "path to /api/wb/metric fixture")
	flag.StringVar(&opts.metric, "metric", "co2", "metric key the series belongs to")
	flag.StringVar(&opts.topoPath, "topology", "", "path to TopoJSON or GeoJSON world geometry")
	flag.StringVar(&opts.topoObject, "object", geo.DefaultObject, "TopoJSON object holding country geometries")
	flag.IntVar(&opts.year, "year", 0, "year to render (default: newest)")
	flag.StringVar(&opts.outPath, "out", "", "write the rendered map SVG here")
	flag.IntVar(&opts.width, "width", 960, "rendered map width")
	flag.IntVar(&opts.height, "height", 500, "rendered map height")
	flag.Parse()

	if opts.metadataPath == "" || opts.seriesPath == "" || opts.topoPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts options) int {
	// Fixed clock so rendered output is byte-for-byte reproducible.
	domain.SetClock(clockwork.NewFakeClockAt(
		time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	))
	defer domain.SetClock(nil)

	fmt.Println("=== Climate Map Fixture Validation ===")
	fmt.Println()

	// ── Load all data sources ──
	metric, err := domain.LookupMetric(opts.metric)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	src, err := loadFixtures(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}

	meta, skipped, err := domain.ParseMetadata(src.metadata)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse metadata: %v\n", err)
		return 1
	}

	series, report, err := domain.ParseMetricSeries(metric, src.series, meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: parse series: %v\n", err)
		return 1
	}

	// ── Run validation phases ──
	phases := []*phase{
		validateMetadata(meta, skipped),
		validateSeries(series, report),
		validateResolution(src.features, meta),
		validateColorDomains(series),
	}
	if opts.outPath != "" {
		phases = append(phases, renderMap(src, metric, opts))
	}

	// ── Report results ──
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
	fmt.Printf("Records: %d countries, %d series countries, %d values (%d skipped), %d years, %d features\n",
		meta.Len(), report.Countries, report.Values, report.SkippedValues, len(series.Years()), len(src.features))

	// Print detailed errors.
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

// ── Data loading ──

// fixtures serves files in place of the climate API and topology host.
type fixtures struct {
	metadata []byte
	series   []byte
	features []geo.Feature
}

func loadFixtures(opts options) (*fixtures, error) {
	metadata, err := os.ReadFile(opts.metadataPath)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	series, err := os.ReadFile(opts.seriesPath)
	if err != nil {
		return nil, fmt.Errorf("read series: %w", err)
	}
	topo, err := os.ReadFile(opts.topoPath)
	if err != nil {
		return nil, fmt.Errorf("read topology: %w", err)
	}
	features, err := geo.DecodeFeatures(topo, opts.topoObject)
	if err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}
	return &fixtures{metadata: metadata, series: series, features: features}, nil
}

func (f *fixtures) CountryMetadata(context.Context) (json.RawMessage, error) {
	return f.metadata, nil
}

func (f *fixtures) MetricSeries(context.Context, string) (json.RawMessage, error) {
	return f.series, nil
}

func (f *fixtures) WorldTopology(context.Context) ([]geo.Feature, error) {
	return f.features, nil
}

// ── Phase 1: Metadata ──

func validateMetadata(meta *domain.MetadataStore, skipped int) *phase {
	p := &phase{name: "Metadata records"}
	fmt.Println("Phase 1: Metadata records")

	if meta.Len() == 0 {
		p.errorf("no usable country records")
	}
	if skipped > 0 {
		p.errorf("%d records skipped for missing or invalid coordinates", skipped)
	}
	for _, name := range meta.Names() {
		rec, _ := meta.Lookup(name)
		if rec.Latitude < -90 || rec.Latitude > 90 || rec.Longitude < -180 || rec.Longitude > 180 {
			p.errorf("%s: coordinates out of range (%g, %g)", name, rec.Longitude, rec.Latitude)
		}
	}
	return p
}

// ── Phase 2: Series ──

func validateSeries(series *domain.MetricSeriesStore, report domain.SeriesReport) *phase {
	p := &phase{name: "Metric series (" + series.Metric().Key + ")"}
	fmt.Println("Phase 2: Metric series")

	if len(series.Years()) == 0 {
		p.errorf("series has no years")
	}
	if report.UnknownCountries > 0 {
		p.errorf("%d series countries are missing from metadata", report.UnknownCountries)
	}
	for _, country := range series.Countries() {
		for _, year := range series.Years() {
			if v, ok := series.Value(country, year); ok && v < 0 {
				p.errorf("%s %d: negative value %g", country, year, v)
			}
		}
	}
	return p
}

// ── Phase 3: Resolution ──

func validateResolution(features []geo.Feature, meta *domain.MetadataStore) *phase {
	p := &phase{name: "Feature resolution"}
	fmt.Println("Phase 3: Feature resolution")

	resolver := geo.NewResolver(meta, slog.New(slog.NewTextHandler(io.Discard, nil)))
	matched := make(map[string]string, len(features))
	for _, f := range features {
		name, ok := resolver.Resolve(f)
		if !ok {
			p.errorf("feature %s (%q) does not resolve to a country", f.Key(), f.Name)
			continue
		}
		if prev, dup := matched[name]; dup {
			p.errorf("features %s and %s both resolve to %s", prev, f.Key(), name)
		}
		matched[name] = f.Key()
	}
	fmt.Printf("  %d of %d features resolved\n", len(matched), len(features))
	return p
}

// ── Phase 4: Color domains ──

func validateColorDomains(series *domain.MetricSeriesStore) *phase {
	p := &phase{name: "Color domains"}
	fmt.Println("Phase 4: Color domains")

	for _, year := range series.Years() {
		r := series.Range(year)
		if r.Empty {
			p.errorf("%d: no country has a value", year)
			continue
		}
		if _, ok := domain.NewLogDomain(r.Min, r.Max); !ok {
			p.errorf("%d: degenerate range [%g, %g], every country gets one color", year, r.Min, r.Max)
		}
	}
	return p
}

// ── Phase 5: Render ──

func renderMap(src *fixtures, metric domain.Metric, opts options) *phase {
	p := &phase{name: "Render " + opts.outPath}
	fmt.Println("Phase 5: Render")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svg := mapview.NewSVGSurface()
	ctrl, err := mapview.NewController(src, src, svg, mapview.Options{
		Width:         opts.width,
		Height:        opts.height,
		DefaultMetric: metric.Key,
		DefaultYear:   opts.year,
	}, observability.NewMetrics(), logger)
	if err != nil {
		p.errorf("create controller: %v", err)
		return p
	}

	ctx := context.Background()
	if err := ctrl.Load(ctx); err != nil {
		p.errorf("load: %v", err)
		return p
	}
	if opts.year != 0 && ctrl.State().Year != opts.year {
		p.errorf("year %d not in series, rendered %d", opts.year, ctrl.State().Year)
	}

	doc, frame, ok := svg.Latest()
	if !ok {
		p.errorf("no frame rendered")
		return p
	}
	if err := os.WriteFile(opts.outPath, doc, 0o644); err != nil {
		p.errorf("write %s: %v", opts.outPath, err)
		return p
	}
	fmt.Printf("  %s %d: %d shapes, %d markers, %d unresolved\n",
		frame.Metric.Key, frame.Year, len(frame.Countries), len(frame.Markers), frame.Unresolved)
	return p
}
