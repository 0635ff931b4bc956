package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/couchcryptid/climate-map/internal/geo"
	"github.com/couchcryptid/climate-map/internal/observability"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

const testMetadata = `{
	"Alpha": {"code": "ALP", "longitude": 10, "latitude": 10, "region": "North", "capital": "Alphaville"},
	"Beta":  {"code": "BET", "longitude": 20, "latitude": 20, "region": "North"},
	"Gamma": {"code": "GAM", "longitude": -30, "latitude": -10, "region": "South", "capital": "Gammatown"},
	"Broken": {"code": "BRK", "longitude": "east"}
}`

var testSeries = map[string]string{
	"co2": `{
		"Alpha": {"2020": 10, "2021": "100"},
		"Beta":  {"2020": 1000, "2021": 10},
		"Gamma": {"2019": 5},
		"Elsewhere": {"2021": 999}
	}`,
	"renewable": `{"Alpha": {"2021": 50}, "Beta": {"2018": 20}}`,
	"forest":    `{"Alpha": {"2020": 30.5}, "Gamma": {"2020": 12}}`,
}

func square(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func testFeatures() []geo.Feature {
	return []geo.Feature{
		{ID: "a", Name: "Alpha", Geometry: square(5, 5, 15, 15)},
		{ID: "b", Name: "Betaland", Geometry: square(15, 15, 25, 25)},
		{ID: "g", Name: "Gamma", Geometry: orb.MultiPolygon{square(-35, -15, -25, -5)}},
		{ID: "x", Name: "Atlantis", Geometry: square(-110, -60, -90, -40)},
	}
}

type fakeData struct {
	mu        sync.Mutex
	metadata  string
	series    map[string]string
	metaErr   error
	seriesErr error
	gates     map[string]chan struct{}
	started   chan string
}

func newFakeData() *fakeData {
	return &fakeData{
		metadata: testMetadata,
		series:   testSeries,
		gates:    map[string]chan struct{}{},
		started:  make(chan string, 4),
	}
}

func (f *fakeData) CountryMetadata(context.Context) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return json.RawMessage(f.metadata), nil
}

func (f *fakeData) MetricSeries(_ context.Context, metric string) (json.RawMessage, error) {
	f.mu.Lock()
	gate := f.gates[metric]
	err := f.seriesErr
	body, ok := f.series[metric]
	f.mu.Unlock()

	if gate != nil {
		f.started <- metric
		<-gate
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("no such metric")
	}
	return json.RawMessage(body), nil
}

func (f *fakeData) hold(metric string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[metric] = ch
	return ch
}

type fakeTopology struct {
	features []geo.Feature
	err      error
	calls    int
}

func (f *fakeTopology) WorldTopology(context.Context) ([]geo.Feature, error) {
	f.calls++
	return f.features, f.err
}

type recordingSurface struct {
	mu     sync.Mutex
	frames []Frame
	err    error
}

func (s *recordingSurface) Draw(_ context.Context, f Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return s.err
}

func (s *recordingSurface) triggers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.frames))
	for _, f := range s.frames {
		out = append(out, f.Trigger)
	}
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() Options {
	return Options{Width: 960, Height: 500, DefaultMetric: "co2", DefaultYear: 2023, ResolverCacheSize: 16}
}

type harness struct {
	ctrl    *Controller
	data    *fakeData
	topo    *fakeTopology
	surface *recordingSurface
	metrics *observability.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		data:    newFakeData(),
		topo:    &fakeTopology{features: testFeatures()},
		surface: &recordingSurface{},
		metrics: observability.NewMetricsForTesting(),
	}
	ctrl, err := NewController(h.data, h.topo, h.surface, testOptions(), h.metrics, testLogger())
	require.NoError(t, err)
	h.ctrl = ctrl
	return h
}

func loadedHarness(t *testing.T) *harness {
	t.Helper()
	h := newHarness(t)
	require.NoError(t, h.ctrl.Load(context.Background()))
	return h
}

func shapeByFeature(t *testing.T, f Frame, key string) CountryShape {
	t.Helper()
	for _, cs := range f.Countries {
		if cs.FeatureID == key {
			return cs
		}
	}
	t.Fatalf("feature %s not in frame", key)
	return CountryShape{}
}

func markerFor(f Frame, country string) (Marker, bool) {
	for _, m := range f.Markers {
		if m.Country == country {
			return m, true
		}
	}
	return Marker{}, false
}
