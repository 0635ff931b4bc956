package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	httpadapter "github.com/couchcryptid/climate-map/internal/adapter/http"
	"github.com/couchcryptid/climate-map/internal/charts"
	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/mapview"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	state    mapview.MapState
	ready    error
	setErr   error
	tooltip  mapview.Tooltip
	hoverErr error

	lastYear   int
	lastMetric string
	lastZoom   mapview.ZoomTransform
	lastTarget mapview.Target
	left       bool
}

func (f *fakeController) State() mapview.MapState { return f.state }
func (f *fakeController) Years() []int            { return f.state.Years }

func (f *fakeController) SetYear(_ context.Context, year int) error {
	f.lastYear = year
	if f.setErr != nil {
		return f.setErr
	}
	f.state.Year = year
	return nil
}

func (f *fakeController) SetMetric(_ context.Context, metric string) error {
	f.lastMetric = metric
	return f.setErr
}

func (f *fakeController) OnZoom(_ context.Context, t mapview.ZoomTransform) error {
	f.lastZoom = t
	f.state.Transform = t
	return nil
}

func (f *fakeController) Hover(_ context.Context, t mapview.Target) (mapview.Tooltip, error) {
	f.lastTarget = t
	return f.tooltip, f.hoverErr
}

func (f *fakeController) Leave(context.Context) error {
	f.left = true
	return nil
}

func (f *fakeController) CheckReadiness(context.Context) error { return f.ready }

type fakeDocument struct {
	svg []byte
}

func (f *fakeDocument) Latest() ([]byte, mapview.Frame, bool) {
	return f.svg, mapview.Frame{}, f.svg != nil
}

type fakeCharts struct {
	out     []byte
	err     error
	lastReq charts.Request
	name    string
}

func (f *fakeCharts) Render(_ context.Context, name string, req charts.Request) ([]byte, error) {
	f.name = name
	f.lastReq = req
	return f.out, f.err
}

type fixture struct {
	srv    *httpadapter.Server
	ctrl   *fakeController
	doc    *fakeDocument
	charts *fakeCharts
}

func newFixture() *fixture {
	f := &fixture{
		ctrl: &fakeController{state: mapview.MapState{
			Phase:     mapview.MapDrawn,
			Metric:    domain.Metrics()[0],
			Year:      2023,
			Years:     []int{2023, 2022},
			Transform: mapview.Identity(),
		}},
		doc:    &fakeDocument{svg: []byte("<svg></svg>")},
		charts: &fakeCharts{out: []byte("<svg>chart</svg>")},
	}
	f.srv = httpadapter.NewServer(":0", f.ctrl, f.doc, f.charts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return f
}

func (f *fixture) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, http.NoBody)
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestHealthz(t *testing.T) {
	rec := newFixture().do(t, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyz(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.ctrl.ready = domain.ErrNotReady
	rec = f.do(t, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture().do(t, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMapSVG(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/map.svg")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<svg></svg>", rec.Body.String())

	f.doc.svg = nil
	rec = f.do(t, http.MethodGet, "/map.svg")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMapState(t *testing.T) {
	rec := newFixture().do(t, http.MethodGet, "/map/state")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "map_drawn", body["phase"])
	assert.EqualValues(t, 2023, body["year"])
}

func TestMapYears(t *testing.T) {
	rec := newFixture().do(t, http.MethodGet, "/map/years")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, []any{2023.0, 2022.0}, body["years"])
	assert.EqualValues(t, 2023, body["selected"])
}

func TestMapMetricsCatalog(t *testing.T) {
	rec := newFixture().do(t, http.MethodGet, "/map/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Len(t, body["metrics"], len(domain.Metrics()))
	assert.Equal(t, domain.Metrics()[0].Key, body["current"])
}

func TestSetYear(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/map/year?year=2022")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2022, f.ctrl.lastYear)
	assert.EqualValues(t, 2022, decode(t, rec)["year"])
}

func TestSetYearErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{name: "not an integer", target: "/map/year?year=abc", want: http.StatusBadRequest},
		{name: "missing", target: "/map/year", want: http.StatusBadRequest},
		{name: "unknown year", target: "/map/year?year=1900", err: domain.ErrUnknownYear, want: http.StatusBadRequest},
		{name: "not ready", target: "/map/year?year=2022", err: domain.ErrNotReady, want: http.StatusServiceUnavailable},
		{name: "stale", target: "/map/year?year=2022", err: domain.ErrStaleResponse, want: http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.ctrl.setErr = tt.err
			rec := f.do(t, http.MethodPost, tt.target)
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestSetMetric(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/map/metric?metric=forest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "forest", f.ctrl.lastMetric)

	rec = f.do(t, http.MethodPost, "/map/metric")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.ctrl.setErr = fmt.Errorf("%w: %q", domain.ErrUnknownMetric, "gdp")
	rec = f.do(t, http.MethodPost, "/map/metric?metric=gdp")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.ctrl.setErr = errors.New("fetch wb_metric: connection refused")
	rec = f.do(t, http.MethodPost, "/map/metric?metric=co2")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestZoom(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodPost, "/map/zoom?k=2.5&x=-10&y=4")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mapview.ZoomTransform{K: 2.5, X: -10, Y: 4}, f.ctrl.lastZoom)

	rec = f.do(t, http.MethodPost, "/map/zoom?x=3")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mapview.ZoomTransform{K: 1, X: 3}, f.ctrl.lastZoom)

	rec = f.do(t, http.MethodPost, "/map/zoom?k=big")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTooltip(t *testing.T) {
	f := newFixture()
	f.ctrl.tooltip = mapview.Tooltip{Country: "France", Label: "CO₂", Value: "300.0 Mt", HasData: true}

	rec := f.do(t, http.MethodGet, "/map/tooltip?country=France")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mapview.Target{Country: "France"}, f.ctrl.lastTarget)
	assert.Equal(t, "France", decode(t, rec)["country"])

	rec = f.do(t, http.MethodGet, "/map/tooltip?feature=250")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, mapview.Target{FeatureID: "250"}, f.ctrl.lastTarget)

	rec = f.do(t, http.MethodGet, "/map/tooltip")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.ctrl.hoverErr = mapview.ErrUnknownTarget
	rec = f.do(t, http.MethodGet, "/map/tooltip?country=Atlantis")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeave(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodDelete, "/map/tooltip")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, f.ctrl.left)
}

func TestChart(t *testing.T) {
	f := newFixture()
	rec := f.do(t, http.MethodGet, "/charts/country.svg?country=France&metric=co2&years=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<svg>chart</svg>", rec.Body.String())
	assert.Equal(t, "country", f.charts.name)
	assert.Equal(t, charts.Request{Country: "France", Metric: "co2", Years: 5}, f.charts.lastReq)
}

func TestChartErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{name: "missing extension", target: "/charts/co2", want: http.StatusNotFound},
		{name: "bad years", target: "/charts/prediction.svg?years=-1", want: http.StatusBadRequest},
		{name: "unknown chart", target: "/charts/pie.svg", err: fmt.Errorf("%w: %q", charts.ErrUnknownChart, "pie"), want: http.StatusNotFound},
		{name: "fetch failure", target: "/charts/co2.svg", err: fmt.Errorf("fetch nasa: %w", domain.ErrNoData), want: http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.charts.err = tt.err
			rec := f.do(t, http.MethodGet, tt.target)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestChartFetchFailureReportsNoData(t *testing.T) {
	f := newFixture()
	f.charts.err = errors.New("connection refused")
	rec := f.do(t, http.MethodGet, "/charts/temperature.svg")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "no data"))
}
