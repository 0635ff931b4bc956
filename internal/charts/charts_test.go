package charts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnavailable = errors.New("status 503")

type fakeSource struct {
	global     map[string]domain.GlobalSeries
	country    map[string]domain.GlobalSeries
	top        []domain.CountryValue
	prediction string
	countries  []string
	predErr    error

	predictedYears int
	countryAsked   string
}

func (f *fakeSource) GlobalSeries(_ context.Context, name string) (domain.GlobalSeries, error) {
	s, ok := f.global[name]
	if !ok {
		return domain.GlobalSeries{}, errUnavailable
	}
	return s, nil
}

func (f *fakeSource) CountrySeries(_ context.Context, country, _ string) (domain.GlobalSeries, error) {
	f.countryAsked = country
	s, ok := f.country[country]
	if !ok {
		return domain.GlobalSeries{}, errUnavailable
	}
	return s, nil
}

func (f *fakeSource) TopCountries(context.Context, string, int) ([]domain.CountryValue, error) {
	if f.top == nil {
		return nil, errUnavailable
	}
	return f.top, nil
}

func (f *fakeSource) Prediction(_ context.Context, years int) (json.RawMessage, error) {
	f.predictedYears = years
	if f.predErr != nil {
		return nil, f.predErr
	}
	return json.RawMessage(f.prediction), nil
}

func (f *fakeSource) Countries(context.Context) ([]string, error) {
	return f.countries, nil
}

func fullSource() *fakeSource {
	return &fakeSource{
		global: map[string]domain.GlobalSeries{
			"global-temperature": {Years: []float64{2020, 2021, 2022}, Values: []float64{1.02, 0.85, 0.89}},
			"carbon-dioxide":     {Years: []float64{2020, 2021, 2022}, Values: []float64{412.4, 414.7, 417.1}},
		},
		country: map[string]domain.GlobalSeries{
			"Brazil": {Years: []float64{2021, 2019, 2020}, Values: []float64{489, 459, 440}},
		},
		top: []domain.CountryValue{
			{Country: "Iceland", Year: 2020, Value: 82.3, Valid: true},
			{Country: "Norway", Year: 2020, Value: 60.1, Valid: true},
			{Country: "Nowhere", Year: 2020, Valid: false},
		},
		prediction: `{"global-temperature": [1.1, 1.15, 1.2]}`,
		countries:  []string{"Brazil", "Chile"},
	}
}

func testRenderer(src Source) *Renderer {
	return NewRenderer(src, observability.NewMetricsForTesting(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRender_AllCharts(t *testing.T) {
	r := testRenderer(fullSource())

	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			svg, err := r.Render(context.Background(), name, Request{})
			require.NoError(t, err)
			assert.True(t, strings.Contains(string(svg), "<svg"), "renders an svg document")
		})
	}
}

func TestRender_UnknownChart(t *testing.T) {
	_, err := testRenderer(fullSource()).Render(context.Background(), "globe", Request{})
	require.ErrorIs(t, err, ErrUnknownChart)
}

func TestRender_FailuresAreIndependent(t *testing.T) {
	src := fullSource()
	delete(src.global, "carbon-dioxide")
	r := testRenderer(src)

	_, err := r.Render(context.Background(), CO2, Request{})
	require.ErrorIs(t, err, errUnavailable)

	_, err = r.Render(context.Background(), Temperature, Request{})
	require.NoError(t, err)
}

func TestRender_TemperatureWithoutForecast(t *testing.T) {
	src := fullSource()
	src.predErr = errUnavailable

	_, err := testRenderer(src).Render(context.Background(), Temperature, Request{})
	require.NoError(t, err, "forecast overlay is optional")
}

func TestRender_CountryDefaultsToFirstCountry(t *testing.T) {
	src := fullSource()
	_, err := testRenderer(src).Render(context.Background(), Country, Request{})
	require.NoError(t, err)
	assert.Equal(t, "Brazil", src.countryAsked)

	_, err = testRenderer(src).Render(context.Background(), Country, Request{Country: "Chile"})
	require.ErrorIs(t, err, errUnavailable)

	_, err = testRenderer(src).Render(context.Background(), Country, Request{Country: "Brazil", Metric: "ozone"})
	require.ErrorIs(t, err, domain.ErrUnknownMetric)
}

func TestRender_PredictionHorizon(t *testing.T) {
	src := fullSource()
	r := testRenderer(src)

	_, err := r.Render(context.Background(), Prediction, Request{})
	require.NoError(t, err)
	assert.Equal(t, 10, src.predictedYears)

	_, err = r.Render(context.Background(), Prediction, Request{Years: 500})
	require.NoError(t, err)
	assert.Equal(t, 50, src.predictedYears)
}

func TestRender_PredictionMissingSeries(t *testing.T) {
	src := fullSource()
	src.prediction = `{"sea-level": [1, 2]}`

	_, err := testRenderer(src).Render(context.Background(), Prediction, Request{})
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestRender_RenewableNoValidBars(t *testing.T) {
	src := fullSource()
	src.top = []domain.CountryValue{{Country: "Nowhere"}}

	_, err := testRenderer(src).Render(context.Background(), Renewable, Request{})
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestSortedByYear(t *testing.T) {
	x, y := sortedByYear([]float64{2021, 2019, 2020}, []float64{3, 1, 2})
	assert.Equal(t, []float64{2019, 2020, 2021}, x)
	assert.Equal(t, []float64{1, 2, 3}, y)
}

func TestYearsAfter(t *testing.T) {
	assert.Equal(t, []float64{2023, 2024}, yearsAfter(2022, 2))
	assert.Empty(t, yearsAfter(2022, 0))
}
