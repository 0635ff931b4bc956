// Package charts renders the auxiliary climate charts as SVG.
//
// Each chart fetches its own data and fails on its own: an unavailable
// endpoint makes that chart return an error without touching the others.
package charts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/observability"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Chart names.
const (
	Temperature = "temperature"
	CO2         = "co2"
	Country     = "country"
	Renewable   = "renewable"
	Prediction  = "prediction"
)

const (
	defaultPredictionYears = 10
	maxPredictionYears     = 50
	topLimit               = 10
	temperatureSeries      = "global-temperature"
	co2Series              = "carbon-dioxide"
)

// ErrUnknownChart is returned for a chart name that does not exist.
var ErrUnknownChart = errors.New("unknown chart")

// Source is the data the charts are drawn from.
type Source interface {
	GlobalSeries(ctx context.Context, name string) (domain.GlobalSeries, error)
	CountrySeries(ctx context.Context, country, metric string) (domain.GlobalSeries, error)
	TopCountries(ctx context.Context, metric string, limit int) ([]domain.CountryValue, error)
	Prediction(ctx context.Context, years int) (json.RawMessage, error)
	Countries(ctx context.Context) ([]string, error)
}

// Request carries optional chart parameters.
type Request struct {
	Country string // country chart; defaults to the first known country
	Metric  string // country chart; defaults to co2
	Years   int    // prediction horizon; defaults to 10
}

// Renderer draws charts on demand.
type Renderer struct {
	src     Source
	metrics *observability.Metrics
	logger  *slog.Logger
	width   int
	height  int
}

// NewRenderer creates a chart renderer.
func NewRenderer(src Source, metrics *observability.Metrics, logger *slog.Logger) *Renderer {
	return &Renderer{src: src, metrics: metrics, logger: logger, width: 800, height: 400}
}

// Names lists the available charts.
func Names() []string {
	return []string{Temperature, CO2, Country, Renewable, Prediction}
}

// Render fetches data for the named chart and returns the SVG document.
func (r *Renderer) Render(ctx context.Context, name string, req Request) ([]byte, error) {
	var (
		buf bytes.Buffer
		err error
	)
	switch name {
	case Temperature:
		err = r.temperature(ctx, &buf)
	case CO2:
		err = r.co2(ctx, &buf)
	case Country:
		err = r.country(ctx, req, &buf)
	case Renewable:
		err = r.renewable(ctx, &buf)
	case Prediction:
		err = r.prediction(ctx, req, &buf)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownChart, name)
	}

	if err != nil {
		r.metrics.ChartRenders.WithLabelValues(name, "error").Inc()
		r.logger.Warn("chart unavailable", "chart", name, "error", err)
		return nil, err
	}
	r.metrics.ChartRenders.WithLabelValues(name, "success").Inc()
	return buf.Bytes(), nil
}

func (r *Renderer) temperature(ctx context.Context, buf *bytes.Buffer) error {
	hist, err := r.src.GlobalSeries(ctx, temperatureSeries)
	if err != nil {
		return err
	}

	series := []chart.Series{lineSeries("Historical", hist.Years, hist.Values, colorHistorical, false)}
	allValues := append([]float64(nil), hist.Values...)

	// The forecast overlay is optional; the historical line stands alone.
	if raw, err := r.src.Prediction(ctx, defaultPredictionYears); err == nil {
		if values, err := domain.PredictionSeries(raw, temperatureSeries); err == nil {
			years := yearsAfter(lastYear(hist.Years), len(values))
			series = append(series, lineSeries("Predicted", years, values, colorPrediction, true))
			allValues = append(allValues, values...)
		}
	} else {
		r.logger.Debug("temperature forecast overlay skipped", "error", err)
	}

	return renderLine(buf, lineSpec{
		title:  "Global Temperature Anomaly",
		yName:  "Temperature Anomaly (°C)",
		series: series,
		values: allValues,
		width:  r.width, height: r.height,
	})
}

func (r *Renderer) co2(ctx context.Context, buf *bytes.Buffer) error {
	s, err := r.src.GlobalSeries(ctx, co2Series)
	if err != nil {
		return err
	}
	return renderLine(buf, lineSpec{
		title:  "Atmospheric CO₂",
		yName:  "CO₂ (ppm)",
		series: []chart.Series{lineSeries("CO₂", s.Years, s.Values, colorHistorical, false)},
		values: s.Values,
		width:  r.width, height: r.height,
	})
}

func (r *Renderer) country(ctx context.Context, req Request, buf *bytes.Buffer) error {
	metric, err := domain.LookupMetric(orDefault(req.Metric, "co2"))
	if err != nil {
		return err
	}

	name := strings.TrimSpace(req.Country)
	if name == "" {
		names, err := r.src.Countries(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			return fmt.Errorf("country list: %w", domain.ErrNoData)
		}
		name = names[0]
	}

	s, err := r.src.CountrySeries(ctx, name, metric.Key)
	if err != nil {
		return err
	}
	years, values := sortedByYear(s.Years, s.Values)

	return renderLine(buf, lineSpec{
		title:  fmt.Sprintf("%s: %s", name, metric.Title),
		yName:  metric.Unit,
		series: []chart.Series{lineSeries(name, years, values, colorHistorical, false)},
		values: values,
		width:  r.width, height: r.height,
	})
}

func (r *Renderer) prediction(ctx context.Context, req Request, buf *bytes.Buffer) error {
	n := req.Years
	if n <= 0 {
		n = defaultPredictionYears
	}
	if n > maxPredictionYears {
		n = maxPredictionYears
	}

	raw, err := r.src.Prediction(ctx, n)
	if err != nil {
		return err
	}
	values, err := domain.PredictionSeries(raw, temperatureSeries)
	if err != nil {
		return err
	}

	years := yearsAfter(float64(domain.Now().Year()), len(values))
	return renderLine(buf, lineSpec{
		title:  fmt.Sprintf("Predicted Temperature Anomaly (next %d years)", len(values)),
		yName:  "Temperature Anomaly (°C)",
		series: []chart.Series{lineSeries("Predicted", years, values, colorPrediction, false)},
		values: values,
		width:  r.width, height: r.height,
	})
}

func (r *Renderer) renewable(ctx context.Context, buf *bytes.Buffer) error {
	metric, _ := domain.LookupMetric(Renewable)
	top, err := r.src.TopCountries(ctx, metric.Key, topLimit)
	if err != nil {
		return err
	}

	bars := make([]chart.Value, 0, len(top))
	maxValue := 0.0
	for _, cv := range top {
		if !cv.Valid || cv.Country == "" {
			continue
		}
		color := category10[len(bars)%len(category10)]
		bars = append(bars, chart.Value{
			Label: cv.Country,
			Value: cv.Value,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		maxValue = math.Max(maxValue, cv.Value)
	}
	if len(bars) == 0 {
		return fmt.Errorf("renewable: %w", domain.ErrNoData)
	}
	if maxValue <= 0 {
		maxValue = 1
	}

	graph := chart.BarChart{
		Title:      "Top Countries by " + metric.Title + " (" + metric.Unit + ")",
		TitleStyle: chart.Style{FontSize: 14, FontColor: drawing.ColorBlack},
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Width:      r.width,
		Height:     r.height,
		BarWidth:   50,
		Bars:       bars,
		XAxis:      chart.Style{FontSize: 9, TextRotationDegrees: 45},
		YAxis: chart.YAxis{
			Name:      "Value",
			NameStyle: chart.Style{FontSize: 11},
			Style:     chart.Style{FontSize: 10},
			Range:     &chart.ContinuousRange{Min: 0, Max: maxValue},
		},
	}
	if err := graph.Render(chart.SVG, buf); err != nil {
		return fmt.Errorf("render renewable chart: %w", err)
	}
	return nil
}

type lineSpec struct {
	title         string
	yName         string
	series        []chart.Series
	values        []float64
	width, height int
}

// renderLine draws year-indexed line series with the y range padded by 0.5
// on both sides.
func renderLine(buf *bytes.Buffer, line lineSpec) error {
	lo, hi := minMax(line.values)
	if math.IsInf(lo, 0) {
		return fmt.Errorf("%s: %w", line.title, domain.ErrNoData)
	}

	graph := chart.Chart{
		Title:      line.title,
		TitleStyle: chart.Style{FontSize: 14, FontColor: drawing.ColorBlack},
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Width:      line.width,
		Height:     line.height,
		XAxis: chart.XAxis{
			Name:      "Year",
			NameStyle: chart.Style{FontSize: 11},
			Style:     chart.Style{FontSize: 10},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name:      line.yName,
			NameStyle: chart.Style{FontSize: 11},
			Style:     chart.Style{FontSize: 10},
			Range:     &chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5},
		},
		Series: line.series,
	}
	// A single year has no x extent; widen it so the axis can be drawn.
	if xlo, xhi := minMax(xValues(line.series)); xlo == xhi {
		graph.XAxis.Range = &chart.ContinuousRange{Min: xlo - 1, Max: xhi + 1}
	}
	if len(line.series) > 1 {
		graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	}

	if err := graph.Render(chart.SVG, buf); err != nil {
		return fmt.Errorf("render %s: %w", line.title, err)
	}
	return nil
}

var (
	colorHistorical = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	colorPrediction = drawing.Color{R: 214, G: 39, B: 40, A: 255}
)

// category10 is the ten-color categorical palette used for bars.
var category10 = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
	drawing.ColorFromHex("bcbd22"),
	drawing.ColorFromHex("17becf"),
}

func lineSeries(name string, x, y []float64, color drawing.Color, dashed bool) chart.ContinuousSeries {
	style := chart.Style{StrokeColor: color, StrokeWidth: 2}
	if dashed {
		style.StrokeDashArray = []float64{5, 5}
	}
	return chart.ContinuousSeries{Name: name, Style: style, XValues: x, YValues: y}
}

func xValues(series []chart.Series) []float64 {
	var out []float64
	for _, s := range series {
		if cs, ok := s.(chart.ContinuousSeries); ok {
			out = append(out, cs.XValues...)
		}
	}
	return out
}

func yearsAfter(last float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = last + float64(i+1)
	}
	return out
}

func lastYear(years []float64) float64 {
	if len(years) == 0 {
		return float64(domain.Now().Year())
	}
	return years[len(years)-1]
}

func sortedByYear(years, values []float64) ([]float64, []float64) {
	idx := make([]int, len(years))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return years[idx[a]] < years[idx[b]] })
	x := make([]float64, len(idx))
	y := make([]float64, len(idx))
	for i, j := range idx {
		x[i], y[i] = years[j], values[j]
	}
	return x, y
}

func minMax(values []float64) (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
