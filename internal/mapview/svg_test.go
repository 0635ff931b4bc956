package mapview

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

func requireWellFormed(t *testing.T, doc string) {
	t.Helper()
	dec := xml.NewDecoder(strings.NewReader(doc))
	for {
		_, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		require.NoError(t, err)
	}
}

func TestWriteSVG(t *testing.T) {
	h := loadedHarness(t)
	_, err := h.ctrl.Hover(context.Background(), Target{Country: "Alpha"})
	require.NoError(t, err)
	f, err := h.ctrl.Frame()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, f))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "<svg xmlns="))
	assert.True(t, strings.HasSuffix(out, "</svg>"))
	assert.Contains(t, out, `viewBox="0 0 3840 2000"`)

	// Background, countries, legend steps and border, tick marks, tooltip box.
	wantPaths := 1 + len(f.Countries) + legendSteps + 1 + len(f.Legend.Ticks) + 1
	assert.Equal(t, wantPaths, strings.Count(out, "<path "))
	assert.Equal(t, len(f.Markers), strings.Count(out, "<circle "))
	assert.Equal(t, 2, len(f.Markers))

	assert.Contains(t, out, "CO₂ Emissions (Mt) - 2021")
	assert.Contains(t, out, "Capital: Alphaville")
	assert.Contains(t, out, "fill:rgba(0,0,0,0.8)")
	for _, tick := range f.Legend.Ticks {
		assert.Contains(t, out, ">"+tick.Label+"</text>")
	}
	requireWellFormed(t, out)
}

func TestWriteSVG_AppliesZoom(t *testing.T) {
	f := Frame{
		Width: 100, Height: 50,
		Transform: ZoomTransform{K: 2, X: 10},
		Countries: []CountryShape{{
			Rings:       []orb.Ring{{{0, 0}, {10, 0}, {10, 10}, {0, 0}}},
			Fill:        "#dddddd",
			Stroke:      "#ffffff",
			StrokeWidth: 0.5,
		}},
		Markers: []Marker{{CX: 100, CY: 20, R: 3, Fill: "#ff0000", Stroke: "#ffffff", StrokeWidth: 1}},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, f))
	out := buf.String()

	assert.Contains(t, out, `viewBox="0 0 400 200"`)
	assert.Contains(t, out, "M 40 0\nL 120 0\nL 120 80\nL 40 0\nZ")
	assert.Contains(t, out, "stroke-width:4;stroke:rgba(255,255,255,1.0);fill:rgba(221,221,221,1.0)")
	assert.Contains(t, out, `<circle cx="840" cy="160" r="24" style="stroke-width:8;stroke:rgba(255,255,255,1.0);fill:rgba(255,0,0,1.0)`)
	assert.NotContains(t, out, "<text", "no legend or tooltip to label")
	requireWellFormed(t, out)
}

func TestWriteSVG_EscapesText(t *testing.T) {
	f := Frame{
		Width: 100, Height: 50,
		Legend: Legend{
			Title: "<b>", Width: LegendWidth, Height: LegendHeight,
			Stops: []GradientStop{{Offset: 0, Color: "#000000"}, {Offset: 1, Color: "#ffffff"}},
		},
		Tooltip: &Tooltip{Country: "Trinidad & Tobago", Label: "CO₂", Value: "No data"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSVG(&buf, f))
	out := buf.String()

	assert.Contains(t, out, "Trinidad &amp; Tobago")
	assert.Contains(t, out, "&lt;b&gt;")
	assert.NotContains(t, out, "<b>")
	requireWellFormed(t, out)
}

func TestGradientAt(t *testing.T) {
	stops := []GradientStop{
		{Offset: 0, Color: "#000000"},
		{Offset: 0.5, Color: "#ffffff"},
		{Offset: 1, Color: "#ff0000"},
	}

	assert.Equal(t, drawing.Color{A: 255}, gradientAt(stops, 0))
	assert.Equal(t, drawing.Color{R: 128, G: 128, B: 128, A: 255}, gradientAt(stops, 0.25))
	assert.Equal(t, drawing.ColorWhite, gradientAt(stops, 0.5))
	assert.Equal(t, drawing.Color{R: 255, A: 255}, gradientAt(stops, 1))

	flat := []GradientStop{{Offset: 0, Color: "#cc4778"}, {Offset: 1, Color: "#cc4778"}}
	assert.Equal(t, drawing.ColorFromHex("cc4778"), gradientAt(flat, 0.3))
}

func TestSVGSurface_Latest(t *testing.T) {
	s := NewSVGSurface()
	_, _, ok := s.Latest()
	assert.False(t, ok)

	f := Frame{Seq: 7, Width: 10, Height: 10}
	require.NoError(t, s.Draw(context.Background(), f))

	doc, got, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, uint64(7), got.Seq)
	assert.Contains(t, string(doc), "<svg")
}
