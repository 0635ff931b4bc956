package domain

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// NeutralColor fills polygons that are unresolved or have no value for the year.
	NeutralColor = "#dddddd"

	// DegenerateColor is used for every value when the domain has no log range.
	DegenerateColor = "#cc4778"
)

// paletteStop is one control point of a piecewise gradient.
type paletteStop struct {
	col colorful.Color
	pos float64
}

// plasma samples matplotlib's plasma map at tenths. Lightness increases
// monotonically along it.
var plasma = mustPalette(
	"#0d0887", "#41049d", "#6a00a8", "#8f0da4", "#b12a90", "#cc4778",
	"#e16462", "#f2844b", "#fca636", "#fcce25", "#f0f921",
)

func mustPalette(hexes ...string) []paletteStop {
	stops := make([]paletteStop, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		stops[i] = paletteStop{col: c, pos: float64(i) / float64(len(hexes)-1)}
	}
	return stops
}

// Plasma returns the gradient color at t in [0, 1], interpolated in Lab.
func Plasma(t float64) colorful.Color {
	if t <= 0 || math.IsNaN(t) {
		return plasma[0].col
	}
	if t >= 1 {
		return plasma[len(plasma)-1].col
	}
	for i := 0; i < len(plasma)-1; i++ {
		c1, c2 := plasma[i], plasma[i+1]
		if c1.pos <= t && t <= c2.pos {
			return c1.col.BlendLab(c2.col, (t-c1.pos)/(c2.pos-c1.pos)).Clamped()
		}
	}
	return plasma[len(plasma)-1].col
}

// LogDomain is a log10-transformed color domain.
type LogDomain struct {
	LogMin float64
	LogMax float64
}

// NewLogDomain transforms [min, max]. ok is false when the domain is
// degenerate: equal bounds, non-finite bounds, or no positive log range.
func NewLogDomain(min, max float64) (LogDomain, bool) {
	if min == max || !isFinite(min) || !isFinite(max) {
		return LogDomain{}, false
	}
	logMin := 0.0
	if min > 0 {
		logMin = math.Log10(min)
	}
	logMax := math.Log10(max)
	if !isFinite(logMax) || logMax <= logMin {
		return LogDomain{}, false
	}
	return LogDomain{LogMin: logMin, LogMax: logMax}, true
}

// Normalize maps a value into [0, 1]. Values <= 0 clamp to the minimum.
func (d LogDomain) Normalize(value float64) float64 {
	logValue := d.LogMin
	if value > 0 {
		logValue = math.Log10(value)
	}
	t := (logValue - d.LogMin) / (d.LogMax - d.LogMin)
	return math.Max(0, math.Min(1, t))
}

// ValueAt inverts Normalize for t in [0, 1].
func (d LogDomain) ValueAt(t float64) float64 {
	return math.Pow(10, d.LogMin+t*(d.LogMax-d.LogMin))
}

// Color maps a value onto the reversed plasma gradient: the domain minimum
// is the light end, the maximum the dark end.
func (d LogDomain) Color(value float64) colorful.Color {
	return Plasma(1 - d.Normalize(value))
}

// ColorFor returns the hex color for value within [min, max].
func ColorFor(value, min, max float64) string {
	d, ok := NewLogDomain(min, max)
	if !ok {
		return DegenerateColor
	}
	return d.Color(value).Hex()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
