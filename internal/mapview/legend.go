package mapview

import (
	"github.com/couchcryptid/climate-map/internal/domain"
)

// Legend geometry, in pixels.
const (
	LegendWidth  = 200.0
	LegendHeight = 20.0
	legendMargin = 40.0
	legendTop    = 40.0
)

// Legend is the gradient bar with its title and ticks.
type Legend struct {
	Title      string         `json:"title"`
	X          float64        `json:"x"`
	Y          float64        `json:"y"`
	Width      float64        `json:"width"`
	Height     float64        `json:"height"`
	Stops      []GradientStop `json:"stops"`
	Ticks      []Tick         `json:"ticks"`
	Degenerate bool           `json:"degenerate,omitempty"`
}

// GradientStop is a color at an offset in [0, 1].
type GradientStop struct {
	Offset float64 `json:"offset"`
	Color  string  `json:"color"`
}

// Tick is a labeled position along the legend bar.
type Tick struct {
	X     float64 `json:"x"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

func buildLegend(metric domain.Metric, year int, vr domain.ValueRange, mapWidth float64) Legend {
	l := Legend{
		Title:  metric.Label(year),
		X:      mapWidth - LegendWidth - legendMargin,
		Y:      legendTop,
		Width:  LegendWidth,
		Height: LegendHeight,
	}

	d, ok := domain.NewLogDomain(vr.Min, vr.Max)
	if !ok {
		l.Degenerate = true
		l.Stops = []GradientStop{
			{Offset: 0, Color: domain.DegenerateColor},
			{Offset: 1, Color: domain.DegenerateColor},
		}
		if !vr.Empty {
			l.Ticks = []Tick{{X: LegendWidth / 2, Value: vr.Min, Label: domain.FormatTick(vr.Min)}}
		}
		return l
	}

	for _, offset := range []float64{0, 0.5, 1} {
		l.Stops = append(l.Stops, GradientStop{
			Offset: offset,
			Color:  d.Color(d.ValueAt(offset)).Hex(),
		})
	}
	for _, v := range []float64{vr.Min, d.ValueAt(0.5), vr.Max} {
		l.Ticks = append(l.Ticks, Tick{
			X:     d.Normalize(v) * LegendWidth,
			Value: v,
			Label: domain.FormatTick(v),
		})
	}
	return l
}
