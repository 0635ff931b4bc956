package mapview

import (
	"context"
	"errors"
)

// Surface receives every frame the controller produces, in Seq order.
type Surface interface {
	Draw(ctx context.Context, f Frame) error
}

// Surfaces fans a frame out to several surfaces. Every surface is drawn even
// when an earlier one fails.
type Surfaces []Surface

func (s Surfaces) Draw(ctx context.Context, f Frame) error {
	var errs []error
	for _, surface := range s {
		if err := surface.Draw(ctx, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot is the compact, publishable view of a frame: the data behind
// the colors without geometry.
type Snapshot struct {
	Metric     string            `json:"metric"`
	Title      string            `json:"title"`
	Unit       string            `json:"unit"`
	Year       int               `json:"year"`
	Trigger    string            `json:"trigger"`
	Seq        uint64            `json:"seq"`
	RenderedAt string            `json:"rendered_at"`
	Range      RangeSnapshot     `json:"range"`
	Countries  []CountrySnapshot `json:"countries"`
	Unresolved int               `json:"unresolved"`
}

// RangeSnapshot is the color domain of a snapshot.
type RangeSnapshot struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Empty bool    `json:"empty,omitempty"`
}

// CountrySnapshot is one country's value and color.
type CountrySnapshot struct {
	Country string  `json:"country"`
	Value   float64 `json:"value"`
	Fill    string  `json:"fill"`
}

// Snapshot extracts the per-country values from the frame's markers, which
// exist exactly for the countries with data.
func (f Frame) Snapshot() Snapshot {
	s := Snapshot{
		Metric:     f.Metric.Key,
		Title:      f.Metric.Title,
		Unit:       f.Metric.Unit,
		Year:       f.Year,
		Trigger:    f.Trigger,
		Seq:        f.Seq,
		RenderedAt: f.RenderedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		Range:      RangeSnapshot{Min: f.Range.Min, Max: f.Range.Max, Empty: f.Range.Empty},
		Countries:  make([]CountrySnapshot, 0, len(f.Markers)),
		Unresolved: f.Unresolved,
	}
	for _, m := range f.Markers {
		s.Countries = append(s.Countries, CountrySnapshot{Country: m.Country, Value: m.Value, Fill: m.Fill})
	}
	return s
}

// DataChanged reports whether the frame's trigger changed what the map
// shows, as opposed to view-only changes such as zoom or hover.
func (f Frame) DataChanged() bool {
	switch f.Trigger {
	case TriggerLoad, TriggerYear, TriggerMetric:
		return true
	default:
		return false
	}
}

// Redraw triggers.
const (
	TriggerLoad   = "load"
	TriggerYear   = "year"
	TriggerMetric = "metric"
	TriggerZoom   = "zoom"
	TriggerHover  = "hover"
	TriggerLeave  = "leave"
)
