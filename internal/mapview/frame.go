package mapview

import (
	"fmt"
	"time"

	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/couchcryptid/climate-map/internal/geo"
	"github.com/paulmach/orb"
)

// Stroke styles.
const (
	strokeColor          = "#ffffff"
	highlightColor       = "#000000"
	polygonStrokeWidth   = 0.5
	highlightStrokeWidth = 2.0
	markerHoverStroke    = 1.0
)

// Frame is one complete render of the map.
type Frame struct {
	Seq        uint64    `json:"seq"`
	Trigger    string    `json:"trigger"`
	RenderedAt time.Time `json:"rendered_at"`

	Width     float64           `json:"width"`
	Height    float64           `json:"height"`
	Metric    domain.Metric     `json:"metric"`
	Year      int               `json:"year"`
	Transform ZoomTransform     `json:"transform"`
	Range     domain.ValueRange `json:"range"`

	Countries  []CountryShape `json:"countries"`
	Markers    []Marker       `json:"markers"`
	Legend     Legend         `json:"legend"`
	Tooltip    *Tooltip       `json:"tooltip,omitempty"`
	Unresolved int            `json:"unresolved"`
}

// CountryShape is one filled polygon feature. Country is empty when the
// feature could not be resolved.
type CountryShape struct {
	FeatureID   string     `json:"feature_id"`
	Name        string     `json:"name"`
	Country     string     `json:"country,omitempty"`
	Path        string     `json:"path"`
	Rings       []orb.Ring `json:"-"`
	Fill        string     `json:"fill"`
	Stroke      string     `json:"stroke"`
	StrokeWidth float64    `json:"stroke_width"`
	Value       float64    `json:"value,omitempty"`
	HasData     bool       `json:"has_data"`
	Highlighted bool       `json:"highlighted,omitempty"`
}

// Marker is a centroid circle for a country with a value.
type Marker struct {
	Country     string  `json:"country"`
	CX          float64 `json:"cx"`
	CY          float64 `json:"cy"`
	R           float64 `json:"r"`
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"stroke_width"`
	Value       float64 `json:"value"`
	Highlighted bool    `json:"highlighted,omitempty"`
}

// Tooltip describes the hovered country.
type Tooltip struct {
	Country string  `json:"country"`
	Label   string  `json:"label"`
	Value   string  `json:"value"`
	Region  string  `json:"region"`
	Capital string  `json:"capital"`
	HasData bool    `json:"has_data"`
	Raw     float64 `json:"raw,omitempty"`
}

// Lines returns the tooltip text, one entry per line.
func (t Tooltip) Lines() []string {
	return []string{
		t.Country,
		t.Label + ": " + t.Value,
		"Region: " + t.Region,
		"Capital: " + t.Capital,
	}
}

// shape is a feature with its projected path, computed once per topology.
type shape struct {
	feature geo.Feature
	rings   []orb.Ring
	path    string
}

type frameInput struct {
	width, height float64
	metric        domain.Metric
	year          int
	transform     ZoomTransform
	meta          *domain.MetadataStore
	series        *domain.MetricSeriesStore
	shapes        []shape
	resolver      geo.CountryResolver
	projection    geo.Mercator
	hover         *Target
}

// buildFrame computes a full frame from scratch. It has no side effects, so
// the same input always yields the same frame.
func buildFrame(in frameInput) Frame {
	vr := in.series.Range(in.year)
	f := Frame{
		Width:     in.width,
		Height:    in.height,
		Metric:    in.metric,
		Year:      in.year,
		Transform: in.transform,
		Range:     vr,
		Countries: make([]CountryShape, 0, len(in.shapes)),
	}

	for _, s := range in.shapes {
		cs := CountryShape{
			FeatureID:   s.feature.Key(),
			Name:        s.feature.Name,
			Path:        s.path,
			Rings:       s.rings,
			Fill:        domain.NeutralColor,
			Stroke:      strokeColor,
			StrokeWidth: polygonStrokeWidth,
		}
		if name, ok := in.resolver.Resolve(s.feature); ok {
			cs.Country = name
			if v, ok := in.series.Value(name, in.year); ok {
				cs.Value = v
				cs.HasData = true
				cs.Fill = domain.ColorFor(v, vr.Min, vr.Max)
			}
		} else {
			f.Unresolved++
		}
		if in.hover != nil && in.hover.isPolygon() && in.hover.FeatureID == cs.FeatureID && cs.Country != "" {
			cs.Highlighted = true
			cs.Stroke = highlightColor
			cs.StrokeWidth = highlightStrokeWidth
		}
		f.Countries = append(f.Countries, cs)
	}

	for _, country := range in.series.Countries() {
		v, ok := in.series.Value(country, in.year)
		if !ok {
			continue
		}
		meta, ok := in.meta.Lookup(country)
		if !ok {
			continue
		}
		x, y := in.projection.Project(orb.Point{meta.Longitude, meta.Latitude})
		m := Marker{
			Country:     country,
			CX:          x,
			CY:          y,
			R:           MarkerRadius(v, vr.Max, in.transform),
			Fill:        domain.ColorFor(v, vr.Min, vr.Max),
			Stroke:      strokeColor,
			StrokeWidth: in.transform.MarkerStrokeWidth(),
			Value:       v,
		}
		if in.hover != nil && !in.hover.isPolygon() && in.hover.Country == country {
			m.Highlighted = true
			m.R = HoverRadius(v, vr.Max, in.transform)
			m.StrokeWidth = markerHoverStroke
		}
		f.Markers = append(f.Markers, m)
	}

	f.Legend = buildLegend(in.metric, in.year, vr, in.width)
	if in.hover != nil {
		f.Tooltip = hoverTooltip(f, in.meta, *in.hover)
	}
	return f
}

// hoverTooltip describes the hovered target in f, or nil when the target is
// not a resolved polygon or a drawn marker.
func hoverTooltip(f Frame, meta *domain.MetadataStore, t Target) *Tooltip {
	country, value, hasData := "", 0.0, false
	if t.isPolygon() {
		for _, cs := range f.Countries {
			if cs.FeatureID == t.FeatureID && cs.Country != "" {
				country, value, hasData = cs.Country, cs.Value, cs.HasData
				break
			}
		}
	} else {
		for _, m := range f.Markers {
			if m.Country == t.Country {
				country, value, hasData = m.Country, m.Value, true
				break
			}
		}
	}
	if country == "" {
		return nil
	}

	md, _ := meta.Lookup(country)
	tip := &Tooltip{
		Country: country,
		Label:   fmt.Sprintf("%s (%d)", f.Metric.Title, f.Year),
		Value:   "No data",
		Region:  md.Region,
		Capital: md.Capital,
		HasData: hasData,
	}
	if hasData {
		tip.Raw = value
		tip.Value = domain.FormatNumber(value) + " " + f.Metric.Unit
	}
	return tip
}
