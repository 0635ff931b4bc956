package mapview

import (
	"math"
)

// Zoom scale extent.
const (
	MinZoom = 1.0
	MaxZoom = 8.0
)

// ZoomTransform is the pan/zoom affine transform applied to the map group.
type ZoomTransform struct {
	K float64 `json:"k"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Identity is the unzoomed transform.
func Identity() ZoomTransform {
	return ZoomTransform{K: 1}
}

// Clamp limits the scale to [MinZoom, MaxZoom] and zeroes non-finite offsets.
func (t ZoomTransform) Clamp() ZoomTransform {
	if math.IsNaN(t.K) {
		t.K = MinZoom
	}
	t.K = math.Max(MinZoom, math.Min(MaxZoom, t.K))
	if math.IsNaN(t.X) || math.IsInf(t.X, 0) {
		t.X = 0
	}
	if math.IsNaN(t.Y) || math.IsInf(t.Y, 0) {
		t.Y = 0
	}
	return t
}

// SizeFactor shrinks marker inflation as the map zooms in.
func (t ZoomTransform) SizeFactor() float64 {
	return 1 / math.Max(1, math.Pow(t.K, 0.7))
}

// MarkerStrokeWidth is the marker outline width at this zoom.
func (t ZoomTransform) MarkerStrokeWidth() float64 {
	return 0.5 + 1/t.K
}

// Apply maps a projected point into the zoomed view.
func (t ZoomTransform) Apply(x, y float64) (float64, float64) {
	return x*t.K + t.X, y*t.K + t.Y
}

// MarkerRadius sizes a marker so its area grows linearly with value.
func MarkerRadius(value, max float64, t ZoomTransform) float64 {
	return math.Sqrt(valueRatio(value, max)*30)*t.SizeFactor() + 2
}

// HoverRadius is the enlarged radius of a highlighted marker.
func HoverRadius(value, max float64, t ZoomTransform) float64 {
	return math.Sqrt(valueRatio(value, max)*30)*t.SizeFactor()*1.5 + 2
}

func valueRatio(value, max float64) float64 {
	if value <= 0 || max <= 0 {
		return 0
	}
	return value / max
}
