package mapview

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZoomTransform_Clamp(t *testing.T) {
	tests := []struct {
		name string
		in   ZoomTransform
		want ZoomTransform
	}{
		{"identity", Identity(), ZoomTransform{K: 1}},
		{"in range", ZoomTransform{K: 3, X: 10, Y: -4}, ZoomTransform{K: 3, X: 10, Y: -4}},
		{"too far in", ZoomTransform{K: 20}, ZoomTransform{K: 8}},
		{"too far out", ZoomTransform{K: 0.5}, ZoomTransform{K: 1}},
		{"nan scale", ZoomTransform{K: math.NaN()}, ZoomTransform{K: 1}},
		{"infinite offset", ZoomTransform{K: 2, X: math.Inf(1), Y: math.NaN()}, ZoomTransform{K: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Clamp())
		})
	}
}

func TestMarkerRadius(t *testing.T) {
	id := Identity()

	assert.InDelta(t, math.Sqrt(30)+2, MarkerRadius(50, 50, id), 1e-9)
	assert.InDelta(t, math.Sqrt(7.5)+2, MarkerRadius(25, 100, id), 1e-9)
	assert.InDelta(t, 2, MarkerRadius(0, 100, id), 0)
	assert.InDelta(t, 2, MarkerRadius(-5, 100, id), 0, "negative values never produce NaN")
	assert.InDelta(t, 2, MarkerRadius(5, 0, id), 0)
}

func TestMarkerRadius_ShrinksWithZoom(t *testing.T) {
	prev := math.Inf(1)
	for k := 1.0; k <= 8; k++ {
		r := MarkerRadius(100, 100, ZoomTransform{K: k})
		assert.LessOrEqual(t, r, prev, "k=%v", k)
		prev = r
	}
	assert.Greater(t, prev, 2.0)
}

func TestMarkerStrokeWidth(t *testing.T) {
	assert.InDelta(t, 1.5, Identity().MarkerStrokeWidth(), 0)
	assert.InDelta(t, 0.625, ZoomTransform{K: 8}.MarkerStrokeWidth(), 0)
}

func TestHoverRadius(t *testing.T) {
	id := Identity()
	assert.Greater(t, HoverRadius(10, 100, id), MarkerRadius(10, 100, id))
	assert.InDelta(t, 2, HoverRadius(0, 100, id), 0)
}

func TestZoomTransform_Apply(t *testing.T) {
	x, y := ZoomTransform{K: 2, X: 12.5, Y: -3}.Apply(10, 20)
	assert.InDelta(t, 32.5, x, 0)
	assert.InDelta(t, 37, y, 0)

	x, y = Identity().Apply(10, 20)
	assert.InDelta(t, 10, x, 0)
	assert.InDelta(t, 20, y, 0)
}

func TestSelectYear(t *testing.T) {
	years := []int{2021, 2020, 2019}

	assert.Equal(t, 2020, selectYear(years, 2020, 2023))
	assert.Equal(t, 2021, selectYear(years, 2023, 2023))
	assert.Equal(t, 2023, selectYear(nil, 2020, 2023))
}
