package geo

import (
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// maxMercatorLat keeps polar rings finite; it is the Web Mercator limit.
const maxMercatorLat = 85.05112878

// Mercator is a spherical Mercator projection onto screen pixels.
type Mercator struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
}

// NewMercator fits the world to a width x height viewport: scale is width/6
// and the origin sits at the viewport center.
func NewMercator(width, height float64) Mercator {
	return Mercator{Scale: width / 6, TranslateX: width / 2, TranslateY: height / 2}
}

// Project maps a [lon, lat] point to screen coordinates.
func (m Mercator) Project(p orb.Point) (float64, float64) {
	lambda := p[0] * math.Pi / 180
	lat := math.Max(-maxMercatorLat, math.Min(maxMercatorLat, p[1]))
	phi := lat * math.Pi / 180
	x := m.Scale*lambda + m.TranslateX
	y := -m.Scale*math.Log(math.Tan(math.Pi/4+phi/2)) + m.TranslateY
	return x, y
}

// Rings projects polygonal geometry to screen-space rings. Rings with fewer
// than three points are dropped.
func (m Mercator) Rings(g orb.Geometry) []orb.Ring {
	var out []orb.Ring
	for _, poly := range Polygons(g) {
		for _, ring := range poly {
			if len(ring) < 3 {
				continue
			}
			projected := make(orb.Ring, len(ring))
			for i, pt := range ring {
				x, y := m.Project(pt)
				projected[i] = orb.Point{x, y}
			}
			out = append(out, projected)
		}
	}
	return out
}

// Path renders polygonal geometry as SVG path data, one closed subpath per
// ring. Non-polygonal geometry renders as an empty string.
func (m Mercator) Path(g orb.Geometry) string {
	return PathData(m.Rings(g))
}

// PathData formats screen-space rings as SVG path data.
func PathData(rings []orb.Ring) string {
	var b strings.Builder
	buf := make([]byte, 0, 24)
	for _, ring := range rings {
		for i, pt := range ring {
			if i == 0 {
				b.WriteByte('M')
			} else {
				b.WriteByte('L')
			}
			buf = strconv.AppendFloat(buf[:0], pt[0], 'f', 2, 64)
			b.Write(buf)
			b.WriteByte(',')
			buf = strconv.AppendFloat(buf[:0], pt[1], 'f', 2, 64)
			b.Write(buf)
		}
		b.WriteByte('Z')
	}
	return b.String()
}
