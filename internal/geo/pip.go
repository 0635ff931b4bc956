package geo

import "github.com/paulmach/orb"

// PolygonContains reports whether pt lies inside the ring set using
// ray casting with the even-odd rule. Every crossing flips parity,
// whichever ring it belongs to, so holes subtract. Rings with fewer than
// three points are ignored.
func PolygonContains(poly orb.Polygon, pt orb.Point) bool {
	x, y := pt[0], pt[1]
	inside := false
	for _, ring := range poly {
		n := len(ring)
		if n < 3 {
			continue
		}
		for i, j := 0, n-1; i < n; j, i = i, i+1 {
			xi, yi := ring[i][0], ring[i][1]
			xj, yj := ring[j][0], ring[j][1]
			// (yi > y) != (yj > y) guarantees yj != yi.
			if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
				inside = !inside
			}
		}
	}
	return inside
}

// AnyContains reports whether pt is inside any of the ring sets. A bounding
// box over all rings of a set skips sets that cannot contain the point.
func AnyContains(polys []orb.Polygon, pt orb.Point) bool {
	for _, poly := range polys {
		b, ok := ringSetBound(poly)
		if !ok || !b.Contains(pt) {
			continue
		}
		if PolygonContains(poly, pt) {
			return true
		}
	}
	return false
}

// ringSetBound covers every ring that takes part in the parity test.
// orb's Polygon.Bound only looks at the first ring.
func ringSetBound(poly orb.Polygon) (orb.Bound, bool) {
	var b orb.Bound
	found := false
	for _, ring := range poly {
		if len(ring) < 3 {
			continue
		}
		if !found {
			b, found = ring.Bound(), true
			continue
		}
		b = b.Union(ring.Bound())
	}
	return b, found
}
