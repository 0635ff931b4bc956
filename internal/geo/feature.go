// Package geo turns world topology into country features and maps them to
// country metadata.
package geo

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature is one map geometry with its display name. Features are supplied
// by the topology source and treated as read-only.
type Feature struct {
	ID       string
	Name     string
	Geometry orb.Geometry
}

// Key is a stable identifier for memoization. It is empty when the feature
// carries neither an ID nor a name.
func (f Feature) Key() string {
	switch {
	case f.ID != "":
		return "id:" + f.ID
	case f.Name != "":
		return "name:" + f.Name
	default:
		return ""
	}
}

// Polygons returns one ring set per polygon: a Polygon yields itself, a
// MultiPolygon each constituent. Other geometry types yield nothing.
func Polygons(g orb.Geometry) []orb.Polygon {
	switch v := g.(type) {
	case orb.Polygon:
		return []orb.Polygon{v}
	case orb.MultiPolygon:
		return []orb.Polygon(v)
	default:
		return nil
	}
}

// FromFeatureCollection converts GeoJSON features, reading the display name
// from properties.name (or NAME / ADMIN in Natural Earth exports).
func FromFeatureCollection(fc *geojson.FeatureCollection) []Feature {
	out := make([]Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		out = append(out, Feature{
			ID:       formatID(f.ID),
			Name:     propertyName(f.Properties),
			Geometry: f.Geometry,
		})
	}
	return out
}

func propertyName(props map[string]any) string {
	for _, key := range []string{"name", "NAME", "ADMIN"} {
		if v, ok := props[key].(string); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func formatID(id any) string {
	switch v := id.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
