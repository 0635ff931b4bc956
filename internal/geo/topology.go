package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// DefaultObject is the TopoJSON object holding country geometries in the
// world-atlas dataset.
const DefaultObject = "countries"

// DecodeFeatures reads a TopoJSON topology or a GeoJSON FeatureCollection.
// For TopoJSON, object names the geometry collection to convert; when it is
// empty or absent and the topology has exactly one object, that one is used.
func DecodeFeatures(data []byte, object string) ([]Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode topology: %w", err)
	}

	switch head.Type {
	case "Topology":
		var topo topology
		if err := json.Unmarshal(data, &topo); err != nil {
			return nil, fmt.Errorf("decode topojson: %w", err)
		}
		return topo.features(object)
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		return FromFeatureCollection(fc), nil
	default:
		return nil, fmt.Errorf("decode topology: unsupported type %q", head.Type)
	}
}

type topology struct {
	Transform *topoTransform        `json:"transform"`
	Objects   map[string]topoObject `json:"objects"`
	Arcs      [][][]float64         `json:"arcs"`

	decoded []orb.LineString
}

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoObject struct {
	Type       string          `json:"type"`
	ID         any             `json:"id"`
	Properties map[string]any  `json:"properties"`
	Arcs       json.RawMessage `json:"arcs"`
	Geometries []topoObject    `json:"geometries"`
}

var errArcIndex = errors.New("arc index out of range")

func (t *topology) features(object string) ([]Feature, error) {
	obj, ok := t.Objects[object]
	if !ok {
		if len(t.Objects) != 1 {
			return nil, fmt.Errorf("decode topojson: object %q not found", object)
		}
		for _, only := range t.Objects {
			obj = only
		}
	}

	t.decodeArcs()

	geoms := obj.Geometries
	if obj.Type != "GeometryCollection" {
		geoms = []topoObject{obj}
	}

	out := make([]Feature, 0, len(geoms))
	for i, g := range geoms {
		geom, err := t.geometry(g)
		if err != nil {
			return nil, fmt.Errorf("decode topojson geometry %d: %w", i, err)
		}
		out = append(out, Feature{
			ID:       formatID(g.ID),
			Name:     propertyName(g.Properties),
			Geometry: geom,
		})
	}
	return out, nil
}

// decodeArcs resolves delta-encoded, quantized arcs into absolute positions.
func (t *topology) decodeArcs() {
	t.decoded = make([]orb.LineString, len(t.Arcs))
	for i, arc := range t.Arcs {
		line := make(orb.LineString, 0, len(arc))
		var x, y float64
		for _, p := range arc {
			if len(p) < 2 {
				continue
			}
			if t.Transform == nil {
				line = append(line, orb.Point{p[0], p[1]})
				continue
			}
			x += p[0]
			y += p[1]
			line = append(line, orb.Point{
				x*t.Transform.Scale[0] + t.Transform.Translate[0],
				y*t.Transform.Scale[1] + t.Transform.Translate[1],
			})
		}
		t.decoded[i] = line
	}
}

func (t *topology) geometry(g topoObject) (orb.Geometry, error) {
	switch g.Type {
	case "Polygon":
		var rings [][]int
		if err := json.Unmarshal(g.Arcs, &rings); err != nil {
			return nil, err
		}
		return t.polygon(rings)
	case "MultiPolygon":
		var polys [][][]int
		if err := json.Unmarshal(g.Arcs, &polys); err != nil {
			return nil, err
		}
		mp := make(orb.MultiPolygon, 0, len(polys))
		for _, rings := range polys {
			p, err := t.polygon(rings)
			if err != nil {
				return nil, err
			}
			mp = append(mp, p)
		}
		return mp, nil
	default:
		// Null and non-areal geometries carry no polygons.
		return nil, nil
	}
}

func (t *topology) polygon(rings [][]int) (orb.Polygon, error) {
	poly := make(orb.Polygon, 0, len(rings))
	for _, arcs := range rings {
		ring, err := t.ring(arcs)
		if err != nil {
			return nil, err
		}
		poly = append(poly, ring)
	}
	return poly, nil
}

// ring stitches arcs end to end. Consecutive arcs share an endpoint, so the
// previous arc's last point is dropped before appending. A negative index ~i
// means arc i reversed.
func (t *topology) ring(arcs []int) (orb.Ring, error) {
	var ring orb.Ring
	for _, idx := range arcs {
		reversed := idx < 0
		if reversed {
			idx = ^idx
		}
		if idx >= len(t.decoded) {
			return nil, fmt.Errorf("%w: %d", errArcIndex, idx)
		}
		if len(ring) > 0 {
			ring = ring[:len(ring)-1]
		}
		arc := t.decoded[idx]
		if reversed {
			for i := len(arc) - 1; i >= 0; i-- {
				ring = append(ring, arc[i])
			}
		} else {
			ring = append(ring, arc...)
		}
	}
	if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, nil
}
