package mapview

import (
	"github.com/couchcryptid/climate-map/internal/domain"
)

// Phase is the map lifecycle position.
type Phase int

const (
	Uninitialized Phase = iota
	MetadataLoaded
	EmissionsLoaded
	MapDrawn
)

func (p Phase) String() string {
	switch p {
	case Uninitialized:
		return "uninitialized"
	case MetadataLoaded:
		return "metadata_loaded"
	case EmissionsLoaded:
		return "emissions_loaded"
	case MapDrawn:
		return "map_drawn"
	default:
		return "unknown"
	}
}

// MarshalText renders the phase by name in JSON.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// MapState is the controller's mutable selection and lifecycle state.
type MapState struct {
	Phase      Phase             `json:"phase"`
	Metric     domain.Metric     `json:"metric"`
	Year       int               `json:"year"`
	Years      []int             `json:"years"`
	Transform  ZoomTransform     `json:"transform"`
	Range      domain.ValueRange `json:"range"`
	Countries  int               `json:"countries"`
	Features   int               `json:"features"`
	Unresolved int               `json:"unresolved"`
	Hover      *Target           `json:"hover,omitempty"`
}

func (s MapState) clone() MapState {
	out := s
	out.Years = append([]int(nil), s.Years...)
	if s.Hover != nil {
		h := *s.Hover
		out.Hover = &h
	}
	return out
}

// Target identifies what the pointer is over: a polygon by feature key, or
// a centroid marker by country name.
type Target struct {
	FeatureID string `json:"feature_id,omitempty"`
	Country   string `json:"country,omitempty"`
}

func (t Target) isPolygon() bool { return t.FeatureID != "" }

// selectYear keeps current when it is available, else falls back to the
// newest year, else to fallback.
func selectYear(years []int, current, fallback int) int {
	for _, y := range years {
		if y == current {
			return current
		}
	}
	if len(years) > 0 {
		return years[0]
	}
	return fallback
}

func containsYear(years []int, year int) bool {
	for _, y := range years {
		if y == year {
			return true
		}
	}
	return false
}
