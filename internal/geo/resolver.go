package geo

import (
	"log/slog"

	"github.com/couchcryptid/climate-map/internal/domain"
	"github.com/paulmach/orb"
)

// CountryResolver maps a geometry feature to a metadata display name.
type CountryResolver interface {
	Resolve(f Feature) (string, bool)
}

// Resolver matches features against one metadata snapshot: exact display
// name first, then centroid containment.
type Resolver struct {
	meta   *domain.MetadataStore
	logger *slog.Logger
}

// NewResolver creates a resolver for a metadata snapshot.
func NewResolver(meta *domain.MetadataStore, logger *slog.Logger) *Resolver {
	return &Resolver{meta: meta, logger: logger}
}

// Resolve returns the metadata name for f. When the name does not match
// exactly, centroids are tested in ascending name order and the first one
// inside the feature wins, so the answer is the same on every call.
func (r *Resolver) Resolve(f Feature) (string, bool) {
	if f.Name != "" && r.meta.Has(f.Name) {
		return f.Name, true
	}

	polys := Polygons(f.Geometry)
	if len(polys) > 0 {
		for _, name := range r.meta.Names() {
			meta, _ := r.meta.Lookup(name)
			if AnyContains(polys, orb.Point{meta.Longitude, meta.Latitude}) {
				return name, true
			}
		}
	}

	r.logger.Debug("feature not resolved", "feature", f.Name, "id", f.ID)
	return "", false
}
