// Package mapview owns the world map state and turns it into frames.
//
// A Controller moves through Uninitialized, MetadataLoaded, EmissionsLoaded
// and MapDrawn as data arrives. Every change of year, metric, zoom or hover
// produces a complete Frame: country polygons with fills, centroid markers,
// the legend and the tooltip. Frames are pushed to a Surface, which may
// render SVG, publish a snapshot, or both.
//
// Fetches carry a request token. Results from a fetch that has been
// superseded by a newer one are discarded with domain.ErrStaleResponse.
package mapview
