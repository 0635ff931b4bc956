package domain

import "errors"

var (
	// ErrNoData is returned when a requested country, year, or chart has no values.
	ErrNoData = errors.New("no data")

	// ErrUnknownMetric is returned for metric keys outside the catalog.
	ErrUnknownMetric = errors.New("unknown metric")

	// ErrUnknownYear is returned when a year is not offered by the loaded series.
	ErrUnknownYear = errors.New("unknown year")

	// ErrNotReady is returned when the map has not reached the state an operation needs.
	ErrNotReady = errors.New("map not ready")

	// ErrStaleResponse marks fetch results superseded by a newer request.
	ErrStaleResponse = errors.New("stale response discarded")
)
