// Package domain models the climate datasets behind the world map and charts.
//
// # Data Sources
//
// All data comes from the climate API (see the climateapi adapter):
//
//	GET /api/countries_data       country metadata, keyed by display name
//	GET /api/wb/metric?metric=co2 World Bank series, country -> year -> value
//	GET /api/nasa/{series}        global NASA series {"years": [...], "values": [...]}
//	GET /api/top/{metric}         flat World Bank records for the top countries
//	GET /api/predict/{n}          predicted global series for the next n years
//
// # Country Metadata
//
// The metadata payload is either an object keyed by country display name or
// an array of records carrying a "name" field. Each record needs both
// "longitude" and "latitude"; records missing either are skipped. Region and
// capital default to "Unknown". Numbers may arrive as JSON numbers or as
// numeric strings.
//
// # Metric Series
//
// World Bank values arrive as numbers, numeric strings, or null. Only finite
// numbers are retained, per (country, year). Countries without metadata are
// dropped so every series key can be cross-referenced to a centroid.
//
// Per-year domains take the minimum and maximum finite value across all
// countries. A year without any data yields the domain [0, 1].
//
// # Color Scale
//
// Emissions-like metrics span several orders of magnitude, so colors are
// assigned on log10 of the value. The gradient is plasma with a reversed
// domain: the smallest values render light yellow and the largest dark blue.
// A domain without a usable log range renders every value in
// [DegenerateColor]. See [ColorFor].
package domain
