package domain

import (
	"math"
	"strconv"
)

// FormatNumber abbreviates large values with K, M, or B and one decimal.
// Smaller values keep their shortest exact representation.
func FormatNumber(v float64) string {
	switch {
	case v >= 1e9:
		return strconv.FormatFloat(v/1e9, 'f', 1, 64) + "B"
	case v >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case v >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	default:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
}

var siPrefixes = []string{"", "k", "M", "B", "T", "P"}

// FormatTick labels legend ticks: values from 1000 up use two significant
// digits with an SI prefix (billions as B), smaller values one decimal.
func FormatTick(v float64) string {
	if v < 1000 || math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}

	exp := int(math.Floor(math.Log10(v)))
	rounded := math.Round(v/math.Pow(10, float64(exp-1))) * math.Pow(10, float64(exp-1))
	exp = int(math.Floor(math.Log10(rounded)))

	group := exp / 3
	if group >= len(siPrefixes) {
		group = len(siPrefixes) - 1
	}
	scaled := rounded / math.Pow(10, float64(group*3))
	decimals := 1 - (exp - group*3)
	if decimals < 0 {
		decimals = 0
	}
	return strconv.FormatFloat(scaled, 'f', decimals, 64) + siPrefixes[group]
}
