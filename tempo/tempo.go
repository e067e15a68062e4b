// Package tempo reads beats-per-minute values from the loosely formatted strings found in
// tags and playlist exports.
package tempo

import (
	"math"
	"strconv"
	"strings"
)

// Parse accepts "128", "128.00", "128,5" and "128 BPM". Anything unparsable or not
// positive is 0, which the rest of trackdex treats as absent.
func Parse(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimSuffix(s, "BPM"), "bpm")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	return f
}

// Round snaps a measured tempo to whole beats.
func Round(f float64) float64 {
	if f <= 0 {
		return 0
	}
	return math.Round(f)
}

// Valid reports whether f can be stored as a tempo.
func Valid(f float64) bool {
	return f > 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}
