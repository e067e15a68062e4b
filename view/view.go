// Package view derives filtered and sorted projections of a collection. Nothing here
// modifies the records it is given.
package view

import (
	"math"
	"slices"
	"strings"

	"go.senan.xyz/trackdex/tempo"
	"go.senan.xyz/trackdex/track"
)

// Tempo range defaults that hold even for an empty collection.
const (
	DefaultTempoMin = 60
	DefaultTempoMax = 180
)

type Filters struct {
	TempoMin            float64 `json:"tempoMin"`
	TempoMax            float64 `json:"tempoMax"`
	IncludeWithoutTempo bool    `json:"includeWithoutTempo"`
	Query               string  `json:"query"`
}

// DefaultFilters shows everything in the collection.
func DefaultFilters(tracks []track.Track) Filters {
	lo, hi := TempoBounds(tracks)
	return Filters{TempoMin: lo, TempoMax: hi, IncludeWithoutTempo: true}
}

// Active reports whether f hides anything compared to the full tempo range [lo, hi].
func (f Filters) Active(lo, hi float64) bool {
	return strings.TrimSpace(f.Query) != "" || f.TempoMin > lo || f.TempoMax < hi || !f.IncludeWithoutTempo
}

func (f Filters) keepTempo(t track.Track) bool {
	bpm := t.Tempo()
	if !tempo.Valid(bpm) {
		return f.IncludeWithoutTempo
	}
	return bpm >= f.TempoMin && bpm <= f.TempoMax
}

// Apply filters by tempo, then by fuzzy text search, then orders the survivors by s.
func Apply(tracks []track.Track, f Filters, s Sort) []track.Track {
	var m *matcher
	if q := strings.TrimSpace(f.Query); q != "" {
		m = newMatcher(q)
	}

	res := make([]track.Track, 0, len(tracks))
	for _, t := range tracks {
		if !f.keepTempo(t) {
			continue
		}
		if m != nil && !m.matchTrack(t) {
			continue
		}
		res = append(res, t)
	}
	slices.SortStableFunc(res, s.Compare)
	return res
}

// TempoBounds returns floor(min(tempos, 60)) and ceil(max(tempos, 180)).
func TempoBounds(tracks []track.Track) (lo, hi float64) {
	lo, hi = DefaultTempoMin, DefaultTempoMax
	for _, t := range tracks {
		bpm := t.Tempo()
		if !tempo.Valid(bpm) {
			continue
		}
		lo = min(lo, bpm)
		hi = max(hi, bpm)
	}
	return math.Floor(lo), math.Ceil(hi)
}
