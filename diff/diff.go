// Package diff describes how a track's metadata would change if a merge were applied.
package diff

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"

	"go.senan.xyz/trackdex/track"
)

var dmp = diffmatchpatch.New()

type Diff struct {
	Field         string
	Before, After []diffmatchpatch.Diff
	Equal         bool
}

type Weights map[string]float64

func (w Weights) For(field string) float64 {
	if field == "" {
		return 1
	}
	for f, v := range w {
		if strings.HasPrefix(field, f) {
			return v
		}
	}
	return 1
}

// DefaultWeights favours the fields a human uses to recognise a track.
var DefaultWeights = Weights{
	"title":  2,
	"artist": 2,
	"album":  0.5,
}

// Metadata compares before and after field by field. Fields empty on both sides are left out.
// The score is a percentage of how similar the text fields that are set on both sides are.
func Metadata(weights Weights, before, after *track.Metadata) (float64, []Diff) {
	if before == nil {
		before = &track.Metadata{}
	}
	if after == nil {
		after = &track.Metadata{}
	}

	score := 100.0
	diff := Differ(weights, &score)

	var diffs []Diff
	add := func(field, a, b string) {
		if a == "" && b == "" {
			return
		}
		diffs = append(diffs, diff(field, a, b))
	}

	add("title", before.Title, after.Title)
	add("artist", before.Artist, after.Artist)
	add("album", before.Album, after.Album)
	add("genre", before.Genre, after.Genre)
	add("tempo", fmtFloat(before.Tempo), fmtFloat(after.Tempo))
	add("key", before.Key, after.Key)
	add("duration", fmtFloat(before.Duration), fmtFloat(after.Duration))
	add("year", fmtInt(before.Year), fmtInt(after.Year))
	add("comment", before.Comment, after.Comment)
	add("energy", fmtOptional(before.Energy), fmtOptional(after.Energy))
	add("spotify id", before.SpotifyID, after.SpotifyID)
	add("spotify url", before.SpotifyURL, after.SpotifyURL)
	add("mode", fmtOptionalInt(before.Mode), fmtOptionalInt(after.Mode))
	add("time signature", fmtInt(before.TimeSignature), fmtInt(after.TimeSignature))
	add("danceability", fmtOptional(before.Danceability), fmtOptional(after.Danceability))
	add("acousticness", fmtOptional(before.Acousticness), fmtOptional(after.Acousticness))
	add("instrumentalness", fmtOptional(before.Instrumentalness), fmtOptional(after.Instrumentalness))
	add("liveness", fmtOptional(before.Liveness), fmtOptional(after.Liveness))
	add("valence", fmtOptional(before.Valence), fmtOptional(after.Valence))

	return score, diffs
}

// Changed reports whether any of diffs is not equal.
func Changed(diffs []Diff) bool {
	for _, d := range diffs {
		if !d.Equal {
			return true
		}
	}
	return false
}

func Differ(weights Weights, score *float64) func(field string, a, b string) Diff {
	var total float64
	var dist float64

	return func(field, a, b string) Diff {
		// separate, normalised diff only for score. if we have both fields
		if a != "" && b != "" {
			a, b := norm(a), norm(b)

			diffs := dmp.DiffMain(a, b, false)
			dist += float64(dmp.DiffLevenshtein(diffs)) * weights.For(field)
			total += float64(len([]rune(b))) * weights.For(field)

			if total > 0 {
				*score = 100 - (dist * 100 / total)
			}
		}

		diffs := dmp.DiffMain(a, b, false)
		return Diff{
			Field:  field,
			Before: filterFunc(diffs, func(d diffmatchpatch.Diff) bool { return d.Type <= diffmatchpatch.DiffEqual }),
			After:  filterFunc(diffs, func(d diffmatchpatch.Diff) bool { return d.Type >= diffmatchpatch.DiffEqual }),
			Equal:  a == b,
		}
	}
}

// PrettyText renders one side of a diff with terminal colours, or "" when that side is empty.
func PrettyText(diffs []diffmatchpatch.Diff) string {
	return dmp.DiffPrettyText(diffs)
}

// Text renders one side of a diff without markup.
func Text(diffs []diffmatchpatch.Diff) string {
	var sb strings.Builder
	for _, d := range diffs {
		sb.WriteString(d.Text)
	}
	return sb.String()
}

func norm(input string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) {
			return unicode.ToLower(r)
		}
		if unicode.IsNumber(r) {
			return r
		}
		return -1
	}, input)
}

func fmtFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtInt(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func fmtOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func fmtOptionalInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func filterFunc[T any](elms []T, f func(T) bool) []T {
	var r []T
	for _, el := range elms {
		if f(el) {
			r = append(r, el)
		}
	}
	return r
}
