// Package match ranks lookup candidates against what a track is expected to be.
package match

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hbollon/go-edlib"

	"go.senan.xyz/trackdex/lookup"
)

// Threshold is the lowest score applied without asking.
const Threshold = 0.6

type Result struct {
	lookup.Candidate
	Score  float64 `json:"matchScore"`
	Scored bool    `json:"scored"`
}

// AutoAccept reports whether the result may be applied without confirmation. Unscored
// results pass through, as there is nothing to compare against.
func (r Result) AutoAccept() bool {
	return !r.Scored || r.Score >= Threshold
}

// Score compares each candidate's title and joined artist names with the expected values,
// averaging over the components that were given. Results are ordered best first and equal
// scores keep their search order. With nothing to compare, candidates pass through as is.
func Score(candidates []lookup.Candidate, expectedTitle, expectedArtist string) []Result {
	res := make([]Result, 0, len(candidates))
	if expectedTitle == "" && expectedArtist == "" {
		for _, c := range candidates {
			res = append(res, Result{Candidate: c})
		}
		return res
	}

	expectedTitle = strings.ToLower(expectedTitle)
	expectedArtist = strings.ToLower(expectedArtist)

	for _, c := range candidates {
		var total float64
		var components int
		if expectedTitle != "" {
			total += Similarity(expectedTitle, strings.ToLower(c.Title))
			components++
		}
		if expectedArtist != "" {
			total += Similarity(expectedArtist, strings.ToLower(strings.Join(c.Artists, " ")))
			components++
		}
		res = append(res, Result{Candidate: c, Score: total / float64(components), Scored: true})
	}

	slices.SortStableFunc(res, func(a, b Result) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return res
}

// Similarity is the Sørensen–Dice coefficient over character bigrams, ignoring whitespace.
func Similarity(a, b string) float64 {
	a, b = stripSpace(a), stripSpace(b)
	if a == b {
		return 1
	}
	if utf8.RuneCountInString(a) < 2 || utf8.RuneCountInString(b) < 2 {
		return 0
	}
	sim, err := edlib.StringsSimilarity(a, b, edlib.SorensenDice)
	if err != nil {
		return 0
	}
	return float64(sim)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
