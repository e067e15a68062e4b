package view

import (
	"strings"

	"github.com/rainycape/unidecode"

	"go.senan.xyz/trackdex/track"
)

// Threshold is the share of pattern characters that may be wrong for a field to match.
const Threshold = 0.4

// matcher finds the query anywhere in a field allowing a bounded number of edits, so typos
// and partial words still match.
type matcher struct {
	pattern   []rune
	maxErrors int
	row       []int
}

func newMatcher(query string) *matcher {
	p := []rune(normalize(query))
	return &matcher{
		pattern:   p,
		maxErrors: int(Threshold * float64(len(p))),
		row:       make([]int, len(p)+1),
	}
}

func (m *matcher) matchTrack(t track.Track) bool {
	if m.match(t.Name) {
		return true
	}
	if t.Metadata == nil {
		return false
	}
	return m.match(t.Metadata.Title) || m.match(t.Metadata.Artist) || m.match(t.Metadata.Album)
}

func (m *matcher) match(field string) bool {
	if field == "" {
		return false
	}
	return m.distance(normalize(field)) <= m.maxErrors
}

// distance is the smallest edit distance between the pattern and any substring of text.
// The column for the empty text prefix starts at zero everywhere along the text, which lets
// a match begin at any position.
func (m *matcher) distance(text string) int {
	n := len(m.pattern)
	row := m.row
	for i := range row {
		row[i] = i
	}
	best := row[n]
	for _, c := range text {
		diag := row[0]
		row[0] = 0
		for i := 1; i <= n; i++ {
			cost := 1
			if m.pattern[i-1] == c {
				cost = 0
			}
			next := min(row[i]+1, row[i-1]+1, diag+cost)
			diag = row[i]
			row[i] = next
		}
		best = min(best, row[n])
		if best == 0 {
			break
		}
	}
	return best
}

func normalize(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}
