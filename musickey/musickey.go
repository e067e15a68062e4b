// Package musickey interprets musical key strings in Camelot notation (<1-12><A|B>) for
// sorting and colouring, and normalises other vendor notations into it.
package musickey

import (
	"strconv"
	"strings"
	"unicode"
)

type Mode byte

const (
	Minor Mode = 'A'
	Major Mode = 'B'
)

func (m Mode) String() string { return string(m) }

// Key is a position on the Camelot wheel. A Scale of 0 means unknown.
type Key struct {
	Scale int
	Mode  Mode
}

func (k Key) Known() bool {
	return k.Scale >= 1 && k.Scale <= 12
}

func (k Key) String() string {
	if !k.Known() {
		return ""
	}
	return strconv.Itoa(k.Scale) + k.Mode.String()
}

// Parse reads the first run of digits as the scale and the final character as the mode.
// It never fails: empty or garbled input yields Key{0, Minor}.
func Parse(s string) Key {
	s = strings.TrimSpace(s)
	k := Key{Mode: Minor}
	if s == "" {
		return k
	}

	start := strings.IndexFunc(s, isDigit)
	if start >= 0 {
		end := start
		for end < len(s) && isDigit(rune(s[end])) {
			end++
		}
		if n, err := strconv.Atoi(s[start:end]); err == nil && n >= 1 && n <= 12 {
			k.Scale = n
		}
	}

	last, _ := lastRune(s)
	if unicode.ToUpper(last) == 'B' {
		k.Mode = Major
	}
	return k
}

// SortValue orders keys by scale, then minor before major within a scale.
func SortValue(s string) int {
	k := Parse(s)
	v := k.Scale * 10
	if k.Mode == Major {
		v++
	}
	return v
}

const NeutralColor = "#808080"

var palette = [12]string{
	"#C40233", "#FFD700", "#008000", "#40E0D0",
	"#0000FF", "#8A2BE2", "#FF1493", "#FF8C00",
	"#7CFC00", "#00FFFF", "#FF00FF", "#FF69B4",
}

func Color(s string) string {
	k := Parse(s)
	if !k.Known() {
		return NeutralColor
	}
	return palette[k.Scale-1]
}

var (
	majorCamelot = [12]int{8, 3, 10, 5, 12, 7, 2, 9, 4, 11, 6, 1}
	minorCamelot = [12]int{5, 12, 7, 2, 9, 4, 11, 6, 1, 8, 3, 10}
)

// FromPitchClass converts a pitch class (0 = C .. 11 = B) and a mode (1 major, 0 minor)
// as reported by audio analysis services. Out of range pitch gives the empty string.
func FromPitchClass(pitch int, mode int) string {
	if pitch < 0 || pitch > 11 {
		return ""
	}
	if mode == 1 {
		return Key{Scale: majorCamelot[pitch], Mode: Major}.String()
	}
	return Key{Scale: minorCamelot[pitch], Mode: Minor}.String()
}

// FromTraktorValue maps the MUSICAL_KEY VALUE attribute of Traktor collections, where
// 0..11 are C..B major and 12..23 are C..B minor.
func FromTraktorValue(v int) string {
	switch {
	case v >= 0 && v < 12:
		return FromPitchClass(v, 1)
	case v >= 12 && v < 24:
		return FromPitchClass(v-12, 0)
	}
	return ""
}

var noteNames = map[string]int{
	"C": 0, "B#": 0,
	"C#": 1, "DB": 1,
	"D": 2,
	"D#": 3, "EB": 3,
	"E": 4, "FB": 4,
	"F": 5, "E#": 5,
	"F#": 6, "GB": 6,
	"G": 7,
	"G#": 8, "AB": 8,
	"A": 9,
	"A#": 10, "BB": 10,
	"B": 11, "CB": 11,
}

// Normalize rewrites Camelot ("08a"), Open Key ("1d", "6m") and musical notation ("Am",
// "F#", "Bbmin", "Eb major") into Camelot. Anything else is returned trimmed.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if k, ok := parseWheel(s); ok {
		return k
	}
	if k, ok := parseMusical(s); ok {
		return k
	}
	return s
}

func parseWheel(s string) (string, bool) {
	end := 0
	for end < len(s) && isDigit(rune(s[end])) {
		end++
	}
	if end == 0 || end > 2 || end != len(s)-1 {
		return "", false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n < 1 || n > 12 {
		return "", false
	}
	switch unicode.ToUpper(rune(s[end])) {
	case 'A':
		return Key{Scale: n, Mode: Minor}.String(), true
	case 'B':
		return Key{Scale: n, Mode: Major}.String(), true
	case 'M':
		return Key{Scale: openKeyToCamelot(n), Mode: Minor}.String(), true
	case 'D':
		return Key{Scale: openKeyToCamelot(n), Mode: Major}.String(), true
	}
	return "", false
}

// Open Key 1 sits where Camelot 8 does.
func openKeyToCamelot(n int) int {
	return (n-1+7)%12 + 1
}

func parseMusical(s string) (string, bool) {
	s = strings.ReplaceAll(s, "♯", "#")
	s = strings.ReplaceAll(s, "♭", "b")

	if len(s) == 0 {
		return "", false
	}
	note := strings.ToUpper(s[:1])
	rest := s[1:]
	if len(rest) > 0 && (rest[0] == '#' || rest[0] == 'b') {
		note += strings.ToUpper(rest[:1])
		rest = rest[1:]
	}
	pitch, ok := noteNames[note]
	if !ok {
		return "", false
	}

	switch strings.ToLower(strings.TrimSpace(rest)) {
	case "", "maj", "major":
		return FromPitchClass(pitch, 1), true
	case "m", "min", "minor":
		return FromPitchClass(pitch, 0), true
	}
	return "", false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func lastRune(s string) (rune, bool) {
	rs := []rune(s)
	if len(rs) == 0 {
		return 0, false
	}
	return rs[len(rs)-1], true
}
