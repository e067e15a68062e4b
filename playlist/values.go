package playlist

import (
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseOptionalFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

// parseDuration takes plain seconds ("245", "245.3") or clock notation ("4:05", "1:02:03").
func parseDuration(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if !strings.Contains(s, ":") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || f < 0 {
			return 0
		}
		return f
	}
	var total float64
	for _, part := range strings.Split(s, ":") {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil || f < 0 {
			return 0
		}
		total = total*60 + f
	}
	return total
}

// parseYear accepts a bare year or any date dateparse understands. Traktor writes
// "2019/0/0" when only the year is known, so a leading four digit run is the last resort.
func parseYear(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return validYear(n)
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return validYear(t.Year())
	}
	if len(s) >= 4 {
		if n, err := strconv.Atoi(s[:4]); err == nil {
			return validYear(n)
		}
	}
	return 0
}

func validYear(n int) int {
	if n < 1000 || n > 9999 {
		return 0
	}
	return n
}
