package view

import (
	"cmp"
	"errors"
	"fmt"
	"strings"

	"go.senan.xyz/natcmp"

	"go.senan.xyz/trackdex/musickey"
	"go.senan.xyz/trackdex/track"
)

var ErrInvalidSort = errors.New("invalid sort")

type SortKey string

const (
	SortKeyKey      SortKey = "key"
	SortKeyTempo    SortKey = "tempo"
	SortKeyTitle    SortKey = "title"
	SortKeyDuration SortKey = "duration"
	SortKeyArtist   SortKey = "artist"
)

var SortKeys = []SortKey{SortKeyKey, SortKeyTempo, SortKeyTitle, SortKeyDuration, SortKeyArtist}

func (k SortKey) IsValid() bool {
	switch k {
	case SortKeyKey, SortKeyTempo, SortKeyTitle, SortKeyDuration, SortKeyArtist:
		return true
	}
	return false
}

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

func (d Direction) Toggle() Direction {
	if d == Desc {
		return Asc
	}
	return Desc
}

func (d Direction) apply(c int) int {
	if d == Desc {
		return -c
	}
	return c
}

type Sort struct {
	Primary      SortKey   `json:"primary"`
	PrimaryDir   Direction `json:"primaryDir"`
	Secondary    SortKey   `json:"secondary"`
	SecondaryDir Direction `json:"secondaryDir"`
}

// DefaultSort orders by key, then tempo, both ascending.
func DefaultSort() Sort {
	return Sort{Primary: SortKeyKey, PrimaryDir: Asc, Secondary: SortKeyTempo, SecondaryDir: Asc}
}

// WithPrimary sets the primary key. Picking the current secondary swaps the two.
func (s Sort) WithPrimary(k SortKey) Sort {
	if k == s.Secondary {
		s.Secondary = s.Primary
	}
	s.Primary = k
	return s
}

// WithSecondary sets the secondary key. Picking the current primary swaps the two.
func (s Sort) WithSecondary(k SortKey) Sort {
	if k == s.Primary {
		s.Primary = s.Secondary
	}
	s.Secondary = k
	return s
}

// Compare orders by the primary then the secondary key, each in its own direction. Records
// still equal fall back to ascending name order whatever the directions.
func (s Sort) Compare(a, b track.Track) int {
	if c := s.PrimaryDir.apply(compareBy(s.Primary, a, b)); c != 0 {
		return c
	}
	if c := s.SecondaryDir.apply(compareBy(s.Secondary, a, b)); c != 0 {
		return c
	}
	return cmp.Compare(a.Name, b.Name)
}

func compareBy(k SortKey, a, b track.Track) int {
	switch k {
	case SortKeyKey:
		return cmp.Compare(musickey.SortValue(a.Key()), musickey.SortValue(b.Key()))
	case SortKeyTempo:
		return cmp.Compare(a.Tempo(), b.Tempo())
	case SortKeyTitle:
		return natcmp.Compare(strings.ToLower(a.Title()), strings.ToLower(b.Title()))
	case SortKeyDuration:
		return cmp.Compare(a.Duration(), b.Duration())
	case SortKeyArtist:
		return natcmp.Compare(strings.ToLower(a.Artist()), strings.ToLower(b.Artist()))
	}
	return 0
}

// ParseSort reads "primary[:dir][,secondary[:dir]]", for example "key:asc,tempo:desc".
// Missing parts keep their defaults.
func ParseSort(s string) (Sort, error) {
	res := DefaultSort()
	s = strings.TrimSpace(s)
	if s == "" {
		return res, nil
	}

	parts := strings.Split(s, ",")
	if len(parts) > 2 {
		return Sort{}, fmt.Errorf("%w: %q: at most two keys", ErrInvalidSort, s)
	}

	var keys [2]SortKey
	var dirs [2]Direction
	for i, part := range parts {
		name, dir, _ := strings.Cut(strings.TrimSpace(part), ":")
		keys[i] = SortKey(strings.ToLower(strings.TrimSpace(name)))
		if !keys[i].IsValid() {
			return Sort{}, fmt.Errorf("%w: unknown key %q", ErrInvalidSort, name)
		}
		switch d := Direction(strings.ToLower(strings.TrimSpace(dir))); d {
		case "", Asc:
			dirs[i] = Asc
		case Desc:
			dirs[i] = Desc
		default:
			return Sort{}, fmt.Errorf("%w: unknown direction %q", ErrInvalidSort, dir)
		}
	}

	res = res.WithPrimary(keys[0])
	res.PrimaryDir = dirs[0]
	if len(parts) == 2 {
		if keys[1] == keys[0] {
			return Sort{}, fmt.Errorf("%w: %q used twice", ErrInvalidSort, keys[0])
		}
		res.Secondary = keys[1]
		res.SecondaryDir = dirs[1]
	}
	return res, nil
}

func (s Sort) String() string {
	return fmt.Sprintf("%s:%s,%s:%s", s.Primary, s.PrimaryDir, s.Secondary, s.SecondaryDir)
}
