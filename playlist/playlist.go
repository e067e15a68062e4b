// Package playlist reads the collection exports of DJ software (Rekordbox, Traktor,
// Serato) and falls back to a bounded best-effort scan for any other XML.
package playlist

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.senan.xyz/trackdex/track"
)

var ErrMalformed = errors.New("malformed xml")

// Limits for arbitrary input.
const (
	MaxDepth   = 64
	MaxEntries = 100_000
)

type Format uint8

const (
	Generic Format = iota
	Rekordbox
	Traktor
	Serato
)

func (f Format) String() string {
	switch f {
	case Rekordbox:
		return "Rekordbox"
	case Traktor:
		return "Traktor"
	case Serato:
		return "Serato"
	}
	return "Unknown"
}

func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Format) UnmarshalText(text []byte) error {
	for _, ff := range []Format{Generic, Rekordbox, Traktor, Serato} {
		if strings.EqualFold(ff.String(), string(text)) {
			*f = ff
			return nil
		}
	}
	return fmt.Errorf("unknown format %q", text)
}

// Entry is one track as described by a playlist export. Zero values are absent.
type Entry struct {
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Album    string   `json:"album"`
	Genre    string   `json:"genre"`
	BPM      float64  `json:"bpm,omitempty"`
	Key      string   `json:"key,omitempty"`
	Location string   `json:"location"`
	Duration float64  `json:"duration,omitempty"`
	Rating   int      `json:"rating,omitempty"`
	Year     int      `json:"year,omitempty"`
	Comment  string   `json:"comment,omitempty"`
	Energy   *float64 `json:"energy,omitempty"`
}

// Metadata is the partial record an entry contributes to a merge.
func (e Entry) Metadata() *track.Metadata {
	return &track.Metadata{
		Title:    e.Title,
		Artist:   e.Artist,
		Album:    e.Album,
		Genre:    e.Genre,
		Tempo:    e.BPM,
		Key:      e.Key,
		Duration: e.Duration,
		Year:     e.Year,
		Comment:  e.Comment,
		Energy:   e.Energy,
	}
}

type Playlist struct {
	Format  Format  `json:"format"`
	Entries []Entry `json:"tracks"`
}

// Parse detects the export format from the document root and extracts its entries. Only
// undecodable XML is an error; unknown shapes produce whatever the generic scan finds.
func Parse(r io.Reader) (*Playlist, error) {
	root, err := decodeTree(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var p Playlist
	switch root.name {
	case "DJ_PLAYLISTS":
		p.Format, p.Entries = Rekordbox, rekordboxEntries(root)
	case "NML":
		p.Format, p.Entries = Traktor, traktorEntries(root)
	case "SeratoLibrary":
		p.Format, p.Entries = Serato, seratoEntries(root)
	default:
		p.Format, p.Entries = Generic, genericEntries(root)
	}

	slog.Debug("parsed playlist", "format", p.Format, "entries", len(p.Entries))
	return &p, nil
}
