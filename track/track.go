// Package track defines the canonical per-file record trackdex keeps for every audio asset.
package track

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type Track struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	SourcePath string    `json:"sourcePath" yaml:"source_path"`
	Metadata   *Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Metadata is the merged attribute bag for a track. A field is absent when it holds its zero
// value; numeric fields where zero is a legitimate reading are pointers.
type Metadata struct {
	Title    string   `json:"title,omitempty" yaml:"title,omitempty"`
	Artist   string   `json:"artist,omitempty" yaml:"artist,omitempty"`
	Album    string   `json:"album,omitempty" yaml:"album,omitempty"`
	Genre    string   `json:"genre,omitempty" yaml:"genre,omitempty"`
	Tempo    float64  `json:"tempo,omitempty" yaml:"tempo,omitempty"`
	Key      string   `json:"key,omitempty" yaml:"key,omitempty"`
	Duration float64  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Year     int      `json:"year,omitempty" yaml:"year,omitempty"`
	Comment  string   `json:"comment,omitempty" yaml:"comment,omitempty"`
	Energy   *float64 `json:"energy,omitempty" yaml:"energy,omitempty"`
	Picture  string   `json:"picture,omitempty" yaml:"picture,omitempty"`

	SpotifyID       string `json:"spotifyId,omitempty" yaml:"spotify_id,omitempty"`
	SpotifyURI      string `json:"spotifyUri,omitempty" yaml:"spotify_uri,omitempty"`
	SpotifyURL      string `json:"spotifyUrl,omitempty" yaml:"spotify_url,omitempty"`
	SpotifyAlbumArt string `json:"spotifyAlbumArt,omitempty" yaml:"spotify_album_art,omitempty"`

	Mode             *int     `json:"mode,omitempty" yaml:"mode,omitempty"`
	TimeSignature    int      `json:"timeSignature,omitempty" yaml:"time_signature,omitempty"`
	Danceability     *float64 `json:"danceability,omitempty" yaml:"danceability,omitempty"`
	Acousticness     *float64 `json:"acousticness,omitempty" yaml:"acousticness,omitempty"`
	Instrumentalness *float64 `json:"instrumentalness,omitempty" yaml:"instrumentalness,omitempty"`
	Liveness         *float64 `json:"liveness,omitempty" yaml:"liveness,omitempty"`
	Valence          *float64 `json:"valence,omitempty" yaml:"valence,omitempty"`
}

// New creates a record for a file seen for the first time. The ID is never reassigned.
func New(sourcePath string, md *Metadata) Track {
	return Track{
		ID:         uuid.NewString(),
		Name:       filepath.Base(filepath.ToSlash(sourcePath)),
		SourcePath: sourcePath,
		Metadata:   md,
	}
}

func (t Track) Clone() Track {
	t.Metadata = t.Metadata.Clone()
	return t
}

func (t Track) Title() string {
	if t.Metadata != nil && t.Metadata.Title != "" {
		return t.Metadata.Title
	}
	return t.Name
}

func (t Track) Artist() string {
	if t.Metadata == nil {
		return ""
	}
	return t.Metadata.Artist
}

func (t Track) Tempo() float64 {
	if t.Metadata == nil {
		return 0
	}
	return t.Metadata.Tempo
}

func (t Track) Key() string {
	if t.Metadata == nil {
		return ""
	}
	return t.Metadata.Key
}

func (t Track) Duration() float64 {
	if t.Metadata == nil {
		return 0
	}
	return t.Metadata.Duration
}

// BaseName is the filename with its extension stripped.
func (t Track) BaseName() string {
	return strings.TrimSuffix(t.Name, filepath.Ext(t.Name))
}

func (m *Metadata) Clone() *Metadata {
	if m == nil {
		return nil
	}
	c := *m
	c.Energy = clonePtr(m.Energy)
	c.Mode = clonePtr(m.Mode)
	c.Danceability = clonePtr(m.Danceability)
	c.Acousticness = clonePtr(m.Acousticness)
	c.Instrumentalness = clonePtr(m.Instrumentalness)
	c.Liveness = clonePtr(m.Liveness)
	c.Valence = clonePtr(m.Valence)
	return &c
}

// Ptr is a helper for the optional numeric fields.
func Ptr[T any](v T) *T {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Index returns the position of the record with id, or -1.
func Index(tracks []Track, id string) int {
	for i := range tracks {
		if tracks[i].ID == id {
			return i
		}
	}
	return -1
}

func CloneAll(tracks []Track) []Track {
	res := make([]Track, len(tracks))
	for i, t := range tracks {
		res[i] = t.Clone()
	}
	return res
}
