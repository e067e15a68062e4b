// Package lookup finds tracks on an external music service and reads their audio analysis.
package lookup

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrAuthRequired = errors.New("authentication required")
	ErrNoResults    = errors.New("no results")
)

// Candidate is one search hit.
type Candidate struct {
	Title       string   `json:"title"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	ExternalID  string   `json:"externalId"`
	ExternalURI string   `json:"externalUri"`
	ExternalURL string   `json:"externalUrl"`
	AlbumArtURL string   `json:"albumArtUrl,omitempty"`
	Duration    float64  `json:"duration,omitempty"`
}

// ArtistCredit joins the artist names the way the service displays them.
func (c Candidate) ArtistCredit() string {
	return strings.Join(c.Artists, ", ")
}

// Features is the audio analysis of a track. Key is in Camelot notation.
type Features struct {
	Tempo            float64  `json:"tempo"`
	Key              string   `json:"key"`
	Mode             *int     `json:"mode"`
	TimeSignature    int      `json:"timeSignature"`
	Danceability     *float64 `json:"danceability"`
	Energy           *float64 `json:"energy"`
	Acousticness     *float64 `json:"acousticness"`
	Instrumentalness *float64 `json:"instrumentalness"`
	Liveness         *float64 `json:"liveness"`
	Valence          *float64 `json:"valence"`
}

type Source interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
	AudioFeatures(ctx context.Context, id string) (*Features, error)
}
