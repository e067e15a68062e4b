// Package merge folds partial metadata from playlist imports and service lookups into
// existing track records without clobbering higher confidence data.
package merge

import (
	"go.senan.xyz/trackdex/track"
)

// Source says where incoming data came from. It decides which fields may overwrite.
type Source uint8

const (
	SourceTags Source = iota
	SourceImport
	SourceLookup
)

func (s Source) String() string {
	switch s {
	case SourceTags:
		return "tags"
	case SourceImport:
		return "import"
	case SourceLookup:
		return "lookup"
	}
	return "unknown"
}

// Field names as they appear in exported records.
const (
	FieldTitle            = "title"
	FieldArtist           = "artist"
	FieldAlbum            = "album"
	FieldGenre            = "genre"
	FieldTempo            = "tempo"
	FieldKey              = "key"
	FieldDuration         = "duration"
	FieldYear             = "year"
	FieldComment          = "comment"
	FieldEnergy           = "energy"
	FieldPicture          = "picture"
	FieldSpotifyID        = "spotifyId"
	FieldSpotifyURI       = "spotifyUri"
	FieldSpotifyURL       = "spotifyUrl"
	FieldSpotifyAlbumArt  = "spotifyAlbumArt"
	FieldMode             = "mode"
	FieldTimeSignature    = "timeSignature"
	FieldDanceability     = "danceability"
	FieldAcousticness     = "acousticness"
	FieldInstrumentalness = "instrumentalness"
	FieldLiveness         = "liveness"
	FieldValence          = "valence"
)

// lookupOwned fields have no source other than the lookup service, so the latest lookup wins.
var lookupOwned = map[string]struct{}{
	FieldMode:             {},
	FieldTimeSignature:    {},
	FieldDanceability:     {},
	FieldEnergy:           {},
	FieldAcousticness:     {},
	FieldInstrumentalness: {},
	FieldLiveness:         {},
	FieldValence:          {},
	FieldSpotifyID:        {},
	FieldSpotifyURI:       {},
	FieldSpotifyURL:       {},
	FieldSpotifyAlbumArt:  {},
}

// Overwrites reports whether a present incoming value replaces a present existing one.
// Everything else is fill-only.
func Overwrites(src Source, field string) bool {
	if field == FieldKey {
		return true
	}
	if src == SourceLookup {
		_, ok := lookupOwned[field]
		return ok
	}
	return false
}

// Field merges one value. The zero value of T means absent.
func Field[T comparable](src Source, name string, existing, incoming T) T {
	var zero T
	if incoming == zero {
		return existing
	}
	if existing == zero || Overwrites(src, name) {
		return incoming
	}
	return existing
}

func optional[T comparable](src Source, name string, existing, incoming *T) *T {
	if incoming == nil {
		return existing
	}
	if existing == nil || Overwrites(src, name) {
		v := *incoming
		return &v
	}
	return existing
}

// Metadata returns a new value with incoming folded into existing. Neither input is
// modified; a nil result means both were nil.
func Metadata(src Source, existing, incoming *track.Metadata) *track.Metadata {
	if incoming == nil {
		return existing.Clone()
	}
	if existing == nil {
		existing = &track.Metadata{}
	}
	res := existing.Clone()

	res.Title = Field(src, FieldTitle, existing.Title, incoming.Title)
	res.Artist = Field(src, FieldArtist, existing.Artist, incoming.Artist)
	res.Album = Field(src, FieldAlbum, existing.Album, incoming.Album)
	res.Genre = Field(src, FieldGenre, existing.Genre, incoming.Genre)
	res.Tempo = Field(src, FieldTempo, existing.Tempo, incoming.Tempo)
	res.Key = Field(src, FieldKey, existing.Key, incoming.Key)
	res.Duration = Field(src, FieldDuration, existing.Duration, incoming.Duration)
	res.Year = Field(src, FieldYear, existing.Year, incoming.Year)
	res.Comment = Field(src, FieldComment, existing.Comment, incoming.Comment)
	res.Energy = optional(src, FieldEnergy, res.Energy, incoming.Energy)
	res.Picture = Field(src, FieldPicture, existing.Picture, incoming.Picture)

	res.SpotifyID = Field(src, FieldSpotifyID, existing.SpotifyID, incoming.SpotifyID)
	res.SpotifyURI = Field(src, FieldSpotifyURI, existing.SpotifyURI, incoming.SpotifyURI)
	res.SpotifyURL = Field(src, FieldSpotifyURL, existing.SpotifyURL, incoming.SpotifyURL)
	res.SpotifyAlbumArt = Field(src, FieldSpotifyAlbumArt, existing.SpotifyAlbumArt, incoming.SpotifyAlbumArt)

	res.Mode = optional(src, FieldMode, res.Mode, incoming.Mode)
	res.TimeSignature = Field(src, FieldTimeSignature, existing.TimeSignature, incoming.TimeSignature)
	res.Danceability = optional(src, FieldDanceability, res.Danceability, incoming.Danceability)
	res.Acousticness = optional(src, FieldAcousticness, res.Acousticness, incoming.Acousticness)
	res.Instrumentalness = optional(src, FieldInstrumentalness, res.Instrumentalness, incoming.Instrumentalness)
	res.Liveness = optional(src, FieldLiveness, res.Liveness, incoming.Liveness)
	res.Valence = optional(src, FieldValence, res.Valence, incoming.Valence)
	return res
}
