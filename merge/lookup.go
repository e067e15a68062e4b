package merge

import (
	"go.senan.xyz/trackdex/lookup"
	"go.senan.xyz/trackdex/tempo"
	"go.senan.xyz/trackdex/track"
)

// Lookup folds an accepted search candidate and its audio features (which may be nil)
// into a copy of t. Measured tempo only fills a missing value.
func Lookup(t track.Track, c lookup.Candidate, f *lookup.Features) track.Track {
	incoming := &track.Metadata{
		Title:           c.Title,
		Artist:          c.ArtistCredit(),
		Album:           c.Album,
		Duration:        c.Duration,
		SpotifyID:       c.ExternalID,
		SpotifyURI:      c.ExternalURI,
		SpotifyURL:      c.ExternalURL,
		SpotifyAlbumArt: c.AlbumArtURL,
	}
	if incoming.SpotifyAlbumArt == "" && t.Metadata != nil {
		incoming.SpotifyAlbumArt = t.Metadata.Picture
	}
	if f != nil {
		incoming.Tempo = tempo.Round(f.Tempo)
		incoming.Key = f.Key
		incoming.Mode = f.Mode
		incoming.TimeSignature = f.TimeSignature
		incoming.Danceability = f.Danceability
		incoming.Energy = f.Energy
		incoming.Acousticness = f.Acousticness
		incoming.Instrumentalness = f.Instrumentalness
		incoming.Liveness = f.Liveness
		incoming.Valence = f.Valence
	}

	res := t.Clone()
	res.Metadata = Metadata(SourceLookup, t.Metadata, incoming)
	return res
}
