package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"go.senan.xyz/trackdex/clientutil"
	"go.senan.xyz/trackdex/musickey"
)

// SpotifyClient searches the Spotify catalogue. Credentials are either a client ID and
// secret for the client credentials grant, or an access token obtained elsewhere.
type SpotifyClient struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	AccessToken  string
	RateLimit    time.Duration
	UserAgent    string

	initOnce   sync.Once
	HTTPClient *http.Client
	client     *spotify.Client
}

var _ Source = (*SpotifyClient)(nil)

func (c *SpotifyClient) init() {
	c.initOnce.Do(func() {
		base := clientutil.Wrap(c.HTTPClient, clientutil.Chain(
			clientutil.WithStatusError(ErrAuthRequired, http.StatusUnauthorized, http.StatusForbidden),
			clientutil.WithCache(),
			clientutil.WithUserAgent(c.UserAgent),
			clientutil.WithRateLimit(c.RateLimit),
			clientutil.WithLogging(),
		))

		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)

		var httpClient *http.Client
		switch {
		case c.AccessToken != "":
			httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.AccessToken}))
		default:
			tokenURL := c.TokenURL
			if tokenURL == "" {
				tokenURL = spotifyauth.TokenURL
			}
			conf := clientcredentials.Config{ClientID: c.ClientID, ClientSecret: c.ClientSecret, TokenURL: tokenURL}
			httpClient = conf.Client(ctx)
		}

		var opts []spotify.ClientOption
		if c.BaseURL != "" {
			opts = append(opts, spotify.WithBaseURL(strings.TrimSuffix(c.BaseURL, "/")+"/"))
		}
		c.client = spotify.New(httpClient, opts...)
	})
}

func (c *SpotifyClient) configured() bool {
	return c.AccessToken != "" || (c.ClientID != "" && c.ClientSecret != "")
}

func (c *SpotifyClient) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	if !c.configured() {
		return nil, ErrAuthRequired
	}
	c.init()

	res, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("search: %w", classify(err))
	}
	if res.Tracks == nil || len(res.Tracks.Tracks) == 0 {
		return nil, ErrNoResults
	}

	candidates := make([]Candidate, 0, len(res.Tracks.Tracks))
	for _, t := range res.Tracks.Tracks {
		cand := Candidate{
			Title:       t.Name,
			Album:       t.Album.Name,
			ExternalID:  string(t.ID),
			ExternalURI: string(t.URI),
			ExternalURL: t.ExternalURLs["spotify"],
			Duration:    float64(t.Duration) / 1000,
		}
		for _, a := range t.Artists {
			cand.Artists = append(cand.Artists, a.Name)
		}
		if len(t.Album.Images) > 0 {
			cand.AlbumArtURL = t.Album.Images[0].URL
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (c *SpotifyClient) AudioFeatures(ctx context.Context, id string) (*Features, error) {
	if !c.configured() {
		return nil, ErrAuthRequired
	}
	c.init()

	res, err := c.client.GetAudioFeatures(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("get audio features: %w", classify(err))
	}
	if len(res) == 0 || res[0] == nil {
		return nil, ErrNoResults
	}

	af := res[0]
	mode := int(af.Mode)
	f := &Features{
		Tempo:            float64(af.Tempo),
		Key:              musickey.FromPitchClass(int(af.Key), mode),
		Mode:             &mode,
		TimeSignature:    int(af.TimeSignature),
		Danceability:     ptr(float64(af.Danceability)),
		Energy:           ptr(float64(af.Energy)),
		Acousticness:     ptr(float64(af.Acousticness)),
		Instrumentalness: ptr(float64(af.Instrumentalness)),
		Liveness:         ptr(float64(af.Liveness)),
		Valence:          ptr(float64(af.Valence)),
	}
	return f, nil
}

// classify marks errors caused by missing or rejected credentials with ErrAuthRequired.
func classify(err error) error {
	if errors.Is(err, ErrAuthRequired) {
		return err
	}
	var se spotify.Error
	if errors.As(err, &se) && (se.Status == http.StatusUnauthorized || se.Status == http.StatusForbidden) {
		return fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		return fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}
	return err
}

func ptr[T any](v T) *T {
	return &v
}
