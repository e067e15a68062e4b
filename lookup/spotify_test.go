package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchResponse = `{
  "tracks": {
    "href": "", "limit": 5, "offset": 0, "total": 2,
    "items": [
      {
        "name": "Song A", "id": "id1", "uri": "spotify:track:id1", "duration_ms": 200000,
        "external_urls": {"spotify": "https://open.spotify.com/track/id1"},
        "artists": [{"name": "Artist X"}, {"name": "Artist Y"}],
        "album": {"name": "LP", "images": [{"url": "https://i.scdn.co/image/a", "height": 640, "width": 640}]}
      },
      {
        "name": "Song A (Live)", "id": "id2", "uri": "spotify:track:id2",
        "artists": [{"name": "Artist X"}],
        "album": {"name": "Live", "images": []}
      }
    ]
  }
}`

const featuresResponse = `{
  "audio_features": [
    {
      "id": "id1", "tempo": 127.9, "key": 9, "mode": 0, "time_signature": 4,
      "danceability": 0.8, "energy": 0.7, "acousticness": 0.01, "instrumentalness": 0.5,
      "liveness": 0.1, "valence": 0.3, "loudness": -6.0, "speechiness": 0.05, "duration_ms": 200000
    }
  ]
}`

func newServer(t *testing.T, mux *http.ServeMux) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestSpotifySearch(t *testing.T) {
	t.Parallel()

	var gotQuery, gotLimit, gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		gotQuery, gotLimit = r.URL.Query().Get("q"), r.URL.Query().Get("limit")
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, searchResponse)
	})
	srv := newServer(t, mux)

	c := SpotifyClient{BaseURL: srv.URL, AccessToken: "tok"}
	cands, err := c.Search(context.Background(), "track:Song A artist:Artist X", 5)
	require.NoError(t, err)

	assert.Equal(t, "track:Song A artist:Artist X", gotQuery)
	assert.Equal(t, "5", gotLimit)
	assert.Equal(t, "Bearer tok", gotAuth)

	require.Len(t, cands, 2)
	assert.Equal(t, Candidate{
		Title:       "Song A",
		Artists:     []string{"Artist X", "Artist Y"},
		Album:       "LP",
		ExternalID:  "id1",
		ExternalURI: "spotify:track:id1",
		ExternalURL: "https://open.spotify.com/track/id1",
		AlbumArtURL: "https://i.scdn.co/image/a",
		Duration:    200,
	}, cands[0])
	assert.Equal(t, "Artist X, Artist Y", cands[0].ArtistCredit())
	assert.Empty(t, cands[1].AlbumArtURL)
}

func TestSpotifyNoResults(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"tracks": {"items": []}}`)
	})
	srv := newServer(t, mux)

	c := SpotifyClient{BaseURL: srv.URL + "/", AccessToken: "tok"}
	_, err := c.Search(context.Background(), "nothing", 5)
	require.ErrorIs(t, err, ErrNoResults)
}

func TestSpotifyAudioFeatures(t *testing.T) {
	t.Parallel()

	var gotIDs string
	mux := http.NewServeMux()
	mux.HandleFunc("/audio-features", func(w http.ResponseWriter, r *http.Request) {
		gotIDs = r.URL.Query().Get("ids")
		fmt.Fprint(w, featuresResponse)
	})
	srv := newServer(t, mux)

	c := SpotifyClient{BaseURL: srv.URL, AccessToken: "tok"}
	f, err := c.AudioFeatures(context.Background(), "id1")
	require.NoError(t, err)

	assert.Equal(t, "id1", gotIDs)
	assert.InDelta(t, 127.9, f.Tempo, 0.001)
	assert.Equal(t, "8A", f.Key)
	require.NotNil(t, f.Mode)
	assert.Equal(t, 0, *f.Mode)
	assert.Equal(t, 4, f.TimeSignature)
	require.NotNil(t, f.Danceability)
	assert.InDelta(t, 0.8, *f.Danceability, 0.001)
	require.NotNil(t, f.Valence)
	assert.InDelta(t, 0.3, *f.Valence, 0.001)
}

func TestSpotifyUnauthorized(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"status": 401, "message": "The access token expired"}}`)
	})
	srv := newServer(t, mux)

	c := SpotifyClient{BaseURL: srv.URL, AccessToken: "expired"}
	_, err := c.Search(context.Background(), "x", 5)
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestSpotifyAuthStatusAnyBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"forbidden json", http.StatusForbidden, `{"error": {"status": 403, "message": "Insufficient client scope"}}`},
		{"unauthorized plain", http.StatusUnauthorized, "Unauthorized"},
		{"unauthorized empty", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			mux := http.NewServeMux()
			mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			mux.HandleFunc("/audio-features", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			})
			srv := newServer(t, mux)

			c := SpotifyClient{BaseURL: srv.URL, AccessToken: "tok"}
			_, err := c.Search(context.Background(), "x", 5)
			require.ErrorIs(t, err, ErrAuthRequired)
			_, err = c.AudioFeatures(context.Background(), "id1")
			require.ErrorIs(t, err, ErrAuthRequired)
		})
	}
}

func TestSpotifyServerError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error": {"status": 502, "message": "bad gateway"}}`)
	})
	srv := newServer(t, mux)

	c := SpotifyClient{BaseURL: srv.URL, AccessToken: "tok"}
	_, err := c.Search(context.Background(), "x", 5)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthRequired)
	assert.NotErrorIs(t, err, ErrNoResults)
}

func TestSpotifyMissingCredentials(t *testing.T) {
	t.Parallel()

	var c SpotifyClient
	_, err := c.Search(context.Background(), "x", 5)
	require.ErrorIs(t, err, ErrAuthRequired)
	_, err = c.AudioFeatures(context.Background(), "id")
	require.ErrorIs(t, err, ErrAuthRequired)

	c = SpotifyClient{ClientID: "id"}
	_, err = c.Search(context.Background(), "x", 5)
	require.ErrorIs(t, err, ErrAuthRequired)
}

func TestSpotifyClientCredentials(t *testing.T) {
	t.Parallel()

	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ := r.BasicAuth()
		if user != "id" || pass != "secret" {
			_ = r.ParseForm()
			user, pass = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
		}
		if user != "id" || pass != "secret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error": "invalid_client"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "granted", "token_type": "bearer", "expires_in": 3600}`)
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, searchResponse)
	})
	srv := newServer(t, mux)

	c := SpotifyClient{BaseURL: srv.URL, TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "secret"}
	_, err := c.Search(context.Background(), "x", 5)
	require.NoError(t, err)
	assert.Equal(t, "Bearer granted", gotAuth)

	bad := SpotifyClient{BaseURL: srv.URL, TokenURL: srv.URL + "/token", ClientID: "id", ClientSecret: "wrong"}
	_, err = bad.Search(context.Background(), "x", 5)
	require.ErrorIs(t, err, ErrAuthRequired)
}
