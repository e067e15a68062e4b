package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/trackdex"
	"go.senan.xyz/trackdex/diff"
	"go.senan.xyz/trackdex/lookup"
	"go.senan.xyz/trackdex/musickey"
	"go.senan.xyz/trackdex/notifications"
	"go.senan.xyz/trackdex/researchlink"
	"go.senan.xyz/trackdex/track"
)

type fakeSource struct {
	candidates map[string][]lookup.Candidate
	features   map[string]*lookup.Features
	err        error
}

func (f *fakeSource) Search(_ context.Context, query string, _ int) ([]lookup.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	cs, ok := f.candidates[query]
	if !ok {
		return nil, lookup.ErrNoResults
	}
	return cs, nil
}

func (f *fakeSource) AudioFeatures(_ context.Context, id string) (*lookup.Features, error) {
	return f.features[id], nil
}

func newTestServer(t *testing.T, src lookup.Source) (*server, http.Handler) {
	t.Helper()

	var links researchlink.Builder
	require.NoError(t, links.AddSource("Discogs", `https://www.discogs.com/search?q={{ query .Title }}`))

	lib := trackdex.NewLibrary([]track.Track{
		{ID: "1", Name: "song-a.mp3", Metadata: &track.Metadata{Title: "Song A", Artist: "Artist X", Tempo: 124, Key: "8A"}},
		{ID: "2", Name: "mystery.mp3", Metadata: &track.Metadata{Title: "Mystery", Tempo: 90}},
		{ID: "3", Name: "untagged.mp3"},
	})
	srv := &server{
		lib:           lib,
		src:           src,
		notifications: &notifications.Notifications{},
		researchLinks: &links,
		diffWeights:   diff.DefaultWeights,
	}
	return srv, srv.routes(nil)
}

func newSource() *fakeSource {
	return &fakeSource{
		candidates: map[string][]lookup.Candidate{
			"track:Song A artist:Artist X": {
				{Title: "Song A", Artists: []string{"Artist X"}, ExternalID: "a", ExternalURL: "https://open.spotify.com/track/a"},
			},
			"track:Mystery": {
				{Title: "Something", Artists: []string{"Else"}, ExternalID: "m"},
			},
		},
		features: map[string]*lookup.Features{
			"a": {Tempo: 126, Key: "9B"},
			"m": {Tempo: 100},
		},
	}
}

func do(t *testing.T, h http.Handler, req *http.Request, into any) int {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if into != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), into), rec.Body.String())
	}
	return rec.Code
}

func TestAPIKey(t *testing.T) {
	t.Parallel()

	_, routes := newTestServer(t, newSource())
	h := withAPIKey("secret", routes)

	req := httptest.NewRequest(http.MethodGet, "/bounds", nil)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, req, nil))

	req = httptest.NewRequest(http.MethodGet, "/bounds", nil)
	req.SetBasicAuth("", "wrong")
	assert.Equal(t, http.StatusUnauthorized, do(t, h, req, nil))

	req = httptest.NewRequest(http.MethodGet, "/bounds", nil)
	req.SetBasicAuth("", "secret")
	assert.Equal(t, http.StatusOK, do(t, h, req, nil))
}

func TestTracks(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, newSource())

	var resp tracksResponse
	code := do(t, h, httptest.NewRequest(http.MethodGet, "/tracks", nil), &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, resp.Tracks, 3)
	assert.Equal(t, 3, resp.Total)
	assert.False(t, resp.FiltersActive)
	assert.Equal(t, 60.0, resp.Filters.TempoMin)
	assert.Equal(t, 180.0, resp.Filters.TempoMax)
	assert.Equal(t, map[string]string{"8A": musickey.Color("8A")}, resp.KeyColors)

	resp = tracksResponse{}
	code = do(t, h, httptest.NewRequest(http.MethodGet, "/tracks?tempoMin=100&withoutTempo=false&sort=tempo:desc", nil), &resp)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Tracks, 1)
	assert.Equal(t, "1", resp.Tracks[0].ID)
	assert.True(t, resp.FiltersActive)
	assert.Equal(t, "tempo:desc,key:asc", resp.Sort)

	resp = tracksResponse{}
	code = do(t, h, httptest.NewRequest(http.MethodGet, "/tracks?q=mystry", nil), &resp)
	require.Equal(t, http.StatusOK, code)
	require.Len(t, resp.Tracks, 1)
	assert.Equal(t, "2", resp.Tracks[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, h, httptest.NewRequest(http.MethodGet, "/tracks?sort=colour", nil), nil))
	assert.Equal(t, http.StatusBadRequest, do(t, h, httptest.NewRequest(http.MethodGet, "/tracks?tempoMin=fast", nil), nil))
}

func TestTrack(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, newSource())

	var got track.Track
	require.Equal(t, http.StatusOK, do(t, h, httptest.NewRequest(http.MethodGet, "/tracks/1", nil), &got))
	assert.Equal(t, "Song A", got.Title())

	assert.Equal(t, http.StatusNotFound, do(t, h, httptest.NewRequest(http.MethodGet, "/tracks/nope", nil), nil))
}

func TestStep(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, newSource())

	step := func(path string) string {
		var resp map[string]string
		require.Equal(t, http.StatusOK, do(t, h, httptest.NewRequest(http.MethodGet, path, nil), &resp))
		return resp["id"]
	}

	// tempo ascending is 3 which has no tempo, then 2, then 1
	assert.Equal(t, "1", step("/tracks/2/step?sort=tempo"))
	assert.Equal(t, "2", step("/tracks/3/step?sort=tempo"))
	assert.Equal(t, "3", step("/tracks/2/step?sort=tempo&delta=-1"))

	// filtered out, so stepping starts from the first in view
	assert.Equal(t, "1", step("/tracks/3/step?sort=tempo&withoutTempo=false"))

	assert.Equal(t, http.StatusBadRequest, do(t, h, httptest.NewRequest(http.MethodGet, "/tracks/1/step?delta=x", nil), nil))
	assert.Equal(t, http.StatusNotFound, do(t, h, httptest.NewRequest(http.MethodGet, "/tracks/1/step?tempoMin=170&withoutTempo=false", nil), nil))
}

func TestEnrich(t *testing.T) {
	t.Parallel()

	t.Run("applied", func(t *testing.T) {
		t.Parallel()

		srv, h := newTestServer(t, newSource())

		var resp enrichResponse
		code := do(t, h, httptest.NewRequest(http.MethodPost, "/tracks/1/enrich", nil), &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, trackdex.StatusApplied, resp.Status)
		assert.Contains(t, resp.Diff, fieldDiff{Field: "key", Before: "8A", After: "9B"})

		got, err := srv.lib.Get("1")
		require.NoError(t, err)
		assert.Equal(t, "a", got.Metadata.SpotifyID)
	})

	t.Run("declined", func(t *testing.T) {
		t.Parallel()

		srv, h := newTestServer(t, newSource())

		var resp enrichResponse
		code := do(t, h, httptest.NewRequest(http.MethodPost, "/tracks/2/enrich", nil), &resp)
		require.Equal(t, http.StatusConflict, code)
		assert.Equal(t, trackdex.StatusDeclined, resp.Status)
		require.NotNil(t, resp.Match)
		assert.Equal(t, "m", resp.Match.ExternalID)
		assert.Contains(t, resp.Diff, fieldDiff{Field: "spotify id", Before: "", After: "m"})
		assert.Equal(t, []researchlink.SearchResult{{Name: "Discogs", URL: "https://www.discogs.com/search?q=Mystery"}}, resp.ResearchLinks)

		got, _ := srv.lib.Get("2")
		assert.Empty(t, got.Metadata.SpotifyID)

		code = do(t, h, httptest.NewRequest(http.MethodPost, "/tracks/2/enrich?confirm=true", nil), &resp)
		require.Equal(t, http.StatusOK, code)
		got, _ = srv.lib.Get("2")
		assert.Equal(t, "m", got.Metadata.SpotifyID)
	})

	t.Run("no match", func(t *testing.T) {
		t.Parallel()

		_, h := newTestServer(t, newSource())

		var resp enrichResponse
		code := do(t, h, httptest.NewRequest(http.MethodPost, "/tracks/3/enrich", nil), &resp)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, trackdex.StatusNoMatch, resp.Status)
		assert.Equal(t, "untagged", resp.Query.Text)
		assert.Len(t, resp.ResearchLinks, 1)
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()

		_, h := newTestServer(t, newSource())
		assert.Equal(t, http.StatusNotFound, do(t, h, httptest.NewRequest(http.MethodPost, "/tracks/nope/enrich", nil), nil))

		_, h = newTestServer(t, &fakeSource{err: fmt.Errorf("spotify: %w", lookup.ErrAuthRequired)})
		assert.Equal(t, http.StatusUnauthorized, do(t, h, httptest.NewRequest(http.MethodPost, "/tracks/1/enrich", nil), nil))

		_, h = newTestServer(t, &fakeSource{err: errors.New("connection refused")})
		var resp map[string]string
		assert.Equal(t, http.StatusBadGateway, do(t, h, httptest.NewRequest(http.MethodPost, "/tracks/1/enrich", nil), &resp))
		assert.Contains(t, resp["error"], "connection refused")
	})
}

func TestImport(t *testing.T) {
	t.Parallel()

	upload := func(doc string) *http.Request {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("xmlFile", "export.xml")
		require.NoError(t, err)
		_, err = fw.Write([]byte(doc))
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	srv, h := newTestServer(t, newSource())

	var resp importResponse
	code := do(t, h, upload(`<?xml version="1.0" encoding="UTF-8"?>
<DJ_PLAYLISTS Version="1.0.0">
  <COLLECTION Entries="1">
    <TRACK Name="Mystery" AverageBpm="95.00" Tonality="3A" Genre="Ambient" Location="file://localhost/Music/mystery.mp3"/>
  </COLLECTION>
</DJ_PLAYLISTS>`), &resp)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, resp.Matched)
	assert.Equal(t, 0, resp.Dropped)

	got, _ := srv.lib.Get("2")
	assert.Equal(t, "3A", got.Metadata.Key)
	assert.Equal(t, "Ambient", got.Metadata.Genre)
	assert.Equal(t, 90.0, got.Metadata.Tempo)

	assert.Equal(t, http.StatusBadRequest, do(t, h, upload("<DJ_PLAYLISTS><COLLECTION></DJ_PLAYLISTS>"), nil))
	assert.Equal(t, http.StatusBadRequest, do(t, h, httptest.NewRequest(http.MethodPost, "/import", strings.NewReader("")), nil))
}

func TestBounds(t *testing.T) {
	t.Parallel()

	_, h := newTestServer(t, newSource())

	var resp map[string]float64
	require.Equal(t, http.StatusOK, do(t, h, httptest.NewRequest(http.MethodGet, "/bounds", nil), &resp))
	assert.Equal(t, map[string]float64{"min": 60, "max": 180}, resp)
}

func TestSaver(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var saves int
	release := make(chan struct{})
	sv := newSaver(func(ctx context.Context) error {
		<-release
		mu.Lock()
		defer mu.Unlock()
		saves++
		assert.NoError(t, ctx.Err())
		return nil
	})

	// a burst while the first save is blocked adds at most one more
	for range 10 {
		sv.notify()
	}
	close(release)
	sv.close()

	mu.Lock()
	got := saves
	mu.Unlock()
	assert.GreaterOrEqual(t, got, 1)
	assert.LessOrEqual(t, got, 2)

	// changes after close are dropped, not a panic
	sv.notify()
	sv.close()
}
