package store

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/trackdex/track"
)

func sample() []track.Track {
	return []track.Track{
		{ID: "b", Name: "b.mp3", SourcePath: "house/b.mp3", Metadata: &track.Metadata{
			Title: "Song B", Artist: "Artist", Tempo: 124.5, Key: "8A", Year: 2001,
			Energy: track.Ptr(0.0), Mode: track.Ptr(0), Danceability: track.Ptr(0.75),
			SpotifyID: "id", TimeSignature: 4,
		}},
		{ID: "a", Name: "a.mp3", SourcePath: "a.mp3"},
		{ID: "c", Name: "c.flac", SourcePath: "techno/c.flac", Metadata: &track.Metadata{Picture: "data:image/png;base64,AA=="}},
	}
}

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "trackdex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := openTemp(t)

	empty, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	want := sample()
	require.NoError(t, s.SaveAll(ctx, want))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// saving what was loaded changes nothing
	require.NoError(t, s.SaveAll(ctx, got))
	again, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, again)
}

func TestSaveAllReplaces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := openTemp(t)
	require.NoError(t, s.SaveAll(ctx, sample()))
	require.NoError(t, s.SaveAll(ctx, sample()[:1]))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

func TestSaveAllDuplicateIDRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := openTemp(t)
	require.NoError(t, s.SaveAll(ctx, sample()))

	dup := []track.Track{{ID: "x", Name: "x"}, {ID: "x", Name: "y"}}
	require.Error(t, s.SaveAll(ctx, dup))

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "trackdex.db")
	s, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, s.SaveAll(ctx, sample()))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, sample(), got)
}

func TestExport(t *testing.T) {
	t.Parallel()

	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			require.NoError(t, Export(&buf, sample(), format))
			got, err := Import(&buf, format)
			require.NoError(t, err)
			assert.Equal(t, sample(), got)
		})
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, nil, FormatJSON))
	assert.Equal(t, "[]\n", buf.String())

	require.ErrorIs(t, Export(&buf, nil, "xml"), ErrUnknownFormat)
	_, err := Import(&buf, "xml")
	require.ErrorIs(t, err, ErrUnknownFormat)
}
