package fileutil_test

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.senan.xyz/trackdex/fileutil"
)

func TestWalk(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a.mp3":            {Data: []byte("a")},
		"cover.jpg":        {Data: []byte("jpg")},
		"house/b.flac":     {Data: []byte("b")},
		"house/deep/c.mp3": {Data: []byte("c")},
		".hidden/d.mp3":    {Data: []byte("d")},
		"house/.e.mp3":     {Data: []byte("e")},
		"techno/notes.txt": {Data: []byte("txt")},
		"techno/f.MP3":     {Data: []byte("f")},
	}
	isAudio := func(p string) bool {
		p = strings.ToLower(p)
		return strings.HasSuffix(p, ".mp3") || strings.HasSuffix(p, ".flac")
	}

	got := map[string]string{}
	for f, err := range fileutil.Walk(fsys, isAudio) {
		require.NoError(t, err)
		got[f.Path] = string(f.Data)
	}
	assert.Equal(t, map[string]string{
		"a.mp3":            "a",
		"house/b.flac":     "b",
		"house/deep/c.mp3": "c",
		"techno/f.MP3":     "f",
	}, got)
}

func TestWalkStopsEarly(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"1.mp3": {Data: []byte("1")},
		"2.mp3": {Data: []byte("2")},
		"3.mp3": {Data: []byte("3")},
	}
	var n int
	for range fileutil.Walk(fsys, nil) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "c.mp3", fileutil.File{Path: "house/deep/c.mp3"}.Name())
}
