package researchlink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	var b Builder
	require.NoError(t, b.AddSource("Discogs", `https://www.discogs.com/search?q={{ query (printf "%s %s" .Artist .Title) }}`))
	require.NoError(t, b.AddSource("Beatport", `https://www.beatport.com/search?q={{ query .Title }}{{ if .Year }}&year={{ .Year }}{{ end }}`))

	results, err := b.Build(Query{Title: "Strings of Life", Artist: "Rhythim Is Rhythim", Year: 1987})
	require.NoError(t, err)
	assert.Equal(t, []SearchResult{
		{Name: "Discogs", URL: "https://www.discogs.com/search?q=Rhythim+Is+Rhythim+Strings+of+Life"},
		{Name: "Beatport", URL: "https://www.beatport.com/search?q=Strings+of+Life&year=1987"},
	}, results)
}

func TestBuildErrors(t *testing.T) {
	var b Builder
	assert.Error(t, b.AddSource("bad", "{{ .Title "))

	require.NoError(t, b.AddSource("missing", "{{ .Nope }}"))
	require.NoError(t, b.AddSource("ok", "x/{{ path .Filename }}"))

	results, err := b.Build(Query{Filename: "a b.mp3"})
	assert.ErrorContains(t, err, "missing")
	assert.Equal(t, []SearchResult{{Name: "ok", URL: "x/a%20b.mp3"}}, results)
}

func TestIterSources(t *testing.T) {
	var b Builder
	require.NoError(t, b.AddSource("a", "a"))
	require.NoError(t, b.AddSource("b", "b"))

	var names []string
	for name := range b.IterSources() {
		names = append(names, name)
	}
	assert.Equal(t, []string{"a", "b"}, names)
}
