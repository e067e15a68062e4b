package match

import (
	"strings"

	"go.senan.xyz/trackdex/track"
)

// Query is what to search for and what to score the results against.
type Query struct {
	Text   string `json:"text"`
	Title  string `json:"title,omitempty"`
	Artist string `json:"artist,omitempty"`
}

const featMarker = "(feat."

// BuildQuery derives a search from the current title and artist. A bracketed edit moves to
// a " - " suffix of the title and a "(feat. ...)" credit moves to the artist. Without either
// the filename is searched as is.
func BuildQuery(t track.Track) Query {
	var rawTitle, artist string
	if t.Metadata != nil {
		rawTitle, artist = t.Metadata.Title, strings.TrimSpace(t.Metadata.Artist)
	}

	base, edit, hasEdit := strings.Cut(rawTitle, "[")
	main, feat, hasFeat := strings.Cut(base, featMarker)

	title := strings.TrimSpace(main)
	if hasEdit {
		edit, _, _ = strings.Cut(edit, "[")
		edit = strings.TrimSpace(strings.Replace(edit, "]", "", 1))
		title = joinNonEmpty(" - ", title, edit)
	}
	if hasFeat {
		feat, _, _ = strings.Cut(feat, featMarker)
		feat = strings.TrimSpace(strings.Replace(feat, ")", "", 1))
		artist = joinNonEmpty(", ", artist, feat)
	}

	q := Query{Title: title, Artist: artist}
	switch {
	case title != "" && artist != "":
		q.Text = "track:" + title + " artist:" + artist
	case title != "":
		q.Text = "track:" + title
	case artist != "":
		q.Text = "artist:" + artist
	default:
		q.Text = t.BaseName()
	}
	return q
}

func joinNonEmpty(sep string, parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, sep)
}
