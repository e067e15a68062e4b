package playlist

import (
	"strconv"

	"go.senan.xyz/trackdex/musickey"
	"go.senan.xyz/trackdex/tempo"
)

// rekordboxEntries reads DJ_PLAYLISTS/COLLECTION/TRACK attributes.
func rekordboxEntries(root *node) []Entry {
	coll := root.child("COLLECTION")
	if coll == nil {
		return nil
	}
	var entries []Entry
	for _, t := range capped(coll.all("TRACK")) {
		entries = append(entries, Entry{
			Title:    t.value("Name"),
			Artist:   t.value("Artist"),
			Album:    t.value("Album"),
			Genre:    t.value("Genre"),
			BPM:      tempo.Parse(t.value("AverageBpm")),
			Key:      musickey.Normalize(t.value("Tonality", "Key")),
			Location: t.value("Location"),
			Duration: parseDuration(t.value("TotalTime")),
			Rating:   parseInt(t.value("Rating")),
			Year:     parseYear(t.value("Year")),
			Comment:  t.value("Comments"),
			Energy:   parseOptionalFloat(t.value("Energy")),
		})
	}
	return entries
}

// traktorEntries reads NML/COLLECTION/ENTRY. Title and artist live on the entry itself in
// current versions and on INFO in some older exports.
func traktorEntries(root *node) []Entry {
	coll := root.child("COLLECTION")
	if coll == nil {
		return nil
	}
	var entries []Entry
	for _, e := range capped(coll.all("ENTRY")) {
		info := e.child("INFO")
		loc := e.child("LOCATION")

		entry := Entry{
			Title:    first(e.value("TITLE"), info.value("TITLE")),
			Artist:   first(e.value("ARTIST"), info.value("ARTIST")),
			Album:    first(e.child("ALBUM").value("TITLE"), info.value("ALBUM")),
			Genre:    info.value("GENRE"),
			BPM:      tempo.Parse(e.child("TEMPO").value("BPM")),
			Duration: parseDuration(info.value("PLAYTIME")),
			Rating:   parseInt(info.value("RANKING")),
			Year:     parseYear(info.value("RELEASE_DATE")),
			Comment:  info.value("COMMENT"),
		}
		if loc != nil {
			entry.Location = loc.value("VOLUME") + loc.value("DIR") + loc.value("FILE")
		}
		if v, err := strconv.Atoi(e.child("MUSICAL_KEY").value("VALUE")); err == nil {
			entry.Key = musickey.FromTraktorValue(v)
		}
		if entry.Key == "" {
			entry.Key = musickey.Normalize(info.value("KEY"))
		}
		entries = append(entries, entry)
	}
	return entries
}

// seratoEntries reads SeratoLibrary/Songs/Song.
func seratoEntries(root *node) []Entry {
	songs := root.child("Songs")
	if songs == nil {
		return nil
	}
	var entries []Entry
	for _, s := range capped(songs.all("Song")) {
		entries = append(entries, Entry{
			Title:    s.value("Title"),
			Artist:   s.value("Artist"),
			Album:    s.value("Album"),
			Genre:    s.value("Genre"),
			BPM:      tempo.Parse(s.value("Bpm")),
			Key:      musickey.Normalize(s.value("Key")),
			Location: s.value("Path", "Location"),
			Duration: parseDuration(s.value("Length")),
			Rating:   parseInt(s.value("Rating")),
			Year:     parseYear(s.value("Year")),
			Comment:  s.value("Comment"),
		})
	}
	return entries
}

var (
	genericTitle    = []string{"title", "Title", "name", "Name"}
	genericArtist   = []string{"artist", "Artist"}
	genericTempo    = []string{"bpm", "Bpm", "tempo", "Tempo"}
	genericKey      = []string{"key", "Key"}
	genericAlbum    = []string{"album", "Album"}
	genericGenre    = []string{"genre", "Genre"}
	genericLocation = []string{"location", "Location", "path", "Path"}
	genericDuration = []string{"duration", "Duration", "length", "Length"}
	genericRating   = []string{"rating", "Rating"}
	genericYear     = []string{"year", "Year"}
	genericComment  = []string{"comment", "Comment", "comments", "Comments"}
)

// genericEntries walks the whole tree for elements carrying a title-like field plus one of
// artist, tempo or key. A matching element is not searched further.
func genericEntries(root *node) []Entry {
	var entries []Entry
	var walk func(n *node, depth int)
	walk = func(n *node, depth int) {
		if depth > MaxDepth || len(entries) >= MaxEntries {
			return
		}
		title := n.value(genericTitle...)
		if title != "" && (n.value(genericArtist...) != "" || n.value(genericTempo...) != "" || n.value(genericKey...) != "") {
			entries = append(entries, Entry{
				Title:    title,
				Artist:   n.value(genericArtist...),
				Album:    n.value(genericAlbum...),
				Genre:    n.value(genericGenre...),
				BPM:      tempo.Parse(n.value(genericTempo...)),
				Key:      musickey.Normalize(n.value(genericKey...)),
				Location: n.value(genericLocation...),
				Duration: parseDuration(n.value(genericDuration...)),
				Rating:   parseInt(n.value(genericRating...)),
				Year:     parseYear(n.value(genericYear...)),
				Comment:  n.value(genericComment...),
			})
			return
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	walk(root, 0)
	return entries
}

func capped(nodes []*node) []*node {
	if len(nodes) > MaxEntries {
		return nodes[:MaxEntries]
	}
	return nodes
}

func first(vs ...string) string {
	for _, v := range vs {
		if v != "" {
			return v
		}
	}
	return ""
}
