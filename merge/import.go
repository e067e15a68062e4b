package merge

import (
	"net/url"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"go.senan.xyz/trackdex/playlist"
	"go.senan.xyz/trackdex/track"
)

type ImportReport struct {
	Matched int `json:"matched"`
	Dropped int `json:"dropped"`
}

// FindTarget returns the index of the first record the entry describes, or -1. A record
// matches when its filename or title contains the entry title, or when its filename and the
// last segment of the entry location contain one another.
func FindTarget(tracks []track.Track, e playlist.Entry) int {
	title := fold(e.Title)
	segment := fold(locationFile(e.Location))

	for i, t := range tracks {
		name := fold(t.Name)
		if title != "" {
			if strings.Contains(name, title) {
				return i
			}
			if t.Metadata != nil && strings.Contains(fold(t.Metadata.Title), title) {
				return i
			}
		}
		if segment != "" && name != "" {
			if strings.Contains(name, segment) || strings.Contains(segment, name) {
				return i
			}
		}
	}
	return -1
}

// Import merges each entry into the record it matches and returns the updated collection.
// Entries matching nothing are dropped; import only enriches files already known.
func Import(tracks []track.Track, entries []playlist.Entry) ([]track.Track, ImportReport) {
	res := slices.Clone(tracks)
	var report ImportReport
	for _, e := range entries {
		i := FindTarget(res, e)
		if i < 0 {
			report.Dropped++
			continue
		}
		report.Matched++
		res[i].Metadata = Metadata(SourceImport, res[i].Metadata, e.Metadata())
	}
	return res, report
}

// locationFile is the last path segment of a playlist location. Rekordbox writes file URLs
// with escaped paths and Traktor separates directories with "/:".
func locationFile(loc string) string {
	if dec, err := url.PathUnescape(loc); err == nil {
		loc = dec
	}
	if i := strings.LastIndexAny(loc, `/\:`); i >= 0 {
		loc = loc[i+1:]
	}
	return strings.TrimSpace(loc)
}

func fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}
