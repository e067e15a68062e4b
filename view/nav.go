package view

import "go.senan.xyz/trackdex/track"

// Select returns the position of currentID in a view, falling back to the first record
// when it has been filtered out. It is -1 only for an empty view.
func Select(tracks []track.Track, currentID string) int {
	if len(tracks) == 0 {
		return -1
	}
	if i := track.Index(tracks, currentID); i >= 0 {
		return i
	}
	return 0
}

// Step moves delta places from currentID, wrapping around both ends. It returns the ID of
// the record landed on, or "" for an empty view.
func Step(tracks []track.Track, currentID string, delta int) string {
	i := Select(tracks, currentID)
	if i < 0 {
		return ""
	}
	n := len(tracks)
	i = ((i+delta)%n + n) % n
	return tracks[i].ID
}
