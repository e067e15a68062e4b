package trackdex

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"path"
	"sync"

	"go.senan.xyz/trackdex/fileutil"
	"go.senan.xyz/trackdex/merge"
	"go.senan.xyz/trackdex/playlist"
	"go.senan.xyz/trackdex/track"
)

var (
	ErrNotFound  = errors.New("track not found")
	ErrInvalidID = errors.New("invalid track id")
)

// Library owns the collection. Readers get deep copies and every write swaps in a whole new
// slice, so no record is ever changed field by field in place.
type Library struct {
	mu     sync.Mutex
	tracks []track.Track

	// OnChange, if set, is called with a copy of the collection after each successful write.
	// It runs while the library is locked, so it must not call back into it.
	OnChange func([]track.Track)
}

func NewLibrary(tracks []track.Track) *Library {
	return &Library{tracks: track.CloneAll(tracks)}
}

func (l *Library) Snapshot() []track.Track {
	l.mu.Lock()
	defer l.mu.Unlock()
	return track.CloneAll(l.tracks)
}

func (l *Library) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tracks)
}

func (l *Library) Get(id string) (track.Track, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := track.Index(l.tracks, id)
	if i < 0 {
		return track.Track{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return l.tracks[i].Clone(), nil
}

// Replace hands fn a copy of the collection and installs whatever it returns. If fn fails,
// or returns a record with an empty or repeated id, the collection is left as it was.
func (l *Library) Replace(fn func([]track.Track) ([]track.Track, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := fn(track.CloneAll(l.tracks))
	if err != nil {
		return err
	}
	if err := checkIDs(next); err != nil {
		return err
	}
	l.tracks = next

	if l.OnChange != nil {
		l.OnChange(track.CloneAll(next))
	}
	return nil
}

func checkIDs(tracks []track.Track) error {
	seen := make(map[string]struct{}, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			return fmt.Errorf("%w: empty id for %q", ErrInvalidID, t.Name)
		}
		if _, ok := seen[t.ID]; ok {
			return fmt.Errorf("%w: duplicate id %q", ErrInvalidID, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

type IngestReport struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Ingest creates a record for every file not already in the library, with whatever metadata
// extract finds in it. Source paths are joined onto root. Files that can't be read are
// counted and logged but don't stop the scan.
func (l *Library) Ingest(root string, files iter.Seq2[fileutil.File, error], extract func([]byte) *track.Metadata) (IngestReport, error) {
	known := map[string]struct{}{}
	for _, t := range l.Snapshot() {
		known[t.SourcePath] = struct{}{}
	}

	var report IngestReport
	var fresh []track.Track
	for f, err := range files {
		if err != nil {
			slog.Warn("read file", "path", f.Path, "err", err)
			report.Failed++
			continue
		}
		sourcePath := path.Join(root, f.Path)
		if _, ok := known[sourcePath]; ok {
			report.Skipped++
			continue
		}
		known[sourcePath] = struct{}{}

		var md *track.Metadata
		if extract != nil {
			md = extract(f.Data)
		}
		fresh = append(fresh, track.New(sourcePath, md))
	}
	if len(fresh) == 0 {
		return report, nil
	}

	err := l.Replace(func(tracks []track.Track) ([]track.Track, error) {
		ids := map[string]struct{}{}
		paths := map[string]struct{}{}
		for _, t := range tracks {
			ids[t.ID] = struct{}{}
			paths[t.SourcePath] = struct{}{}
		}
		for _, t := range fresh {
			// another ingest may have got here first
			if _, ok := paths[t.SourcePath]; ok {
				report.Skipped++
				continue
			}
			for {
				if _, ok := ids[t.ID]; !ok {
					break
				}
				t.ID = track.New(t.SourcePath, nil).ID
			}
			ids[t.ID] = struct{}{}
			paths[t.SourcePath] = struct{}{}
			tracks = append(tracks, t)
			report.Added++
		}
		return tracks, nil
	})
	if err != nil {
		return IngestReport{}, fmt.Errorf("replace: %w", err)
	}

	slog.Info("ingested files", "added", report.Added, "skipped", report.Skipped, "failed", report.Failed)
	return report, nil
}

// ImportPlaylist merges a DJ software export into the records it describes. Entries matching
// no known file are dropped.
func (l *Library) ImportPlaylist(r io.Reader) (playlist.Format, merge.ImportReport, error) {
	p, err := playlist.Parse(r)
	if err != nil {
		return 0, merge.ImportReport{}, fmt.Errorf("parse playlist: %w", err)
	}

	var report merge.ImportReport
	err = l.Replace(func(tracks []track.Track) ([]track.Track, error) {
		var next []track.Track
		next, report = merge.Import(tracks, p.Entries)
		return next, nil
	})
	if err != nil {
		return 0, merge.ImportReport{}, fmt.Errorf("replace: %w", err)
	}

	slog.Info("imported playlist", "format", p.Format, "matched", report.Matched, "dropped", report.Dropped)
	return p.Format, report, nil
}

// IDs lists every record id in collection order.
func (l *Library) IDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.tracks))
	for _, t := range l.tracks {
		ids = append(ids, t.ID)
	}
	return ids
}
