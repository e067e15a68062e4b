package trackdex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"go.senan.xyz/trackdex/lookup"
	"go.senan.xyz/trackdex/match"
	"go.senan.xyz/trackdex/merge"
	"go.senan.xyz/trackdex/track"
)

// SearchLimit is how many candidates are fetched per lookup.
const SearchLimit = 5

type Status uint8

const (
	StatusApplied Status = iota
	StatusDeclined
	StatusNoMatch
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusDeclined:
		return "declined"
	case StatusNoMatch:
		return "no-match"
	}
	return ""
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	for _, st := range []Status{StatusApplied, StatusDeclined, StatusNoMatch} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", text)
}

// ConfirmFunc decides whether a low scoring result should be applied to t anyway.
type ConfirmFunc func(t track.Track, r match.Result) bool

type EnrichResult struct {
	ID     string        `json:"id"`
	Status Status        `json:"status"`
	Query  match.Query   `json:"query"`
	Match  *match.Result `json:"match,omitempty"`

	Before *track.Metadata `json:"before,omitempty"`
	After  *track.Metadata `json:"after,omitempty"`
}

// Enrich looks up the record with id on src and merges the best candidate into it. A
// candidate scoring below the acceptance threshold is only applied when confirm agrees; a nil
// confirm declines. Declining or finding nothing leaves the record untouched. The merge is a
// single replace against the record as it is at that moment, so concurrent enrichments of
// different records don't lose each other's changes.
func Enrich(ctx context.Context, lib *Library, src lookup.Source, id string, confirm ConfirmFunc) (EnrichResult, error) {
	t, err := lib.Get(id)
	if err != nil {
		return EnrichResult{}, err
	}

	q := match.BuildQuery(t)
	res := EnrichResult{ID: id, Query: q}

	candidates, err := src.Search(ctx, q.Text, SearchLimit)
	switch {
	case errors.Is(err, lookup.ErrNoResults):
		res.Status = StatusNoMatch
		return res, nil
	case err != nil:
		return res, fmt.Errorf("search: %w", err)
	}

	results := match.Score(candidates, q.Title, q.Artist)
	if len(results) == 0 {
		res.Status = StatusNoMatch
		return res, nil
	}

	best := results[0]
	res.Match = &best

	if !best.AutoAccept() && (confirm == nil || !confirm(t, best)) {
		slog.DebugContext(ctx, "declined low score match", "id", id, "score", best.Score)
		res.Status = StatusDeclined
		return res, nil
	}

	features, err := src.AudioFeatures(ctx, best.ExternalID)
	switch {
	case errors.Is(err, lookup.ErrAuthRequired):
		return res, fmt.Errorf("audio features: %w", err)
	case err != nil:
		slog.WarnContext(ctx, "audio features unavailable", "id", id, "err", err)
		features = nil
	}

	err = lib.Replace(func(tracks []track.Track) ([]track.Track, error) {
		i := track.Index(tracks, id)
		if i < 0 {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		res.Before = tracks[i].Metadata.Clone()
		tracks[i] = merge.Lookup(tracks[i], best.Candidate, features)
		res.After = tracks[i].Metadata.Clone()
		return tracks, nil
	})
	if err != nil {
		return res, err
	}

	res.Status = StatusApplied
	return res, nil
}

// EnrichAll enriches each of ids, or the whole library if none are given, with at most
// concurrency lookups in flight. confirm may be called from several goroutines. Failures for
// single records are joined into the returned error; a missing or rejected credential stops
// the batch since no later lookup could succeed either.
func EnrichAll(ctx context.Context, lib *Library, src lookup.Source, ids []string, confirm ConfirmFunc, concurrency int) ([]EnrichResult, error) {
	if len(ids) == 0 {
		ids = lib.IDs()
	}
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]EnrichResult, len(ids))

	var errMu sync.Mutex
	var errs []error

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Enrich(ctx, lib, src, id, confirm)
			results[i] = res
			if errors.Is(err, lookup.ErrAuthRequired) {
				return err
			}
			if err != nil {
				slog.ErrorContext(ctx, "enrich", "id", id, "err", err)

				errMu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
				errMu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, errors.Join(errs...)
}
