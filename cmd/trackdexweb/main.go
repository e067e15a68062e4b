package main

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/r3labs/sse/v2"

	"go.senan.xyz/trackdex"
	"go.senan.xyz/trackdex/cmd/internal/flags"
	"go.senan.xyz/trackdex/diff"
	"go.senan.xyz/trackdex/lookup"
	"go.senan.xyz/trackdex/match"
	"go.senan.xyz/trackdex/merge"
	"go.senan.xyz/trackdex/musickey"
	"go.senan.xyz/trackdex/notifications"
	"go.senan.xyz/trackdex/playlist"
	"go.senan.xyz/trackdex/researchlink"
	"go.senan.xyz/trackdex/store"
	"go.senan.xyz/trackdex/track"
	"go.senan.xyz/trackdex/view"
)

func main() {
	defer flags.ExitError()
	var (
		cfg        = flags.NewConfig()
		listenAddr = flag.String("web-listen-addr", ":7373", "Listen address for the web interface")
		apiKey     = flag.String("web-api-key", "", "Key for basic auth, as the password")
	)
	flags.Parse()

	if *apiKey == "" {
		slog.Error("need api key")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), os.ModePerm); err != nil {
		slog.Error("make db dir", "err", err)
		return
	}
	st, err := store.Open(ctx, cfg.DBPath)
	if err != nil {
		slog.Error("open store", "err", err)
		return
	}
	defer st.Close()

	tracks, err := st.LoadAll(ctx)
	if err != nil {
		slog.Error("load collection", "err", err)
		return
	}

	sseServ := sse.New()
	sseServ.AutoStream = true
	sseServ.AutoReplay = false
	defer sseServ.Close()

	trackStream := sseServ.CreateStream("tracks")

	lib := trackdex.NewLibrary(tracks)
	sv := newSaver(func(ctx context.Context) error {
		return st.SaveAll(ctx, lib.Snapshot())
	})
	lib.OnChange = func(tracks []track.Track) {
		sseServ.Publish(trackStream.ID, &sse.Event{Event: []byte("tracks"), Data: []byte(strconv.Itoa(len(tracks)))})
		sv.notify()
	}

	srv := &server{
		lib:           lib,
		src:           &cfg.Spotify,
		notifications: &cfg.Notifications,
		researchLinks: &cfg.ResearchLinks,
		diffWeights:   cfg.DiffWeights,
	}

	httpServ := &http.Server{
		Addr:              *listenAddr,
		Handler:           withAPIKey(*apiKey, srv.routes(sseServ)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServ.Shutdown(shutdownCtx); err != nil {
			slog.Warn("shutdown", "err", err)
		}
	}()

	slog.Info("starting", "addr", *listenAddr, "tracks", len(tracks))
	if err := httpServ.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("listen", "err", err)
		return
	}
	<-shutdownDone

	// handlers are done, so this is the last save
	sv.close()
	if err := st.SaveAll(context.Background(), lib.Snapshot()); err != nil {
		slog.Error("save collection", "err", err)
	}
}

// saver persists the collection in the background. Changes that arrive while a save is
// running are coalesced into one more save.
type saver struct {
	save func(context.Context) error

	mu     sync.Mutex
	closed bool
	c      chan struct{}
	done   chan struct{}
}

func newSaver(save func(context.Context) error) *saver {
	s := &saver{save: save, c: make(chan struct{}, 1), done: make(chan struct{})}
	go s.run()
	return s
}

func (s *saver) run() {
	defer close(s.done)
	for range s.c {
		// not the signal context, a change during shutdown must still be written
		if err := s.save(context.Background()); err != nil {
			slog.Error("save collection", "err", err)
		}
	}
}

// notify asks for a save. It never blocks and does nothing once the saver is closed.
func (s *saver) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.c <- struct{}{}:
	default:
	}
}

// close waits for any pending save and stops the saver.
func (s *saver) close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.c)
	}
	s.mu.Unlock()
	<-s.done
}

type server struct {
	lib           *trackdex.Library
	src           lookup.Source
	notifications *notifications.Notifications
	researchLinks *researchlink.Builder
	diffWeights   diff.Weights
}

func (s *server) routes(events http.Handler) http.Handler {
	mux := http.NewServeMux()
	if events != nil {
		mux.Handle("GET /events", events)
	}

	mux.HandleFunc("GET /tracks", s.handleTracks)
	mux.HandleFunc("GET /tracks/{id}", s.handleTrack)
	mux.HandleFunc("GET /tracks/{id}/step", s.handleStep)
	mux.HandleFunc("POST /tracks/{id}/enrich", s.handleEnrich)
	mux.HandleFunc("POST /import", s.handleImport)
	mux.HandleFunc("GET /bounds", s.handleBounds)
	return mux
}

type tracksResponse struct {
	Tracks        []track.Track `json:"tracks"`
	Total         int           `json:"total"`
	Filters       view.Filters  `json:"filters"`
	FiltersActive bool          `json:"filtersActive"`
	Sort          string        `json:"sort"`

	// KeyColors maps each key in the view to its wheel colour.
	KeyColors map[string]string `json:"keyColors"`
}

func (s *server) handleTracks(w http.ResponseWriter, r *http.Request) {
	tracks := s.lib.Snapshot()
	f, sort, err := parseView(r, tracks)
	if err != nil {
		respErr(w, http.StatusBadRequest, "%v", err)
		return
	}

	res := view.Apply(tracks, f, sort)
	colors := map[string]string{}
	for _, t := range res {
		if k := t.Key(); k != "" {
			colors[k] = musickey.Color(k)
		}
	}

	lo, hi := view.TempoBounds(tracks)
	respJSON(w, http.StatusOK, tracksResponse{
		Tracks:        res,
		Total:         len(tracks),
		Filters:       f,
		FiltersActive: f.Active(lo, hi),
		Sort:          sort.String(),
		KeyColors:     colors,
	})
}

func (s *server) handleTrack(w http.ResponseWriter, r *http.Request) {
	t, err := s.lib.Get(r.PathValue("id"))
	if err != nil {
		respErr(w, http.StatusNotFound, "%v", err)
		return
	}
	respJSON(w, http.StatusOK, t)
}

// handleStep returns the id delta places away from a track within the current view.
func (s *server) handleStep(w http.ResponseWriter, r *http.Request) {
	tracks := s.lib.Snapshot()
	f, sort, err := parseView(r, tracks)
	if err != nil {
		respErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	delta := 1
	if raw := r.FormValue("delta"); raw != "" {
		if delta, err = strconv.Atoi(raw); err != nil {
			respErr(w, http.StatusBadRequest, "invalid delta %q", raw)
			return
		}
	}
	id := view.Step(view.Apply(tracks, f, sort), r.PathValue("id"), delta)
	if id == "" {
		respErr(w, http.StatusNotFound, "empty view")
		return
	}
	respJSON(w, http.StatusOK, map[string]string{"id": id})
}

type enrichResponse struct {
	trackdex.EnrichResult
	Diff          []fieldDiff                 `json:"diff,omitempty"`
	ResearchLinks []researchlink.SearchResult `json:"researchLinks,omitempty"`
}

type fieldDiff struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
	Equal  bool   `json:"equal"`
}

func (s *server) handleEnrich(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	confirm, _ := strconv.ParseBool(r.FormValue("confirm"))

	res, err := trackdex.Enrich(r.Context(), s.lib, s.src, id, func(track.Track, match.Result) bool {
		return confirm
	})
	switch {
	case errors.Is(err, trackdex.ErrNotFound):
		respErr(w, http.StatusNotFound, "%v", err)
		return
	case errors.Is(err, lookup.ErrAuthRequired):
		respErr(w, http.StatusUnauthorized, "lookup: %v", err)
		return
	case err != nil:
		respErr(w, http.StatusBadGateway, "lookup: %v", err)
		return
	}

	t, _ := s.lib.Get(id)
	resp := enrichResponse{EnrichResult: res}

	code := http.StatusOK
	switch res.Status {
	case trackdex.StatusApplied:
		resp.Diff = s.diff(res.Before, res.After)
	case trackdex.StatusDeclined:
		code = http.StatusConflict
		resp.Diff = s.diff(t.Metadata, merge.Lookup(t, res.Match.Candidate, nil).Metadata)
		resp.ResearchLinks = s.buildLinks(t)
		s.notifications.Sendf(r.Context(), notifications.NeedsInput, "%q needs input, best match scored %.0f%%", t.Title(), res.Match.Score*100)
	case trackdex.StatusNoMatch:
		resp.ResearchLinks = s.buildLinks(t)
		s.notifications.Sendf(r.Context(), notifications.NoMatch, "no match for %q", t.Title())
	}
	respJSON(w, code, resp)
}

func (s *server) diff(before, after *track.Metadata) []fieldDiff {
	_, diffs := diff.Metadata(s.diffWeights, before, after)
	res := make([]fieldDiff, 0, len(diffs))
	for _, d := range diffs {
		res = append(res, fieldDiff{Field: d.Field, Before: diff.Text(d.Before), After: diff.Text(d.After), Equal: d.Equal})
	}
	return res
}

func (s *server) buildLinks(t track.Track) []researchlink.SearchResult {
	q := researchlink.Query{Title: t.Title(), Artist: t.Artist(), Filename: t.Name}
	if t.Metadata != nil {
		q.Album, q.Year = t.Metadata.Album, t.Metadata.Year
	}
	links, err := s.researchLinks.Build(q)
	if err != nil {
		slog.Error("build research links", "err", err)
	}
	return links
}

// maxUpload bounds the size of an uploaded playlist export.
const maxUpload = 64 << 20

type importResponse struct {
	Format playlist.Format `json:"format"`
	merge.ImportReport
}

func (s *server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	file, _, err := r.FormFile("xmlFile")
	if err != nil {
		respErr(w, http.StatusBadRequest, "no xmlFile: %v", err)
		return
	}
	defer file.Close()

	format, report, err := s.lib.ImportPlaylist(file)
	if err != nil {
		respErr(w, http.StatusBadRequest, "%v", err)
		return
	}
	s.notifications.Sendf(r.Context(), notifications.ImportComplete, "imported %s playlist, matched %d tracks", format, report.Matched)
	respJSON(w, http.StatusOK, importResponse{Format: format, ImportReport: report})
}

func (s *server) handleBounds(w http.ResponseWriter, _ *http.Request) {
	lo, hi := view.TempoBounds(s.lib.Snapshot())
	respJSON(w, http.StatusOK, map[string]float64{"min": lo, "max": hi})
}

// parseView reads filters and sort order from query parameters, defaulting to the whole
// collection in key order.
func parseView(r *http.Request, tracks []track.Track) (view.Filters, view.Sort, error) {
	f := view.DefaultFilters(tracks)
	f.Query = r.FormValue("q")

	var err error
	parseFloat := func(name string, dst *float64) {
		if raw := r.FormValue(name); raw != "" && err == nil {
			if *dst, err = strconv.ParseFloat(raw, 64); err != nil {
				err = fmt.Errorf("invalid %s %q", name, raw)
			}
		}
	}
	parseFloat("tempoMin", &f.TempoMin)
	parseFloat("tempoMax", &f.TempoMax)
	if raw := r.FormValue("withoutTempo"); raw != "" && err == nil {
		if f.IncludeWithoutTempo, err = strconv.ParseBool(raw); err != nil {
			err = fmt.Errorf("invalid withoutTempo %q", raw)
		}
	}
	if err != nil {
		return view.Filters{}, view.Sort{}, err
	}

	sort, err := view.ParseSort(r.FormValue("sort"))
	if err != nil {
		return view.Filters{}, view.Sort{}, err
	}
	return f, sort, nil
}

func withAPIKey(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "Basic")
		if _, key, _ := r.BasicAuth(); subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		slog.Debug("req", "method", r.Method, "url", r.URL)
		next.ServeHTTP(w, r)
	})
}

func respJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "err", err)
	}
}

func respErr(w http.ResponseWriter, code int, f string, a ...any) {
	respJSON(w, code, map[string]string{"error": fmt.Sprintf(f, a...)})
}
