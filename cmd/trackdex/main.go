package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/sergi/go-diff/diffmatchpatch"
	"go.senan.xyz/table/table"

	"go.senan.xyz/trackdex"
	"go.senan.xyz/trackdex/cmd/internal/flags"
	"go.senan.xyz/trackdex/diff"
	"go.senan.xyz/trackdex/fileutil"
	"go.senan.xyz/trackdex/lookup"
	"go.senan.xyz/trackdex/match"
	"go.senan.xyz/trackdex/merge"
	"go.senan.xyz/trackdex/notifications"
	"go.senan.xyz/trackdex/researchlink"
	"go.senan.xyz/trackdex/store"
	"go.senan.xyz/trackdex/tags"
	"go.senan.xyz/trackdex/track"
	"go.senan.xyz/trackdex/view"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] scan <dir>...\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] import <playlist.xml>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] enrich [-yes] [-all] [<id>...]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] view [-q <query>] [-tempo-min <bpm>] [-tempo-max <bpm>] [-without-tempo=<bool>] [-sort <key:dir,key:dir>]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] bounds\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] export [-format json|yaml]\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] restore [-format json|yaml] <file>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

func main() {
	defer flags.ExitError()
	cfg := flags.NewConfig()
	flags.Parse()

	command := flag.Arg(0)
	switch command {
	case "scan", "import", "enrich", "view", "bounds", "export", "restore":
	default:
		flag.Usage()
		slog.Error("unknown command", "command", command)
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

	var changed bool
	lib := trackdex.NewLibrary(tracks)
	lib.OnChange = func([]track.Track) { changed = true }

	args := flag.Args()[1:]
	switch command {
	case "scan":
		err = cmdScan(lib, args)
	case "import":
		err = cmdImport(ctx, cfg, lib, args)
	case "enrich":
		err = cmdEnrich(ctx, cfg, lib, args)
	case "view":
		err = cmdView(lib, args)
	case "bounds":
		lo, hi := view.TempoBounds(lib.Snapshot())
		fmt.Printf("%s\t%s\n", fmtFloat(lo), fmtFloat(hi))
	case "export":
		err = cmdExport(lib, args)
	case "restore":
		err = cmdRestore(lib, args)
	}
	if err != nil {
		slog.Error(command, "err", err)
	}

	if changed {
		if err := st.SaveAll(ctx, lib.Snapshot()); err != nil {
			slog.Error("save collection", "err", err)
			return
		}
	}
}

func cmdScan(lib *trackdex.Library, args []string) error {
	if len(args) == 0 {
		return errors.New("need at least one dir")
	}
	for _, dir := range args {
		dir, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("make abs: %w", err)
		}
		files := fileutil.Walk(os.DirFS(dir), tags.CanRead)
		report, err := lib.Ingest(filepath.ToSlash(dir), files, tags.Extract)
		if err != nil {
			return fmt.Errorf("ingest %q: %w", dir, err)
		}
		fmt.Printf("added %d, skipped %d, failed %d\n", report.Added, report.Skipped, report.Failed)
	}
	return nil
}

func cmdImport(ctx context.Context, cfg *flags.Config, lib *trackdex.Library, args []string) error {
	if len(args) != 1 {
		return errors.New("need a playlist file")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open playlist: %w", err)
	}
	defer f.Close()

	format, report, err := lib.ImportPlaylist(f)
	if err != nil {
		return err
	}
	fmt.Printf("%s: matched %d, dropped %d\n", format, report.Matched, report.Dropped)
	cfg.Notifications.Sendf(ctx, notifications.ImportComplete, "imported %s playlist, matched %d tracks", format, report.Matched)
	return nil
}

func cmdEnrich(ctx context.Context, cfg *flags.Config, lib *trackdex.Library, args []string) error {
	subflag := flag.NewFlagSet("enrich", flag.ExitOnError)
	yes := subflag.Bool("yes", false, "Apply the best match anyway despite a low score")
	all := subflag.Bool("all", false, "Enrich every track in the collection")
	subflag.Parse(args)

	ids := subflag.Args()
	if len(ids) == 0 && !*all {
		return errors.New("need track ids or -all")
	}

	confirm := func(track.Track, match.Result) bool { return *yes }

	var src lookup.Source = &cfg.Spotify
	results, err := trackdex.EnrichAll(ctx, lib, src, ids, confirm, cfg.Concurrency)
	if errors.Is(err, lookup.ErrAuthRequired) {
		return fmt.Errorf("%w: set -spotify-client-id and -spotify-client-secret, or -spotify-token", err)
	}

	var applied int
	for _, r := range results {
		if r.ID == "" {
			continue
		}
		t, _ := lib.Get(r.ID)
		switch r.Status {
		case trackdex.StatusApplied:
			applied++
			printResult(cfg, t, r)
		case trackdex.StatusDeclined:
			printResult(cfg, t, r)
			fmt.Printf("%s: score too low, run with -yes to apply anyway\n", r.ID)
			printResearchLinks(cfg, t)
			cfg.Notifications.Sendf(ctx, notifications.NeedsInput, "%q needs input, best match scored %.0f%%", t.Title(), r.Match.Score*100)
		case trackdex.StatusNoMatch:
			fmt.Printf("%s: no match for %q\n", r.ID, r.Query.Text)
			printResearchLinks(cfg, t)
			cfg.Notifications.Sendf(ctx, notifications.NoMatch, "no match for %q", t.Title())
		}
	}
	if applied > 0 {
		cfg.Notifications.Sendf(ctx, notifications.EnrichComplete, "enriched %d tracks", applied)
	}
	return err
}

func printResult(cfg *flags.Config, t track.Track, r trackdex.EnrichResult) {
	before, after := r.Before, r.After
	if r.Status != trackdex.StatusApplied {
		// what would have been applied
		before = t.Metadata
		if r.Match != nil {
			after = merge.Lookup(t, r.Match.Candidate, nil).Metadata
		}
	}

	score, diffs := diff.Metadata(cfg.DiffWeights, before, after)
	switch {
	case r.Match == nil:
	case r.Match.Scored:
		fmt.Printf("%s: matched %.2f%% (fields %.2f%%) with %s\n", r.ID, r.Match.Score*100, score, r.Match.ExternalURL)
	default:
		fmt.Printf("%s: matched with %s\n", r.ID, r.Match.ExternalURL)
	}

	tw := table.NewStringWriter()
	for _, d := range diffs {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.Field, fmtDiff(d.Before), fmtDiff(d.After))
	}
	for _, row := range strings.Split(strings.TrimRight(tw.String(), "\n"), "\n") {
		if row != "" {
			fmt.Println(row)
		}
	}
}

func printResearchLinks(cfg *flags.Config, t track.Track) {
	q := researchlink.Query{Title: t.Title(), Artist: t.Artist(), Filename: t.Name}
	if t.Metadata != nil {
		q.Album, q.Year = t.Metadata.Album, t.Metadata.Year
	}
	links, err := cfg.ResearchLinks.Build(q)
	if err != nil {
		slog.Error("build research links", "err", err)
	}
	for _, l := range links {
		fmt.Printf("  %s\t%s\n", l.Name, l.URL)
	}
}

func cmdView(lib *trackdex.Library, args []string) error {
	tracks := lib.Snapshot()
	defaults := view.DefaultFilters(tracks)

	subflag := flag.NewFlagSet("view", flag.ExitOnError)
	query := subflag.String("q", "", "Fuzzy search over name, title, artist and album")
	tempoMin := subflag.Float64("tempo-min", defaults.TempoMin, "Lowest tempo to show")
	tempoMax := subflag.Float64("tempo-max", defaults.TempoMax, "Highest tempo to show")
	withoutTempo := subflag.Bool("without-tempo", true, "Show tracks with no tempo")
	sortRaw := subflag.String("sort", view.DefaultSort().String(), "Sort keys and directions, eg \"tempo:desc,title\"")
	subflag.Parse(args)

	s, err := view.ParseSort(*sortRaw)
	if err != nil {
		return err
	}
	f := view.Filters{TempoMin: *tempoMin, TempoMax: *tempoMax, IncludeWithoutTempo: *withoutTempo, Query: *query}

	tw := table.NewStringWriter()
	for _, t := range view.Apply(tracks, f, s) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, orDash(t.Key()), orDash(fmtFloat(t.Tempo())), t.Title(), orDash(t.Artist()), orDash(fmtDuration(t.Duration())))
	}
	fmt.Print(tw.String())
	return nil
}

func cmdExport(lib *trackdex.Library, args []string) error {
	subflag := flag.NewFlagSet("export", flag.ExitOnError)
	format := subflag.String("format", string(store.FormatJSON), "Export format (json or yaml)")
	subflag.Parse(args)

	return store.Export(os.Stdout, lib.Snapshot(), store.Format(*format))
}

// cmdRestore replaces the whole collection with one written by export.
func cmdRestore(lib *trackdex.Library, args []string) error {
	subflag := flag.NewFlagSet("restore", flag.ExitOnError)
	format := subflag.String("format", string(store.FormatJSON), "Format of the file (json or yaml)")
	subflag.Parse(args)

	if subflag.NArg() != 1 {
		return errors.New("need an exported collection file")
	}
	f, err := os.Open(subflag.Arg(0))
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	tracks, err := store.Import(f, store.Format(*format))
	if err != nil {
		return err
	}
	if err := lib.Replace(func([]track.Track) ([]track.Track, error) { return tracks, nil }); err != nil {
		return err
	}
	fmt.Printf("restored %d\n", len(tracks))
	return nil
}

func fmtDiff(d []diffmatchpatch.Diff) string {
	if text := diff.PrettyText(d); text != "" {
		return text
	}
	return "[empty]"
}

func fmtFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func fmtDuration(secs float64) string {
	if secs <= 0 {
		return ""
	}
	s := int(secs + 0.5)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
