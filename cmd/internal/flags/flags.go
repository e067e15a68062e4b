// Package flags registers the options shared by the trackdex binaries. Values come from
// command line flags, then TRACKDEX_* environment variables, then the config file.
package flags

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"go.senan.xyz/flagconf"

	"go.senan.xyz/trackdex"
	"go.senan.xyz/trackdex/diff"
	"go.senan.xyz/trackdex/lookup"
	"go.senan.xyz/trackdex/notifications"
	"go.senan.xyz/trackdex/researchlink"
)

var logLevel slog.LevelVar

func init() {
	h := &errorTrackingHandler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}),
	}
	slog.SetDefault(slog.New(h))
	slog.SetLogLoggerLevel(slog.LevelError)
}

var hadError atomic.Bool

// ExitError exits with status 1 if anything was logged at error level.
func ExitError() {
	if hadError.Load() {
		os.Exit(1)
	}
	os.Exit(0)
}

type errorTrackingHandler struct {
	slog.Handler
}

func (h *errorTrackingHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		hadError.Store(true)
	}
	return h.Handler.Handle(ctx, r)
}

func Parse() {
	var defaultConfigPath string
	if userConfig, err := os.UserConfigDir(); err == nil {
		defaultConfigPath = filepath.Join(userConfig, trackdex.Name, "config")
	}
	configPath := flag.String("config-path", defaultConfigPath, "Path to config file")

	printVersion := flag.Bool("version", false, "Print the version and exit")
	printConfig := flag.Bool("config", false, "Print the parsed config and exit")

	flag.TextVar(&logLevel, "log-level", &logLevel, "Set the logging level")

	flag.Parse()
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string { return trackdex.Name }
	flagconf.ParseEnv()
	if *configPath != "" {
		flagconf.ParseConfig(*configPath)
	}

	if *printVersion {
		fmt.Printf("%s %s\n", filepath.Base(flag.CommandLine.Name()), trackdex.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-24s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

type Config struct {
	DBPath        string
	Spotify       lookup.SpotifyClient
	Concurrency   int
	DiffWeights   diff.Weights
	Notifications notifications.Notifications
	ResearchLinks researchlink.Builder
}

func NewConfig() *Config {
	var cfg Config

	var defaultDBPath = trackdex.Name + ".db"
	if userConfig, err := os.UserConfigDir(); err == nil {
		defaultDBPath = filepath.Join(userConfig, trackdex.Name, trackdex.Name+".db")
	}
	flag.StringVar(&cfg.DBPath, "db-path", defaultDBPath, "Path to the collection database")

	cfg.Spotify.HTTPClient = http.DefaultClient
	cfg.Spotify.UserAgent = fmt.Sprintf(`%s/%s`, trackdex.Name, trackdex.Version)
	flag.StringVar(&cfg.Spotify.BaseURL, "spotify-base-url", `https://api.spotify.com/v1/`, "Spotify Web API base URL")
	flag.StringVar(&cfg.Spotify.TokenURL, "spotify-token-url", `https://accounts.spotify.com/api/token`, "Spotify token URL for the client credentials grant")
	flag.StringVar(&cfg.Spotify.ClientID, "spotify-client-id", "", "Spotify application client ID")
	flag.StringVar(&cfg.Spotify.ClientSecret, "spotify-client-secret", "", "Spotify application client secret")
	flag.StringVar(&cfg.Spotify.AccessToken, "spotify-token", "", "Spotify access token, used instead of the client ID and secret")
	flag.DurationVar(&cfg.Spotify.RateLimit, "spotify-rate-limit", 100*time.Millisecond, "Spotify rate limit duration")

	flag.IntVar(&cfg.Concurrency, "concurrency", 4, "Maximum number of lookups in flight")

	cfg.DiffWeights = diff.Weights{}
	for k, v := range diff.DefaultWeights {
		cfg.DiffWeights[k] = v
	}
	flag.Var(&diffWeightsParser{cfg.DiffWeights}, "diff-weight", "Adjust how much a field counts towards the match percentage (0 to ignore) (stackable)")
	flag.Var(&notificationsParser{&cfg.Notifications}, "notification-uri", "Add a shoutrrr notification URI for an event (stackable)")
	flag.Var(&researchLinkParser{&cfg.ResearchLinks}, "research-link", "Define a helper URL to help find information about an unmatched track (stackable)")

	return &cfg
}
