package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"golang.org/x/term"

	"github.com/sydlexius/coverart/internal/artwork"
	"github.com/sydlexius/coverart/internal/config"
	"github.com/sydlexius/coverart/internal/logging"
	"github.com/sydlexius/coverart/internal/provider"
	"github.com/sydlexius/coverart/internal/provider/coverartarchive"
	"github.com/sydlexius/coverart/internal/provider/musicbrainz"
	"github.com/sydlexius/coverart/internal/version"
)

const usage = `coverart - query the Cover Art Archive

Usage:
  coverart info <release-mbid>...          show the images of one or more releases
  coverart group <release-group-mbid>      show the images of a release group's cover release
  coverart fetch [options] <mbid>          download one image
  coverart find -artist A -album B [opts]  download the front cover of an album by name
  coverart ping                            check that both services answer
  coverart version                         print the version

Run "coverart <command> -h" for command options.
`

// errUsage marks errors caused by bad arguments.
var errUsage = errors.New("usage error")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "info":
		err = cmdInfo(ctx, rest, stdout, stderr)
	case "group":
		err = cmdGroup(ctx, rest, stdout, stderr)
	case "fetch":
		err = cmdFetch(ctx, rest, stdout, stderr)
	case "find":
		err = cmdFind(ctx, rest, stdout, stderr)
	case "ping":
		err = cmdPing(ctx, rest, stdout, stderr)
	case "version":
		fmt.Fprintf(stdout, "coverart %s (%s)\n", version.Version, version.Commit)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

// app holds everything a command needs once flags and config are resolved.
type app struct {
	cfg        *config.Config
	logManager *logging.Manager
	logger     *slog.Logger
	caa        *coverartarchive.Adapter
	mb         *musicbrainz.Adapter
	finder     *artwork.Finder
	registry   *provider.Registry
	out        *printer
}

// commonFlags are accepted by every command that talks to the network.
type commonFlags struct {
	configPath string
	verbose    bool
	jsonOut    bool
	textOut    bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "config file (default $CA_CONFIG_PATH or <user config dir>/coverart/config.yaml)")
	fs.BoolVar(&c.verbose, "v", false, "log debug output to stderr")
	fs.BoolVar(&c.jsonOut, "json", false, "force JSON output")
	fs.BoolVar(&c.textOut, "text", false, "force text output")
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// parseFlags parses args and wraps parse failures as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	return nil
}

func configPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("CA_CONFIG_PATH"); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "coverart", "config.yaml")
}

func newApp(flags commonFlags, stdout io.Writer) (*app, error) {
	cfg, err := config.Load(configPath(flags.configPath))
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		FilePath:       cfg.Logging.FilePath,
		FileMaxSizeMB:  cfg.Logging.FileMaxSizeMB,
		FileMaxFiles:   cfg.Logging.FileMaxFiles,
		FileMaxAgeDays: cfg.Logging.FileMaxAgeDays,
	})
	if flags.verbose {
		logManager.SetLevel("debug")
	}
	slog.SetDefault(logger)

	format := cfg.Output.Format
	switch {
	case flags.jsonOut:
		format = config.FormatJSON
	case flags.textOut:
		format = config.FormatText
	}

	limiter := provider.NewRateLimiterMap()
	limiter.SetLimit(provider.NameCoverArtArchive, cfg.CAA.RequestsPerSecond)
	userAgent := provider.UserAgent(cfg.UserAgent.Contact)

	caa := coverartarchive.NewWithBaseURL(limiter, logger, cfg.CAA.BaseURL,
		coverartarchive.WithUserAgent(userAgent),
		coverartarchive.WithTimeout(cfg.CAA.Timeout),
	)
	mb := musicbrainz.NewWithBaseURL(limiter, logger, userAgent, cfg.MusicBrainz.BaseURL)

	finder := artwork.NewFinder(mb, caa, logger)
	finder.MinScore = cfg.MusicBrainz.MinScore

	registry := provider.NewRegistry()
	registry.Register(caa)
	registry.Register(mb)

	logger.Debug("configured",
		slog.String("caa", cfg.CAA.BaseURL),
		slog.String("musicbrainz", cfg.MusicBrainz.BaseURL),
		slog.String("user_agent", userAgent),
	)

	return &app{
		cfg:        cfg,
		logManager: logManager,
		logger:     logger,
		caa:        caa,
		mb:         mb,
		finder:     finder,
		registry:   registry,
		out:        newPrinter(stdout, resolveFormat(format, stdout)),
	}, nil
}

func (a *app) Close() error {
	return a.logManager.Close()
}

// resolveFormat turns "auto" into text for terminals and JSON otherwise.
func resolveFormat(format string, w io.Writer) string {
	if format != config.FormatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // G115: file descriptors fit in int
		return config.FormatText
	}
	return config.FormatJSON
}
