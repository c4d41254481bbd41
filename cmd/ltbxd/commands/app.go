package commands

import (
	"context"
	"fmt"
	"log/slog"
	"ltbxd-scraper/internal/components/chrono"
	comptel "ltbxd-scraper/internal/components/telemetry"
	"ltbxd-scraper/internal/config"
	"ltbxd-scraper/internal/export"
	"ltbxd-scraper/internal/fetchers/browser"
	"ltbxd-scraper/internal/fetchers/direct"
	"ltbxd-scraper/internal/limits"
	"ltbxd-scraper/internal/scrapers/imdb"
	"ltbxd-scraper/internal/scrapers/letterboxd"
	"ltbxd-scraper/lib/telemetry"
	"os"
	"time"
)

const terms_notice = `This tool scrapes letterboxd.com for personal use only.
Respect letterboxd's terms of use and keep the request volume low.
Set "acknowledge_terms": true in your config or pass --accept-terms to continue.`

type flags struct {
	config      string
	verbose     bool
	backend     string
	db          string
	format      string
	acceptTerms bool
	stats       bool
}

type app struct {
	cfg       config.Config
	flags     flags
	scraper   letterboxd.Scraper
	tracker   *limits.Tracker
	store     *export.Store
	telemetry telemetry.Telemetry
	// background lives as long as the app, perf stats report until it is done.
	background context.Context
	cancel     context.CancelFunc
}

// newApp builds the app for a command, anything set up before a failure is
// released again.
func newApp(ctx context.Context, f flags) (*app, error) {
	telemetry.InitSlog(os.Stderr, f.verbose)

	a := &app{flags: f}
	err := a.init(ctx)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	f := a.flags
	if f.format != FORMAT_TABLE && f.format != FORMAT_JSON {
		return fmt.Errorf("unknown format %q, expected %q or %q", f.format, FORMAT_TABLE, FORMAT_JSON)
	}

	cfg, err := config.Read(f.config)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if f.backend != "" {
		cfg.Backend = f.backend
	}
	if f.db != "" {
		cfg.Database = f.db
	}
	if f.acceptTerms {
		cfg.AcknowledgeTerms = true
	}

	a.cfg = cfg

	// Setup may return the providers it created before failing.
	a.telemetry, err = telemetry.Setup(ctx, "ltbxd", cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	a.background, a.cancel = context.WithCancel(ctx)
	if cfg.Telemetry.Otlp.Metrics.Enabled() {
		telemetry.InstrumentPerfStats(a.background, time.Second*15)
	}

	tel := comptel.SlogAPI{Logger: slog.Default()}

	clock, err := chrono.NewStandardImpl(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("load timezone: %w", err)
	}

	var sessions letterboxd.SessionProvider
	switch cfg.Backend {
	case config.BACKEND_DIRECT:
		sessions, err = direct.NewProvider(cfg.DirectOptions(), tel)
	case config.BACKEND_BROWSER:
		sessions, err = browser.NewProvider(cfg.BrowserOptions(), tel)
	default:
		err = fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return err
	}

	options := []letterboxd.ScraperOption{
		letterboxd.WithMaxPages(cfg.MaxPages),
	}
	if !cfg.Limits.Disabled {
		if !cfg.AcknowledgeTerms {
			fmt.Fprintln(os.Stderr, terms_notice)
		}
		a.tracker = limits.NewTracker(cfg.LimitsConfig(), clock, tel)
		options = append(options, letterboxd.WithUsage(a.tracker))
	}
	if cfg.Imdb.Enabled {
		ids, err := imdb.NewClient(cfg.ImdbOptions(), tel)
		if err != nil {
			return fmt.Errorf("create imdb client: %w", err)
		}
		options = append(options, letterboxd.WithIDLookup(ids))
	}

	a.scraper, err = letterboxd.NewScraper(cfg.BaseUrl, sessions, tel, options...)
	if err != nil {
		return err
	}

	if cfg.Database != "" {
		store, err := export.Open(cfg.Database, clock)
		if err != nil {
			return err
		}
		a.store = &store
	}

	slog.Debug("app initialized", "backend", cfg.Backend, "base_url", cfg.BaseUrl, "db", cfg.Database)
	return nil
}

func (a *app) Close(ctx context.Context) {
	if a.cancel != nil {
		a.cancel()
	}
	if a.store != nil {
		err := a.store.Close()
		if err != nil {
			slog.Warn("failed to close export db", "err", err)
		}
	}
	a.store = nil
	err := a.telemetry.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to shutdown telemetry", "err", err)
	}
}
