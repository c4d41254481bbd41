// Package config describes the json5 configuration of the ltbxd cli.
package config

import (
	"errors"
	"fmt"
	"ltbxd-scraper/internal/fetchers/browser"
	"ltbxd-scraper/internal/fetchers/direct"
	"ltbxd-scraper/internal/limits"
	"ltbxd-scraper/internal/scrapers/imdb"
	"ltbxd-scraper/internal/scrapers/letterboxd"
	"ltbxd-scraper/lib/configutil"
	"ltbxd-scraper/lib/telemetry"
	"os"
	"path/filepath"
	"time"
)

const (
	BACKEND_BROWSER = "browser"
	BACKEND_DIRECT  = "direct"
)

type BrowserConfig struct {
	Headless         *bool  `json:"headless"`
	ExecutablePath   string `json:"executable_path"`
	UserAgent        string `json:"user_agent"`
	TimeoutMs        int    `json:"timeout_ms"`
	ScrollStepPx     int    `json:"scroll_step_px"`
	ScrollIntervalMs int    `json:"scroll_interval_ms"`
	SettleDelayMs    *int   `json:"settle_delay_ms"`
	InstallDriver    bool   `json:"install_driver"`
}

type DirectConfig struct {
	UserAgent        string `json:"user_agent"`
	TimeoutMs        int    `json:"timeout_ms"`
	MinIntervalMs    int    `json:"min_interval_ms"`
	CloudflareBypass bool   `json:"cloudflare_bypass"`
	DumpDir          string `json:"dump_dir"`
}

// LimitsConfig configures the usage tracker. The tracker is kept in memory,
// so its quota and delay only span the queries of a single process: every
// ltbxd invocation starts with an empty window.
type LimitsConfig struct {
	MaxRequestsPerHour int `json:"max_requests_per_hour"`
	MinDelayMs         int `json:"min_delay_ms"`
	// Disabled turns off the usage tracker entirely.
	Disabled bool `json:"disabled"`
}

type ImdbConfig struct {
	Enabled           bool    `json:"enabled"`
	BaseUrl           string  `json:"base_url"`
	RequestsPerSecond float64 `json:"requests_per_second"`
}

type Config struct {
	BaseUrl          string           `json:"base_url"`
	Backend          string           `json:"backend"`
	Timezone         string           `json:"timezone"`
	AcknowledgeTerms bool             `json:"acknowledge_terms"`
	MaxPages         int              `json:"max_pages"`
	Database         string           `json:"database"`
	Browser          BrowserConfig    `json:"browser"`
	Direct           DirectConfig     `json:"direct"`
	Limits           LimitsConfig     `json:"limits"`
	Imdb             ImdbConfig       `json:"imdb"`
	Telemetry        telemetry.Config `json:"telemetry"`
}

func Default() Config {
	return Config{
		BaseUrl:  letterboxd.DEFAULT_BASE_URL,
		Backend:  BACKEND_BROWSER,
		MaxPages: letterboxd.DEFAULT_MAX_PAGES,
	}
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Read reads the config at path (and its .local override), a missing file
// yields the defaults. A bare file name is searched for from the working
// directory upwards.
func Read(path string) (Config, error) {
	read := configutil.ReadConfig[Config]
	if filepath.Base(path) == path {
		read = configutil.ReadRecursively[Config]
	}
	cfg, err := read(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return Config{}, err
	}
	return cfg.withDefaults()
}

func (c Config) withDefaults() (Config, error) {
	if c.BaseUrl == "" {
		c.BaseUrl = letterboxd.DEFAULT_BASE_URL
	}
	if c.Backend == "" {
		c.Backend = BACKEND_BROWSER
	}
	if c.Backend != BACKEND_BROWSER && c.Backend != BACKEND_DIRECT {
		return Config{}, fmt.Errorf("unknown backend %q, expected %q or %q", c.Backend, BACKEND_BROWSER, BACKEND_DIRECT)
	}
	if c.MaxPages <= 0 {
		c.MaxPages = letterboxd.DEFAULT_MAX_PAGES
	}
	return c, nil
}

func (c Config) BrowserOptions() browser.Options {
	headless := true
	if c.Browser.Headless != nil {
		headless = *c.Browser.Headless
	}
	settle := time.Second * 5
	if c.Browser.SettleDelayMs != nil {
		settle = millis(*c.Browser.SettleDelayMs)
	}
	return browser.Options{
		BaseUrl:        c.BaseUrl,
		Headless:       headless,
		ExecutablePath: c.Browser.ExecutablePath,
		UserAgent:      c.Browser.UserAgent,
		Timeout:        millis(c.Browser.TimeoutMs),
		ScrollStep:     c.Browser.ScrollStepPx,
		ScrollInterval: millis(c.Browser.ScrollIntervalMs),
		SettleDelay:    settle,
		InstallDriver:  c.Browser.InstallDriver,
	}
}

func (c Config) DirectOptions() direct.Options {
	return direct.Options{
		BaseUrl:          c.BaseUrl,
		UserAgent:        c.Direct.UserAgent,
		Timeout:          millis(c.Direct.TimeoutMs),
		MinInterval:      millis(c.Direct.MinIntervalMs),
		CloudflareBypass: c.Direct.CloudflareBypass,
		DumpDir:          c.Direct.DumpDir,
	}
}

func (c Config) LimitsConfig() limits.Config {
	return limits.Config{
		MaxRequestsPerHour: c.Limits.MaxRequestsPerHour,
		MinDelay:           millis(c.Limits.MinDelayMs),
		TermsAcknowledged:  c.AcknowledgeTerms,
	}
}

func (c Config) ImdbOptions() imdb.Options {
	return imdb.Options{
		BaseUrl:           c.Imdb.BaseUrl,
		RequestsPerSecond: c.Imdb.RequestsPerSecond,
	}
}
