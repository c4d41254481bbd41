// Package browser fetches letterboxd pages through a headless chromium driven by playwright.
package browser

import (
	"context"
	"errors"
	"fmt"
	"ltbxd-scraper/internal/components/assert"
	"ltbxd-scraper/internal/components/telemetry"
	"ltbxd-scraper/internal/scrapers/letterboxd"
	"net/http"
	"net/url"
	"sync"
	"time"

	pw "github.com/playwright-community/playwright-go"
)

const (
	report_browser_install = "browser.install"
	report_browser_fetch   = "browser.fetch"
	report_browser_close   = "browser.close"
)

// scrolls the page by distance px every interval ms until the bottom is
// reached, so lazy loaded posters are present in the markup.
const scrollScript = `async ([distance, interval]) => {
	await new Promise((resolve) => {
		let scrolled = 0;
		const timer = setInterval(() => {
			window.scrollBy(0, distance);
			scrolled += distance;
			if (scrolled >= document.body.scrollHeight - window.innerHeight) {
				clearInterval(timer);
				resolve();
			}
		}, interval);
	});
}`

type Options struct {
	BaseUrl        string
	Headless       bool
	ExecutablePath string
	UserAgent      string
	// Timeout applies to every navigation and evaluation, defaults to 60s.
	Timeout time.Duration
	// ScrollStep defaults to 300px.
	ScrollStep int
	// ScrollInterval defaults to 200ms.
	ScrollInterval time.Duration
	// SettleDelay is how long to wait after scrolling before reading the
	// markup, defaults to 5s.
	SettleDelay time.Duration
	// InstallDriver downloads the playwright driver on first use.
	InstallDriver bool
}

type Provider struct {
	opts    Options
	baseUrl *url.URL
	tel     telemetry.API

	install    sync.Once
	installErr error
}

func NewProvider(opts Options, tel telemetry.API) (*Provider, error) {
	assert.NotNil(tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = letterboxd.DEFAULT_BASE_URL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Minute
	}
	if opts.ScrollStep <= 0 {
		opts.ScrollStep = 300
	}
	if opts.ScrollInterval <= 0 {
		opts.ScrollInterval = time.Millisecond * 200
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	return &Provider{
		opts:    opts,
		baseUrl: baseUrl,
		tel:     telemetry.NewScopedAPI("browser", tel),
	}, nil
}

func (p *Provider) ensureDriver() error {
	if !p.opts.InstallDriver {
		return nil
	}
	p.install.Do(func() {
		p.installErr = pw.Install(&pw.RunOptions{
			SkipInstallBrowsers: p.opts.ExecutablePath != "",
		})
		if p.installErr != nil {
			p.tel.ReportBroken(report_browser_install, p.installErr)
		}
	})
	return p.installErr
}

// Acquire launches a new browser with a single page, it is torn down by
// the returned session's Close.
func (p *Provider) Acquire(ctx context.Context) (letterboxd.Session, error) {
	err := p.ensureDriver()
	if err != nil {
		return nil, fmt.Errorf("install playwright: %w", err)
	}

	instance, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launch := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(p.opts.Headless),
	}
	if p.opts.ExecutablePath != "" {
		launch.ExecutablePath = pw.String(p.opts.ExecutablePath)
	}
	browser, err := instance.Chromium.Launch(launch)
	if err != nil {
		instance.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	pageOpts := pw.BrowserNewPageOptions{}
	if p.opts.UserAgent != "" {
		pageOpts.UserAgent = pw.String(p.opts.UserAgent)
	}
	page, err := browser.NewPage(pageOpts)
	if err != nil {
		browser.Close()
		instance.Stop()
		return nil, fmt.Errorf("create page: %w", err)
	}
	page.SetDefaultTimeout(float64(p.opts.Timeout.Milliseconds()))

	p.tel.ReportDebug("browser session started", p.opts.Headless)

	return &session{
		opts:     p.opts,
		baseUrl:  p.baseUrl,
		tel:      p.tel,
		instance: instance,
		browser:  browser,
		page:     page,
	}, nil
}

type session struct {
	opts    Options
	baseUrl *url.URL
	tel     telemetry.API

	instance *pw.Playwright
	browser  pw.Browser
	page     pw.Page
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func backendError(err error) error {
	return fmt.Errorf("%w - %w", letterboxd.ErrBackendUnavailable, err)
}

func (s *session) FetchPage(ctx context.Context, pageUrl string, contentType letterboxd.ContentType) (string, error) {
	err := letterboxd.ValidateURL(s.baseUrl, pageUrl, contentType)
	if err != nil {
		return "", err
	}
	err = ctx.Err()
	if err != nil {
		return "", backendError(err)
	}
	if s.page == nil {
		return "", backendError(fmt.Errorf("session is closed"))
	}

	// playwright calls do not take a context, closing the page is what
	// interrupts them.
	page := s.page
	stop := context.AfterFunc(ctx, func() {
		page.Close()
	})
	defer stop()

	res, err := page.Goto(pageUrl, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateNetworkidle,
	})
	if ctx.Err() != nil {
		return "", backendError(ctx.Err())
	}
	if err != nil {
		s.tel.ReportWarning(report_browser_fetch, err, pageUrl)
		return "", backendError(err)
	}
	if res != nil && res.Status() == http.StatusNotFound {
		return "", letterboxd.ErrPageNotFound
	}

	_, err = page.Evaluate(scrollScript, []int{
		s.opts.ScrollStep,
		int(s.opts.ScrollInterval.Milliseconds()),
	})
	if ctx.Err() != nil {
		return "", backendError(ctx.Err())
	}
	if err != nil {
		s.tel.ReportWarning(report_browser_fetch, fmt.Errorf("scroll: %w", err), pageUrl)
		return "", backendError(err)
	}
	err = sleep(ctx, s.opts.SettleDelay)
	if err != nil {
		return "", backendError(err)
	}

	markup, err := page.Content()
	if err != nil {
		return "", backendError(err)
	}
	return markup, nil
}

func (s *session) Close() error {
	var errs []error
	if s.page != nil {
		errs = append(errs, s.page.Close())
		s.page = nil
	}
	if s.browser != nil {
		errs = append(errs, s.browser.Close())
		s.browser = nil
	}
	if s.instance != nil {
		errs = append(errs, s.instance.Stop())
		s.instance = nil
	}
	err := errors.Join(errs...)
	if err != nil {
		s.tel.ReportWarning(report_browser_close, err)
	}
	return err
}
