// Package direct fetches letterboxd pages with plain http requests.
package direct

import (
	"context"
	"fmt"
	"ltbxd-scraper/internal/components/assert"
	"ltbxd-scraper/internal/components/telemetry"
	"ltbxd-scraper/internal/scrapers/letterboxd"
	"ltbxd-scraper/lib/restyutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DEFAULT_USER_AGENT = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

const (
	report_direct_fetch = "direct.fetch"
)

type Options struct {
	BaseUrl   string
	UserAgent string
	Timeout   time.Duration
	// MinInterval is the minimum time between two requests across all
	// sessions, defaults to 500ms. A negative value disables throttling.
	MinInterval time.Duration
	// CloudflareBypass swaps the transport for one that mimics a browser's TLS
	// and header fingerprint.
	CloudflareBypass bool
	// DumpDir, if set, is where every response is written for debugging.
	DumpDir string
}

// Provider hands out sessions that each own a resty client and cookie jar.
type Provider struct {
	opts    Options
	baseUrl *url.URL
	limiter *rate.Limiter
	dump    *restyutil.Recorder
	tel     telemetry.API
}

func NewProvider(opts Options, tel telemetry.API) (Provider, error) {
	assert.NotNil(tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = letterboxd.DEFAULT_BASE_URL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DEFAULT_USER_AGENT
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return Provider{}, err
	}

	if opts.MinInterval == 0 {
		opts.MinInterval = time.Millisecond * 500
	}
	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	var dump *restyutil.Recorder
	if opts.DumpDir != "" {
		output, err := restyutil.NewFilesystemOutput(opts.DumpDir)
		if err != nil {
			return Provider{}, err
		}
		dump = restyutil.NewRecorder(output, output.LastId())
	}

	return Provider{
		opts:    opts,
		baseUrl: baseUrl,
		limiter: rate.NewLimiter(limit, 1),
		dump:    dump,
		tel:     telemetry.NewScopedAPI("direct", tel),
	}, nil
}

func allowedHosts(baseUrl *url.URL) []string {
	host := baseUrl.Hostname()
	bare := strings.TrimPrefix(host, "www.")
	return []string{bare, "www." + bare}
}

func (p Provider) Acquire(ctx context.Context) (letterboxd.Session, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	if p.opts.CloudflareBypass {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}
	client.SetHeader("user-agent", p.opts.UserAgent)
	client.SetHeader("accept", "text/html,application/xhtml+xml")
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(allowedHosts(p.baseUrl)...))
	client.SetTimeout(p.opts.Timeout)
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return p.limiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(client, p.tel, "ltbxd.fetchers.direct")
	if p.dump != nil {
		p.dump.Attach(client)
	}

	return session{
		http:    client,
		baseUrl: p.baseUrl,
		tel:     p.tel,
	}, nil
}

type session struct {
	http    *resty.Client
	baseUrl *url.URL
	tel     telemetry.API
}

func (s session) FetchPage(ctx context.Context, pageUrl string, contentType letterboxd.ContentType) (string, error) {
	err := letterboxd.ValidateURL(s.baseUrl, pageUrl, contentType)
	if err != nil {
		return "", err
	}

	res, err := s.http.R().
		SetContext(ctx).
		Get(pageUrl)
	if err != nil {
		s.tel.ReportWarning(report_direct_fetch, err, pageUrl)
		return "", fmt.Errorf("%w - %s", letterboxd.ErrBackendUnavailable, err.Error())
	}
	if res.StatusCode() == http.StatusNotFound {
		return "", letterboxd.ErrPageNotFound
	}
	if res.IsError() {
		return "", fmt.Errorf("%w - unexpected status %s", letterboxd.ErrBackendUnavailable, res.Status())
	}
	return res.String(), nil
}

func (s session) Close() error {
	s.http.GetClient().CloseIdleConnections()
	return nil
}
