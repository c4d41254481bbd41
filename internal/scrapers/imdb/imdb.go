// Package imdb resolves film titles to IMDb ids using IMDb's public search suggestion endpoint.
package imdb

import (
	"context"
	"encoding/json"
	"fmt"
	"ltbxd-scraper/internal/components/assert"
	"ltbxd-scraper/internal/components/telemetry"
	"ltbxd-scraper/lib/textutil"
	"net/url"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const DEFAULT_BASE_URL = "https://v3.sg.media-imdb.com"

const (
	report_client_lookup_id = "client.lookup-id"
)

// minimum Jaro-Winkler similarity between the requested title and a candidate
const minSimilarity = 0.85

var ErrNoMatch = fmt.Errorf("no matching imdb title")

var filmKinds = map[string]bool{
	"movie":   true,
	"tvMovie": true,
	"video":   true,
	"short":   true,
}

type suggestion struct {
	Id    string `json:"id"`
	Label string `json:"l"`
	Kind  string `json:"qid"`
	Year  int    `json:"y"`
}

type suggestionResponse struct {
	Results []suggestion `json:"d"`
}

type Options struct {
	BaseUrl string
	// RequestsPerSecond defaults to 5.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// Client looks up IMDb ids, it is safe for concurrent use.
type Client struct {
	http *resty.Client
	tel  telemetry.API
}

func NewClient(opts Options, tel telemetry.API) (Client, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("imdb", tel)

	if opts.BaseUrl == "" {
		opts.BaseUrl = DEFAULT_BASE_URL
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 10
	}
	_, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return Client{}, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(strings.TrimSuffix(opts.BaseUrl, "/"))
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("accept", "application/json")

	rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})

	telemetry.InstrumentResty(httpClient, tel, "ltbxd.scrapers.imdb")

	return Client{http: httpClient, tel: tel}, nil
}

func suggestionPath(title string) string {
	query := strings.ToLower(strings.TrimSpace(title))
	first := "x"
	for _, r := range query {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			first = string(r)
		}
		break
	}
	return fmt.Sprintf("/suggestion/%s/%s.json", first, url.PathEscape(query))
}

// bestMatch returns the film candidate whose label is closest to title.
func bestMatch(title string, candidates []suggestion) (suggestion, bool) {
	target := textutil.NormalizeTitle(title)

	var best suggestion
	bestScore := 0.0
	for _, c := range candidates {
		if !strings.HasPrefix(c.Id, "tt") {
			continue
		}
		if c.Kind != "" && !filmKinds[c.Kind] {
			continue
		}
		score := matchr.JaroWinkler(target, textutil.NormalizeTitle(c.Label), false)
		if score > bestScore {
			best = c
			bestScore = score
		}
	}
	return best, bestScore >= minSimilarity
}

// LookupID returns the IMDb id of the film best matching title.
func (c Client) LookupID(ctx context.Context, title string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", ErrNoMatch
	}
	endpoint := suggestionPath(title)

	res, err := c.http.R().
		SetContext(ctx).
		Get(endpoint)
	if err != nil {
		c.tel.ReportBroken(
			report_client_lookup_id,
			fmt.Errorf("fetch: %w", err),
			endpoint,
		)
		return "", err
	}
	if res.IsError() {
		err := fmt.Errorf("unexpected status: %s", res.Status())
		c.tel.ReportWarning(report_client_lookup_id, err, endpoint)
		return "", err
	}

	var body suggestionResponse
	err = json.Unmarshal(res.Body(), &body)
	if err != nil {
		c.tel.ReportBroken(
			report_client_lookup_id,
			fmt.Errorf("parse: %w", err),
			endpoint,
		)
		return "", err
	}

	match, ok := bestMatch(title, body.Results)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNoMatch, title)
	}
	c.tel.ReportDebug("matched imdb title", title, match.Id, match.Label, match.Year)
	return match.Id, nil
}
