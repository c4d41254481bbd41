package letterboxd

import (
	"context"
	"fmt"
	"ltbxd-scraper/internal/components/telemetry"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testBaseUrl = "https://letterboxd.com"

type fixtureFilm struct {
	slug   string
	title  string
	poster string
}

func nextLink(next string) string {
	if next == "" {
		return ""
	}
	return fmt.Sprintf(`<div class="pagination"><a class="next" href="%s">Older</a></div>`, next)
}

func filmsPage(films []fixtureFilm, next string) string {
	var b strings.Builder
	b.WriteString(`<html><body><ul class="poster-list">`)
	for _, f := range films {
		fmt.Fprintf(
			&b,
			`<li class="poster-container"><div class="film-poster" data-film-slug="%s"><div><img src="%s" alt="%s"/><a href="/film/%s/" data-original-title="%s"></a></div></div></li>`,
			f.slug, f.poster, f.title, f.slug, f.title,
		)
	}
	b.WriteString(`</ul>`)
	b.WriteString(nextLink(next))
	b.WriteString(`</body></html>`)
	return b.String()
}

func film(n int) fixtureFilm {
	return fixtureFilm{
		slug:   fmt.Sprintf("film-%d", n),
		title:  fmt.Sprintf("Film %d (20%02d)", n, n),
		poster: fmt.Sprintf("https://a.ltrbxd.com/poster-%d.jpg", n),
	}
}

type fakePage struct {
	markup string
	err    error
	panics bool
}

type fakeSite struct {
	mutex      sync.Mutex
	pages      map[string]fakePage
	fetches    []string
	acquired   int
	closed     int
	acquireErr error
}

func (f *fakeSite) Acquire(ctx context.Context) (Session, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.acquired++
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	return fakeSession{site: f}, nil
}

func (f *fakeSite) Fetches() []string {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return append([]string(nil), f.fetches...)
}

type fakeSession struct {
	site *fakeSite
}

func (s fakeSession) FetchPage(ctx context.Context, url string, contentType ContentType) (string, error) {
	s.site.mutex.Lock()
	s.site.fetches = append(s.site.fetches, url)
	page, ok := s.site.pages[url]
	s.site.mutex.Unlock()

	if !ok {
		return "", ErrPageNotFound
	}
	if page.panics {
		panic("selector exploded")
	}
	return page.markup, page.err
}

func (s fakeSession) Close() error {
	s.site.mutex.Lock()
	s.site.closed++
	s.site.mutex.Unlock()
	return nil
}

type fakeLookup struct {
	ids   map[string]string
	calls []string
}

func (l *fakeLookup) LookupID(ctx context.Context, title string) (string, error) {
	l.calls = append(l.calls, title)
	id, ok := l.ids[title]
	if !ok {
		return "", fmt.Errorf("no match for %q", title)
	}
	return id, nil
}

type fakeUsage struct {
	deny     error
	started  int
	finished []bool
}

func (u *fakeUsage) Start() (func(bool), error) {
	if u.deny != nil {
		return nil, u.deny
	}
	u.started++
	return func(success bool) {
		u.finished = append(u.finished, success)
	}, nil
}

func newTestScraper(t testing.TB, site *fakeSite, options ...ScraperOption) Scraper {
	s, err := NewScraper(testBaseUrl, site, telemetry.NewTestingAPI(t), options...)
	require.NoError(t, err)
	return s
}
