package letterboxd

import (
	"context"
	"fmt"
)

// cursor is the state of a query between pages.
type cursor[T any] struct {
	url     string
	items   []T
	visited map[string]struct{}
	pages   int
	err     error
}

// paginate drives scrapePage from startUrl until there is no next page, the
// item cap is reached or a page fails. Items collected before a failure are kept.
func paginate[T any](ctx context.Context, s Scraper, kind pageKind[T], startUrl string, settings Settings) ([]T, error) {
	handle := &sessionHandle{provider: s.sessions}
	defer func() {
		err := handle.release()
		if err != nil {
			s.tel.ReportWarning(report_scraper_session, fmt.Errorf("release: %w", err), kind.name)
		}
	}()

	c := cursor[T]{
		url:     startUrl,
		items:   []T{},
		visited: map[string]struct{}{},
	}

	for c.url != "" {
		if c.pages >= s.maxPages {
			c.err = fmt.Errorf("%w: stopped after %d pages", ErrPageLimit, c.pages)
			break
		}
		c.visited[c.url] = struct{}{}

		page := scrapePage(ctx, s, handle, kind, c.url, settings, len(c.items))
		c.pages++
		c.items = append(c.items, page.Items...)

		if settings.capped(len(c.items)) {
			c.items = c.items[:settings.Max]
			break
		}
		if page.Err != nil {
			c.err = page.Err
			break
		}
		if _, seen := c.visited[page.NextPageUrl]; seen {
			c.err = fmt.Errorf("%w: %s", ErrPaginationLoop, page.NextPageUrl)
			break
		}
		c.url = page.NextPageUrl
	}

	s.tel.ReportCount(report_scraper_pages, int64(c.pages))
	return c.items, c.err
}
