package letterboxd

import (
	"context"
	"fmt"
	"ltbxd-scraper/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("ltbxd.scrapers.letterboxd")

// pageKind describes one kind of paginated page: where a query starts,
// what the fetcher should validate against, and how items are built.
type pageKind[T any] struct {
	name         string
	contentType  ContentType
	itemSelector string
	startUrl     func(s Scraper, input string) string
	build        func(s Scraper, ctx context.Context, fragment *goquery.Selection, settings Settings) T
}

// sessionHandle lazily acquires a single Session and reuses it for every page of a query.
type sessionHandle struct {
	provider SessionProvider
	session  Session
}

func (h *sessionHandle) get(ctx context.Context) (Session, error) {
	if h.session != nil {
		return h.session, nil
	}
	session, err := h.provider.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("provider returned no session")
	}
	h.session = session
	return session, nil
}

func (h *sessionHandle) release() error {
	if h.session == nil {
		return nil
	}
	err := h.session.Close()
	h.session = nil
	return err
}

// scrapePage scrapes a single page, taken is the number of items already
// collected by the query so the item cap can be applied across pages.
func scrapePage[T any](
	ctx context.Context,
	s Scraper,
	handle *sessionHandle,
	kind pageKind[T],
	url string,
	settings Settings,
	taken int,
) (result PageResult[T]) {
	ctx, span := tracer.Start(ctx, "scrapePage")
	span.SetAttributes(
		attribute.String("kind", kind.name),
		attribute.String("url", url),
		attribute.Int("taken", taken),
	)
	defer func() {
		if r := recover(); r != nil {
			s.tel.ReportBroken(report_scraper_scrape_page, fmt.Errorf("panic: %v", r), kind.name, url)
			result = PageResult[T]{Err: fmt.Errorf("%w: %v", ErrSystem, r)}
		}
		if result.Err != nil {
			span.RecordError(result.Err)
			span.SetStatus(codes.Error, result.Err.Error())
		}
		span.SetAttributes(attribute.Int("items", len(result.Items)))
		span.End()
	}()

	session, err := handle.get(ctx)
	if err != nil {
		s.tel.ReportBroken(report_scraper_session, err, kind.name)
		return PageResult[T]{Err: fmt.Errorf("%w - %s", ErrBackendUnavailable, err.Error())}
	}

	markup, err := session.FetchPage(ctx, url, kind.contentType)
	if err != nil {
		s.tel.ReportWarning(report_scraper_scrape_page, err, kind.name, url)
		return PageResult[T]{Err: err}
	}
	if markup == "" {
		s.tel.ReportWarning(report_scraper_scrape_page, ErrMissingContent, kind.name, url)
		return PageResult[T]{Err: ErrMissingContent}
	}

	extracted, err := extract(markup, kind.itemSelector)
	if err != nil {
		s.tel.ReportBroken(report_scraper_scrape_page, fmt.Errorf("parse: %w", err), url)
		return PageResult[T]{Err: fmt.Errorf("%w: %s", ErrSystem, err.Error())}
	}

	items := []T{}
	capped := settings.capped(taken)
	for fragment := range extracted.fragments {
		if capped {
			break
		}
		items = append(items, kind.build(s, ctx, fragment, settings))
		capped = settings.capped(taken + len(items))
	}

	if capped || extracted.nextPageLink == "" {
		return PageResult[T]{Items: items}
	}

	next, err := htmlutil.ResolveURL(s.baseUrl, extracted.nextPageLink)
	if err != nil {
		s.tel.ReportBroken(report_scraper_scrape_page, fmt.Errorf("resolve next page: %w", err), extracted.nextPageLink)
		return PageResult[T]{Err: fmt.Errorf("%w: %s", ErrSystem, err.Error())}
	}
	return PageResult[T]{Items: items, NextPageUrl: next}
}
