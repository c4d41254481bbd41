package letterboxd

import (
	"context"
	"fmt"
	"ltbxd-scraper/internal/components/assert"
	"ltbxd-scraper/internal/components/telemetry"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	report_scraper_query       = "scraper.query"
	report_scraper_scrape_page = "scraper.scrape-page"
	report_scraper_session     = "scraper.session"
	report_scraper_build_item  = "scraper.build-item"
	report_scraper_lookup_id   = "scraper.lookup-id"
	report_scraper_pages       = "scraper.pages"
	report_scraper_items       = "scraper.items"
)

const DEFAULT_MAX_PAGES = 1000

// Scraper runs paginated queries against letterboxd.
type Scraper struct {
	baseUrl  *url.URL
	sessions SessionProvider
	ids      IDLookup
	usage    UsageAPI
	tel      telemetry.API
	maxPages int
}

type ScraperOption func(s *Scraper)

// WithIDLookup sets what resolves IMDb ids, without one ids are always null.
func WithIDLookup(ids IDLookup) ScraperOption {
	return func(s *Scraper) {
		s.ids = ids
	}
}

// WithUsage gates every query through usage.
func WithUsage(usage UsageAPI) ScraperOption {
	return func(s *Scraper) {
		s.usage = usage
	}
}

// WithMaxPages bounds the number of pages a single query may fetch.
func WithMaxPages(n int) ScraperOption {
	assert.Positive("max pages", n)
	return func(s *Scraper) {
		s.maxPages = n
	}
}

func NewScraper(baseUrl string, sessions SessionProvider, tel telemetry.API, options ...ScraperOption) (Scraper, error) {
	assert.NotEmptyStr(baseUrl)
	assert.NotNil(sessions)
	assert.NotNil(tel)

	parsed, err := url.Parse(strings.TrimSuffix(baseUrl, "/"))
	if err != nil {
		return Scraper{}, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return Scraper{}, fmt.Errorf("base url must be absolute: %q", baseUrl)
	}

	s := Scraper{
		baseUrl:  parsed,
		sessions: sessions,
		usage:    noopUsage{},
		tel:      telemetry.NewScopedAPI("letterboxd", tel),
		maxPages: DEFAULT_MAX_PAGES,
	}
	for _, opt := range options {
		opt(&s)
	}
	if s.usage == nil {
		s.usage = noopUsage{}
	}
	return s, nil
}

func (s Scraper) BaseUrl() *url.URL {
	copied := *s.baseUrl
	return &copied
}

func (s Scraper) lookupID(ctx context.Context, title string) *string {
	if s.ids == nil || title == "" {
		return nil
	}
	id, err := s.ids.LookupID(ctx, title)
	if err != nil {
		s.tel.ReportWarning(report_scraper_lookup_id, err, title)
		return nil
	}
	if id == "" {
		return nil
	}
	return &id
}

func (s Scraper) sitePath(segments ...string) string {
	return fmt.Sprintf("%s/%s/", s.baseUrl.String(), strings.Join(segments, "/"))
}

var watchlistKind = pageKind[Film]{
	name:         "watchlist",
	contentType:  CONTENT_WATCHLIST,
	itemSelector: selector_film_container,
	startUrl: func(s Scraper, username string) string {
		return s.sitePath(url.PathEscape(username), "watchlist")
	},
	build: Scraper.buildFilm,
}

var listFilmsKind = pageKind[Film]{
	name:         "list_films",
	contentType:  CONTENT_LIST,
	itemSelector: selector_film_container,
	startUrl: func(_ Scraper, listUrl string) string {
		return listUrl
	},
	build: Scraper.buildFilm,
}

var userListsKind = pageKind[ListCover]{
	name:         "user_lists",
	contentType:  CONTENT_LISTS,
	itemSelector: selector_list_container,
	startUrl: func(s Scraper, username string) string {
		return s.sitePath(url.PathEscape(username), "lists")
	},
	build: Scraper.buildListCover,
}

var searchKind = pageKind[SearchFilm]{
	name:         "search",
	contentType:  CONTENT_SEARCH,
	itemSelector: selector_search_container,
	startUrl: func(s Scraper, title string) string {
		words := strings.Fields(title)
		for i, w := range words {
			words[i] = url.PathEscape(w)
		}
		return s.sitePath("search", "films", strings.Join(words, "+"))
	},
	build: Scraper.buildSearchFilm,
}

// runQuery is the shared body of every public query.
func runQuery[T any](ctx context.Context, s Scraper, kind pageKind[T], input string, options Options) QueryResult[T] {
	input = strings.TrimSpace(input)
	if input == "" {
		return QueryResult[T]{
			Status:       STATUS_FAILED,
			Data:         []T{},
			ErrorMessage: ErrMissingParameters.Error(),
			Err:          ErrMissingParameters,
		}
	}

	finish, err := s.usage.Start()
	if err != nil {
		s.tel.ReportWarning(report_scraper_query, err, kind.name)
		return QueryResult[T]{
			Status:       STATUS_ERROR,
			Data:         []T{},
			ErrorMessage: err.Error(),
			Err:          err,
		}
	}

	settings := options.Resolve()
	startUrl := kind.startUrl(s, input)
	queryId := uuid.NewString()
	s.tel.ReportDebug("query start", queryId, kind.name, startUrl, settings.Max)

	items, err := paginate(ctx, s, kind, startUrl, settings)
	finish(err == nil)

	s.tel.ReportCount(report_scraper_items, int64(len(items)))
	if err != nil {
		s.tel.ReportDebug("query failed", queryId, kind.name, len(items), err)
		return QueryResult[T]{
			Status:       STATUS_ERROR,
			Data:         items,
			ErrorMessage: err.Error(),
			Err:          err,
		}
	}
	s.tel.ReportDebug("query done", queryId, kind.name, len(items))
	return QueryResult[T]{
		Status: STATUS_OK,
		Data:   items,
	}
}

// GetWatchlist returns the films on a user's watchlist.
func (s Scraper) GetWatchlist(ctx context.Context, query UserQuery) QueryResult[Film] {
	return runQuery(ctx, s, watchlistKind, query.Username, query.Options)
}

// GetListFilms returns the films of the list at query.Url.
func (s Scraper) GetListFilms(ctx context.Context, query ListQuery) QueryResult[Film] {
	return runQuery(ctx, s, listFilmsKind, query.Url, query.Options)
}

// GetUserLists returns the lists created by a user.
func (s Scraper) GetUserLists(ctx context.Context, query UserQuery) QueryResult[ListCover] {
	return runQuery(ctx, s, userListsKind, query.Username, query.Options)
}

// SearchFilm returns the film search results for a title.
func (s Scraper) SearchFilm(ctx context.Context, query SearchQuery) QueryResult[SearchFilm] {
	return runQuery(ctx, s, searchKind, query.Title, query.Options)
}
