package letterboxd

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const (
	watchlistPage1 = "https://letterboxd.com/dave/watchlist/"
	watchlistPage2 = "https://letterboxd.com/dave/watchlist/page/2/"
	watchlistPage3 = "https://letterboxd.com/dave/watchlist/page/3/"
)

func twoPageWatchlist() *fakeSite {
	return &fakeSite{pages: map[string]fakePage{
		watchlistPage1: {markup: filmsPage([]fixtureFilm{film(1), film(2)}, "/dave/watchlist/page/2/")},
		watchlistPage2: {markup: filmsPage([]fixtureFilm{film(3), film(4)}, "")},
	}}
}

func threePageWatchlist() *fakeSite {
	return &fakeSite{pages: map[string]fakePage{
		watchlistPage1: {markup: filmsPage([]fixtureFilm{film(1), film(2)}, "/dave/watchlist/page/2/")},
		watchlistPage2: {markup: filmsPage([]fixtureFilm{film(3), film(4)}, "/dave/watchlist/page/3/")},
		watchlistPage3: {markup: filmsPage([]fixtureFilm{film(5), film(6)}, "")},
	}}
}

func names(films []Film) []string {
	out := make([]string, len(films))
	for i, f := range films {
		out[i] = f.Name
	}
	return out
}

func TestWatchlistFollowsPagination(t *testing.T) {
	site := twoPageWatchlist()
	s := newTestScraper(t, site)

	res := s.GetWatchlist(context.Background(), UserQuery{
		Username: "dave",
		Options:  Options{IMDBID: Bool(false)},
	})

	require.Equal(t, STATUS_OK, res.Status)
	require.Empty(t, res.ErrorMessage)
	require.NoError(t, res.Err)
	require.Equal(t, []string{"Film 1", "Film 2", "Film 3", "Film 4"}, names(res.Data))
	require.Equal(t, []string{watchlistPage1, watchlistPage2}, site.Fetches())

	first := res.Data[0]
	require.Equal(t, "film-1", first.Slug)
	require.Equal(t, FILM_TYPE_MOVIE, first.Type)
	require.NotNil(t, first.Poster)
	require.Equal(t, "https://a.ltrbxd.com/poster-1.jpg", *first.Poster)
	require.Nil(t, first.ID)
}

func TestSessionIsReusedAcrossPages(t *testing.T) {
	site := threePageWatchlist()
	s := newTestScraper(t, site)

	res := s.GetWatchlist(context.Background(), UserQuery{Username: "dave"})
	require.Equal(t, STATUS_OK, res.Status)
	require.Len(t, res.Data, 6)
	require.Equal(t, 1, site.acquired)
	require.Equal(t, 1, site.closed)
}

func TestMaxCap(t *testing.T) {
	testCases := []struct {
		max         int
		expected    []string
		fetchedUrls []string
	}{
		{
			max:         1,
			expected:    []string{"Film 1"},
			fetchedUrls: []string{watchlistPage1},
		},
		{
			max:         2,
			expected:    []string{"Film 1", "Film 2"},
			fetchedUrls: []string{watchlistPage1},
		},
		{
			max:         3,
			expected:    []string{"Film 1", "Film 2", "Film 3"},
			fetchedUrls: []string{watchlistPage1, watchlistPage2},
		},
		{
			max:         4,
			expected:    []string{"Film 1", "Film 2", "Film 3", "Film 4"},
			fetchedUrls: []string{watchlistPage1, watchlistPage2},
		},
		{
			max:         10,
			expected:    []string{"Film 1", "Film 2", "Film 3", "Film 4"},
			fetchedUrls: []string{watchlistPage1, watchlistPage2},
		},
		{
			max:         0,
			expected:    []string{"Film 1", "Film 2", "Film 3", "Film 4"},
			fetchedUrls: []string{watchlistPage1, watchlistPage2},
		},
	}

	for _, test := range testCases {
		t.Run(fmt.Sprintf("max=%d", test.max), func(t *testing.T) {
			site := twoPageWatchlist()
			s := newTestScraper(t, site)

			res := s.GetWatchlist(context.Background(), UserQuery{
				Username: "dave",
				Options:  Options{Max: test.max},
			})
			require.Equal(t, STATUS_OK, res.Status)
			require.Equal(t, test.expected, names(res.Data))
			require.Equal(t, test.fetchedUrls, site.Fetches())
		})
	}
}

func TestCapIsAppliedAcrossPages(t *testing.T) {
	site := threePageWatchlist()
	s := newTestScraper(t, site)

	handle := &sessionHandle{provider: site}
	defer handle.release()

	settings := Options{Max: 3}.Resolve()
	page := scrapePage(context.Background(), s, handle, watchlistKind, watchlistPage2, settings, 2)
	require.NoError(t, page.Err)
	require.Equal(t, []string{"Film 3"}, names(page.Items))
	require.Empty(t, page.NextPageUrl)

	page = scrapePage(context.Background(), s, handle, watchlistKind, watchlistPage2, settings, 3)
	require.NoError(t, page.Err)
	require.Empty(t, page.Items)
	require.Empty(t, page.NextPageUrl)
}

func TestErrorOnSecondPageKeepsFirstPage(t *testing.T) {
	site := threePageWatchlist()
	site.pages[watchlistPage2] = fakePage{err: ErrPageNotFound}
	usage := &fakeUsage{}
	s := newTestScraper(t, site, WithUsage(usage))

	res := s.GetWatchlist(context.Background(), UserQuery{Username: "dave"})

	require.Equal(t, STATUS_ERROR, res.Status)
	require.Equal(t, []string{"Film 1", "Film 2"}, names(res.Data))
	require.Equal(t, ErrPageNotFound.Error(), res.ErrorMessage)
	require.ErrorIs(t, res.Err, ErrPageNotFound)
	require.Equal(t, []string{watchlistPage1, watchlistPage2}, site.Fetches())
	require.Equal(t, []bool{false}, usage.finished)
}

func TestMissingInput(t *testing.T) {
	site := twoPageWatchlist()
	usage := &fakeUsage{}
	s := newTestScraper(t, site, WithUsage(usage))
	ctx := context.Background()

	results := []QueryResult[Film]{
		s.GetWatchlist(ctx, UserQuery{}),
		s.GetWatchlist(ctx, UserQuery{Username: "   "}),
		s.GetListFilms(ctx, ListQuery{}),
	}
	lists := s.GetUserLists(ctx, UserQuery{})
	search := s.SearchFilm(ctx, SearchQuery{Title: "\t"})

	for _, res := range results {
		require.Equal(t, STATUS_FAILED, res.Status)
		require.Empty(t, res.Data)
		require.Equal(t, "INCOMPLETE PARAMETERS", res.ErrorMessage)
		require.ErrorIs(t, res.Err, ErrMissingParameters)
	}
	require.Equal(t, STATUS_FAILED, lists.Status)
	require.Empty(t, lists.Data)
	require.Equal(t, STATUS_FAILED, search.Status)
	require.Empty(t, search.Data)

	require.Empty(t, site.Fetches())
	require.Zero(t, site.acquired)
	require.Zero(t, usage.started)
}

func TestOptionsDefaulting(t *testing.T) {
	site := twoPageWatchlist()
	lookup := &fakeLookup{ids: map[string]string{"Film 1": "tt0000001"}}
	s := newTestScraper(t, site, WithIDLookup(lookup))

	options := Options{IMDBID: Bool(false)}
	settings := options.Resolve()
	require.False(t, settings.IMDBID)
	require.True(t, settings.Poster)
	require.True(t, settings.Posters)
	require.True(t, settings.Summary)
	require.True(t, settings.Amount)
	require.True(t, settings.AlternativeTitles)
	require.True(t, settings.Director)
	require.Zero(t, settings.Max)

	res := s.GetWatchlist(context.Background(), UserQuery{Username: "dave", Options: options})
	require.Equal(t, STATUS_OK, res.Status)

	require.Nil(t, options.Poster)
	require.NotNil(t, options.IMDBID)
	require.False(t, *options.IMDBID)

	for _, f := range res.Data {
		require.NotNil(t, f.Poster)
		require.Nil(t, f.ID)
	}
	require.Empty(t, lookup.calls)
}

func TestIDLookup(t *testing.T) {
	site := twoPageWatchlist()
	lookup := &fakeLookup{ids: map[string]string{
		"Film 1": "tt0000001",
		"Film 3": "tt0000003",
	}}
	s := newTestScraper(t, site, WithIDLookup(lookup))

	res := s.GetWatchlist(context.Background(), UserQuery{
		Username: "dave",
		Options:  Options{Poster: Bool(false)},
	})
	require.Equal(t, STATUS_OK, res.Status)
	require.Equal(t, []string{"Film 1", "Film 2", "Film 3", "Film 4"}, lookup.calls)

	var ids []*string
	for _, f := range res.Data {
		require.Nil(t, f.Poster)
		ids = append(ids, f.ID)
	}
	require.Equal(t, "tt0000001", *ids[0])
	require.Nil(t, ids[1])
	require.Equal(t, "tt0000003", *ids[2])
	require.Nil(t, ids[3])
}

func TestIdempotence(t *testing.T) {
	site := twoPageWatchlist()
	lookup := &fakeLookup{ids: map[string]string{"Film 2": "tt0000002"}}
	s := newTestScraper(t, site, WithIDLookup(lookup))

	query := UserQuery{Username: "dave", Options: Options{Max: 3}}
	first := s.GetWatchlist(context.Background(), query)
	second := s.GetWatchlist(context.Background(), query)

	diff := cmp.Diff(first.Data, second.Data)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, first.Status, second.Status)
}

func TestPageErrors(t *testing.T) {
	testCases := []struct {
		name     string
		site     *fakeSite
		expected error
		message  string
	}{
		{
			name:     "backend unavailable",
			site:     &fakeSite{acquireErr: errors.New("chromium did not start")},
			expected: ErrBackendUnavailable,
			message:  "SCRAPPER METHOD FAILED - chromium did not start",
		},
		{
			name: "missing content",
			site: &fakeSite{pages: map[string]fakePage{
				watchlistPage1: {markup: ""},
			}},
			expected: ErrMissingContent,
			message:  "NO HTML CONTENT FOUND",
		},
		{
			name: "not valid url",
			site: &fakeSite{pages: map[string]fakePage{
				watchlistPage1: {err: ErrNotValidURL},
			}},
			expected: ErrNotValidURL,
			message:  "YOU NEED TO SUBMIT A VALID LETTERBOXD URL",
		},
		{
			name: "panic",
			site: &fakeSite{pages: map[string]fakePage{
				watchlistPage1: {panics: true},
			}},
			expected: ErrSystem,
			message:  "THERE WAS A SYSTEM ERROR PROCESSING THE REQUEST: selector exploded",
		},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			s := newTestScraper(t, test.site)
			res := s.GetWatchlist(context.Background(), UserQuery{Username: "dave"})
			require.Equal(t, STATUS_ERROR, res.Status)
			require.Empty(t, res.Data)
			require.ErrorIs(t, res.Err, test.expected)
			require.Equal(t, test.message, res.ErrorMessage)
		})
	}
}

func TestPaginationGuards(t *testing.T) {
	t.Run("loop", func(t *testing.T) {
		site := &fakeSite{pages: map[string]fakePage{
			watchlistPage1: {markup: filmsPage([]fixtureFilm{film(1)}, "/dave/watchlist/page/2/")},
			watchlistPage2: {markup: filmsPage([]fixtureFilm{film(2)}, "/dave/watchlist/")},
		}}
		s := newTestScraper(t, site)

		res := s.GetWatchlist(context.Background(), UserQuery{Username: "dave"})
		require.Equal(t, STATUS_ERROR, res.Status)
		require.ErrorIs(t, res.Err, ErrPaginationLoop)
		require.Equal(t, []string{"Film 1", "Film 2"}, names(res.Data))
		require.Len(t, site.Fetches(), 2)
	})

	t.Run("page limit", func(t *testing.T) {
		site := threePageWatchlist()
		s := newTestScraper(t, site, WithMaxPages(2))

		res := s.GetWatchlist(context.Background(), UserQuery{Username: "dave"})
		require.Equal(t, STATUS_ERROR, res.Status)
		require.ErrorIs(t, res.Err, ErrPageLimit)
		require.Equal(t, []string{"Film 1", "Film 2", "Film 3", "Film 4"}, names(res.Data))
		require.Len(t, site.Fetches(), 2)
	})
}

func TestUsageGate(t *testing.T) {
	site := twoPageWatchlist()
	denied := errors.New("Rate limit: 6 requests per hour")
	usage := &fakeUsage{deny: denied}
	s := newTestScraper(t, site, WithUsage(usage))

	res := s.GetWatchlist(context.Background(), UserQuery{Username: "dave"})
	require.Equal(t, STATUS_ERROR, res.Status)
	require.Empty(t, res.Data)
	require.Equal(t, denied.Error(), res.ErrorMessage)
	require.Empty(t, site.Fetches())
	require.Zero(t, usage.started)

	usage.deny = nil
	res = s.GetWatchlist(context.Background(), UserQuery{Username: "dave"})
	require.Equal(t, STATUS_OK, res.Status)
	require.Equal(t, 1, usage.started)
	require.Equal(t, []bool{true}, usage.finished)
}

func TestStartUrls(t *testing.T) {
	site := &fakeSite{pages: map[string]fakePage{}}
	s := newTestScraper(t, site)
	ctx := context.Background()

	s.GetUserLists(ctx, UserQuery{Username: "dave"})
	s.SearchFilm(ctx, SearchQuery{Title: "  the   thing "})
	s.GetListFilms(ctx, ListQuery{Url: "https://letterboxd.com/dave/list/best/"})

	require.Equal(t, []string{
		"https://letterboxd.com/dave/lists/",
		"https://letterboxd.com/search/films/the+thing/",
		"https://letterboxd.com/dave/list/best/",
	}, site.Fetches())
}
