package imdb

import (
	"context"
	"fmt"
	"ltbxd-scraper/internal/components/telemetry"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

const theThingResponse = `{
	"d": [
		{"id": "nm0000689", "l": "The Thing Man", "s": "Actor"},
		{"id": "tt0084787", "l": "The Thing", "qid": "movie", "y": 1982},
		{"id": "tt0905372", "l": "The Thing", "qid": "movie", "y": 2011},
		{"id": "tt0096694", "l": "The Thing", "qid": "tvSeries", "y": 1990}
	],
	"q": "the thing",
	"v": 1
}`

func TestSuggestionPath(t *testing.T) {
	require.Equal(t, "/suggestion/t/the%20thing.json", suggestionPath(" The Thing "))
	require.Equal(t, "/suggestion/2/2001:%20a%20space%20odyssey.json", suggestionPath("2001: A Space Odyssey"))
	require.Equal(t, "/suggestion/x/%C3%A9t%C3%A9.json", suggestionPath("Été"))
}

func TestBestMatch(t *testing.T) {
	candidates := []suggestion{
		{Id: "nm0000001", Label: "Alien"},
		{Id: "tt0078748", Label: "Alien", Kind: "movie", Year: 1979},
		{Id: "tt0090605", Label: "Aliens", Kind: "movie", Year: 1986},
		{Id: "tt2316204", Label: "Alien: Covenant", Kind: "movie", Year: 2017},
	}

	match, ok := bestMatch("alien", candidates)
	require.True(t, ok)
	require.Equal(t, "tt0078748", match.Id)

	match, ok = bestMatch("Aliens", candidates)
	require.True(t, ok)
	require.Equal(t, "tt0090605", match.Id)

	_, ok = bestMatch("Paddington", candidates)
	require.False(t, ok)

	_, ok = bestMatch("alien", nil)
	require.False(t, ok)
}

func TestLookupID(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.EscapedPath())
		switch r.URL.Path {
		case "/suggestion/t/the thing.json":
			w.Header().Set("content-type", "application/json")
			fmt.Fprint(w, theThingResponse)
		case "/suggestion/b/broken.json":
			fmt.Fprint(w, "{not json")
		default:
			w.Header().Set("content-type", "application/json")
			fmt.Fprint(w, `{"d": []}`)
		}
	}))
	defer server.Close()

	tel := telemetry.NewTestingAPI(t)
	client, err := NewClient(Options{BaseUrl: server.URL, RequestsPerSecond: 100}, tel)
	require.NoError(t, err)

	ctx := context.Background()

	id, err := client.LookupID(ctx, "The Thing")
	require.NoError(t, err)
	require.Equal(t, "tt0084787", id)
	require.Equal(t, "/suggestion/t/the%20thing.json", paths[0])

	_, err = client.LookupID(ctx, "Nothing Here")
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = client.LookupID(ctx, "broken")
	require.Error(t, err)

	_, err = client.LookupID(ctx, "   ")
	require.ErrorIs(t, err, ErrNoMatch)
	require.Len(t, paths, 3)
}

func TestLookupIDStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Options{BaseUrl: server.URL, RequestsPerSecond: 100}, telemetry.NewTestingAPI(t))
	require.NoError(t, err)

	_, err = client.LookupID(context.Background(), "Alien")
	require.ErrorContains(t, err, "503")
}
