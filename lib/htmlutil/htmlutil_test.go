package htmlutil

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	base, err := url.Parse("https://letterboxd.com")
	require.NoError(t, err)

	testCases := []struct {
		ref    string
		expect string
	}{
		{ref: "/dave/watchlist/page/2/", expect: "https://letterboxd.com/dave/watchlist/page/2/"},
		{ref: "  /dave/lists/page/3/ ", expect: "https://letterboxd.com/dave/lists/page/3/"},
		{ref: "/search/films/the+thing/page/2/#top", expect: "https://letterboxd.com/search/films/the+thing/page/2/"},
		{ref: "/dave//list/./best/page/2/", expect: "https://letterboxd.com/dave/list/best/page/2/"},
		{ref: "https://LETTERBOXD.com:443/dave/watchlist/", expect: "https://letterboxd.com/dave/watchlist/"},
	}

	for _, test := range testCases {
		res, err := ResolveURL(base, test.ref)
		require.NoError(t, err)
		require.Equal(t, test.expect, res)
	}
}

func TestCleanText(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<p class="a">
			A   list of
			<b>films</b>
		</p>
		<p class="b"></p>
	`))
	require.NoError(t, err)

	require.Equal(t, "A list of films", CleanText(doc.Find("p.a")))
	require.Equal(t, "", CleanText(doc.Find("p.b")))
	require.Equal(t, "", CleanText(doc.Find("p.missing")))
}

func TestAttrOrNil(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<img src="/a.jpg"><img src="/b.jpg">`))
	require.NoError(t, err)

	src := AttrOrNil(doc.Find("img"), "src")
	require.NotNil(t, src)
	require.Equal(t, "/a.jpg", *src)
	require.Nil(t, AttrOrNil(doc.Find("img"), "alt"))
	require.Nil(t, AttrOrNil(doc.Find("video"), "src"))
}
