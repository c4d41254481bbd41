package letterboxd

import (
	"context"
	"iter"
	"ltbxd-scraper/lib/htmlutil"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	selector_next_page = "a.next"

	selector_film_container = "div.film-poster > div"

	selector_list_container = "section.list"
	selector_list_title     = "div.film-list-summary > h2 > a"
	selector_list_posters   = "a > ul > li"
	selector_list_poster    = "div > img"
	selector_list_summary   = "div.film-list-summary > div > p"
	selector_list_amount    = "div.film-list-summary > p > small"

	selector_search_container    = "section > div.search-table-body > ul.results > li"
	selector_search_title        = "article > div.body > h2 > span > a"
	selector_search_year         = "article > div.body > h2 > span > small > a"
	selector_search_alternatives = "article > div.body > div.film-metadata > p"
	selector_search_poster       = "article > div.film-poster > div > img"
	selector_search_director     = "article > div.body > p.film-metadata > a"

	alternative_titles_prefix = "Alternative titles:"
)

// extraction is what a page's markup yields before any record is built.
type extraction struct {
	// fragments can only be ranged over once.
	fragments    iter.Seq[*goquery.Selection]
	nextPageLink string
}

func extract(markup, itemSelector string) (extraction, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return extraction{}, err
	}

	items := doc.Find(itemSelector)
	consumed := false
	fragments := func(yield func(*goquery.Selection) bool) {
		if consumed {
			return
		}
		consumed = true
		for i := range items.Nodes {
			if !yield(items.Eq(i)) {
				return
			}
		}
	}

	return extraction{
		fragments:    fragments,
		nextPageLink: strings.TrimSpace(doc.Find(selector_next_page).First().AttrOr("href", "")),
	}, nil
}

func (s Scraper) buildFilm(ctx context.Context, fragment *goquery.Selection, settings Settings) Film {
	fullname := fragment.Find("a").First().AttrOr("data-original-title", "")
	name, _, _ := strings.Cut(fullname, " (")

	film := Film{
		Name: strings.TrimSpace(name),
		Slug: fragment.Closest("div.film-poster").AttrOr("data-film-slug", ""),
		Type: FILM_TYPE_MOVIE,
	}
	if settings.Poster {
		film.Poster = htmlutil.AttrOrNil(fragment.Find("img"), "src")
	}
	if settings.IMDBID {
		film.ID = s.lookupID(ctx, film.Name)
	}
	return film
}

func (s Scraper) buildListCover(_ context.Context, fragment *goquery.Selection, settings Settings) ListCover {
	cover := ListCover{
		Title: htmlutil.CleanText(fragment.Find(selector_list_title)),
	}

	href := fragment.Find("a").First().AttrOr("href", "")
	if href != "" {
		resolved, err := htmlutil.ResolveURL(s.baseUrl, href)
		if err != nil {
			s.tel.ReportWarning(report_scraper_build_item, err, href)
		} else {
			cover.Url = resolved
		}
	}

	if settings.Posters {
		cover.Posters = []string{}
		fragment.Find(selector_list_posters).Each(func(_ int, li *goquery.Selection) {
			src, exists := li.Find(selector_list_poster).First().Attr("src")
			if exists {
				cover.Posters = append(cover.Posters, src)
			}
		})
	}
	if settings.Summary {
		summary := htmlutil.CleanText(fragment.Find(selector_list_summary))
		if summary != "" {
			cover.Summary = &summary
		}
	}
	if settings.Amount {
		amount := htmlutil.CleanText(fragment.Find(selector_list_amount))
		cover.Amount = &amount
	}
	return cover
}

func parseAlternativeTitles(text string) []string {
	text = strings.TrimSpace(strings.TrimPrefix(text, alternative_titles_prefix))
	titles := []string{}
	if text == "" {
		return titles
	}
	for _, title := range strings.Split(text, ",") {
		title = strings.TrimSpace(title)
		if title != "" {
			titles = append(titles, title)
		}
	}
	return titles
}

func (s Scraper) buildSearchFilm(_ context.Context, fragment *goquery.Selection, settings Settings) SearchFilm {
	film := SearchFilm{
		Title: htmlutil.CleanText(fragment.Find(selector_search_title)),
	}

	yearText := htmlutil.CleanText(fragment.Find(selector_search_year))
	if yearText != "" {
		year, err := strconv.Atoi(yearText)
		if err != nil {
			s.tel.ReportWarning(report_scraper_build_item, err, film.Title)
		} else {
			film.Year = year
		}
	}

	if settings.AlternativeTitles {
		film.AlternativeTitles = parseAlternativeTitles(
			htmlutil.CleanText(fragment.Find(selector_search_alternatives)),
		)
	}
	if settings.Poster {
		film.Poster = htmlutil.AttrOrNil(fragment.Find(selector_search_poster), "src")
	}
	if settings.Director {
		director := htmlutil.CleanText(fragment.Find(selector_search_director))
		film.Director = &director
	}
	return film
}
