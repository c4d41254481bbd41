package letterboxd

const DEFAULT_BASE_URL = "https://letterboxd.com"

// ContentType tells the page fetcher what kind of page a url is expected to be.
type ContentType string

const (
	CONTENT_WATCHLIST ContentType = "watchlist"
	CONTENT_FILMS     ContentType = "films"
	CONTENT_LIST      ContentType = "list"
	CONTENT_LISTS     ContentType = "lists"
	CONTENT_SEARCH    ContentType = "search"
)

type Status string

const (
	STATUS_OK Status = "OK"
	// STATUS_FAILED is only ever returned when the input of a query is incomplete.
	STATUS_FAILED Status = "FAILED"
	STATUS_ERROR  Status = "ERROR"
)

const FILM_TYPE_MOVIE = "movie"

// Film is a film on a watchlist or a list.
type Film struct {
	// ID is the IMDb id of the film.
	ID     *string `json:"id"`
	Name   string  `json:"name"`
	Slug   string  `json:"slug,omitempty"`
	Type   string  `json:"type"`
	Poster *string `json:"poster"`
}

// SearchFilm is a single film search result.
type SearchFilm struct {
	Title             string   `json:"title"`
	Year              int      `json:"year"`
	AlternativeTitles []string `json:"alternativeTitles"`
	Poster            *string  `json:"poster"`
	Director          *string  `json:"director"`
}

// ListCover is the summary of a list shown on a user's lists page.
type ListCover struct {
	Title   string   `json:"title"`
	Url     string   `json:"url"`
	Posters []string `json:"posters"`
	Summary *string  `json:"summary"`
	Amount  *string  `json:"amount"`
}

// PageResult is the outcome of scraping exactly one page.
type PageResult[T any] struct {
	// Items are in document order.
	Items []T
	// NextPageUrl is an absolute url, it is empty if there is no next page or
	// the item cap was reached on this page.
	NextPageUrl string
	Err         error
}

// QueryResult is the outcome of a full paginated query.
//
// Data may be non-empty when Status is STATUS_ERROR, it holds everything
// collected before the error occurred.
type QueryResult[T any] struct {
	Status       Status `json:"status"`
	Data         []T    `json:"data"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Err          error  `json:"-"`
}

type UserQuery struct {
	Username string  `json:"username"`
	Options  Options `json:"options"`
}

type ListQuery struct {
	Url     string  `json:"url"`
	Options Options `json:"options"`
}

type SearchQuery struct {
	Title   string  `json:"title"`
	Options Options `json:"options"`
}
