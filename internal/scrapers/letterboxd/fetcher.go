package letterboxd

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Session fetches pages, it is owned by exactly one query at a time.
//
// note: fault injection point
type Session interface {
	// FetchPage returns the markup of url. Implementations must call ValidateURL
	// before doing any network access. An empty string with a nil error means
	// the page had no content.
	FetchPage(ctx context.Context, url string, contentType ContentType) (string, error)
	Close() error
}

// SessionProvider hands out a fresh Session per query.
//
// note: fault injection point
type SessionProvider interface {
	Acquire(ctx context.Context) (Session, error)
}

// IDLookup resolves a film title to its IMDb id.
//
// note: fault injection point
type IDLookup interface {
	LookupID(ctx context.Context, title string) (string, error)
}

// UsageAPI gates queries before they start and is told how they finished.
//
// note: fault injection point
type UsageAPI interface {
	// Start returns a non-nil error if a query is not allowed to start right
	// now, otherwise it records the start. Checking and recording must be
	// atomic. The returned function must be called exactly once when the query
	// is done.
	Start() (finish func(success bool), err error)
}

type noopUsage struct{}

func (noopUsage) Start() (func(bool), error) { return func(bool) {}, nil }

var pathSegments = map[ContentType]string{
	CONTENT_WATCHLIST: "/watchlist",
	CONTENT_FILMS:     "/films",
	CONTENT_LIST:      "/list/",
	CONTENT_LISTS:     "/lists",
	CONTENT_SEARCH:    "/search/",
}

func sameHost(a, b string) bool {
	a = strings.TrimPrefix(strings.ToLower(a), "www.")
	b = strings.TrimPrefix(strings.ToLower(b), "www.")
	return a == b
}

// ValidateURL checks that raw points to the same site as base and that its path
// contains the segment expected for contentType.
func ValidateURL(base *url.URL, raw string, contentType ContentType) error {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotValidURL, err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrNotValidURL, parsed.Scheme)
	}
	if !sameHost(parsed.Host, base.Host) {
		return fmt.Errorf("%w: unexpected host %q", ErrNotValidURL, parsed.Host)
	}

	segment, ok := pathSegments[contentType]
	if !ok {
		return fmt.Errorf("%w: unknown content type %q", ErrNotValidURL, contentType)
	}
	path := strings.ToLower(parsed.Path)
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	if !strings.Contains(path, segment) {
		return fmt.Errorf("%w: expected %q in path", ErrNotValidURL, segment)
	}
	return nil
}
