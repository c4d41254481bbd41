package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)
var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)

// NormalizeTitle lowercases a title, drops punctuation and collapses
// whitespace so titles written differently compare equal.
func NormalizeTitle(title string) string {
	title = strings.ToLower(title)
	title = punctuationRegex.ReplaceAllString(title, " ")
	title = whitespaceRegex.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}
