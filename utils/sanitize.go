package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips every HTML tag from operator-entered text and trims surrounding space.
// Entities are decoded before sanitizing so encoded markup is stripped too; the result stays
// HTML-escaped ("Tea & Cake" is stored as "Tea &amp; Cake").
func PlainText(input string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(html.UnescapeString(input)))
}
