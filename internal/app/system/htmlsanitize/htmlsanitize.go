// Package htmlsanitize cleans user-supplied free text before it is stored.
//
// Location and event descriptions are served as JSON and rendered by
// clients, so markup is removed entirely rather than filtered.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText strips every tag from s and returns the remaining text with
// entities decoded and surrounding whitespace trimmed. Script and style
// bodies are dropped along with their tags.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	if IsPlainText(s) {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// IsPlainText reports whether s has nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !strings.ContainsAny(s, "<>")
}
