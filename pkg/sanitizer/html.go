package sanitizer

import (
	"html"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var strict = sync.OnceValue(bluemonday.StrictPolicy)

// StripHTML removes all markup and returns plain, unescaped text.
// Entities that decode to new tags are stripped as well, so the result
// contains no tags and StripHTML(StripHTML(s)) == StripHTML(s).
func StripHTML(s string) string {
	p := strict()
	for {
		out := html.UnescapeString(p.Sanitize(s))
		if out == s {
			return out
		}
		s = out
	}
}
