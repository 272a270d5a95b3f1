package sanitizer

import (
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

// controlChars matches C0 control characters except tab, LF and CR, plus DEL.
var controlChars = runes.Predicate(func(r rune) bool {
	switch {
	case r == '\t', r == '\n', r == '\r':
		return false
	case r < 0x20, r == 0x7F:
		return true
	default:
		return false
	}
})

// Options controls optional steps of Tidy.
type Options struct {
	// StripTags removes HTML tags after the other steps.
	StripTags bool
}

// StripControl removes non-printable control characters, repeating until
// the string no longer changes.
func StripControl(s string) string {
	for {
		out, _, err := transform.String(runes.Remove(controlChars), s)
		if err != nil || out == s {
			return out
		}
		s = out
	}
}

// Tidy normalizes a single untrusted input string:
// control characters are stripped, double quotes become single quotes
// and backslash escapes in front of quotes are removed.
func Tidy(s string, opts Options) string {
	s = StripControl(s)
	s = strings.ReplaceAll(s, `"`, `'`)
	for strings.Contains(s, `\'`) {
		s = strings.ReplaceAll(s, `\'`, `'`)
	}
	if opts.StripTags {
		s = StripHTML(s)
	}
	return s
}

// TidyValue applies Tidy to every string reachable from v.
// Maps and slices are rebuilt; other values are returned unchanged.
func TidyValue(v any, opts Options) any {
	switch val := v.(type) {
	case string:
		return Tidy(val, opts)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = Tidy(s, opts)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = TidyValue(item, opts)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = TidyValue(item, opts)
		}
		return out
	default:
		return v
	}
}
