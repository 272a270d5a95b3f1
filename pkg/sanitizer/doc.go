// Package sanitizer cleans untrusted input.
//
// Tidy and TidyValue normalize request input before it reaches handlers:
// control characters are removed, double quotes are replaced with single
// quotes and leftover backslash escapes are dropped. Both are idempotent.
//
//	clean := sanitizer.TidyValue(map[string]any{"q": "a\x00\"b\""}, sanitizer.Options{})
//	// map[q:a'b']
//
// StripHTML removes markup with bluemonday's strict policy and is used by
// Tidy when Options.StripTags is set.
package sanitizer
