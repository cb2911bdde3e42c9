package validation

import (
	"strings"

	"golang.org/x/net/html"
)

// StripMarkup drops tags and comments from s and returns the remaining text,
// trimmed. Entities are left as written.
func StripMarkup(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input; either way there is nothing more to read.
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Raw())
		}
	}
}

// HasRepeatedRun reports whether s contains some character repeated n or more
// times in a row. Newlines never count toward a run.
func HasRepeatedRun(s string, n int) bool {
	var prev rune
	run := 0
	for _, r := range s {
		switch {
		case r == '\n':
			run = 0
		case run > 0 && r == prev:
			run++
		default:
			run = 1
		}
		prev = r
		if run >= n {
			return true
		}
	}
	return false
}
