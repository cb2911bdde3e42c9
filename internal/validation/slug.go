package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/sakif/blog-platform/internal/apperror"
)

const MaxTagNameLength = 50

// TagInput is a normalized tag name and its slug.
type TagInput struct {
	Name string
	Slug string
}

// Slugify derives the URL-safe identity of a tag name. Letters are folded to
// ASCII where a decomposition exists ("Café" -> "cafe"), lowercased, and every
// run of other characters becomes a single hyphen. Leading and trailing
// hyphens are dropped.
func Slugify(name string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range norm.NFKD.String(name) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		r = unicode.ToLower(r)
		if r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// TagNames parses raw tag entries. Each entry may itself be a comma-separated
// list, the way tag widgets submit them. Names are whitespace-collapsed,
// duplicates (by slug) are dropped keeping the first spelling, and empty
// entries are ignored.
func TagNames(raw []string) ([]TagInput, error) {
	var out []TagInput
	seen := make(map[string]struct{})
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			name := CollapseWhitespace(part)
			if name == "" {
				continue
			}
			if utf8.RuneCountInString(name) > MaxTagNameLength {
				return nil, apperror.ValidationFailed("tags",
					fmt.Sprintf("tag names must be %d characters or less", MaxTagNameLength))
			}
			slug := Slugify(name)
			if slug == "" {
				return nil, apperror.ValidationFailed("tags",
					fmt.Sprintf("tag %q needs at least one letter or digit", name))
			}
			if _, dup := seen[slug]; dup {
				continue
			}
			seen[slug] = struct{}{}
			out = append(out, TagInput{Name: name, Slug: slug})
		}
	}
	return out, nil
}
