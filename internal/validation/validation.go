// Package validation holds the content-quality rules applied to posts and
// comments before they reach the store.
//
// Every function here is pure: no I/O, no clock, no randomness. Each returns
// either the normalized value that should be stored or an *apperror.AppError
// carrying the failing field and a stable message.
package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/sakif/blog-platform/internal/apperror"
)

const (
	MinTitleLength       = 5
	MaxTitleLength       = 200
	MaxPostContentLength = 5000
	MaxCommentLength     = 2000

	// SpamRunLength is the number of consecutive identical characters that
	// marks post content as spam.
	SpamRunLength = 11
)

// Messages returned in AppError.Message. Clients match on these.
const (
	MsgTitleRequired   = "title is required"
	MsgTitleTooShort   = "title too short"
	MsgTitleTooLong    = "title too long"
	MsgTitleGeneric    = "title too generic"
	MsgContentRequired = "content is required"
	MsgContentTooLong  = "content too long"
	MsgSpamContent     = "spam-like content"
	MsgCommentRequired = "comment is required"
	MsgCommentTooLong  = "comment too long"
)

var genericTitles = map[string]struct{}{
	"untitled":    {},
	"new post":    {},
	"blog post":   {},
	"my post":     {},
	"test":        {},
	"hello world": {},
	"sample":      {},
}

// PostInput is a post payload that passed validation.
type PostInput struct {
	Title   string
	Content string
}

// CollapseWhitespace trims s and replaces every internal whitespace run with a
// single space. It is idempotent.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Title validates and normalizes a post title.
//
// The generic-title check runs before the length checks so that short generic
// titles such as "Test" are reported as generic.
func Title(raw string) (string, error) {
	title := CollapseWhitespace(raw)
	if title == "" {
		return "", apperror.ValidationFailed("title", MsgTitleRequired)
	}
	if _, generic := genericTitles[strings.ToLower(title)]; generic {
		return "", apperror.ValidationFailed("title", MsgTitleGeneric)
	}

	n := utf8.RuneCountInString(title)
	if n < MinTitleLength {
		return "", apperror.ValidationFailed("title", MsgTitleTooShort)
	}
	if n > MaxTitleLength {
		return "", apperror.ValidationFailed("title", MsgTitleTooLong)
	}
	return title, nil
}

// PostContent validates post body content. Length counts markup; the spam
// check looks only at the text left after stripping markup.
func PostContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", apperror.ValidationFailed("content", MsgContentRequired)
	}
	if utf8.RuneCountInString(content) > MaxPostContentLength {
		return "", apperror.ValidationFailed("content", MsgContentTooLong)
	}
	if HasRepeatedRun(StripMarkup(content), SpamRunLength) {
		return "", apperror.ValidationFailed("content", MsgSpamContent)
	}
	return content, nil
}

// CommentContent validates a comment body. Comments only get a length check;
// the repeated-character rule applies to posts alone.
func CommentContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", apperror.ValidationFailed("content", MsgCommentRequired)
	}
	if utf8.RuneCountInString(content) > MaxCommentLength {
		return "", apperror.ValidationFailed("content", MsgCommentTooLong)
	}
	return content, nil
}

// Post validates title and content together. When both fail, the returned
// error joins both failures (title first), so errors.As yields the title error
// and apperror.Fields yields both.
func Post(title, content string) (PostInput, error) {
	t, titleErr := Title(title)
	c, contentErr := PostContent(content)
	if err := errors.Join(titleErr, contentErr); err != nil {
		return PostInput{}, err
	}
	return PostInput{Title: t, Content: c}, nil
}
