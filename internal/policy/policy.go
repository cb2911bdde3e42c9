// Package policy decides who may touch which post or comment.
//
// Reads are open to everyone, anonymous visitors included. Creating content
// needs a signed-in actor. Editing or deleting needs the actor to be the
// author of the target. Nothing here talks to the store; callers load the
// entity first and hand its author over in a Target.
package policy

import (
	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

// Actor is the identity making a request. The zero value is anonymous.
type Actor struct {
	UserID string
}

// Anonymous is the actor for requests without a valid session.
var Anonymous = Actor{}

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// Kind tags a Target with the entity it describes.
type Kind string

const (
	KindPost    Kind = "post"
	KindComment Kind = "comment"
)

// Target is the ownership-relevant view of an entity.
type Target struct {
	Kind     Kind
	ID       string
	AuthorID string
}

func PostTarget(p *model.Post) Target {
	return Target{Kind: KindPost, ID: p.ID, AuthorID: p.AuthorID}
}

func CommentTarget(c *model.Comment) Target {
	return Target{Kind: KindComment, ID: c.ID, AuthorID: c.AuthorID}
}

// CanRead is always true. Posts and comments are public.
func CanRead(Actor, Target) bool {
	return true
}

// CanWrite reports whether actor may update or delete target. Only the
// author may, and an anonymous actor never matches an author.
func CanWrite(actor Actor, target Target) bool {
	return actor.Authenticated() && target.AuthorID != "" && actor.UserID == target.AuthorID
}

// Authorize is CanWrite as an error: nil when allowed, a Forbidden AppError
// otherwise.
func Authorize(actor Actor, target Target) error {
	if CanWrite(actor, target) {
		return nil
	}
	return apperror.Forbidden("only the author can modify this " + string(target.Kind))
}

// RequireAuthenticated guards create operations.
func RequireAuthenticated(actor Actor) error {
	if actor.Authenticated() {
		return nil
	}
	return apperror.Unauthenticated("sign in required")
}
