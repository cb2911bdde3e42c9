package policy

import (
	"errors"
	"testing"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
)

func TestCanWrite(t *testing.T) {
	post := &model.Post{ID: "p1", AuthorID: "alice"}
	comment := &model.Comment{ID: "c1", AuthorID: "bob"}

	tests := []struct {
		name   string
		actor  Actor
		target Target
		want   bool
	}{
		{"author edits own post", Actor{UserID: "alice"}, PostTarget(post), true},
		{"other user edits post", Actor{UserID: "bob"}, PostTarget(post), false},
		{"anonymous edits post", Anonymous, PostTarget(post), false},
		{"author edits own comment", Actor{UserID: "bob"}, CommentTarget(comment), true},
		{"post author edits someone else's comment", Actor{UserID: "alice"}, CommentTarget(comment), false},
		{"anonymous against authorless target", Anonymous, Target{Kind: KindPost, ID: "x"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanWrite(tt.actor, tt.target); got != tt.want {
				t.Errorf("CanWrite() = %v, want %v", got, tt.want)
			}

			err := Authorize(tt.actor, tt.target)
			if tt.want && err != nil {
				t.Errorf("Authorize() error = %v, want nil", err)
			}
			if !tt.want && !errors.Is(err, apperror.ErrForbidden) {
				t.Errorf("Authorize() error = %v, want ErrForbidden", err)
			}
		})
	}
}

func TestCanRead_AlwaysTrue(t *testing.T) {
	targets := []Target{
		PostTarget(&model.Post{ID: "p1", AuthorID: "alice"}),
		CommentTarget(&model.Comment{ID: "c1", AuthorID: "bob"}),
	}
	for _, target := range targets {
		for _, actor := range []Actor{Anonymous, {UserID: "alice"}, {UserID: "carol"}} {
			if !CanRead(actor, target) {
				t.Errorf("CanRead(%+v, %+v) = false", actor, target)
			}
		}
	}
}

func TestRequireAuthenticated(t *testing.T) {
	if err := RequireAuthenticated(Actor{UserID: "alice"}); err != nil {
		t.Errorf("RequireAuthenticated(alice) error = %v", err)
	}
	err := RequireAuthenticated(Anonymous)
	if !errors.Is(err, apperror.ErrUnauthenticated) {
		t.Errorf("RequireAuthenticated(anonymous) error = %v, want ErrUnauthenticated", err)
	}
	if errors.Is(err, apperror.ErrForbidden) {
		t.Error("unauthenticated should not match ErrForbidden")
	}
}

func TestAuthorize_MessageNamesKind(t *testing.T) {
	err := Authorize(Actor{UserID: "x"}, Target{Kind: KindComment, AuthorID: "y"})
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Authorize() error = %v, want *AppError", err)
	}
	if appErr.Message != "only the author can modify this comment" {
		t.Errorf("Message = %q", appErr.Message)
	}
}
