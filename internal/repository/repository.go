// Package repository declares the storage contracts of the blog core.
//
// Services depend only on these interfaces. The sqlite and postgres
// subpackages implement them; tests may supply their own.
package repository

import (
	"context"

	"github.com/sakif/blog-platform/internal/model"
)

// Order selects the direction of a post listing by creation time.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// ListOptions pages a post listing. Implementations order by created_at in
// the requested direction and break ties by id in the same direction.
// A Limit of zero or less returns every matching post.
type ListOptions struct {
	Limit  int
	Offset int
	Order  Order
	// All asks the service for the complete listing; Limit and Offset are
	// ignored.
	All bool
}

// UserRepository stores accounts. Users are referenced by content but never
// deleted through this interface.
type UserRepository interface {
	// CreateUser inserts user and fills in ID and timestamps. A duplicate
	// username yields an apperror.ErrConflict.
	CreateUser(ctx context.Context, user *model.User) error
	// UpdateUser saves username, email, first and last name.
	UpdateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	// UpsertGitHubUser finds the account linked to user.GitHubID or creates
	// one, refreshing email and avatar either way.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
}

type TagRepository interface {
	GetTagBySlug(ctx context.Context, slug string) (*model.Tag, error)
	// ListTags returns every tag ordered by name.
	ListTags(ctx context.Context) ([]model.Tag, error)
}

type PostRepository interface {
	// CreatePost inserts the post and its tag links atomically. Tags without
	// an ID are found or created by slug in the same transaction, so a failed
	// insert leaves no new tags behind.
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	// UpdatePost replaces title, content and tag set, resolving tags the way
	// CreatePost does. Author and creation time are never written.
	UpdatePost(ctx context.Context, post *model.Post) error
	// DeletePost removes the post, its comments and its tag links in one
	// transaction.
	DeletePost(ctx context.Context, id string) error
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	ListPostsByTagSlug(ctx context.Context, slug string, opts ListOptions) ([]model.Post, error)
	// SearchPosts matches query case-insensitively as a substring of the
	// title, the content or any tag name. Each post appears at most once.
	SearchPosts(ctx context.Context, query string, opts ListOptions) ([]model.Post, error)
}

type CommentRepository interface {
	// CreateComment fails with apperror.ErrNotFound when the post is gone.
	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	// UpdateComment saves content and bumps updated_at.
	UpdateComment(ctx context.Context, comment *model.Comment) error
	DeleteComment(ctx context.Context, id string) error
	// ListCommentsByPost returns comments oldest first.
	ListCommentsByPost(ctx context.Context, postID string) ([]model.Comment, error)
}

// Store is the full entity store a backend provides.
type Store interface {
	UserRepository
	TagRepository
	PostRepository
	CommentRepository
	Close() error
}
