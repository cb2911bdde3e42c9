// Package service holds the operations of the blog core.
//
// Both the JSON API and the HTML pages call the same Operations interface, so
// validation, ownership and query rules live here once. Every write runs the
// same sequence: validate the payload, authorize the actor, then touch the
// store. A failure at any step returns before later steps run.
package service

import (
	"context"

	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/policy"
	"github.com/sakif/blog-platform/internal/repository"
)

// Operations is the shared operation interface behind both façades.
type Operations interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	GetProfile(ctx context.Context, actor policy.Actor) (*model.User, error)
	EditProfile(ctx context.Context, actor policy.Actor, in ProfileInput) (*model.User, error)

	ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error)
	GetPostDetail(ctx context.Context, id string) (*model.PostDetail, error)
	CreatePost(ctx context.Context, actor policy.Actor, in PostInput) (*model.Post, error)
	UpdatePost(ctx context.Context, actor policy.Actor, id string, in PostInput) (*model.Post, error)
	DeletePost(ctx context.Context, actor policy.Actor, id string) error

	CreateComment(ctx context.Context, actor policy.Actor, postID, content string) (*model.Comment, error)
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	UpdateComment(ctx context.Context, actor policy.Actor, id, content string) (*model.Comment, error)
	// DeleteComment returns the removed comment so callers know which post
	// it belonged to.
	DeleteComment(ctx context.Context, actor policy.Actor, id string) (*model.Comment, error)

	ListTags(ctx context.Context) ([]model.Tag, error)
	ListPostsByTag(ctx context.Context, slug string, opts repository.ListOptions) (*model.Tag, []model.Post, error)
	Search(ctx context.Context, query string, opts repository.ListOptions) ([]model.Post, error)
}

// PostInput is a create or update payload. Tags holds raw tag entries; each
// may be a comma-separated list.
type PostInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
}

type RegisterInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	Confirm   string `json:"confirm"`
}

type ProfileInput struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}
