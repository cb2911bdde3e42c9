package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/policy"
	"github.com/sakif/blog-platform/internal/repository"
	"github.com/sakif/blog-platform/internal/validation"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100

	DefaultStoreTimeout = 5 * time.Second
)

var _ Operations = (*BlogService)(nil)

// PasswordHasher turns a plaintext password into a stored credential.
// *auth.PasswordService satisfies it.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
}

// BlogService implements Operations on top of a repository.Store.
type BlogService struct {
	store     repository.Store
	passwords PasswordHasher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewBlogService wires the service. A non-positive timeout falls back to
// DefaultStoreTimeout.
func NewBlogService(store repository.Store, passwords PasswordHasher, timeout time.Duration, logger *slog.Logger) *BlogService {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &BlogService{
		store:     store,
		passwords: passwords,
		timeout:   timeout,
		logger:    logger,
	}
}

// storeCtx bounds the store work of one operation.
func (s *BlogService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// fail logs err at a level matching its kind and returns it unchanged.
// Store failures are errors; client mistakes are debug noise.
func (s *BlogService) fail(op string, err error) error {
	if errors.Is(err, apperror.ErrStore) {
		s.logger.Error(op+" failed", slog.String("error", err.Error()))
	} else {
		s.logger.Debug(op+" rejected", slog.String("error", err.Error()))
	}
	return err
}

// clampList bounds a paged request. A request for All passes through with no
// limit.
func clampList(opts repository.ListOptions) repository.ListOptions {
	if opts.All {
		return repository.ListOptions{Order: opts.Order, All: true}
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

// === Accounts ===

// Register validates every field at once so a form can show all problems,
// hashes the password and creates the account.
func (s *BlogService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	profile, profileErr := validation.ProfileFields(in.Username, in.Email, in.FirstName, in.LastName)
	if err := errors.Join(profileErr, validation.Password(in.Password, in.Confirm)); err != nil {
		return nil, s.fail("register", err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, s.fail("register", apperror.ValidationFailed("password", err.Error()))
	}

	user := &model.User{
		Username:     profile.Username,
		Email:        profile.Email,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		PasswordHash: hash,
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, s.fail("register", usernameTaken(err))
	}

	s.logger.Info("user registered", slog.String("userID", user.ID), slog.String("username", user.Username))
	return user, nil
}

func (s *BlogService) GetProfile(ctx context.Context, actor policy.Actor) (*model.User, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	user, err := s.store.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, s.fail("get profile", err)
	}
	return user, nil
}

// EditProfile changes the actor's own account. There is no way to name
// another user.
func (s *BlogService) EditProfile(ctx context.Context, actor policy.Actor, in ProfileInput) (*model.User, error) {
	profile, err := validation.ProfileFields(in.Username, in.Email, in.FirstName, in.LastName)
	if err != nil {
		return nil, s.fail("edit profile", err)
	}
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	user, err := s.store.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, s.fail("edit profile", err)
	}
	user.Username = profile.Username
	user.Email = profile.Email
	user.FirstName = profile.FirstName
	user.LastName = profile.LastName

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, s.fail("edit profile", usernameTaken(err))
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return user, nil
}

// usernameTaken reports a duplicate username as a field error on the form.
func usernameTaken(err error) error {
	if errors.Is(err, apperror.ErrConflict) {
		return apperror.ValidationFailed("username", "a user with that username already exists")
	}
	return err
}

// === Posts ===

func (s *BlogService) ListPosts(ctx context.Context, opts repository.ListOptions) ([]model.Post, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	posts, err := s.store.ListPosts(ctx, clampList(opts))
	if err != nil {
		return nil, s.fail("list posts", err)
	}
	return posts, nil
}

// GetPostDetail loads a post and its comment thread, oldest comment first.
func (s *BlogService) GetPostDetail(ctx context.Context, id string) (*model.PostDetail, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, s.fail("get post", err)
	}
	comments, err := s.store.ListCommentsByPost(ctx, id)
	if err != nil {
		return nil, s.fail("get post", err)
	}
	return &model.PostDetail{Post: *post, Comments: comments}, nil
}

// CreatePost publishes a post authored by actor. Whatever author the caller
// might want, the actor is the author.
func (s *BlogService) CreatePost(ctx context.Context, actor policy.Actor, in PostInput) (*model.Post, error) {
	valid, tags, err := validatePost(in)
	if err != nil {
		return nil, s.fail("create post", err)
	}
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	post := &model.Post{
		Title:    valid.Title,
		Content:  valid.Content,
		AuthorID: actor.UserID,
		Tags:     newTags(tags),
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, s.fail("create post", err)
	}

	stored, err := s.store.GetPost(ctx, post.ID)
	if err != nil {
		return nil, s.fail("create post", err)
	}
	s.logger.Info("post created", slog.String("postID", stored.ID), slog.String("authorID", stored.AuthorID))
	return stored, nil
}

// UpdatePost replaces title, content and tags. Author and creation time never
// change.
func (s *BlogService) UpdatePost(ctx context.Context, actor policy.Actor, id string, in PostInput) (*model.Post, error) {
	valid, tags, err := validatePost(in)
	if err != nil {
		return nil, s.fail("update post", err)
	}
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, s.fail("update post", err)
	}
	if err := policy.Authorize(actor, policy.PostTarget(post)); err != nil {
		return nil, s.fail("update post", err)
	}

	post.Title = valid.Title
	post.Content = valid.Content
	post.Tags = newTags(tags)
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, s.fail("update post", err)
	}

	stored, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, s.fail("update post", err)
	}
	s.logger.Info("post updated", slog.String("postID", id), slog.String("userID", actor.UserID))
	return stored, nil
}

// DeletePost removes the post and all of its comments.
func (s *BlogService) DeletePost(ctx context.Context, actor policy.Actor, id string) error {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return s.fail("delete post", err)
	}
	if err := policy.Authorize(actor, policy.PostTarget(post)); err != nil {
		return s.fail("delete post", err)
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return s.fail("delete post", err)
	}

	s.logger.Info("post deleted", slog.String("postID", id), slog.String("userID", actor.UserID))
	return nil
}

func validatePost(in PostInput) (validation.PostInput, []validation.TagInput, error) {
	valid, postErr := validation.Post(in.Title, in.Content)
	tags, tagErr := validation.TagNames(in.Tags)
	if err := errors.Join(postErr, tagErr); err != nil {
		return validation.PostInput{}, nil, err
	}
	return valid, tags, nil
}

// newTags carries validated names to the store, which finds or creates each
// tag by slug inside the post's transaction.
func newTags(in []validation.TagInput) []model.Tag {
	tags := make([]model.Tag, 0, len(in))
	for _, t := range in {
		tags = append(tags, model.Tag{Name: t.Name, Slug: t.Slug})
	}
	return tags
}

// === Comments ===

func (s *BlogService) CreateComment(ctx context.Context, actor policy.Actor, postID, content string) (*model.Comment, error) {
	body, err := validation.CommentContent(content)
	if err != nil {
		return nil, s.fail("create comment", err)
	}
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	comment := &model.Comment{PostID: postID, AuthorID: actor.UserID, Content: body}
	if err := s.store.CreateComment(ctx, comment); err != nil {
		return nil, s.fail("create comment", err)
	}
	stored, err := s.store.GetComment(ctx, comment.ID)
	if err != nil {
		return nil, s.fail("create comment", err)
	}

	s.logger.Info("comment created",
		slog.String("commentID", stored.ID),
		slog.String("postID", postID),
		slog.String("authorID", actor.UserID),
	)
	return stored, nil
}

func (s *BlogService) GetComment(ctx context.Context, id string) (*model.Comment, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, s.fail("get comment", err)
	}
	return c, nil
}

func (s *BlogService) UpdateComment(ctx context.Context, actor policy.Actor, id, content string) (*model.Comment, error) {
	body, err := validation.CommentContent(content)
	if err != nil {
		return nil, s.fail("update comment", err)
	}
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, s.fail("update comment", err)
	}
	if err := policy.Authorize(actor, policy.CommentTarget(c)); err != nil {
		return nil, s.fail("update comment", err)
	}

	c.Content = body
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return nil, s.fail("update comment", err)
	}

	s.logger.Info("comment updated", slog.String("commentID", id), slog.String("userID", actor.UserID))
	return c, nil
}

func (s *BlogService) DeleteComment(ctx context.Context, actor policy.Actor, id string) (*model.Comment, error) {
	if err := policy.RequireAuthenticated(actor); err != nil {
		return nil, err
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, s.fail("delete comment", err)
	}
	if err := policy.Authorize(actor, policy.CommentTarget(c)); err != nil {
		return nil, s.fail("delete comment", err)
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return nil, s.fail("delete comment", err)
	}

	s.logger.Info("comment deleted", slog.String("commentID", id), slog.String("userID", actor.UserID))
	return c, nil
}

// === Queries ===

func (s *BlogService) ListTags(ctx context.Context) ([]model.Tag, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, s.fail("list tags", err)
	}
	return tags, nil
}

// ListPostsByTag returns the tag and the posts carrying it. An unknown slug
// is a NotFound error, not an empty listing.
func (s *BlogService) ListPostsByTag(ctx context.Context, slug string, opts repository.ListOptions) (*model.Tag, []model.Post, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	tag, err := s.store.GetTagBySlug(ctx, slug)
	if err != nil {
		return nil, nil, s.fail("list posts by tag", err)
	}
	posts, err := s.store.ListPostsByTagSlug(ctx, tag.Slug, clampList(opts))
	if err != nil {
		return nil, nil, s.fail("list posts by tag", err)
	}
	return tag, posts, nil
}

// Search trims the query. A blank query returns no results without touching
// the store.
func (s *BlogService) Search(ctx context.Context, query string, opts repository.ListOptions) ([]model.Post, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []model.Post{}, nil
	}

	ctx, cancel := s.storeCtx(ctx)
	defer cancel()
	posts, err := s.store.SearchPosts(ctx, query, clampList(opts))
	if err != nil {
		return nil, s.fail("search", err)
	}
	return posts, nil
}
