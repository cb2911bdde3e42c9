package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/policy"
	"github.com/sakif/blog-platform/internal/repository"
	"github.com/sakif/blog-platform/internal/service"
)

// BlogHandler serves posts, comments, tags and search as JSON.
//
// The acting user comes from the auth middleware only. Request bodies never
// name an author: a client sending "authorId" has it ignored by the decoder.
type BlogHandler struct {
	ops    service.Operations
	logger *slog.Logger
}

func NewBlogHandler(ops service.Operations, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{ops: ops, logger: logger}
}

// Routes registers the content API on r.
//
// ROUTE STRUCTURE:
// GET    /api/posts                  → list posts (newest first)
// POST   /api/posts                  → create post
// GET    /api/posts/{id}             → post with comments
// PUT    /api/posts/{id}             → replace title, content, tags
// PATCH  /api/posts/{id}             → change only the fields sent
// DELETE /api/posts/{id}             → delete post and its comments
// POST   /api/posts/{id}/comments    → add comment
// GET    /api/comments/{id}          → single comment
// PUT    /api/comments/{id}          → edit comment
// DELETE /api/comments/{id}          → delete comment
// GET    /api/tags                   → all tags by name
// GET    /api/tags/{slug}/posts      → posts carrying a tag
// GET    /api/search?q=              → title, content and tag search
func (h *BlogHandler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", h.HandleListPosts)
		r.Post("/posts", h.HandleCreatePost)
		r.Get("/posts/{id}", h.HandleGetPost)
		r.Put("/posts/{id}", h.HandleUpdatePost)
		r.Patch("/posts/{id}", h.HandlePatchPost)
		r.Delete("/posts/{id}", h.HandleDeletePost)
		r.Post("/posts/{id}/comments", h.HandleCreateComment)

		r.Get("/comments/{id}", h.HandleGetComment)
		r.Put("/comments/{id}", h.HandleUpdateComment)
		r.Delete("/comments/{id}", h.HandleDeleteComment)

		r.Get("/tags", h.HandleListTags)
		r.Get("/tags/{slug}/posts", h.HandleListPostsByTag)
		r.Get("/search", h.HandleSearch)
	})
}

// listOptions reads ?limit, ?offset and ?order (newest|oldest).
func listOptions(r *http.Request) (repository.ListOptions, error) {
	var opts repository.ListOptions
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("limit", "limit must be a non-negative integer")
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, apperror.ValidationFailed("offset", "offset must be a non-negative integer")
		}
		opts.Offset = n
	}
	switch q.Get("order") {
	case "", "newest":
		opts.Order = repository.NewestFirst
	case "oldest":
		opts.Order = repository.OldestFirst
	default:
		return opts, apperror.ValidationFailed("order", `order must be "newest" or "oldest"`)
	}
	return opts, nil
}

// === Posts ===

// HandleListPosts returns a page of posts.
//
// HTTP: GET /api/posts?limit=20&offset=0&order=newest
func (h *BlogHandler) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := h.ops.ListPosts(r.Context(), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, posts)
}

// HandleGetPost returns a post and its comments, oldest comment first.
//
// HTTP: GET /api/posts/{id}
func (h *BlogHandler) HandleGetPost(w http.ResponseWriter, r *http.Request) {
	detail, err := h.ops.GetPostDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, detail)
}

// HandleCreatePost publishes a post as the signed-in user.
//
// HTTP: POST /api/posts
// REQUEST BODY: {"title": "...", "content": "...", "tags": ["go", "web"]}
func (h *BlogHandler) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	post, err := h.ops.CreatePost(r.Context(), auth.ActorFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/posts/"+post.ID)
	writeJSON(w, r, http.StatusCreated, post)
}

// HandleUpdatePost replaces title, content and tags.
//
// HTTP: PUT /api/posts/{id}
func (h *BlogHandler) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	h.updatePost(w, r, in)
}

// postPatch is a partial update: nil fields keep their stored value.
type postPatch struct {
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

// HandlePatchPost merges the sent fields onto the stored post and runs the
// result through the same validation as a full update.
//
// HTTP: PATCH /api/posts/{id}
func (h *BlogHandler) HandlePatchPost(w http.ResponseWriter, r *http.Request) {
	var patch postPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	// Anonymous callers get 401 whether or not the post exists, as with PUT.
	if err := policy.RequireAuthenticated(auth.ActorFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	current, err := h.ops.GetPostDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	in := service.PostInput{
		Title:   current.Post.Title,
		Content: current.Post.Content,
		Tags:    current.Post.TagNames(),
	}
	if patch.Title != nil {
		in.Title = *patch.Title
	}
	if patch.Content != nil {
		in.Content = *patch.Content
	}
	if patch.Tags != nil {
		in.Tags = *patch.Tags
	}
	h.updatePost(w, r, in)
}

func (h *BlogHandler) updatePost(w http.ResponseWriter, r *http.Request, in service.PostInput) {
	post, err := h.ops.UpdatePost(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, post)
}

// HandleDeletePost removes a post and its comments.
//
// HTTP: DELETE /api/posts/{id}  → 204 No Content
func (h *BlogHandler) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.ops.DeletePost(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Comments ===

type commentRequest struct {
	Content string `json:"content"`
}

// HandleCreateComment adds a comment to a post.
//
// HTTP: POST /api/posts/{id}/comments
// REQUEST BODY: {"content": "..."}
func (h *BlogHandler) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.ops.CreateComment(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/comments/"+c.ID)
	writeJSON(w, r, http.StatusCreated, c)
}

func (h *BlogHandler) HandleGetComment(w http.ResponseWriter, r *http.Request) {
	c, err := h.ops.GetComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (h *BlogHandler) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	c, err := h.ops.UpdateComment(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, c)
}

func (h *BlogHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	if _, err := h.ops.DeleteComment(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// === Queries ===

func (h *BlogHandler) HandleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.ops.ListTags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tags)
}

// TagPostsResponse is the body of GET /api/tags/{slug}/posts.
type TagPostsResponse struct {
	Tag   *model.Tag   `json:"tag"`
	Posts []model.Post `json:"posts"`
}

func (h *BlogHandler) HandleListPostsByTag(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tag, posts, err := h.ops.ListPostsByTag(r.Context(), chi.URLParam(r, "slug"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, TagPostsResponse{Tag: tag, Posts: posts})
}

// HandleSearch matches title, content and tag names. A blank ?q returns an
// empty list.
//
// HTTP: GET /api/search?q=golang
func (h *BlogHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	opts, err := listOptions(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	posts, err := h.ops.Search(r.Context(), r.URL.Query().Get("q"), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, posts)
}
