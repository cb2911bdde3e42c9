package web

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/policy"
	"github.com/sakif/blog-platform/internal/repository"
	"github.com/sakif/blog-platform/internal/service"
)

// listOptions for HTML listings: every matching post on one page.
var listOptions = repository.ListOptions{All: true}

// HandleListPosts shows all posts, oldest first.
//
// HTTP: GET /posts
func (p *Pages) HandleListPosts(w http.ResponseWriter, r *http.Request) {
	opts := listOptions
	opts.Order = repository.OldestFirst
	posts, err := p.ops.ListPosts(r.Context(), opts)
	if err != nil {
		p.showError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "post_list.html", &pageData{Title: "Posts", Posts: posts})
}

// HandlePostDetail shows a post, its comments and the comment form.
//
// HTTP: GET /posts/{id}
func (p *Pages) HandlePostDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := p.ops.GetPostDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.showError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "post_detail.html", detailData(detail))
}

func detailData(detail *model.PostDetail) *pageData {
	return &pageData{
		Title:    detail.Post.Title,
		Post:     &detail.Post,
		Comments: detail.Comments,
	}
}

// postForm reads the post form. The tags field is one comma-separated input.
func postForm(r *http.Request) (service.PostInput, map[string]string) {
	form := formValues(r, "title", "content", "tags")
	return service.PostInput{
		Title:   form["title"],
		Content: form["content"],
		Tags:    []string{form["tags"]},
	}, form
}

// HandleNewPost shows an empty post form.
//
// HTTP: GET /posts/new
func (p *Pages) HandleNewPost(w http.ResponseWriter, r *http.Request) {
	if !auth.ActorFromContext(r.Context()).Authenticated() {
		redirectToLogin(w, r)
		return
	}
	p.render(w, r, http.StatusOK, "post_form.html", &pageData{Title: "New post"})
}

// HandleCreatePost publishes the submitted post and returns to the list.
//
// HTTP: POST /posts/new
func (p *Pages) HandleCreatePost(w http.ResponseWriter, r *http.Request) {
	in, form := postForm(r)
	if _, err := p.ops.CreatePost(r.Context(), auth.ActorFromContext(r.Context()), in); err != nil {
		p.showForm(w, r, "post_form.html", &pageData{Title: "New post", Form: form}, err)
		return
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}

// HandleEditPost shows the post form filled with the stored values. Only
// the author gets the form.
//
// HTTP: GET /posts/{id}/edit
func (p *Pages) HandleEditPost(w http.ResponseWriter, r *http.Request) {
	detail, err := p.ops.GetPostDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.showError(w, r, err)
		return
	}
	post := &detail.Post
	if !p.requireOwner(w, r, policy.PostTarget(post)) {
		return
	}

	p.render(w, r, http.StatusOK, "post_form.html", &pageData{
		Title: "Edit post",
		Post:  post,
		Form: map[string]string{
			"title":   post.Title,
			"content": post.Content,
			"tags":    strings.Join(post.TagNames(), ", "),
		},
	})
}

// HandleUpdatePost saves the edited post and shows it.
//
// HTTP: POST /posts/{id}/edit
func (p *Pages) HandleUpdatePost(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in, form := postForm(r)

	if _, err := p.ops.UpdatePost(r.Context(), auth.ActorFromContext(r.Context()), id, in); err != nil {
		p.showForm(w, r, "post_form.html", &pageData{
			Title: "Edit post",
			Post:  &model.Post{ID: id},
			Form:  form,
		}, err)
		return
	}
	http.Redirect(w, r, "/posts/"+id, http.StatusSeeOther)
}

// HandleConfirmDeletePost asks the author to confirm.
//
// HTTP: GET /posts/{id}/delete
func (p *Pages) HandleConfirmDeletePost(w http.ResponseWriter, r *http.Request) {
	detail, err := p.ops.GetPostDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.showError(w, r, err)
		return
	}
	if !p.requireOwner(w, r, policy.PostTarget(&detail.Post)) {
		return
	}
	p.render(w, r, http.StatusOK, "post_confirm_delete.html", detailData(detail))
}

// HandleDeletePost removes the post with its comments.
//
// HTTP: POST /posts/{id}/delete
func (p *Pages) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := p.ops.DeletePost(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		p.showError(w, r, err)
		return
	}
	http.Redirect(w, r, "/posts", http.StatusSeeOther)
}

// HandlePostsByTag lists the posts carrying a tag.
//
// HTTP: GET /tags/{slug}
func (p *Pages) HandlePostsByTag(w http.ResponseWriter, r *http.Request) {
	tag, posts, err := p.ops.ListPostsByTag(r.Context(), chi.URLParam(r, "slug"), listOptions)
	if err != nil {
		p.showError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "posts_by_tag.html", &pageData{
		Title: "Posts tagged " + tag.Name,
		Tag:   tag,
		Posts: posts,
	})
}

// HandleSearch shows posts matching ?q in title, content or tag name.
//
// HTTP: GET /search?q=
func (p *Pages) HandleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	posts, err := p.ops.Search(r.Context(), query, listOptions)
	if err != nil {
		p.showError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "search_results.html", &pageData{
		Title: "Search",
		Query: query,
		Posts: posts,
	})
}
