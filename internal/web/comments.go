package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/policy"
)

// HandleCreateComment adds a comment from the form on the post page. A
// rejected comment shows the post again with the message and the typed
// text.
//
// HTTP: POST /posts/{id}/comments
func (p *Pages) HandleCreateComment(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "id")
	form := formValues(r, "content")

	c, err := p.ops.CreateComment(r.Context(), auth.ActorFromContext(r.Context()), postID, form["content"])
	if err == nil {
		http.Redirect(w, r, "/posts/"+postID+"#comment-"+c.ID, http.StatusSeeOther)
		return
	}

	detail, loadErr := p.ops.GetPostDetail(r.Context(), postID)
	if loadErr != nil {
		p.showError(w, r, loadErr)
		return
	}
	data := detailData(detail)
	data.Form = form
	p.showForm(w, r, "post_detail.html", data, err)
}

// HandleCommentDetail shows a single comment.
//
// HTTP: GET /comments/{id}
func (p *Pages) HandleCommentDetail(w http.ResponseWriter, r *http.Request) {
	c, err := p.ops.GetComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.showError(w, r, err)
		return
	}
	p.render(w, r, http.StatusOK, "comment_detail.html", &pageData{Title: "Comment", Comment: c})
}

// HandleEditComment shows the comment form to its author.
//
// HTTP: GET /comments/{id}/edit
func (p *Pages) HandleEditComment(w http.ResponseWriter, r *http.Request) {
	c, err := p.ops.GetComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.showError(w, r, err)
		return
	}
	if !p.requireOwner(w, r, policy.CommentTarget(c)) {
		return
	}
	p.render(w, r, http.StatusOK, "comment_form.html", &pageData{
		Title:   "Edit comment",
		Comment: c,
		Form:    map[string]string{"content": c.Content},
	})
}

// HandleUpdateComment saves the edit and returns to the post.
//
// HTTP: POST /comments/{id}/edit
func (p *Pages) HandleUpdateComment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	form := formValues(r, "content")

	c, err := p.ops.UpdateComment(r.Context(), auth.ActorFromContext(r.Context()), id, form["content"])
	if err != nil {
		current, loadErr := p.ops.GetComment(r.Context(), id)
		if loadErr != nil {
			p.showError(w, r, loadErr)
			return
		}
		p.showForm(w, r, "comment_form.html", &pageData{Title: "Edit comment", Comment: current, Form: form}, err)
		return
	}
	http.Redirect(w, r, "/posts/"+c.PostID, http.StatusSeeOther)
}

// HandleConfirmDeleteComment asks the author to confirm.
//
// HTTP: GET /comments/{id}/delete
func (p *Pages) HandleConfirmDeleteComment(w http.ResponseWriter, r *http.Request) {
	c, err := p.ops.GetComment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		p.showError(w, r, err)
		return
	}
	if !p.requireOwner(w, r, policy.CommentTarget(c)) {
		return
	}
	p.render(w, r, http.StatusOK, "comment_delete.html", &pageData{Title: "Delete comment", Comment: c})
}

// HandleDeleteComment removes the comment and returns to its post.
//
// HTTP: POST /comments/{id}/delete
func (p *Pages) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	c, err := p.ops.DeleteComment(r.Context(), auth.ActorFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		p.showError(w, r, err)
		return
	}
	http.Redirect(w, r, "/posts/"+c.PostID, http.StatusSeeOther)
}
