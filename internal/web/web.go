// Package web serves the blog as server-rendered HTML pages with forms.
//
// It calls the same service.Operations as the JSON API. Differences are only
// in presentation: a failed form is shown again with a message under each
// field and the values the user typed, a signed-out user trying to write is
// sent to the login page, and a user touching someone else's content gets a
// 403 page.
package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/policy"
	"github.com/sakif/blog-platform/internal/service"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages lists every page template. Each is parsed together with base.html.
var pages = []string{
	"post_list.html",
	"post_detail.html",
	"post_form.html",
	"post_confirm_delete.html",
	"comment_detail.html",
	"comment_form.html",
	"comment_delete.html",
	"posts_by_tag.html",
	"search_results.html",
	"register.html",
	"login.html",
	"logout.html",
	"profile.html",
	"error.html",
}

var functions = template.FuncMap{
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02 Jan 2006, 15:04")
	},
}

// Pages holds the parsed templates and the services behind them.
type Pages struct {
	ops       service.Operations
	sessions  *service.AuthService
	cookieTTL time.Duration
	templates map[string]*template.Template
	logger    *slog.Logger
}

// NewPages parses all templates once. A template error fails startup rather
// than the first request that needs the page.
func NewPages(ops service.Operations, sessions *service.AuthService, cookieTTL time.Duration, logger *slog.Logger) (*Pages, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("").Funcs(functions).ParseFS(templateFS, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("web: parsing %s: %w", page, err)
		}
		templates[page] = t
	}
	return &Pages{
		ops:       ops,
		sessions:  sessions,
		cookieTTL: cookieTTL,
		templates: templates,
		logger:    logger,
	}, nil
}

// Routes registers the HTML pages on r.
func (p *Pages) Routes(r chi.Router) {
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/posts", http.StatusSeeOther)
	})

	r.Get("/posts", p.HandleListPosts)
	r.Get("/posts/new", p.HandleNewPost)
	r.Post("/posts/new", p.HandleCreatePost)
	r.Get("/posts/{id}", p.HandlePostDetail)
	r.Get("/posts/{id}/edit", p.HandleEditPost)
	r.Post("/posts/{id}/edit", p.HandleUpdatePost)
	r.Get("/posts/{id}/delete", p.HandleConfirmDeletePost)
	r.Post("/posts/{id}/delete", p.HandleDeletePost)
	r.Post("/posts/{id}/comments", p.HandleCreateComment)

	r.Get("/comments/{id}", p.HandleCommentDetail)
	r.Get("/comments/{id}/edit", p.HandleEditComment)
	r.Post("/comments/{id}/edit", p.HandleUpdateComment)
	r.Get("/comments/{id}/delete", p.HandleConfirmDeleteComment)
	r.Post("/comments/{id}/delete", p.HandleDeleteComment)

	r.Get("/tags/{slug}", p.HandlePostsByTag)
	r.Get("/search", p.HandleSearch)

	r.Get("/register", p.HandleRegisterForm)
	r.Post("/register", p.HandleRegister)
	r.Get("/login", p.HandleLoginForm)
	r.Post("/login", p.HandleLogin)
	r.Get("/logout", p.HandleLogoutForm)
	r.Post("/logout", p.HandleLogout)
	r.Get("/profile", p.HandleProfile)
	r.Post("/profile", p.HandleEditProfile)
}

// pageData is what every template receives.
type pageData struct {
	Title   string
	Path    string
	User    *model.User // nil when signed out
	Form    map[string]string
	Errors  map[string]string
	Flash   string
	Query   string
	Next    string
	Message string
	Status  int

	Post     *model.Post
	Posts    []model.Post
	Comments []model.Comment
	Comment  *model.Comment
	Tag      *model.Tag
}

// Owns reports whether the signed-in user may change content by authorID.
// Templates use it to decide which edit and delete links to show.
func (d *pageData) Owns(authorID string) bool {
	var actor policy.Actor
	if d.User != nil {
		actor.UserID = d.User.ID
	}
	return policy.CanWrite(actor, policy.Target{AuthorID: authorID})
}

// render executes page into a buffer first so a template error never leaves
// a half-written page behind.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, page string, data *pageData) {
	if data == nil {
		data = &pageData{}
	}
	data.Path = r.URL.Path
	if data.User == nil {
		data.User = p.currentUser(r)
	}

	t, ok := p.templates[page]
	if !ok {
		p.serverError(w, fmt.Errorf("web: unknown page %q", page))
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		p.serverError(w, fmt.Errorf("web: rendering %s: %w", page, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// currentUser loads the signed-in user for the navigation bar. A lookup
// failure renders the page as signed out.
func (p *Pages) currentUser(r *http.Request) *model.User {
	actor := auth.ActorFromContext(r.Context())
	if !actor.Authenticated() {
		return nil
	}
	user, err := p.ops.GetProfile(r.Context(), actor)
	if err != nil {
		return nil
	}
	return user
}

func (p *Pages) serverError(w http.ResponseWriter, err error) {
	p.logger.Error("page failed", slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// showError turns a failed operation into a page. Validation errors are
// handled by the form handlers themselves; here they only reach pages
// without a form.
func (p *Pages) showError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		redirectToLogin(w, r)
		return
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrTimeout):
		status = http.StatusGatewayTimeout
	default:
		status = http.StatusInternalServerError
	}

	message := http.StatusText(status)
	var appErr *apperror.AppError
	if status != http.StatusInternalServerError && errors.As(err, &appErr) {
		message = appErr.Message
	}
	p.render(w, r, status, "error.html", &pageData{
		Title:   http.StatusText(status),
		Status:  status,
		Message: message,
	})
}

// showForm re-renders page after a failed submission. Validation failures
// keep the typed values and list a message per field; anything else goes to
// showError.
func (p *Pages) showForm(w http.ResponseWriter, r *http.Request, page string, data *pageData, err error) {
	if !errors.Is(err, apperror.ErrValidation) {
		p.showError(w, r, err)
		return
	}
	data.Errors = apperror.Fields(err)
	p.render(w, r, http.StatusUnprocessableEntity, page, data)
}

// requireOwner guards pages that show an edit or delete form. It answers
// the request itself and returns false when the actor may not proceed.
func (p *Pages) requireOwner(w http.ResponseWriter, r *http.Request, target policy.Target) bool {
	actor := auth.ActorFromContext(r.Context())
	err := policy.RequireAuthenticated(actor)
	if err == nil {
		err = policy.Authorize(actor, target)
	}
	if err != nil {
		p.showError(w, r, err)
		return false
	}
	return true
}

func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	next := r.URL.Path
	if r.Method != http.MethodGet {
		// A POST target cannot be revisited with GET; return to the form.
		next = strings.TrimSuffix(next, "/comments")
	}
	http.Redirect(w, r, "/login?next="+url.QueryEscape(next), http.StatusSeeOther)
}

// safeNext accepts only local paths as a post-login destination.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/posts"
	}
	return next
}

// formValues copies the named fields of a submitted form.
func formValues(r *http.Request, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = r.PostFormValue(name)
	}
	return out
}
