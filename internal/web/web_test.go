package web_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/model"
	"github.com/sakif/blog-platform/internal/policy"
	"github.com/sakif/blog-platform/internal/repository"
	"github.com/sakif/blog-platform/internal/repository/sqlite"
	"github.com/sakif/blog-platform/internal/service"
	"github.com/sakif/blog-platform/internal/web"
)

type testSite struct {
	t        *testing.T
	router   http.Handler
	blog     *service.BlogService
	sessions *service.AuthService
}

func newTestSite(t *testing.T) *testSite {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("web-test-secret-12345", time.Hour)
	require.NoError(t, err)
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)

	blog := service.NewBlogService(db, passwords, time.Second, logger)
	sessions := service.NewAuthService(db, tokens, passwords, logger)

	pages, err := web.NewPages(blog, sessions, tokens.TTL(), logger)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(auth.OptionalAuth(tokens))
	pages.Routes(r)

	return &testSite{t: t, router: r, blog: blog, sessions: sessions}
}

// user registers an account and returns its actor and session token.
func (s *testSite) user(username string) (policy.Actor, string) {
	s.t.Helper()
	u, err := s.blog.Register(context.Background(), service.RegisterInput{
		Username: username, Email: username + "@example.com", Password: "correct horse", Confirm: "correct horse",
	})
	require.NoError(s.t, err)
	res, err := s.sessions.IssueToken(u)
	require.NoError(s.t, err)
	return policy.Actor{UserID: u.ID}, res.Token
}

func (s *testSite) post(actor policy.Actor, title string, tags ...string) *model.Post {
	s.t.Helper()
	p, err := s.blog.CreatePost(context.Background(), actor, service.PostInput{Title: title, Content: "About " + title, Tags: tags})
	require.NoError(s.t, err)
	return p
}

func (s *testSite) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *testSite) get(path, token string) *httptest.ResponseRecorder {
	return s.serve(httptest.NewRequest(http.MethodGet, path, nil), token)
}

func (s *testSite) submit(path, token string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.serve(req, token)
}

func TestPostForm_ReRendersWithErrorsAndValues(t *testing.T) {
	site := newTestSite(t)
	_, token := site.user("alice")

	rr := site.submit("/posts/new", token, url.Values{
		"title":   {"Test"},
		"content": {"<p>" + strings.Repeat("z", 11) + "</p>"},
		"tags":    {"go, web"},
	})

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "title too generic")
	assert.Contains(t, body, "spam-like content")
	assert.Contains(t, body, `value="Test"`)
	assert.Contains(t, body, `value="go, web"`)

	posts, err := site.blog.ListPosts(context.Background(), repository.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostForm_AnonymousGoesToLogin(t *testing.T) {
	site := newTestSite(t)

	rr := site.get("/posts/new", "")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?next=%2Fposts%2Fnew", rr.Header().Get("Location"))

	rr = site.submit("/posts/new", "", url.Values{"title": {"A proper title"}, "content": {"Body"}})
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.True(t, strings.HasPrefix(rr.Header().Get("Location"), "/login"))
}

func TestCreatePost_RedirectsToList(t *testing.T) {
	site := newTestSite(t)
	_, token := site.user("alice")

	rr := site.submit("/posts/new", token, url.Values{
		"title": {"A proper title"}, "content": {"Body text"}, "tags": {"Go, Web Dev"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/posts", rr.Header().Get("Location"))

	list := site.get("/posts", "").Body.String()
	assert.Contains(t, list, "A proper title")
	assert.Contains(t, list, `href="/tags/web-dev"`)
}

func TestListPosts_OldestFirst(t *testing.T) {
	site := newTestSite(t)
	alice, _ := site.user("alice")
	site.post(alice, "First written post")
	site.post(alice, "Second written post")

	body := site.get("/posts", "").Body.String()
	first := strings.Index(body, "First written post")
	second := strings.Index(body, "Second written post")
	require.True(t, first >= 0 && second >= 0)
	assert.Less(t, first, second)
}

func TestListings_ShowEveryPost(t *testing.T) {
	site := newTestSite(t)
	alice, _ := site.user("alice")

	n := service.MaxListLimit + 5
	var newest *model.Post
	for i := 0; i < n; i++ {
		newest = site.post(alice, "Archive entry "+strconv.Itoa(i), "archive")
	}

	for _, path := range []string{"/posts", "/tags/archive", "/search?q=archive+entry"} {
		body := site.get(path, "").Body.String()
		assert.Equal(t, n, strings.Count(body, `<article>`), path)
		assert.Contains(t, body, `href="/posts/`+newest.ID+`"`, path)
	}
}

func TestEditPost_Ownership(t *testing.T) {
	site := newTestSite(t)
	alice, aliceToken := site.user("alice")
	_, bobToken := site.user("bob")
	post := site.post(alice, "Alice's original", "go")
	editPath := "/posts/" + post.ID + "/edit"

	t.Run("other users get a 403 page", func(t *testing.T) {
		rr := site.get(editPath, bobToken)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Contains(t, rr.Body.String(), "only the author can modify this post")

		rr = site.submit(editPath, bobToken, url.Values{"title": {"Bob's version"}, "content": {"x"}})
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("edit links only for the author", func(t *testing.T) {
		assert.NotContains(t, site.get("/posts/"+post.ID, bobToken).Body.String(), editPath)
		assert.Contains(t, site.get("/posts/"+post.ID, aliceToken).Body.String(), editPath)
	})

	t.Run("author gets a filled form", func(t *testing.T) {
		rr := site.get(editPath, aliceToken)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Alice&#39;s original")
		assert.Contains(t, rr.Body.String(), `value="go"`)
	})

	t.Run("author saves", func(t *testing.T) {
		rr := site.submit(editPath, aliceToken, url.Values{"title": {"Alice's revision"}, "content": {"New body"}})
		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/posts/"+post.ID, rr.Header().Get("Location"))
		assert.Contains(t, site.get("/posts/"+post.ID, "").Body.String(), "New body")
	})
}

func TestDeletePost_ConfirmThenDelete(t *testing.T) {
	site := newTestSite(t)
	alice, aliceToken := site.user("alice")
	bob, bobToken := site.user("bob")
	post := site.post(alice, "Short lived post")
	_, err := site.blog.CreateComment(context.Background(), bob, post.ID, "Nice")
	require.NoError(t, err)
	deletePath := "/posts/" + post.ID + "/delete"

	assert.Equal(t, http.StatusForbidden, site.get(deletePath, bobToken).Code)
	assert.Equal(t, http.StatusForbidden, site.submit(deletePath, bobToken, nil).Code)

	rr := site.get(deletePath, aliceToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Are you sure")

	rr = site.submit(deletePath, aliceToken, nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/posts", rr.Header().Get("Location"))
	assert.Equal(t, http.StatusNotFound, site.get("/posts/"+post.ID, "").Code)

	listing := site.get("/posts", "").Body.String()
	assert.NotContains(t, listing, "/posts/"+post.ID)
	assert.NotContains(t, listing, "Short lived post")
}

func TestComments(t *testing.T) {
	site := newTestSite(t)
	alice, aliceToken := site.user("alice")
	_, bobToken := site.user("bob")
	post := site.post(alice, "Open for comments")
	commentsPath := "/posts/" + post.ID + "/comments"

	rr := site.submit(commentsPath, bobToken, url.Values{"content": {"   "}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "comment is required")
	assert.Contains(t, rr.Body.String(), "Open for comments")

	rr = site.submit(commentsPath, "", url.Values{"content": {"drive-by"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login?next=%2Fposts%2F"+post.ID, rr.Header().Get("Location"))

	rr = site.submit(commentsPath, bobToken, url.Values{"content": {"Great read"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	location := rr.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "/posts/"+post.ID+"#comment-"), location)
	commentID := strings.TrimPrefix(location, "/posts/"+post.ID+"#comment-")

	detail := site.get("/comments/"+commentID, "")
	require.Equal(t, http.StatusOK, detail.Code)
	assert.Contains(t, detail.Body.String(), "Great read")

	// The post's author has no say over other people's comments.
	assert.Equal(t, http.StatusForbidden, site.get("/comments/"+commentID+"/edit", aliceToken).Code)
	assert.Equal(t, http.StatusForbidden, site.submit("/comments/"+commentID+"/delete", aliceToken, nil).Code)

	rr = site.submit("/comments/"+commentID+"/edit", bobToken, url.Values{"content": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = site.submit("/comments/"+commentID+"/edit", bobToken, url.Values{"content": {"Great read, edited"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/posts/"+post.ID, rr.Header().Get("Location"))

	assert.Equal(t, http.StatusOK, site.get("/comments/"+commentID+"/delete", bobToken).Code)
	rr = site.submit("/comments/"+commentID+"/delete", bobToken, nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, http.StatusNotFound, site.get("/comments/"+commentID, "").Code)
}

func TestRegister(t *testing.T) {
	site := newTestSite(t)

	rr := site.submit("/register", "", url.Values{
		"username": {"newbie"}, "email": {"newbie@example.com"},
		"password": {"correct horse"}, "confirm": {"battery staple"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "passwords do not match")
	assert.Contains(t, rr.Body.String(), `value="newbie"`)
	assert.NotContains(t, rr.Body.String(), "correct horse")

	rr = site.submit("/register", "", url.Values{
		"username": {"newbie"}, "email": {"newbie@example.com"},
		"password": {"correct horse"}, "confirm": {"correct horse"},
	})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/profile", rr.Header().Get("Location"))

	var token string
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			token = c.Value
		}
	}
	require.NotEmpty(t, token, "registering signs the user in")

	profile := site.get("/profile", token)
	require.Equal(t, http.StatusOK, profile.Code)
	assert.Contains(t, profile.Body.String(), `value="newbie@example.com"`)
}

func TestLogin(t *testing.T) {
	site := newTestSite(t)
	site.user("alice")

	rr := site.submit("/login", "", url.Values{"username": {"alice"}, "password": {"nope nope"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "invalid username or password")

	tests := []struct {
		next string
		want string
	}{
		{"/posts/new", "/posts/new"},
		{"", "/posts"},
		{"//evil.example.com", "/posts"},
		{"https://evil.example.com", "/posts"},
	}
	for _, tt := range tests {
		rr := site.submit("/login", "", url.Values{"username": {"alice"}, "password": {"correct horse"}, "next": {tt.next}})
		require.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, tt.want, rr.Header().Get("Location"), "next=%q", tt.next)
	}
}

func TestLogout(t *testing.T) {
	site := newTestSite(t)
	_, token := site.user("alice")

	rr := site.submit("/logout", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "You have been logged out.")
	assert.NotContains(t, rr.Body.String(), `href="/profile"`)
}

func TestProfile(t *testing.T) {
	site := newTestSite(t)
	_, token := site.user("alice")
	site.user("bob")

	assert.Equal(t, http.StatusSeeOther, site.get("/profile", "").Code)

	rr := site.submit("/profile", token, url.Values{"username": {"bob"}, "email": {"alice@example.com"}})
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "a user with that username already exists")

	rr = site.submit("/profile", token, url.Values{"username": {"alice"}, "email": {"alice@example.org"}, "firstName": {"Alice"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/profile?updated=1", rr.Header().Get("Location"))

	page := site.get("/profile?updated=1", token).Body.String()
	assert.Contains(t, page, "Your profile has been updated")
	assert.Contains(t, page, `value="Alice"`)
}

func TestQueries(t *testing.T) {
	site := newTestSite(t)
	alice, _ := site.user("alice")
	site.post(alice, "Learning golang", "go")
	site.post(alice, "Baking bread", "food")

	rr := site.get("/search?q=golang", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Learning golang")
	assert.NotContains(t, rr.Body.String(), "Baking bread")

	assert.Contains(t, site.get("/search?q=+", "").Body.String(), "Enter a word")

	rr = site.get("/tags/food", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Baking bread")
	assert.NotContains(t, rr.Body.String(), "Learning golang")

	assert.Equal(t, http.StatusNotFound, site.get("/tags/nope", "").Code)
	assert.Equal(t, http.StatusNotFound, site.get("/posts/nope", "").Code)
}
