package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/xid"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler manages accounts and sessions for the JSON API.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister       → create a local account and sign it in
//   - HandleLogin          → check a password and issue a token
//   - HandleLogout         → clear the token cookie
//   - HandleMe/HandleEditMe → read or change the signed-in user's profile
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, exchange it for a user, issue JWT
//
// github may be nil when GitHub sign-in is not configured; its routes are
// then not registered.
type AuthHandler struct {
	ops       service.Operations
	sessions  *service.AuthService
	github    *auth.GitHubProvider
	cookieTTL time.Duration
	logger    *slog.Logger
}

func NewAuthHandler(
	ops service.Operations,
	sessions *service.AuthService,
	github *auth.GitHubProvider,
	cookieTTL time.Duration,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		ops:       ops,
		sessions:  sessions,
		github:    github,
		cookieTTL: cookieTTL,
		logger:    logger,
	}
}

// Routes registers account and session endpoints on r.
func (h *AuthHandler) Routes(r chi.Router) {
	r.Post("/api/register", h.HandleRegister)
	r.Get("/api/me", h.HandleMe)
	r.Put("/api/me", h.HandleEditMe)

	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	if h.github != nil {
		r.Get("/auth/github/login", h.HandleGitHubLogin)
		r.Get("/auth/github/callback", h.HandleGitHubCallback)
	}
}

// HandleRegister creates an account and signs it in straight away.
//
// HTTP: POST /api/register
// REQUEST BODY: {"username", "email", "firstName", "lastName", "password", "confirm"}
// RESPONSE: 201 {"user": {...}, "token": "..."} plus the token cookie
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.ops.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.sessions.IssueToken(user)
	if err != nil {
		writeError(w, r, err)
		return
	}

	auth.SetTokenCookie(w, result.Token, h.cookieTTL)
	writeJSON(w, r, http.StatusCreated, result)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleLogin exchanges a username and password for a token. The token is
// returned in the body for API clients and set as a cookie for browsers.
//
// HTTP: POST /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.sessions.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	auth.SetTokenCookie(w, result.Token, h.cookieTTL)
	writeJSON(w, r, http.StatusOK, result)
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless: one already handed out stays valid until it
// expires. Logging out only removes the browser's copy.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w)
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user's profile.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.ops.GetProfile(r.Context(), auth.ActorFromContext(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

// HandleEditMe changes the signed-in user's own profile.
//
// HTTP: PUT /api/me
func (h *AuthHandler) HandleEditMe(w http.ResponseWriter, r *http.Request) {
	var in service.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.ops.EditProfile(r.Context(), auth.ActorFromContext(r.Context()), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// CSRF PROTECTION VIA STATE:
// A random state value goes into a short-lived cookie and into the
// authorization URL. The callback only proceeds when both match.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Exchange the code for a GitHub user profile
//  3. Link or create the account and issue a JWT cookie
//  4. Redirect to the home page
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: Exchange code for GitHub user profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	// --- Step 3: Link account, issue JWT cookie ---
	result, err := h.sessions.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}
	auth.SetTokenCookie(w, result.Token, h.cookieTTL)

	// --- Step 4: Redirect to the app ---
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
