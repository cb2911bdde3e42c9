package web

import (
	"net/http"

	"github.com/sakif/blog-platform/internal/auth"
	"github.com/sakif/blog-platform/internal/service"
)

// HTTP: GET /register
func (p *Pages) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "register.html", &pageData{Title: "Register"})
}

// HandleRegister creates the account, signs the new user in and shows
// their profile.
//
// HTTP: POST /register
func (p *Pages) HandleRegister(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "username", "email", "firstName", "lastName")
	in := service.RegisterInput{
		Username:  form["username"],
		Email:     form["email"],
		FirstName: form["firstName"],
		LastName:  form["lastName"],
		Password:  r.PostFormValue("password"),
		Confirm:   r.PostFormValue("confirm"),
	}

	user, err := p.ops.Register(r.Context(), in)
	if err != nil {
		// Passwords are never echoed back into the form.
		p.showForm(w, r, "register.html", &pageData{Title: "Register", Form: form}, err)
		return
	}
	result, err := p.sessions.IssueToken(user)
	if err != nil {
		p.serverError(w, err)
		return
	}

	auth.SetTokenCookie(w, result.Token, p.cookieTTL)
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

// HTTP: GET /login?next=/posts/new
func (p *Pages) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "login.html", &pageData{
		Title: "Log in",
		Next:  r.URL.Query().Get("next"),
	})
}

// HandleLogin checks the credentials and continues to ?next.
//
// HTTP: POST /login
func (p *Pages) HandleLogin(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "username")
	next := r.PostFormValue("next")

	result, err := p.sessions.Login(r.Context(), form["username"], r.PostFormValue("password"))
	if err != nil {
		p.render(w, r, http.StatusUnauthorized, "login.html", &pageData{
			Title:  "Log in",
			Form:   form,
			Next:   next,
			Errors: map[string]string{"form": err.Error()},
		})
		return
	}

	auth.SetTokenCookie(w, result.Token, p.cookieTTL)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

// HTTP: GET /logout
func (p *Pages) HandleLogoutForm(w http.ResponseWriter, r *http.Request) {
	p.render(w, r, http.StatusOK, "logout.html", &pageData{Title: "Log out"})
}

// HandleLogout drops the session cookie.
//
// HTTP: POST /logout
func (p *Pages) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w)
	// The cookie is gone from the browser but this request still carries it.
	p.render(w, r.WithContext(auth.WithUserID(r.Context(), "")), http.StatusOK, "logout.html", &pageData{
		Title:   "Logged out",
		Message: "You have been logged out.",
	})
}

// HandleProfile shows the signed-in user's profile form.
//
// HTTP: GET /profile
func (p *Pages) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := p.ops.GetProfile(r.Context(), auth.ActorFromContext(r.Context()))
	if err != nil {
		p.showError(w, r, err)
		return
	}

	data := &pageData{
		Title: "Profile",
		User:  user,
		Form: map[string]string{
			"username":  user.Username,
			"email":     user.Email,
			"firstName": user.FirstName,
			"lastName":  user.LastName,
		},
	}
	if r.URL.Query().Get("updated") != "" {
		data.Flash = "Your profile has been updated"
	}
	p.render(w, r, http.StatusOK, "profile.html", data)
}

// HandleEditProfile saves the profile form.
//
// HTTP: POST /profile
func (p *Pages) HandleEditProfile(w http.ResponseWriter, r *http.Request) {
	form := formValues(r, "username", "email", "firstName", "lastName")
	in := service.ProfileInput{
		Username:  form["username"],
		Email:     form["email"],
		FirstName: form["firstName"],
		LastName:  form["lastName"],
	}

	if _, err := p.ops.EditProfile(r.Context(), auth.ActorFromContext(r.Context()), in); err != nil {
		p.showForm(w, r, "profile.html", &pageData{Title: "Profile", Form: form}, err)
		return
	}
	http.Redirect(w, r, "/profile?updated=1", http.StatusSeeOther)
}
