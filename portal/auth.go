package portal

import (
	"errors"
	"net/http"
	"strings"

	"github.com/vidgate/vidgate-server/store"
)

// GET/POST /login
func (p *Portal) loginHandler(w http.ResponseWriter, r *http.Request) {
	if p.currentViewer(r) != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if r.Method == http.MethodPost {
		username := strings.TrimSpace(r.PostFormValue("username"))
		password := r.PostFormValue("password")
		if username == "" || password == "" {
			p.flash(w, r, "error", "Username and password required.")
			p.renderLogin(w, r)
			return
		}

		user, err := p.store.Validate(username, password)
		if err != nil {
			if !errors.Is(err, store.ErrUserNotFound) && !errors.Is(err, store.ErrInvalidPassword) {
				p.logger.Error().Err(err).Msg("login failed")
			}
			p.flash(w, r, "error", "Invalid username or password.")
			p.renderLogin(w, r)
			return
		}

		p.signIn(w, r, user)
		p.logger.Info().Str("username", user.Username).Str("rank", string(user.Rank)).Msg("user logged in")

		next := r.URL.Query().Get("next")
		if next == "" {
			next = r.PostFormValue("next")
		}
		if !safeRedirectTarget(next) {
			next = "/"
		}
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}

	p.renderLogin(w, r)
}

// GET /logout
func (p *Portal) logoutHandler(w http.ResponseWriter, r *http.Request) {
	username := ""
	if v := p.currentViewer(r); v != nil {
		username = v.Username
	}
	p.signOut(w, r)
	p.flash(w, r, "info", "You have been logged out.")
	if username != "" {
		p.logger.Info().Str("username", username).Msg("user logged out")
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (p *Portal) renderLogin(w http.ResponseWriter, r *http.Request) {
	p.render(w, "login", pageData{
		Title:   "Login",
		Flashes: p.takeFlashes(w, r),
		Next:    r.URL.Query().Get("next"),
	})
}

// safeRedirectTarget only allows local paths, so login cannot be used as an
// open redirect.
func safeRedirectTarget(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//")
}
