package portal

import (
	"encoding/gob"
	"net/http"
	"net/url"

	"github.com/vidgate/vidgate-server/rank"
	"github.com/vidgate/vidgate-server/store"
)

const sessionName = "vidgate"

// viewer is the per-request identity bound to the session cookie.
type viewer struct {
	Username string
	Rank     rank.Rank
}

func (v *viewer) IsAdmin() bool {
	return v != nil && v.Username == store.AdminUsername
}

// flashMessage is a one-shot notification shown on the next rendered page.
type flashMessage struct {
	Kind    string
	Message string
}

func init() {
	gob.Register(flashMessage{})
}

// currentViewer returns the authenticated viewer, or nil for anonymous
// requests.
func (p *Portal) currentViewer(r *http.Request) *viewer {
	session, err := p.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	username, ok := session.Values["username"].(string)
	if !ok || username == "" {
		return nil
	}
	rankValue, _ := session.Values["rank"].(string)
	return &viewer{
		Username: username,
		Rank:     rank.Parse(rankValue),
	}
}

// signIn binds the user to a fresh session.
func (p *Portal) signIn(w http.ResponseWriter, r *http.Request, user *store.User) {
	session, _ := p.sessions.Get(r, sessionName)
	session.Values["username"] = user.Username
	session.Values["rank"] = string(user.Rank)
	if err := session.Save(r, w); err != nil {
		p.logger.Error().Err(err).Msg("failed to save session")
	}
}

// signOut clears the session.
func (p *Portal) signOut(w http.ResponseWriter, r *http.Request) {
	session, _ := p.sessions.Get(r, sessionName)
	session.Values = make(map[any]any)
	session.Options.MaxAge = -1
	session.Save(r, w)
}

// flash queues a one-shot message for the next rendered page.
func (p *Portal) flash(w http.ResponseWriter, r *http.Request, kind, message string) {
	session, _ := p.sessions.Get(r, sessionName)
	session.AddFlash(flashMessage{Kind: kind, Message: message})
	session.Save(r, w)
}

// takeFlashes returns and clears any queued flash messages.
func (p *Portal) takeFlashes(w http.ResponseWriter, r *http.Request) []flashMessage {
	session, err := p.sessions.Get(r, sessionName)
	if err != nil {
		return nil
	}
	raw := session.Flashes()
	if len(raw) == 0 {
		return nil
	}
	session.Save(r, w)
	messages := make([]flashMessage, 0, len(raw))
	for _, f := range raw {
		if m, ok := f.(flashMessage); ok {
			messages = append(messages, m)
		}
	}
	return messages
}

// requireLogin rejects anonymous requests: JSON clients get a 401, browsers
// are redirected to the login page with the original URL in next.
func (p *Portal) requireLogin(next func(http.ResponseWriter, *http.Request, *viewer)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := p.currentViewer(r)
		if v == nil {
			if wantsJSON(r) {
				serveJSONStatus(map[string]string{"error": "Unauthorized"}, w, http.StatusUnauthorized)
				return
			}
			p.flash(w, r, "warning", "Please log in.")
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next(w, r, v)
	}
}

// requireAdmin additionally rejects authenticated non-administrators.
func (p *Portal) requireAdmin(next func(http.ResponseWriter, *http.Request, *viewer)) http.HandlerFunc {
	return p.requireLogin(func(w http.ResponseWriter, r *http.Request, v *viewer) {
		if !v.IsAdmin() {
			http.Error(w, "403 Forbidden", http.StatusForbidden)
			return
		}
		next(w, r, v)
	})
}
