// Package portal implements the HTTP surface of the media portal: login,
// browsing, rank-gated delivery of video bytes, the JSON API and the
// administration pages.
package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"
	"github.com/rs/zerolog"

	"github.com/vidgate/vidgate-server/database"
	"github.com/vidgate/vidgate-server/mediastore"
	"github.com/vidgate/vidgate-server/search"
	"github.com/vidgate/vidgate-server/store"
)

// Thumbnailer extracts a thumbnail frame from a video file.
type Thumbnailer interface {
	Extract(ctx context.Context, videoPath, outputPath string, position float64) bool
}

type Options struct {
	Store       *store.Store
	Media       *mediastore.MediaStore
	Thumbnailer Thumbnailer
	Repo        *database.Repository
	Search      *search.Search
	// SessionSecret signs the session cookie.
	SessionSecret string
	// SessionMaxAge is the cookie lifetime in seconds.
	SessionMaxAge int
	// UploadMaxBytes caps a single upload request.
	UploadMaxBytes int64
	Logger         zerolog.Logger
}

type Portal struct {
	store          *store.Store
	media          *mediastore.MediaStore
	thumbnailer    Thumbnailer
	repo           *database.Repository
	searchIndex    *search.Search
	sessions       *sessions.CookieStore
	uploadMaxBytes int64
	templates      *templateSet
	logger         zerolog.Logger
}

func New(o *Options) *Portal {
	cookieStore := sessions.NewCookieStore([]byte(o.SessionSecret))
	cookieStore.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   o.SessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	p := &Portal{
		store:          o.Store,
		media:          o.Media,
		thumbnailer:    o.Thumbnailer,
		repo:           o.Repo,
		searchIndex:    o.Search,
		sessions:       cookieStore,
		uploadMaxBytes: o.UploadMaxBytes,
		templates:      newTemplateSet(),
		logger:         o.Logger.With().Str("component", "portal").Logger(),
	}
	p.rebuildSearchIndex(context.Background())
	return p
}

func (p *Portal) RegisterHandlers(r *mux.Router) {
	gzip := handlers.CompressHandler

	r.HandleFunc("/login", p.loginHandler).Methods("GET", "POST")
	r.HandleFunc("/logout", p.logoutHandler).Methods("GET")
	r.HandleFunc("/healthz", p.healthzHandler).Methods("GET")

	r.HandleFunc("/", p.requireLogin(p.homeHandler)).Methods("GET")
	r.HandleFunc("/watch/{id}", p.requireLogin(p.watchHandler)).Methods("GET")
	r.HandleFunc("/video/{rank}/{filename}", p.requireLogin(p.streamVideoHandler)).Methods("GET", "HEAD")
	r.HandleFunc("/thumb/{rank}/{filename}", p.requireLogin(p.thumbHandler)).Methods("GET", "HEAD")

	s := r.PathPrefix("/api").Subrouter()
	s.Handle("/videos", gzip(http.HandlerFunc(p.requireLogin(p.apiVideosHandler)))).Methods("GET")
	s.Handle("/search", gzip(http.HandlerFunc(p.requireLogin(p.apiSearchHandler)))).Methods("GET")
	s.HandleFunc("/progress", p.requireLogin(p.apiProgressHandler)).Methods("POST")

	a := r.PathPrefix("/admin").Subrouter()
	a.HandleFunc("", p.requireAdmin(p.adminDashboardHandler)).Methods("GET")
	a.HandleFunc("/upload", p.requireAdmin(p.adminUploadHandler)).Methods("GET", "POST")
	a.HandleFunc("/users", p.requireAdmin(p.adminUsersHandler)).Methods("GET", "POST")
	a.HandleFunc("/users/{username}/edit", p.requireAdmin(p.adminEditUserHandler)).Methods("GET", "POST")
	a.HandleFunc("/videos", p.requireAdmin(p.adminVideosHandler)).Methods("GET")
	a.HandleFunc("/videos/{id}/edit", p.requireAdmin(p.adminEditVideoHandler)).Methods("GET", "POST")
	a.HandleFunc("/videos/{id}/delete", p.requireAdmin(p.adminDeleteVideoHandler)).Methods("POST")
}

func (p *Portal) healthzHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok"))
}

func serveJSON(obj any, w http.ResponseWriter) {
	serveJSONStatus(obj, w, http.StatusOK)
}

func serveJSONStatus(obj any, w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	j := json.NewEncoder(w)
	j.SetIndent("", "  ")
	j.Encode(obj)
}

// wantsJSON reports whether a request should get a JSON error instead of a
// redirect or an HTML page.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	accept := r.Header.Get("Accept")
	if strings.Contains(accept, "application/json") && !strings.Contains(accept, "text/html") {
		return true
	}
	ctype := r.Header.Get("Content-Type")
	return strings.Contains(ctype, "application/json")
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// rebuildSearchIndex re-indexes all video metadata. Called after every
// video mutation.
func (p *Portal) rebuildSearchIndex(ctx context.Context) {
	if p.searchIndex == nil {
		return
	}
	videos, err := p.store.ListVideos()
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to load videos for search index")
		return
	}
	docs := make([]search.Document, 0, len(videos))
	for _, v := range videos {
		docs = append(docs, search.Document{
			ID:          v.ID,
			Title:       v.Title,
			Description: v.Description,
		})
	}
	if err := p.searchIndex.Rebuild(ctx, docs); err != nil {
		p.logger.Error().Err(err).Msg("failed to rebuild search index")
	}
}

// sortNewestFirst orders videos by the time their file appeared on disk,
// newest first. Videos without a resolvable file sort last.
func (p *Portal) sortNewestFirst(videos []store.Video) {
	sort.SliceStable(videos, func(i, j int) bool {
		ti := p.media.AddedTime(videos[i].Filename, videos[i].Rank)
		tj := p.media.AddedTime(videos[j].Filename, videos[j].Rank)
		return ti.After(tj)
	})
}
