package portal

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/vidgate/vidgate-server/rank"
)

//go:embed templates/*.html
var templateFS embed.FS

// videoView is the template/JSON projection of a video row.
type videoView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	Rank        rank.Rank `json:"rank"`
	Description string    `json:"description"`
	Thumbnail   string    `json:"thumbnail"`
	CanWatch    bool      `json:"can_watch"`
}

// userView is the template projection of a user row.
type userView struct {
	Username string
	Rank     rank.Rank
}

// pageData carries everything the page templates render.
type pageData struct {
	Title   string
	Viewer  *viewer
	Flashes []flashMessage

	// Login
	Next string

	// Browse / watch
	Videos     []videoView
	Video      *videoView
	CanWatch   bool
	Resume     int64
	Query      string
	RankFilter string

	// Admin
	Users []userView
	User  *userView
	Ranks []rank.Rank
}

type templateSet struct {
	pages map[string]*template.Template
}

var pageNames = []string{
	"login",
	"home",
	"watch",
	"admin",
	"admin_upload",
	"admin_users",
	"admin_edit_user",
	"admin_videos",
	"admin_edit_video",
}

func newTemplateSet() *templateSet {
	set := &templateSet{
		pages: make(map[string]*template.Template, len(pageNames)),
	}
	for _, name := range pageNames {
		set.pages[name] = template.Must(template.ParseFS(templateFS,
			"templates/base.html", "templates/"+name+".html"))
	}
	return set
}

func (p *Portal) render(w http.ResponseWriter, name string, data pageData) {
	if data.Ranks == nil {
		data.Ranks = rank.Ranks
	}
	tmpl, ok := p.templates.pages[name]
	if !ok {
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "base", data); err != nil {
		p.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}
