package portal

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gorilla/mux"

	"github.com/vidgate/vidgate-server/rank"
)

// GET /video/{rank}/{filename}
//
// streamVideoHandler delivers video bytes. The rank segment must name a
// real tier (404 otherwise), the viewer's tier must allow it (403), and the
// file must resolve safely inside that tier's folder (404). Bytes are served
// inline with range support so browsers can seek.
func (p *Portal) streamVideoHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	vars := mux.Vars(r)
	if !rank.Valid(vars["rank"]) {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}
	contentRank := rank.Parse(vars["rank"])
	if !rank.CanWatch(v.Rank, contentRank) {
		http.Error(w, "403 Forbidden", http.StatusForbidden)
		return
	}
	p.serveMediaFile(w, r, vars["filename"], contentRank, videoContentType(vars["filename"]))
}

// GET /thumb/{rank}/{filename}
//
// thumbHandler delivers thumbnails with the same rank validity and path
// safety checks, but no tier gate: the browse page shows every card, so any
// authenticated viewer may fetch any thumbnail.
func (p *Portal) thumbHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	vars := mux.Vars(r)
	if !rank.Valid(vars["rank"]) {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}
	p.serveMediaFile(w, r, vars["filename"], rank.Parse(vars["rank"]), "image/jpeg")
}

func (p *Portal) serveMediaFile(w http.ResponseWriter, r *http.Request, filename string, contentRank rank.Rank, contentType string) {
	path, err := p.media.ResolveForRead(filename, contentRank)
	if err != nil {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}
	file, err := os.Open(path)
	if err != nil {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}
	defer file.Close()
	fi, err := file.Stat()
	if err != nil {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "inline")
	http.ServeContent(w, r, filepath.Base(path), fi.ModTime(), file)
}

func videoContentType(filename string) string {
	if t := mime.TypeByExtension(filepath.Ext(filename)); t != "" {
		return t
	}
	return "video/mp4"
}
