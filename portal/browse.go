package portal

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vidgate/vidgate-server/database"
	"github.com/vidgate/vidgate-server/rank"
	"github.com/vidgate/vidgate-server/store"
)

// GET /
//
// homeHandler lists all videos, regardless of the viewer's tier: locked
// content is visible on the browse page, only its bytes are gated.
// Optional filters: rank (exact tier) and q (title substring).
func (p *Portal) homeHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	rankFilter := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("rank")))
	if !rank.Valid(rankFilter) {
		rankFilter = ""
	}
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	videos, err := p.store.ListVideos()
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to list videos")
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	p.sortNewestFirst(videos)

	views := make([]videoView, 0, len(videos))
	for _, video := range videos {
		if rankFilter != "" && string(video.Rank) != rankFilter {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(video.Title), q) {
			continue
		}
		views = append(views, makeVideoView(video, v, 100))
	}

	p.render(w, "home", pageData{
		Title:      "Browse",
		Viewer:     v,
		Flashes:    p.takeFlashes(w, r),
		Videos:     views,
		Query:      r.URL.Query().Get("q"),
		RankFilter: rankFilter,
	})
}

// GET /watch/{id}
func (p *Portal) watchHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	video, err := p.store.GetVideo(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}

	view := makeVideoView(*video, v, 0)

	var resume int64
	if p.repo != nil {
		if state, err := p.repo.Get(r.Context(), v.Username, video.ID); err == nil {
			resume = state.Position
		} else if !errors.Is(err, database.ErrNotFound) {
			p.logger.Warn().Err(err).Str("video", video.ID).Msg("failed to load play state")
		}
	}

	p.render(w, "watch", pageData{
		Title:    video.Title,
		Viewer:   v,
		Flashes:  p.takeFlashes(w, r),
		Video:    &view,
		CanWatch: view.CanWatch,
		Resume:   resume,
	})
}

// makeVideoView projects a store row for templates and the API. A non-zero
// maxDescription truncates the description for listing pages.
func makeVideoView(video store.Video, v *viewer, maxDescription int) videoView {
	description := video.Description
	if maxDescription > 0 {
		description = truncate(description, maxDescription)
	}
	return videoView{
		ID:          video.ID,
		Title:       video.Title,
		Filename:    video.Filename,
		Rank:        video.Rank,
		Description: description,
		Thumbnail:   video.Thumbnail,
		CanWatch:    rank.CanWatch(v.Rank, video.Rank),
	}
}
