package portal

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vidgate/vidgate-server/database"
	"github.com/vidgate/vidgate-server/rank"
	"github.com/vidgate/vidgate-server/store"
)

// GET /api/videos?q=
//
// apiVideosHandler lists the videos the viewer is allowed to watch, unlike
// the browse page which shows locked content too.
func (p *Portal) apiVideosHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))

	videos, err := p.store.ListVideos()
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to list videos")
		serveJSONStatus(map[string]string{"error": "Internal Server Error"}, w, http.StatusInternalServerError)
		return
	}
	p.sortNewestFirst(videos)

	out := make([]videoView, 0, len(videos))
	for _, video := range videos {
		if !rank.CanWatch(v.Rank, video.Rank) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(video.Title), q) {
			continue
		}
		out = append(out, makeVideoView(video, v, 100))
	}
	serveJSON(out, w)
}

// GET /api/search?q=
//
// apiSearchHandler runs the fuzzy title search and returns matches the
// viewer may watch, best match first.
func (p *Portal) apiSearchHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		serveJSONStatus(map[string]string{"error": "query parameter q is required"}, w, http.StatusBadRequest)
		return
	}

	ids, err := p.searchIndex.Search(r.Context(), q, 50)
	if err != nil {
		p.logger.Error().Err(err).Str("query", q).Msg("search failed")
		serveJSONStatus(map[string]string{"error": "Internal Server Error"}, w, http.StatusInternalServerError)
		return
	}

	videos, err := p.store.ListVideos()
	if err != nil {
		serveJSONStatus(map[string]string{"error": "Internal Server Error"}, w, http.StatusInternalServerError)
		return
	}
	byID := make(map[string]store.Video, len(videos))
	for _, video := range videos {
		byID[video.ID] = video
	}

	out := make([]videoView, 0, len(ids))
	for _, id := range ids {
		video, ok := byID[id]
		if !ok || !rank.CanWatch(v.Rank, video.Rank) {
			continue
		}
		out = append(out, makeVideoView(video, v, 100))
	}
	serveJSON(out, w)
}

// POST /api/progress
//
// apiProgressHandler stores the viewer's playback position of a video.
func (p *Portal) apiProgressHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	var request struct {
		VideoID  string `json:"video_id"`
		Position int64  `json:"position"`
	}
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		serveJSONStatus(map[string]string{"error": "invalid request body"}, w, http.StatusBadRequest)
		return
	}
	if request.VideoID == "" || request.Position < 0 {
		serveJSONStatus(map[string]string{"error": "video_id and a non-negative position are required"}, w, http.StatusBadRequest)
		return
	}

	video, err := p.store.GetVideo(request.VideoID)
	if err != nil {
		serveJSONStatus(map[string]string{"error": "Not Found"}, w, http.StatusNotFound)
		return
	}
	// Progress only makes sense for videos the viewer can actually watch.
	if !rank.CanWatch(v.Rank, video.Rank) {
		serveJSONStatus(map[string]string{"error": "Forbidden"}, w, http.StatusForbidden)
		return
	}

	if err := p.repo.Update(r.Context(), v.Username, video.ID, &database.PlayState{
		Position: request.Position,
	}); err != nil {
		p.logger.Error().Err(err).Str("video", video.ID).Msg("failed to store play state")
		serveJSONStatus(map[string]string{"error": "Internal Server Error"}, w, http.StatusInternalServerError)
		return
	}
	serveJSON(map[string]bool{"success": true}, w)
}
