package portal

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/vidgate/vidgate-server/idhash"
	"github.com/vidgate/vidgate-server/rank"
	"github.com/vidgate/vidgate-server/store"
)

// allowedVideoExt is the upload allow-list, checked before anything touches
// the filesystem.
var allowedVideoExt = map[string]bool{
	"mp4":  true,
	"webm": true,
	"mkv":  true,
	"mov":  true,
}

const defaultThumbPosition = 0.5

// GET /admin
func (p *Portal) adminDashboardHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	p.render(w, "admin", pageData{
		Title:   "Admin",
		Viewer:  v,
		Flashes: p.takeFlashes(w, r),
	})
}

// GET/POST /admin/upload
func (p *Portal) adminUploadHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	if r.Method != http.MethodPost {
		p.render(w, "admin_upload", pageData{
			Title:   "Upload",
			Viewer:  v,
			Flashes: p.takeFlashes(w, r),
		})
		return
	}

	// Uploads touch the filesystem and external tools; any unexpected
	// failure is reported as a generic error instead of killing the
	// process.
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error().Interface("panic", rec).Msg("upload handler panicked")
			p.uploadError(w, r, http.StatusInternalServerError, "Upload failed: internal error")
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, p.uploadMaxBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		p.uploadError(w, r, http.StatusBadRequest, "Upload failed: request too large or malformed")
		return
	}

	title := strings.TrimSpace(r.PostFormValue("title"))
	description := strings.TrimSpace(r.PostFormValue("description"))
	videoRank := rank.Parse(r.PostFormValue("rank"))

	file, header, err := r.FormFile("video")
	if err != nil || header.Filename == "" {
		p.uploadError(w, r, http.StatusBadRequest, "Video file is required.")
		return
	}
	defer file.Close()

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if !allowedVideoExt[ext] {
		p.uploadError(w, r, http.StatusBadRequest,
			"Allowed video formats: mp4, webm, mkv, mov")
		return
	}

	filename, err := p.media.Store(file, videoRank, header.Filename)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to store uploaded video")
		p.uploadError(w, r, http.StatusInternalServerError, "Upload failed: could not store video")
		return
	}

	thumbName := p.extractThumbnail(r, filename, videoRank)

	video, err := p.store.AddVideo(store.Video{
		Title:       title,
		Filename:    filename,
		Rank:        videoRank,
		Description: description,
		Thumbnail:   thumbName,
	})
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to save video metadata")
		p.media.Delete(filename, videoRank)
		if thumbName != "" {
			p.media.Delete(thumbName, videoRank)
		}
		p.uploadError(w, r, http.StatusInternalServerError, "Upload failed: could not save metadata")
		return
	}
	p.rebuildSearchIndex(r.Context())
	p.logger.Info().Str("video", video.ID).Str("rank", string(videoRank)).
		Str("filename", filename).Msg("video uploaded")

	if wantsJSON(r) {
		serveJSON(map[string]any{"success": true, "message": "Video uploaded successfully.", "id": video.ID}, w)
		return
	}
	p.flash(w, r, "success", "Video uploaded successfully.")
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// extractThumbnail renders the middle frame next to the stored video.
// Returns the thumbnail filename, or empty when extraction failed.
func (p *Portal) extractThumbnail(r *http.Request, filename string, videoRank rank.Rank) string {
	if p.thumbnailer == nil {
		return ""
	}
	videoPath, err := p.media.ResolveForRead(filename, videoRank)
	if err != nil {
		return ""
	}
	thumbName := idhash.NewRandomID() + ".jpg"
	thumbPath := filepath.Join(p.media.Root(), string(videoRank), thumbName)
	if !p.thumbnailer.Extract(r.Context(), videoPath, thumbPath, defaultThumbPosition) {
		p.logger.Warn().Str("filename", filename).Msg("thumbnail extraction failed")
		return ""
	}
	return thumbName
}

func (p *Portal) uploadError(w http.ResponseWriter, r *http.Request, status int, message string) {
	if wantsJSON(r) {
		serveJSONStatus(map[string]string{"error": message}, w, status)
		return
	}
	p.flash(w, r, "error", message)
	http.Redirect(w, r, "/admin/upload", http.StatusSeeOther)
}

// GET/POST /admin/users
func (p *Portal) adminUsersHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	if r.Method == http.MethodPost {
		switch r.PostFormValue("action") {
		case "add":
			username := strings.TrimSpace(r.PostFormValue("username"))
			if username == "" {
				p.flash(w, r, "error", "Username is required.")
				break
			}
			_, err := p.store.AddUser(username, r.PostFormValue("password"),
				rank.Parse(r.PostFormValue("rank")))
			switch {
			case errors.Is(err, store.ErrUserExists):
				p.flash(w, r, "error", fmt.Sprintf("User %q already exists.", username))
			case err != nil:
				p.logger.Error().Err(err).Msg("failed to add user")
				p.flash(w, r, "error", "Failed to add user.")
			default:
				p.flash(w, r, "success", fmt.Sprintf("User %q added.", username))
			}
		case "delete":
			username := strings.TrimSpace(r.PostFormValue("username"))
			err := p.store.DeleteUser(username)
			switch {
			case errors.Is(err, store.ErrProtectedUser):
				p.flash(w, r, "error", "Cannot delete admin user.")
			case errors.Is(err, store.ErrUserNotFound):
				p.flash(w, r, "error", fmt.Sprintf("User %q not found.", username))
			case err != nil:
				p.logger.Error().Err(err).Msg("failed to delete user")
				p.flash(w, r, "error", "Failed to delete user.")
			default:
				p.flash(w, r, "success", fmt.Sprintf("User %q deleted.", username))
			}
		}
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}

	users, err := p.store.LoadUsers()
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to load users")
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	views := make([]userView, len(users))
	for i, u := range users {
		views[i] = userView{Username: u.Username, Rank: u.Rank}
	}
	p.render(w, "admin_users", pageData{
		Title:   "Users",
		Viewer:  v,
		Flashes: p.takeFlashes(w, r),
		Users:   views,
	})
}

// GET/POST /admin/users/{username}/edit
func (p *Portal) adminEditUserHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	username := mux.Vars(r)["username"]
	user, err := p.store.GetUser(username)
	if err != nil {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}

	if r.Method == http.MethodPost {
		newUsername := strings.TrimSpace(r.PostFormValue("username"))
		if newUsername == "" {
			p.flash(w, r, "error", "Username is required.")
			http.Redirect(w, r, "/admin/users/"+username+"/edit", http.StatusSeeOther)
			return
		}
		err := p.store.UpdateUser(username, store.UserUpdate{
			Username: newUsername,
			Rank:     rank.Parse(r.PostFormValue("rank")),
			Password: r.PostFormValue("password"),
		})
		switch {
		case errors.Is(err, store.ErrUserExists):
			p.flash(w, r, "error", fmt.Sprintf("Username %q is already taken.", newUsername))
			http.Redirect(w, r, "/admin/users/"+username+"/edit", http.StatusSeeOther)
			return
		case errors.Is(err, store.ErrProtectedUser):
			p.flash(w, r, "error", "The admin user cannot be renamed.")
			http.Redirect(w, r, "/admin/users/"+username+"/edit", http.StatusSeeOther)
			return
		case err != nil:
			p.logger.Error().Err(err).Msg("failed to update user")
			p.flash(w, r, "error", "Failed to update user.")
			http.Redirect(w, r, "/admin/users/"+username+"/edit", http.StatusSeeOther)
			return
		}
		p.flash(w, r, "success", "User updated.")
		http.Redirect(w, r, "/admin/users", http.StatusSeeOther)
		return
	}

	p.render(w, "admin_edit_user", pageData{
		Title:   "Edit user",
		Viewer:  v,
		Flashes: p.takeFlashes(w, r),
		User:    &userView{Username: user.Username, Rank: user.Rank},
	})
}

// GET /admin/videos
func (p *Portal) adminVideosHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	videos, err := p.store.ListVideos()
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to list videos")
		http.Error(w, "500 Internal Server Error", http.StatusInternalServerError)
		return
	}
	p.sortNewestFirst(videos)

	views := make([]videoView, len(videos))
	for i, video := range videos {
		views[i] = makeVideoView(video, v, 0)
	}
	p.render(w, "admin_videos", pageData{
		Title:   "Videos",
		Viewer:  v,
		Flashes: p.takeFlashes(w, r),
		Videos:  views,
	})
}

// GET/POST /admin/videos/{id}/edit
//
// A rank change relocates the video file and its thumbnail before the
// metadata row is updated, keeping filename and rank consistent.
func (p *Portal) adminEditVideoHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	video, err := p.store.GetVideo(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}

	if r.Method == http.MethodPost {
		title := strings.TrimSpace(r.PostFormValue("title"))
		if title == "" {
			title = "Untitled"
		}
		newRank := rank.Parse(r.PostFormValue("rank"))

		if newRank != video.Rank {
			if err := p.media.Relocate(video.Filename, video.Rank, newRank); err != nil {
				p.logger.Error().Err(err).Str("video", video.ID).Msg("failed to relocate video file")
				p.flash(w, r, "error", "Failed to move video to the new tier.")
				http.Redirect(w, r, "/admin/videos/"+video.ID+"/edit", http.StatusSeeOther)
				return
			}
			if video.Thumbnail != "" {
				if err := p.media.Relocate(video.Thumbnail, video.Rank, newRank); err != nil {
					p.logger.Warn().Err(err).Str("video", video.ID).Msg("failed to relocate thumbnail")
				}
			}
		}

		video.Title = title
		video.Description = strings.TrimSpace(r.PostFormValue("description"))
		video.Rank = newRank
		if err := p.store.UpdateVideo(*video); err != nil {
			p.logger.Error().Err(err).Str("video", video.ID).Msg("failed to update video")
			p.flash(w, r, "error", "Failed to update video.")
			http.Redirect(w, r, "/admin/videos/"+video.ID+"/edit", http.StatusSeeOther)
			return
		}
		p.rebuildSearchIndex(r.Context())
		p.flash(w, r, "success", "Video updated.")
		http.Redirect(w, r, "/admin/videos", http.StatusSeeOther)
		return
	}

	view := makeVideoView(*video, v, 0)
	p.render(w, "admin_edit_video", pageData{
		Title:   "Edit video",
		Viewer:  v,
		Flashes: p.takeFlashes(w, r),
		Video:   &view,
	})
}

// POST /admin/videos/{id}/delete
//
// File removal is best-effort: the metadata row is gone regardless of
// whether the binaries could be unlinked.
func (p *Portal) adminDeleteVideoHandler(w http.ResponseWriter, r *http.Request, v *viewer) {
	deleted, err := p.store.DeleteVideo(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "404 Not Found", http.StatusNotFound)
		return
	}

	if deleted.Filename != "" {
		p.media.Delete(deleted.Filename, deleted.Rank)
	}
	if deleted.Thumbnail != "" {
		p.media.Delete(deleted.Thumbnail, deleted.Rank)
	}
	if p.repo != nil {
		if err := p.repo.DeleteVideo(r.Context(), deleted.ID); err != nil {
			p.logger.Warn().Err(err).Str("video", deleted.ID).Msg("failed to clean up play state")
		}
	}
	p.rebuildSearchIndex(r.Context())
	p.logger.Info().Str("video", deleted.ID).Msg("video deleted")

	p.flash(w, r, "success", "Video deleted.")
	http.Redirect(w, r, "/admin/videos", http.StatusSeeOther)
}
