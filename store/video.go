package store

import (
	"strings"

	"github.com/vidgate/vidgate-server/idhash"
	"github.com/vidgate/vidgate-server/rank"
)

// Video is one metadata row in videos.xlsx. The referenced binary lives
// under the media directory of the row's current rank; every rank mutation
// must relocate the file to keep that invariant.
type Video struct {
	ID          string
	Title       string
	Filename    string
	Rank        rank.Rank
	Description string
	// Thumbnail is the thumbnail filename within the same rank folder, or
	// empty when extraction failed.
	Thumbnail string
}

var videoHeaders = []string{"id", "title", "filename", "rank", "description", "thumbnail"}

// LoadVideos reads all video metadata. A missing backing file is created
// with headers only.
func (s *Store) LoadVideos() ([]Video, error) {
	if !fileExists(s.videosFile) {
		if err := s.saveVideos(nil); err != nil {
			return nil, err
		}
		return nil, nil
	}

	records, err := readSheet(s.videosFile, videoHeaders)
	if err != nil {
		return nil, err
	}
	videos := make([]Video, 0, len(records))
	for _, r := range records {
		if r["id"] == "" {
			continue
		}
		videos = append(videos, Video{
			ID:          r["id"],
			Title:       r["title"],
			Filename:    r["filename"],
			Rank:        rank.Parse(r["rank"]),
			Description: r["description"],
			Thumbnail:   r["thumbnail"],
		})
	}
	return videos, nil
}

// SaveVideos replaces the videos file with the given rows.
func (s *Store) SaveVideos(videos []Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveVideos(videos)
}

func (s *Store) saveVideos(videos []Video) error {
	rows := make([][]any, len(videos))
	for i, v := range videos {
		rows[i] = []any{v.ID, v.Title, v.Filename, string(v.Rank), v.Description, v.Thumbnail}
	}
	return writeSheet(s.videosFile, videoHeaders, rows)
}

// ListVideos returns all videos.
func (s *Store) ListVideos() ([]Video, error) {
	return s.LoadVideos()
}

// GetVideo returns the video with the given id.
func (s *Store) GetVideo(id string) (*Video, error) {
	videos, err := s.LoadVideos()
	if err != nil {
		return nil, err
	}
	for i := range videos {
		if videos[i].ID == id {
			return &videos[i], nil
		}
	}
	return nil, ErrVideoNotFound
}

// AddVideo appends a video row. A fresh id is generated when none is set.
func (s *Store) AddVideo(v Video) (*Video, error) {
	if v.ID == "" {
		v.ID = idhash.NewRandomID()
	}
	if strings.TrimSpace(v.Title) == "" {
		v.Title = "Untitled"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	videos, err := s.LoadVideos()
	if err != nil {
		return nil, err
	}
	videos = append(videos, v)
	if err := s.saveVideos(videos); err != nil {
		return nil, err
	}
	return &v, nil
}

// UpdateVideo replaces the row with the same id.
func (s *Store) UpdateVideo(v Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	videos, err := s.LoadVideos()
	if err != nil {
		return err
	}
	for i := range videos {
		if videos[i].ID == v.ID {
			videos[i] = v
			return s.saveVideos(videos)
		}
	}
	return ErrVideoNotFound
}

// DeleteVideo removes a row and returns the removed video so the caller can
// clean up its files.
func (s *Store) DeleteVideo(id string) (*Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	videos, err := s.LoadVideos()
	if err != nil {
		return nil, err
	}
	var deleted *Video
	kept := videos[:0]
	for i := range videos {
		if videos[i].ID == id {
			v := videos[i]
			deleted = &v
			continue
		}
		kept = append(kept, videos[i])
	}
	if deleted == nil {
		return nil, ErrVideoNotFound
	}
	if err := s.saveVideos(kept); err != nil {
		return nil, err
	}
	return deleted, nil
}
