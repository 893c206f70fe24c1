// Package database persists per-user play state in sqlite so viewers can
// resume videos where they left off.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type (
	Options struct {
		Filename string
	}

	Repository struct {
		PlayStateRepo
	}

	// PlayStateRepo defines the interface for play state operations.
	PlayStateRepo interface {
		// Get returns the play state of a video for a user.
		Get(ctx context.Context, username, videoID string) (*PlayState, error)
		// Update stores the play state of a video for a user.
		Update(ctx context.Context, username, videoID string, state *PlayState) error
		// DeleteVideo removes all play state of a video, for cleanup when
		// the video is deleted.
		DeleteVideo(ctx context.Context, videoID string) error
	}

	// PlayState holds the resume position of one video for one user.
	PlayState struct {
		// Position is the playback offset in seconds.
		Position int64
		// Timestamp of the last update.
		Timestamp time.Time
	}
)

func New(o *Options) (*Repository, error) {
	if o.Filename == "" {
		return nil, fmt.Errorf("database filename not set")
	}
	dbHandle, err := sqlx.Open("sqlite", o.Filename)
	if err != nil {
		return nil, err
	}
	// sqlite needs to have a single writer
	dbHandle.SetMaxOpenConns(1)

	if err := dbInitSchema(dbHandle); err != nil {
		return nil, err
	}
	return &Repository{
		PlayStateRepo: NewPlayStateStorage(dbHandle),
	}, nil
}

func dbInitSchema(d *sqlx.DB) error {
	tx, err := d.Beginx()
	if err != nil {
		return err
	}

	schema := []string{
		`CREATE TABLE IF NOT EXISTS playstate (
username TEXT NOT NULL,
videoid TEXT NOT NULL,
position INTEGER NOT NULL,
timestamp DATETIME NOT NULL,
PRIMARY KEY (username, videoid));`,

		`CREATE INDEX IF NOT EXISTS playstate_videoid_idx ON playstate (videoid);`,
	}

	for _, query := range schema {
		if _, err = tx.Exec(query); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
