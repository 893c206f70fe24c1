package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

type PlayStateStorage struct {
	dbHandle *sqlx.DB
}

func NewPlayStateStorage(d *sqlx.DB) *PlayStateStorage {
	return &PlayStateStorage{
		dbHandle: d,
	}
}

// Get returns the play state of a video for a user.
func (p *PlayStateStorage) Get(ctx context.Context, username, videoID string) (*PlayState, error) {
	var row struct {
		Position  int64     `db:"position"`
		Timestamp time.Time `db:"timestamp"`
	}
	err := p.dbHandle.GetContext(ctx, &row,
		"SELECT position, timestamp FROM playstate WHERE username=? AND videoid=? LIMIT 1",
		username, videoID)
	if err != nil {
		return nil, ErrNotFound
	}
	return &PlayState{
		Position:  row.Position,
		Timestamp: row.Timestamp,
	}, nil
}

// Update stores the play state of a video for a user.
func (p *PlayStateStorage) Update(ctx context.Context, username, videoID string, state *PlayState) error {
	tx, err := p.dbHandle.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `REPLACE INTO playstate (username, videoid, position, timestamp) VALUES (?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, query,
		username, videoID, state.Position, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteVideo removes all play state rows of a video.
func (p *PlayStateStorage) DeleteVideo(ctx context.Context, videoID string) error {
	_, err := p.dbHandle.ExecContext(ctx,
		"DELETE FROM playstate WHERE videoid=?", videoID)
	return err
}
