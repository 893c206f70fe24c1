package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(&Options{
		Filename: filepath.Join(t.TempDir(), "playstate.db"),
	})
	require.NoError(t, err)
	return repo
}

func TestNewRequiresFilename(t *testing.T) {
	_, err := New(&Options{})
	assert.Error(t, err)
}

func TestPlayStateRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.Get(ctx, "alice", "v1")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Update(ctx, "alice", "v1", &PlayState{Position: 42}))

	state, err := repo.Get(ctx, "alice", "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), state.Position)
	assert.False(t, state.Timestamp.IsZero())

	// Replace, not append.
	require.NoError(t, repo.Update(ctx, "alice", "v1", &PlayState{Position: 90}))
	state, err = repo.Get(ctx, "alice", "v1")
	require.NoError(t, err)
	assert.Equal(t, int64(90), state.Position)

	// Per-user isolation.
	_, err = repo.Get(ctx, "bob", "v1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteVideoClearsAllUsers(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Update(ctx, "alice", "v1", &PlayState{Position: 10}))
	require.NoError(t, repo.Update(ctx, "bob", "v1", &PlayState{Position: 20}))
	require.NoError(t, repo.Update(ctx, "alice", "v2", &PlayState{Position: 30}))

	require.NoError(t, repo.DeleteVideo(ctx, "v1"))

	_, err := repo.Get(ctx, "alice", "v1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.Get(ctx, "bob", "v1")
	assert.ErrorIs(t, err, ErrNotFound)

	state, err := repo.Get(ctx, "alice", "v2")
	require.NoError(t, err)
	assert.Equal(t, int64(30), state.Position)
}
