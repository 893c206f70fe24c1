package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Search {
	t.Helper()
	s, err := New()
	require.NoError(t, err)
	require.NoError(t, s.Rebuild(context.Background(), []Document{
		{ID: "v1", Title: "Big Buck Bunny", Description: "a large rabbit"},
		{ID: "v2", Title: "Sintel", Description: "a girl and a dragon"},
		{ID: "v3", Title: "Tears of Steel", Description: "robots in amsterdam"},
	}))
	return s
}

func TestSearchExactTitle(t *testing.T) {
	s := newTestIndex(t)

	ids, err := s.Search(context.Background(), "big buck bunny", 10)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "v1", ids[0])
}

func TestSearchPrefix(t *testing.T) {
	s := newTestIndex(t)

	ids, err := s.Search(context.Background(), "sint", 10)
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "v2", ids[0])
}

func TestSearchDescription(t *testing.T) {
	s := newTestIndex(t)

	ids, err := s.Search(context.Background(), "dragon", 10)
	require.NoError(t, err)
	require.Contains(t, ids, "v2")
}

func TestSearchEmptyTerm(t *testing.T) {
	s := newTestIndex(t)

	ids, err := s.Search(context.Background(), "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRebuildReplaces(t *testing.T) {
	s := newTestIndex(t)
	require.NoError(t, s.Rebuild(context.Background(), []Document{
		{ID: "v9", Title: "Elephants Dream"},
	}))

	ids, err := s.Search(context.Background(), "bunny", 10)
	require.NoError(t, err)
	assert.NotContains(t, ids, "v1")

	ids, err = s.Search(context.Background(), "elephants", 10)
	require.NoError(t, err)
	assert.Contains(t, ids, "v9")
}
