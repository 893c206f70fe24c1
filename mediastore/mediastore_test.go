package mediastore

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidgate/vidgate-server/rank"
)

func newTestStore(t *testing.T) *MediaStore {
	t.Helper()
	m, err := New(&Options{Root: t.TempDir(), Logger: zerolog.Nop()})
	require.NoError(t, err)
	return m
}

func TestNewCreatesRankFolders(t *testing.T) {
	m := newTestStore(t)
	for _, r := range rank.Ranks {
		fi, err := os.Stat(filepath.Join(m.Root(), string(r)))
		require.NoError(t, err)
		assert.True(t, fi.IsDir())
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"movie.mp4", "movie.mp4"},
		{"my movie.mp4", "my_movie.mp4"},
		{"../../etc/passwd", "passwd"},
		{"..\\..\\boot.ini", "boot.ini"},
		{"über café.mp4", "ber_caf.mp4"},
		{"..", ""},
		{"...", ""},
		{"///", ""},
		{".hidden", "hidden"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SanitizeFilename(tc.in), "input %q", tc.in)
	}
}

func TestStoreAndResolve(t *testing.T) {
	m := newTestStore(t)

	name, err := m.Store(strings.NewReader("data"), rank.Free, "movie.mp4")
	require.NoError(t, err)
	assert.Equal(t, "movie.mp4", name)

	path, err := m.ResolveForRead(name, rank.Free)
	require.NoError(t, err)
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))

	// Same filename under any other rank folder does not resolve.
	_, err = m.ResolveForRead(name, rank.Top)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreGeneratesNameWhenSanitizedAway(t *testing.T) {
	m := newTestStore(t)

	name, err := m.Store(strings.NewReader("x"), rank.Free, "???.mp4")
	require.NoError(t, err)
	assert.NotEmpty(t, name)
	assert.True(t, strings.HasSuffix(name, ".mp4"), "extension preserved, got %q", name)

	_, err = m.ResolveForRead(name, rank.Free)
	assert.NoError(t, err)
}

func TestStoreAvoidsCollision(t *testing.T) {
	m := newTestStore(t)

	first, err := m.Store(strings.NewReader("one"), rank.Free, "clip.mp4")
	require.NoError(t, err)
	second, err := m.Store(strings.NewReader("two"), rank.Free, "clip.mp4")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	path, err := m.ResolveForRead(first, rank.Free)
	require.NoError(t, err)
	content, _ := os.ReadFile(path)
	assert.Equal(t, "one", string(content))
}

func TestResolveRejectsTraversal(t *testing.T) {
	m := newTestStore(t)

	_, err := m.ResolveForRead("../../etc/passwd", rank.Free)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ResolveForRead("/etc/passwd", rank.Free)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ResolveForRead("..", rank.Free)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ResolveForRead("", rank.Free)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveRejectsSymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation may require privileges on windows")
	}
	m := newTestStore(t)

	outside := filepath.Join(t.TempDir(), "secret.mp4")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0644))
	link := filepath.Join(m.Root(), string(rank.Free), "link.mp4")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlink not supported: %v", err)
	}

	_, err := m.ResolveForRead("link.mp4", rank.Free)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRelocate(t *testing.T) {
	m := newTestStore(t)

	name, err := m.Store(strings.NewReader("data"), rank.Free, "movie.mp4")
	require.NoError(t, err)

	// Same-tier relocation is a no-op.
	require.NoError(t, m.Relocate(name, rank.Free, rank.Free))
	_, err = m.ResolveForRead(name, rank.Free)
	require.NoError(t, err)

	// Move up, then back: file ends where it started, exactly one copy.
	require.NoError(t, m.Relocate(name, rank.Free, rank.Top))
	_, err = m.ResolveForRead(name, rank.Free)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ResolveForRead(name, rank.Top)
	require.NoError(t, err)

	require.NoError(t, m.Relocate(name, rank.Top, rank.Free))
	_, err = m.ResolveForRead(name, rank.Free)
	require.NoError(t, err)
	_, err = m.ResolveForRead(name, rank.Top)
	assert.ErrorIs(t, err, ErrNotFound)

	// A missing source is treated as already moved, not an error.
	require.NoError(t, m.Relocate("gone.mp4", rank.Free, rank.Top))
}

func TestDeleteBestEffort(t *testing.T) {
	m := newTestStore(t)

	name, err := m.Store(strings.NewReader("data"), rank.Middle, "movie.mp4")
	require.NoError(t, err)

	m.Delete(name, rank.Middle)
	_, err = m.ResolveForRead(name, rank.Middle)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing file must not panic or error.
	m.Delete(name, rank.Middle)
	m.Delete("", rank.Middle)
}

func TestAddedTime(t *testing.T) {
	m := newTestStore(t)

	name, err := m.Store(strings.NewReader("data"), rank.Free, "movie.mp4")
	require.NoError(t, err)
	assert.False(t, m.AddedTime(name, rank.Free).IsZero())
	assert.True(t, m.AddedTime("missing.mp4", rank.Free).IsZero())
}
