package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Listen.Port)
	assert.Equal(t, "data", cfg.Storage.Datadir)
	assert.Equal(t, "videos", cfg.Storage.Mediadir)
	assert.Equal(t, int64(500*1024*1024), cfg.Upload.MaxBytes)
	assert.Equal(t, "ffmpeg", cfg.Ffmpeg.FfmpegPath)
}

func TestLoadFlagsOverride(t *testing.T) {
	cfg, err := Load([]string{"--port", "8080", "--datadir", "/tmp/x", "--loglevel", "debug"})
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Listen.Port)
	assert.Equal(t, "/tmp/x", cfg.Storage.Datadir)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("VIDGATE_SESSION_SECRET", "sekrit")
	t.Setenv("VIDGATE_LISTEN_PORT", "9999")

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "sekrit", cfg.Session.Secret)
	assert.Equal(t, 9999, cfg.Listen.Port)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(file, []byte(
		"listen:\n  port: 7070\nstorage:\n  mediadir: /srv/videos\n"), 0644))

	cfg, err := Load([]string{"--config", file})
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Listen.Port)
	assert.Equal(t, "/srv/videos", cfg.Storage.Mediadir)
}

func TestLoadRejectsBadPort(t *testing.T) {
	_, err := Load([]string{"--port", "-1"})
	assert.Error(t, err)
}
