// Package mediastore manages the rank-partitioned directory tree holding
// video and thumbnail binaries. Files are addressed as (rank, filename);
// every resolution is checked to stay strictly inside the rank folder.
package mediastore

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/djherbis/times"
	"github.com/rs/zerolog"

	"github.com/vidgate/vidgate-server/idhash"
	"github.com/vidgate/vidgate-server/rank"
)

// ErrNotFound is returned when a file does not resolve to a regular file
// inside its rank folder, including traversal and symlink escape attempts.
var ErrNotFound = errors.New("media file not found")

type Options struct {
	// Root is the media directory; one subdirectory per rank is created
	// eagerly below it.
	Root   string
	Logger zerolog.Logger
}

// MediaStore is a rank-partitioned file tree.
type MediaStore struct {
	root   string
	logger zerolog.Logger
}

// New creates the root and all rank subdirectories.
func New(o *Options) (*MediaStore, error) {
	root, err := filepath.Abs(o.Root)
	if err != nil {
		return nil, err
	}
	for _, r := range rank.Ranks {
		if err := os.MkdirAll(filepath.Join(root, string(r)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create media directory: %w", err)
		}
	}
	return &MediaStore{
		root:   root,
		logger: o.Logger.With().Str("component", "mediastore").Logger(),
	}, nil
}

// Root returns the absolute media root directory.
func (m *MediaStore) Root() string {
	return m.root
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SanitizeFilename reduces a client-provided name to a safe flat filename:
// path separators are stripped, whitespace becomes underscores and anything
// outside [A-Za-z0-9_.-] is removed. The result can be empty.
func SanitizeFilename(name string) string {
	// Take the last path element regardless of separator style.
	name = strings.ReplaceAll(name, "\\", "/")
	name = name[strings.LastIndex(name, "/")+1:]

	name = strings.Join(strings.Fields(name), "_")
	name = unsafeChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	return name
}

// Store writes content under the rank folder using a sanitized version of
// desiredName. A name that sanitizes away is replaced with a random one
// keeping the original extension, and collisions get a random prefix so
// filenames stay unique within the tier folder.
func (m *MediaStore) Store(content io.Reader, r rank.Rank, desiredName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(desiredName))

	name := SanitizeFilename(desiredName)
	if name == "" {
		name = idhash.NewRandomID() + ext
	} else if !strings.Contains(name, ".") && ext != "" {
		name += ext
	}

	dir := filepath.Join(m.root, string(r))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if _, err := os.Lstat(filepath.Join(dir, name)); err == nil {
		name = idhash.NewRandomID() + "_" + name
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return name, nil
}

// Relocate moves a file between rank folders. Moving a file onto itself is a
// no-op, as is moving a file that is already gone.
func (m *MediaStore) Relocate(filename string, from, to rank.Rank) error {
	name := SanitizeFilename(filename)
	if name == "" {
		return nil
	}
	src := filepath.Join(m.root, string(from), name)
	dst := filepath.Join(m.root, string(to), name)
	if src == dst {
		return nil
	}
	if fi, err := os.Lstat(src); err != nil || !fi.Mode().IsRegular() {
		// Already moved or deleted.
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// Delete removes a file best-effort. Failures are logged and swallowed so
// metadata cleanup never depends on the filesystem cooperating.
func (m *MediaStore) Delete(filename string, r rank.Rank) {
	name := SanitizeFilename(filename)
	if name == "" {
		return
	}
	path := filepath.Join(m.root, string(r), name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn().Err(err).Str("path", path).Msg("failed to remove media file")
	}
}

// ResolveForRead maps (rank, filename) to an absolute path, returning
// ErrNotFound unless the result is a regular file strictly inside the rank
// folder. Symlinks pointing outside the folder are rejected.
func (m *MediaStore) ResolveForRead(filename string, r rank.Rank) (string, error) {
	name := SanitizeFilename(filename)
	if name == "" {
		return "", ErrNotFound
	}
	folder := filepath.Join(m.root, string(r))
	path := filepath.Clean(filepath.Join(folder, name))
	if !isWithin(folder, path) {
		return "", ErrNotFound
	}

	fi, err := os.Lstat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return "", ErrNotFound
	}

	// An existing path may still escape through a symlinked component.
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", ErrNotFound
	}
	folderResolved, err := filepath.EvalSymlinks(folder)
	if err != nil {
		return "", ErrNotFound
	}
	if !isWithin(folderResolved, resolved) {
		return "", ErrNotFound
	}
	return path, nil
}

// AddedTime returns when a file appeared in the tree, for newest-first
// listings. Falls back to the zero time when the file cannot be inspected.
func (m *MediaStore) AddedTime(filename string, r rank.Rank) time.Time {
	path, err := m.ResolveForRead(filename, r)
	if err != nil {
		return time.Time{}
	}
	ts, err := times.Stat(path)
	if err != nil {
		return time.Time{}
	}
	if ts.HasBirthTime() {
		return ts.BirthTime()
	}
	return ts.ModTime()
}

func isWithin(root, candidate string) bool {
	root = filepath.Clean(root)
	candidate = filepath.Clean(candidate)
	if root == candidate {
		return false
	}
	return strings.HasPrefix(candidate, root+string(filepath.Separator))
}
