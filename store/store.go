// Package store persists user accounts and video metadata in two spreadsheet
// files, users.xlsx and videos.xlsx. Every read loads the whole file and
// every write replaces it; mutations run load-modify-save behind a mutex so
// concurrent admin edits within the process cannot lose updates.
package store

import (
	"errors"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrUserExists      = errors.New("user already exists")
	ErrProtectedUser   = errors.New("user is protected")
	ErrVideoNotFound   = errors.New("video not found")
)

// AdminUsername is the account with administrative privileges. It is seeded
// at bootstrap and cannot be renamed or deleted.
const AdminUsername = "admin"

// defaultAdminPassword is the bootstrap password of the seeded admin account.
const defaultAdminPassword = "@admin"

type Options struct {
	// Datadir is the directory holding users.xlsx and videos.xlsx.
	Datadir string
	Logger  zerolog.Logger
}

// Store is the spreadsheet-backed tabular store.
type Store struct {
	usersFile  string
	videosFile string
	logger     zerolog.Logger
	mu         sync.Mutex
}

// New creates a Store and bootstraps missing backing files: a users file is
// seeded with the admin account, a videos file with headers only. Existing
// files are left untouched.
func New(o *Options) (*Store, error) {
	s := &Store{
		usersFile:  filepath.Join(o.Datadir, "users.xlsx"),
		videosFile: filepath.Join(o.Datadir, "videos.xlsx"),
		logger:     o.Logger.With().Str("component", "store").Logger(),
	}
	if _, err := s.LoadUsers(); err != nil {
		return nil, err
	}
	if _, err := s.LoadVideos(); err != nil {
		return nil, err
	}
	return s, nil
}

// HashPassword hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
