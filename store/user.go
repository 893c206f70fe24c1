package store

import (
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vidgate/vidgate-server/rank"
)

// User is one account row in users.xlsx.
type User struct {
	// Username is unique, trimmed and case-sensitive.
	Username string
	// Password is the bcrypt hash of the account password.
	Password string
	Rank     rank.Rank
}

// IsAdmin reports whether the user is the administrator account.
func (u *User) IsAdmin() bool {
	return u.Username == AdminUsername
}

var userHeaders = []string{"username", "password", "rank"}

// LoadUsers reads all accounts. A missing backing file is created containing
// exactly the seeded admin account; an existing file is never reseeded.
func (s *Store) LoadUsers() ([]User, error) {
	if !fileExists(s.usersFile) {
		hashed, err := HashPassword(defaultAdminPassword)
		if err != nil {
			return nil, err
		}
		seed := []User{{Username: AdminUsername, Password: hashed, Rank: rank.Top}}
		if err := s.saveUsers(seed); err != nil {
			return nil, err
		}
		s.logger.Info().Str("username", AdminUsername).Msg("seeded admin account")
		return seed, nil
	}

	records, err := readSheet(s.usersFile, userHeaders)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(records))
	for _, r := range records {
		username := strings.TrimSpace(r["username"])
		if username == "" {
			continue
		}
		users = append(users, User{
			Username: username,
			Password: r["password"],
			Rank:     rank.Parse(r["rank"]),
		})
	}
	return users, nil
}

// SaveUsers replaces the users file with the given accounts.
func (s *Store) SaveUsers(users []User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveUsers(users)
}

func (s *Store) saveUsers(users []User) error {
	rows := make([][]any, len(users))
	for i, u := range users {
		rows[i] = []any{u.Username, u.Password, string(u.Rank)}
	}
	return writeSheet(s.usersFile, userHeaders, rows)
}

// GetUser returns the account with the given username.
func (s *Store) GetUser(username string) (*User, error) {
	users, err := s.LoadUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == strings.TrimSpace(username) {
			return &users[i], nil
		}
	}
	return nil, ErrUserNotFound
}

// Validate checks if the user exists and the password is correct.
func (s *Store) Validate(username, password string) (*User, error) {
	user, err := s.GetUser(username)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidPassword
	}
	return user, nil
}

// AddUser creates a new account with a hashed password.
func (s *Store) AddUser(username, password string, r rank.Rank) (*User, error) {
	username = strings.TrimSpace(username)

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.LoadUsers()
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].Username == username {
			return nil, ErrUserExists
		}
	}
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := User{Username: username, Password: hashed, Rank: r}
	users = append(users, user)
	if err := s.saveUsers(users); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserUpdate describes an account edit. Password is only changed when
// non-empty.
type UserUpdate struct {
	Username string
	Rank     rank.Rank
	Password string
}

// UpdateUser renames an account and/or changes its rank and password. The
// admin account cannot be renamed away.
func (s *Store) UpdateUser(username string, update UserUpdate) error {
	newUsername := strings.TrimSpace(update.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if username == AdminUsername && newUsername != AdminUsername {
		return ErrProtectedUser
	}

	users, err := s.LoadUsers()
	if err != nil {
		return err
	}
	target := -1
	for i := range users {
		if users[i].Username == username {
			target = i
			continue
		}
		if users[i].Username == newUsername {
			return ErrUserExists
		}
	}
	if target < 0 {
		return ErrUserNotFound
	}

	users[target].Username = newUsername
	users[target].Rank = update.Rank
	if update.Password != "" {
		hashed, err := HashPassword(update.Password)
		if err != nil {
			return err
		}
		users[target].Password = hashed
	}
	return s.saveUsers(users)
}

// DeleteUser removes an account. The admin account is protected.
func (s *Store) DeleteUser(username string) error {
	username = strings.TrimSpace(username)
	if username == AdminUsername {
		return ErrProtectedUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.LoadUsers()
	if err != nil {
		return err
	}
	kept := users[:0]
	found := false
	for _, u := range users {
		if u.Username == username {
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return ErrUserNotFound
	}
	return s.saveUsers(kept)
}
