package store

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pavelanni/docgrader/internal/model"
)

const userColumns = `id, username, password_hash, active, created_at`

// CreateUser inserts a new admin account.
func (s *Store) CreateUser(u model.User) (int64, error) {
	var id int64
	err := s.withDB(func(db *sqlx.DB) error {
		res, err := db.Exec(
			`INSERT INTO users (username, password_hash, active, created_at) VALUES (?, ?, ?, ?)`,
			u.Username, u.PasswordHash, u.Active, time.Now(),
		)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		slog.Error("failed to create user", "username", u.Username, "error", err)
		return 0, err
	}
	slog.Info("created user", "id", id, "username", u.Username)
	return id, nil
}

// GetUserByUsername returns a user by username, or nil if there is none.
func (s *Store) GetUserByUsername(username string) (*model.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
}

// GetUserByID returns a user by ID, or nil if there is none.
func (s *Store) GetUserByID(id int64) (*model.User, error) {
	return s.getUser(`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
}

func (s *Store) getUser(query string, arg any) (*model.User, error) {
	var u model.User
	err := s.withDB(func(db *sqlx.DB) error {
		return db.Get(&u, query, arg)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SetUserPassword replaces the stored password hash for a user.
func (s *Store) SetUserPassword(username, hash string) error {
	return s.withDB(func(db *sqlx.DB) error {
		_, err := db.Exec(`UPDATE users SET password_hash = ? WHERE username = ?`, hash, username)
		return err
	})
}

// UserCount returns the total number of users.
func (s *Store) UserCount() (int, error) {
	var count int
	err := s.withDB(func(db *sqlx.DB) error {
		return db.Get(&count, `SELECT COUNT(*) FROM users`)
	})
	return count, err
}
