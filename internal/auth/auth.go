// Package auth verifies administrator credentials.
package auth

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/docgrader/internal/model"
)

// AdminUsername is the account seeded on first start.
const AdminUsername = "admin"

// Verifier checks a username/password pair.
type Verifier interface {
	Verify(username, password string) bool
}

// UserStore is the subset of the store the password verifier needs.
type UserStore interface {
	GetUserByUsername(username string) (*model.User, error)
	CreateUser(u model.User) (int64, error)
	UserCount() (int, error)
}

// PasswordVerifier checks passwords against bcrypt hashes kept in the store.
type PasswordVerifier struct {
	users UserStore
}

// NewPasswordVerifier returns a Verifier backed by users.
func NewPasswordVerifier(users UserStore) *PasswordVerifier {
	return &PasswordVerifier{users: users}
}

// Verify reports whether username exists, is active and password matches.
func (v *PasswordVerifier) Verify(username, password string) bool {
	u, err := v.users.GetUserByUsername(username)
	if err != nil {
		slog.Error("failed to look up user", "username", username, "error", err)
		return false
	}
	if u == nil || !u.Active {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// HashPassword returns a bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ErrNoAdminPassword is returned when no admin exists and none was configured.
var ErrNoAdminPassword = errors.New("admin password is required: set --admin-password flag or DOCGRADER_ADMIN_PASSWORD env var")

// SeedAdmin creates the admin account if the store has no users yet.
func SeedAdmin(users UserStore, password string) error {
	count, err := users.UserCount()
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	if password == "" {
		return ErrNoAdminPassword
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	_, err = users.CreateUser(model.User{
		Username:     AdminUsername,
		PasswordHash: hash,
		Active:       true,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	slog.Info("seeded default admin user", "username", AdminUsername)
	return nil
}

// PasswordSetter replaces stored password hashes and ends old sessions.
type PasswordSetter interface {
	GetUserByUsername(username string) (*model.User, error)
	SetUserPassword(username, hash string) error
	RevokeUserSessions(userID int64) error
}

// ErrUnknownUser is returned when resetting the password of a missing account.
var ErrUnknownUser = errors.New("no such user")

// ResetPassword stores a new bcrypt hash for username and logs the
// account out everywhere.
func ResetPassword(users PasswordSetter, username, password string) error {
	if password == "" {
		return errors.New("password must not be empty")
	}
	u, err := users.GetUserByUsername(username)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("%w: %s", ErrUnknownUser, username)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := users.SetUserPassword(username, hash); err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	if err := users.RevokeUserSessions(u.ID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	slog.Info("reset password", "username", username)
	return nil
}
