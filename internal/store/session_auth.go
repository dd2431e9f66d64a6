package store

import (
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pavelanni/docgrader/internal/model"
)

const authSessionTTL = 24 * time.Hour

// tokenKey is the stored form of a session token.
func tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// CreateAuthSession starts an admin session and returns its bearer token.
func (s *Store) CreateAuthSession(userID int64) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	now := time.Now()
	sess := model.AuthSession{
		ID:        tokenKey(token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(authSessionTTL),
	}
	err = s.withDB(func(db *sqlx.DB) error {
		_, err := db.NamedExec(
			`INSERT INTO auth_sessions (id, user_id, created_at, expires_at)
			 VALUES (:id, :user_id, :created_at, :expires_at)`, sess)
		return err
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// GetAuthSession resolves a bearer token. Unknown and expired tokens yield
// nil; expired ones are removed on the way.
func (s *Store) GetAuthSession(token string) (*model.AuthSession, error) {
	var sess model.AuthSession
	key := tokenKey(token)
	err := s.withDB(func(db *sqlx.DB) error {
		if err := db.Get(&sess, `SELECT id, user_id, created_at, expires_at FROM auth_sessions WHERE id = ?`, key); err != nil {
			return err
		}
		if time.Now().After(sess.ExpiresAt) {
			if _, err := db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, key); err != nil {
				return err
			}
			return sql.ErrNoRows
		}
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteAuthSession ends the session identified by token.
func (s *Store) DeleteAuthSession(token string) error {
	return s.withDB(func(db *sqlx.DB) error {
		_, err := db.Exec(`DELETE FROM auth_sessions WHERE id = ?`, tokenKey(token))
		return err
	})
}

// RevokeUserSessions ends every session of userID.
func (s *Store) RevokeUserSessions(userID int64) error {
	return s.withDB(func(db *sqlx.DB) error {
		res, err := db.Exec(`DELETE FROM auth_sessions WHERE user_id = ?`, userID)
		if err != nil {
			return err
		}
		n, _ := res.RowsAffected()
		slog.Info("revoked sessions", "user_id", userID, "count", n)
		return nil
	})
}

// CleanupExpiredSessions removes expired sessions and reports how many went.
func (s *Store) CleanupExpiredSessions() (int64, error) {
	var n int64
	err := s.withDB(func(db *sqlx.DB) error {
		res, err := db.Exec(`DELETE FROM auth_sessions WHERE expires_at < ?`, time.Now())
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	return n, err
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
