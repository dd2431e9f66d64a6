package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pavelanni/docgrader/internal/model"
	"github.com/pavelanni/docgrader/internal/store"
)

func newUserStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "students.db"))
	require.NoError(t, err)
	return s
}

func TestSeedAdminAndVerify(t *testing.T) {
	s := newUserStore(t)

	require.ErrorIs(t, SeedAdmin(s, ""), ErrNoAdminPassword)
	require.NoError(t, SeedAdmin(s, "correct horse"))

	u, err := s.GetUserByUsername(AdminUsername)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.NotEqual(t, "correct horse", u.PasswordHash, "password must be stored hashed")

	v := NewPasswordVerifier(s)
	assert.True(t, v.Verify(AdminUsername, "correct horse"))
	assert.False(t, v.Verify(AdminUsername, "qwerty"))
	assert.False(t, v.Verify("root", "correct horse"))

	// Seeding again is a no-op and keeps the original password.
	require.NoError(t, SeedAdmin(s, "another"))
	assert.True(t, v.Verify(AdminUsername, "correct horse"))
	count, _ := s.UserCount()
	assert.Equal(t, 1, count)
}

func TestVerifyInactiveUser(t *testing.T) {
	s := newUserStore(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = s.CreateUser(model.User{Username: "retired", PasswordHash: string(hash), Active: false})
	require.NoError(t, err)

	assert.False(t, NewPasswordVerifier(s).Verify("retired", "pw"))
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")))
}

func TestResetPassword(t *testing.T) {
	s := newUserStore(t)
	require.NoError(t, SeedAdmin(s, "old"))
	admin, err := s.GetUserByUsername(AdminUsername)
	require.NoError(t, err)
	token, err := s.CreateAuthSession(admin.ID)
	require.NoError(t, err)

	require.NoError(t, ResetPassword(s, AdminUsername, "new"))
	sess, err := s.GetAuthSession(token)
	require.NoError(t, err)
	assert.Nil(t, sess, "old sessions end on password reset")
	v := NewPasswordVerifier(s)
	assert.True(t, v.Verify(AdminUsername, "new"))
	assert.False(t, v.Verify(AdminUsername, "old"))

	assert.ErrorIs(t, ResetPassword(s, "ghost", "pw"), ErrUnknownUser)
	assert.Error(t, ResetPassword(s, AdminUsername, ""))
}
