package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namnn9x/remi/internal/storage"
)

func testService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	db, err := storage.InitDB(filepath.Join(t.TempDir(), "auth-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(db, []byte("test-secret"), ttl)
}

func TestRegisterAndLogin(t *testing.T) {
	s := testService(t, time.Hour)

	user, token, err := s.Register("Owner@Example.com", "hunter22", "Owner")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "owner@example.com", user.Email)

	// Token round-trips to the user id.
	userID, err := s.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	// Login with the same credentials, case-insensitive email.
	again, token2, err := s.Login("owner@example.COM", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.NotEmpty(t, token2)

	_, _, err = s.Login("owner@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = s.Login("nobody@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := testService(t, time.Hour)
	_, _, err := s.Register("dup@example.com", "pw", "A")
	require.NoError(t, err)
	_, _, err = s.Register("dup@example.com", "pw2", "B")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestVerifyTokenRejectsExpiredAndTampered(t *testing.T) {
	s := testService(t, -time.Minute)
	_, token, err := s.Register("a@example.com", "pw", "A")
	require.NoError(t, err)

	_, err = s.VerifyToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	fresh := testService(t, time.Hour)
	_, token, err = fresh.Register("b@example.com", "pw", "B")
	require.NoError(t, err)
	_, err = fresh.VerifyToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = fresh.VerifyToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer abc"))
	assert.Equal(t, "", BearerToken(""))
	assert.Equal(t, "", BearerToken("Basic abc"))
}
