package auth

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestMemoryCredentialStore_RoundTrip(t *testing.T) {
	s := NewMemoryCredentialStore()

	_, _, ok := s.Load()
	require.False(t, ok)

	require.NoError(t, s.Save("tok", time.Now().Add(time.Hour)))
	token, _, ok := s.Load()
	require.True(t, ok)
	require.Equal(t, "tok", token)

	require.NoError(t, s.Clear())
	_, _, ok = s.Load()
	require.False(t, ok)
}

func TestMemoryCredentialStore_ExpiredReadsAsEmpty(t *testing.T) {
	s := NewMemoryCredentialStore()
	require.NoError(t, s.Save("tok", time.Now().Add(-time.Minute)))
	_, _, ok := s.Load()
	require.False(t, ok)
}

func TestFileCredentialStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credential.json")
	s := NewFileCredentialStore(path)

	_, _, ok := s.Load()
	require.False(t, ok)

	expiry := time.Now().Add(time.Hour)
	require.NoError(t, s.Save("tok", expiry))

	// A second store over the same path sees the credential.
	token, gotExpiry, ok := NewFileCredentialStore(path).Load()
	require.True(t, ok)
	require.Equal(t, "tok", token)
	require.WithinDuration(t, expiry, gotExpiry, time.Second)

	require.NoError(t, s.Clear())
	_, _, ok = s.Load()
	require.False(t, ok)
	// Clearing an already-empty store is fine.
	require.NoError(t, s.Clear())
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "u1",
		"exp":     exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestCredentialExpiry(t *testing.T) {
	now := time.Now()
	ttl := 7 * 24 * time.Hour

	t.Run("opaque token falls back to ttl", func(t *testing.T) {
		got := credentialExpiry("not-a-jwt", ttl, now)
		require.Equal(t, now.Add(ttl), got)
	})

	t.Run("earlier exp claim wins", func(t *testing.T) {
		exp := now.Add(2 * time.Hour)
		got := credentialExpiry(signedToken(t, exp), ttl, now)
		require.WithinDuration(t, exp, got, time.Second)
	})

	t.Run("later exp claim is capped at ttl", func(t *testing.T) {
		got := credentialExpiry(signedToken(t, now.Add(30*24*time.Hour)), ttl, now)
		require.Equal(t, now.Add(ttl), got)
	})

	t.Run("already expired claim falls back to ttl", func(t *testing.T) {
		got := credentialExpiry(signedToken(t, now.Add(-time.Hour)), ttl, now)
		require.Equal(t, now.Add(ttl), got)
	})
}
