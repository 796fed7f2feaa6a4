package auth

import (
	"encoding/json"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CredentialStore persists the bearer credential between operations. The
// stored credential expires: reads past the deadline behave as if nothing
// were stored, mirroring the original 7-day cookie policy.
type CredentialStore interface {
	Save(token string, expiry time.Time) error
	Load() (token string, expiry time.Time, ok bool)
	Clear() error
}

// MemoryCredentialStore keeps the credential in process memory.
type MemoryCredentialStore struct {
	mu     sync.RWMutex
	token  string
	expiry time.Time
}

// NewMemoryCredentialStore returns an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Save(token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.expiry = expiry
	return nil
}

func (s *MemoryCredentialStore) Load() (string, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" || time.Now().After(s.expiry) {
		return "", time.Time{}, false
	}
	return s.token, s.expiry, true
}

func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.expiry = time.Time{}
	return nil
}

// FileCredentialStore persists the credential as a mode-0600 JSON file so the
// session survives process restarts.
type FileCredentialStore struct {
	mu   sync.Mutex
	path string
}

type credentialFile struct {
	Token  string    `json:"token"`
	Expiry time.Time `json:"expiry"`
}

// NewFileCredentialStore returns a store backed by the given path.
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

func (s *FileCredentialStore) Save(token string, expiry time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.Marshal(credentialFile{Token: token, Expiry: expiry})
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, raw, 0o600)
}

func (s *FileCredentialStore) Load() (string, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", time.Time{}, false
	}
	var cf credentialFile
	if err := json.Unmarshal(raw, &cf); err != nil {
		return "", time.Time{}, false
	}
	if cf.Token == "" || time.Now().After(cf.Expiry) {
		return "", time.Time{}, false
	}
	return cf.Token, cf.Expiry, true
}

func (s *FileCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// credentialExpiry derives the stored expiry for a fresh token. The authority
// issues JWTs; when the token carries an exp claim earlier than the default
// TTL we honor it, otherwise the TTL applies. The claim is read without
// signature verification since the engine only uses it as a scheduling hint.
func credentialExpiry(token string, ttl time.Duration, now time.Time) time.Time {
	deadline := now.Add(ttl)
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return deadline
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return deadline
	}
	if exp.Time.Before(deadline) && exp.Time.After(now) {
		return exp.Time
	}
	return deadline
}
