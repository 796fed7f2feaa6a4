// Package auth owns the credential and the authenticated-user snapshot.
// It is the sole writer of authentication state.
package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"jackbear/internal/sentinel"
	dErrors "jackbear/pkg/domain-errors"
	s "jackbear/pkg/string"
	"jackbear/pkg/validation"
)

//go:generate mockgen -source=manager.go -destination=mocks/mocks.go -package=mocks Transport

// Transport is the slice of the outbound channel the manager needs.
type Transport interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Manager implements the auth session lifecycle: login, register, logout,
// profile refresh. It also serves as the transport's credential source.
type Manager struct {
	client  Transport
	creds   CredentialStore
	credTTL time.Duration
	logger  *slog.Logger
	clock   func() time.Time

	mu      sync.RWMutex
	profile *UserProfile
}

const defaultCredentialTTL = 7 * 24 * time.Hour

// Option configures a Manager.
type Option func(*Manager)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithCredentialTTL caps how long a stored credential stays usable.
func WithCredentialTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.credTTL = ttl
		}
	}
}

// WithClock overrides time.Now for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewManager constructs a Manager over the given transport and credential store.
func NewManager(client Transport, creds CredentialStore, opts ...Option) (*Manager, error) {
	if client == nil || creds == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "transport and credential store are required")
	}
	m := &Manager{
		client:  client,
		creds:   creds,
		credTTL: defaultCredentialTTL,
		logger:  slog.Default(),
		clock:   time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// authPayload is the wire shape of a successful credential exchange.
type authPayload struct {
	User  userPayload `json:"user"`
	Token string      `json:"token"`
}

// loginRequest is the credential exchange body.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// registerRequest is the account creation body. The authority expects the
// display name under "username".
type registerRequest struct {
	Username string `json:"username" validate:"required,notblank,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Login exchanges credentials for a session and stores the bearer token.
func (m *Manager) Login(ctx context.Context, email, password string) (UserProfile, error) {
	s.TrimStrings(&email)
	req := loginRequest{Email: email, Password: password}
	if err := validation.Validate(req); err != nil {
		return UserProfile{}, err
	}

	var payload authPayload
	if err := m.client.Post(ctx, "/auth/login", req, &payload); err != nil {
		return UserProfile{}, err
	}
	return m.install(payload)
}

// Register creates an account and logs the new user in.
func (m *Manager) Register(ctx context.Context, name, email, password string) (UserProfile, error) {
	s.TrimStrings(&name, &email)
	req := registerRequest{Username: name, Email: email, Password: password}
	if err := validation.Validate(req); err != nil {
		return UserProfile{}, err
	}

	var payload authPayload
	if err := m.client.Post(ctx, "/auth/register", req, &payload); err != nil {
		return UserProfile{}, err
	}
	return m.install(payload)
}

func (m *Manager) install(payload authPayload) (UserProfile, error) {
	if payload.Token == "" {
		return UserProfile{}, dErrors.New(dErrors.CodeInternal, "authority returned no credential")
	}
	now := m.clock()
	expiry := credentialExpiry(payload.Token, m.credTTL, now)
	if err := m.creds.Save(payload.Token, expiry); err != nil {
		return UserProfile{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist credential")
	}
	profile := payload.User.toProfile()
	m.mu.Lock()
	m.profile = &profile
	m.mu.Unlock()
	return profile, nil
}

// Logout tells the authority best-effort, then clears the credential and the
// profile snapshot regardless of the response. Safe to call repeatedly.
func (m *Manager) Logout(ctx context.Context) {
	if _, _, ok := m.creds.Load(); ok {
		if err := m.client.Post(ctx, "/auth/logout", nil, nil); err != nil {
			m.logger.DebugContext(ctx, "logout call ignored", "error", err)
		}
	}
	m.ClearLocal()
}

// ClearLocal drops the credential and profile without touching the network.
// This is the forced-logout path taken when the transport reports a
// credential rejection.
func (m *Manager) ClearLocal() {
	if err := m.creds.Clear(); err != nil {
		m.logger.Warn("clear credential failed", "error", err)
	}
	m.mu.Lock()
	m.profile = nil
	m.mu.Unlock()
}

// RefreshProfile re-reads the authoritative profile. A credential rejection
// performs an implicit logout and surfaces a session-expired error.
func (m *Manager) RefreshProfile(ctx context.Context) (UserProfile, error) {
	var payload userPayload
	if err := m.client.Get(ctx, "/auth/me", &payload); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthenticated) {
			m.ClearLocal()
			return UserProfile{}, dErrors.Wrap(sentinel.ErrUnauthenticated, dErrors.CodeUnauthenticated, "session expired")
		}
		return UserProfile{}, err
	}
	profile := payload.toProfile()
	m.mu.Lock()
	m.profile = &profile
	m.mu.Unlock()
	return profile, nil
}

// Profile returns the last authoritative snapshot, if present.
func (m *Manager) Profile() (UserProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.profile == nil {
		return UserProfile{}, false
	}
	return *m.profile, true
}

// Authenticated reports whether a live credential is stored.
func (m *Manager) Authenticated() bool {
	_, _, ok := m.creds.Load()
	return ok
}

// Session returns the current session, if one is live.
func (m *Manager) Session() (Session, bool) {
	token, expiry, ok := m.creds.Load()
	if !ok {
		return Session{}, false
	}
	var userID string
	m.mu.RLock()
	if m.profile != nil {
		userID = m.profile.ID
	}
	m.mu.RUnlock()
	return Session{UserID: userID, Token: token, Expiry: expiry}, true
}

// Token implements transport.CredentialSource.
func (m *Manager) Token() (string, bool) {
	token, _, ok := m.creds.Load()
	return token, ok
}
